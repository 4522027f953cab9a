package playback

import (
	"fmt"
	"time"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
)

// EndSignal is the kind of event that ends an item visit.
type EndSignal int

const (
	// SignalTimer ends the visit when a fixed countdown expires.
	SignalTimer EndSignal = iota
	// SignalMediaEnded waits for the player to report the media ended. No timer is armed.
	SignalMediaEnded
	// SignalRace arms a fallback countdown and also accepts a player ended
	// report; whichever comes first wins and the other is disarmed.
	SignalRace
)

func (s EndSignal) String() string {
	switch s {
	case SignalTimer:
		return "timer"
	case SignalMediaEnded:
		return "media_ended"
	case SignalRace:
		return "race"
	}
	return fmt.Sprintf("EndSignal(%d)", int(s))
}

// DelaySource says where a visit's countdown comes from.
type DelaySource int

const (
	DelayNone DelaySource = iota
	DelayItemDuration
	// DelayItemDurationOrFallback uses the item duration, or the YouTube
	// fallback when the duration is unset.
	DelayItemDurationOrFallback
	// DelayPlatformDefault is the short fixed default for platforms that expose
	// no completion event at all.
	DelayPlatformDefault
)

type Rule struct {
	Signal EndSignal
	Delay  DelaySource
}

// AcceptsMediaEnded reports whether a player "ended" report can end the visit.
func (r Rule) AcceptsMediaEnded() bool {
	return r.Signal == SignalMediaEnded || r.Signal == SignalRace
}

type policyKey struct {
	typ              model.ContentType
	source           model.VideoSource
	useVideoDuration bool
}

var policyTable = map[policyKey]Rule{
	{model.ContentTypeImage, "", false}:                       {SignalTimer, DelayItemDuration},
	{model.ContentTypeVideo, model.VideoSourceURL, true}:      {SignalMediaEnded, DelayNone},
	{model.ContentTypeVideo, model.VideoSourceURL, false}:     {SignalTimer, DelayItemDuration},
	{model.ContentTypeVideo, model.VideoSourceYouTube, true}:  {SignalRace, DelayItemDurationOrFallback},
	{model.ContentTypeVideo, model.VideoSourceYouTube, false}: {SignalTimer, DelayItemDuration},
	{model.ContentTypeVideo, model.VideoSourceTikTok, true}:   {SignalTimer, DelayPlatformDefault},
	{model.ContentTypeVideo, model.VideoSourceTikTok, false}:  {SignalTimer, DelayItemDuration},
}

// PolicyFor looks up the end-signal rule for an item. Images ignore the video
// fields. Anything the table does not know falls back to a plain countdown.
func PolicyFor(item model.ContentItem) Rule {
	key := policyKey{typ: item.Type, source: item.VideoSource, useVideoDuration: item.UseVideoDuration}
	if item.Type == model.ContentTypeImage {
		key = policyKey{typ: model.ContentTypeImage}
	}
	if rule, ok := policyTable[key]; ok {
		return rule
	}
	return Rule{Signal: SignalTimer, Delay: DelayItemDuration}
}

// Timing holds the configurable constants of the playback clock.
type Timing struct {
	Fade            time.Duration
	YouTubeFallback time.Duration
	TikTokDefault   time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		Fade:            500 * time.Millisecond,
		YouTubeFallback: 300 * time.Second,
		TikTokDefault:   30 * time.Second,
	}
}

// Delay computes the countdown for an item under a rule. The second result is
// false when the rule arms no timer.
func (t Timing) Delay(rule Rule, item model.ContentItem) (time.Duration, bool) {
	seconds := time.Duration(item.Duration) * time.Second
	switch rule.Delay {
	case DelayItemDuration:
		if seconds <= 0 {
			seconds = time.Duration(model.DefaultDuration) * time.Second
		}
		return seconds, true
	case DelayItemDurationOrFallback:
		if seconds <= 0 {
			return t.YouTubeFallback, true
		}
		return seconds, true
	case DelayPlatformDefault:
		return t.TikTokDefault, true
	}
	return 0, false
}
