package playback_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/playback"
)

func TestPolicyTable(t *testing.T) {
	timing := playback.DefaultTiming()

	cases := []struct {
		name     string
		item     model.ContentItem
		signal   playback.EndSignal
		delay    time.Duration
		hasTimer bool
	}{
		{"image", image("a", 5), playback.SignalTimer, 5 * time.Second, true},
		{"image ignores video flags", model.ContentItem{Type: model.ContentTypeImage, Duration: 7, UseVideoDuration: true, VideoSource: model.VideoSourceURL}, playback.SignalTimer, 7 * time.Second, true},
		{"url native end", video("b", model.VideoSourceURL, true, 5), playback.SignalMediaEnded, 0, false},
		{"url fixed", video("b", model.VideoSourceURL, false, 12), playback.SignalTimer, 12 * time.Second, true},
		{"youtube best effort", video("c", model.VideoSourceYouTube, true, 40), playback.SignalRace, 40 * time.Second, true},
		{"youtube unset duration", video("c", model.VideoSourceYouTube, true, 0), playback.SignalRace, 300 * time.Second, true},
		{"youtube fixed", video("c", model.VideoSourceYouTube, false, 9), playback.SignalTimer, 9 * time.Second, true},
		{"tiktok platform default", video("d", model.VideoSourceTikTok, true, 600), playback.SignalTimer, 30 * time.Second, true},
		{"tiktok fixed", video("d", model.VideoSourceTikTok, false, 8), playback.SignalTimer, 8 * time.Second, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule := playback.PolicyFor(tc.item)
			assert.Equal(t, tc.signal, rule.Signal)

			delay, ok := timing.Delay(rule, tc.item)
			assert.Equal(t, tc.hasTimer, ok)
			assert.Equal(t, tc.delay, delay)
		})
	}
}

func TestAcceptsMediaEnded(t *testing.T) {
	assert.True(t, playback.PolicyFor(video("a", model.VideoSourceURL, true, 5)).AcceptsMediaEnded())
	assert.True(t, playback.PolicyFor(video("a", model.VideoSourceYouTube, true, 5)).AcceptsMediaEnded())
	assert.False(t, playback.PolicyFor(video("a", model.VideoSourceTikTok, true, 5)).AcceptsMediaEnded())
	assert.False(t, playback.PolicyFor(image("a", 5)).AcceptsMediaEnded())
}

func TestActiveItemsKeepsOrder(t *testing.T) {
	all := []model.ContentItem{image("a", 5), image("b", 5), image("c", 5), image("d", 5)}
	all[1].Active = false

	active := playback.ActiveItems(all)
	assert.Equal(t, []string{"a", "c", "d"}, ids(active))

	all[0].Active = false
	assert.Equal(t, []string{"a", "c", "d"}, ids(active), "projection must not alias the snapshot")
	assert.Empty(t, playback.ActiveItems(nil))
}

func TestClampStart(t *testing.T) {
	at := func(i int) *int { return &i }
	assert.Equal(t, 0, playback.ClampStart(nil, 3))
	assert.Equal(t, 2, playback.ClampStart(at(2), 3))
	assert.Equal(t, 0, playback.ClampStart(at(3), 3))
	assert.Equal(t, 0, playback.ClampStart(at(-1), 3))
}

func image(id string, seconds int) model.ContentItem {
	return model.ContentItem{ID: id, Type: model.ContentTypeImage, Title: id, Source: "https://example.com/" + id + ".png", Duration: seconds, Active: true}
}

func video(id string, src model.VideoSource, useVideoDuration bool, seconds int) model.ContentItem {
	return model.ContentItem{ID: id, Type: model.ContentTypeVideo, Title: id, VideoSource: src, UseVideoDuration: useVideoDuration, Duration: seconds, Active: true}
}

func ids(items []model.ContentItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
