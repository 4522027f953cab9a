// Package resolver turns a content item's declared source into the references
// a screen needs to show it. Resolution never touches the network.
package resolver

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
)

var ErrInvalidSource = errors.New("invalid video source")

var (
	youtubeIDPattern = regexp.MustCompile(`(?:youtube(?:-nocookie)?\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?|shorts|live)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)
	tiktokIDPattern  = regexp.MustCompile(`tiktok\.com/@[^/]+/video/(\d+)`)
)

const (
	youtubeThumbnailFmt = "https://img.youtube.com/vi/%s/mqdefault.jpg"
	youtubeEmbedFmt     = "https://www.youtube.com/embed/%s?autoplay=1&controls=0&rel=0&mute=0&enablejsapi=1"
	tiktokEmbedFmt      = "https://www.tiktok.com/embed/%s?hideSharingOptions=1"
)

// Resolution is what a screen needs to render an item.
// Exactly one of MediaURL or EmbedURL is set for a resolved video.
type Resolution struct {
	Thumbnail string
	MediaURL  string
	EmbedURL  string
	VideoID   string
}

// ExtractYouTubeID returns the 11 character video id, or false when the URL is
// not a recognizable YouTube link. Percent-encoded URLs are decoded first.
func ExtractYouTubeID(raw string) (string, bool) {
	return match(youtubeIDPattern, raw)
}

// ExtractTikTokID returns the numeric video id of a tiktok.com/@user/video/{id} link.
func ExtractTikTokID(raw string) (string, bool) {
	return match(tiktokIDPattern, raw)
}

func match(re *regexp.Regexp, raw string) (string, bool) {
	if m := re.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	if strings.Contains(raw, "%") {
		if decoded, err := url.QueryUnescape(raw); err == nil && decoded != raw {
			if m := re.FindStringSubmatch(decoded); m != nil {
				return m[1], true
			}
		}
	}
	return "", false
}

// Resolve derives the thumbnail and playback references for an item. The
// returned error wraps ErrInvalidSource when no identifier can be extracted;
// the thumbnail is still the placeholder in that case so list views can draw.
func Resolve(item model.ContentItem, placeholder string) (Resolution, error) {
	if item.Type != model.ContentTypeVideo {
		return Resolution{Thumbnail: item.Source}, nil
	}

	switch item.VideoSource {
	case model.VideoSourceYouTube:
		id, ok := ExtractYouTubeID(item.Source)
		if !ok {
			return Resolution{Thumbnail: placeholder}, fmt.Errorf("%w: no youtube id in %q", ErrInvalidSource, item.Source)
		}
		return Resolution{
			Thumbnail: fmt.Sprintf(youtubeThumbnailFmt, id),
			EmbedURL:  fmt.Sprintf(youtubeEmbedFmt, id),
			VideoID:   id,
		}, nil

	case model.VideoSourceTikTok:
		id, ok := ExtractTikTokID(item.Source)
		if !ok {
			return Resolution{Thumbnail: placeholder}, fmt.Errorf("%w: no tiktok id in %q", ErrInvalidSource, item.Source)
		}
		return Resolution{
			Thumbnail: placeholder,
			EmbedURL:  fmt.Sprintf(tiktokEmbedFmt, id),
			VideoID:   id,
		}, nil

	case model.VideoSourceURL:
		return Resolution{Thumbnail: placeholder, MediaURL: item.Source}, nil
	}

	return Resolution{Thumbnail: placeholder}, fmt.Errorf("%w: unknown video source %q", ErrInvalidSource, item.VideoSource)
}

// Thumbnail is the list-view image for an item.
func Thumbnail(item model.ContentItem, placeholder string) string {
	r, _ := Resolve(item, placeholder)
	return r.Thumbnail
}
