package display

import (
	"errors"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/resolver"
)

type SurfaceKind string

const (
	SurfaceLoading SurfaceKind = "loading"
	SurfaceEmpty   SurfaceKind = "empty"
	SurfaceImage   SurfaceKind = "image"
	SurfaceVideo   SurfaceKind = "video"
	SurfaceEmbed   SurfaceKind = "embed"
	SurfaceInvalid SurfaceKind = "invalid"
)

const emptyMessage = "Add and activate content in the admin panel"

// Surface tells a screen what to draw for the current item.
type Surface struct {
	Kind            SurfaceKind `json:"kind"`
	Title           string      `json:"title,omitempty"`
	Src             string      `json:"src,omitempty"`
	EmbedURL        string      `json:"embedUrl,omitempty"`
	Thumbnail       string      `json:"thumbnail,omitempty"`
	LeftBackground  string      `json:"leftBackground,omitempty"`
	RightBackground string      `json:"rightBackground,omitempty"`
	Placeholder     string      `json:"placeholder"`
	ShowPlaceholder bool        `json:"showPlaceholder,omitempty"`
	Message         string      `json:"message,omitempty"`
}

// RenderSurface maps the current item to a surface. Media that failed to load
// is swapped for the placeholder and never retried within the visit.
func RenderSurface(loading bool, item *model.ContentItem, mediaFailed bool, placeholder string) Surface {
	s := Surface{Placeholder: placeholder}
	switch {
	case loading:
		s.Kind = SurfaceLoading
		return s
	case item == nil:
		s.Kind = SurfaceEmpty
		s.Message = emptyMessage
		return s
	}

	s.Title = item.Title
	res, err := resolver.Resolve(*item, placeholder)
	s.Thumbnail = res.Thumbnail

	if item.Type == model.ContentTypeImage {
		s.Kind = SurfaceImage
		s.Src = item.Source
		if mediaFailed || item.Source == placeholder {
			s.Src = placeholder
			s.ShowPlaceholder = true
		}
		return s
	}

	if err != nil {
		s.Kind = SurfaceInvalid
		s.Message = "Invalid video source"
		if !errors.Is(err, resolver.ErrInvalidSource) {
			s.Message = err.Error()
		}
		return s
	}

	if item.LeftBackgroundImage != nil {
		s.LeftBackground = *item.LeftBackgroundImage
	}
	if item.RightBackgroundImage != nil {
		s.RightBackground = *item.RightBackgroundImage
	}

	if res.MediaURL != "" {
		s.Kind = SurfaceVideo
		s.Src = res.MediaURL
	} else {
		s.Kind = SurfaceEmbed
		s.EmbedURL = res.EmbedURL
	}
	if mediaFailed {
		s.ShowPlaceholder = true
	}
	return s
}
