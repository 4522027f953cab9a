package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type ContentType string

const (
	ContentTypeImage ContentType = "image"
	ContentTypeVideo ContentType = "video"
)

type VideoSource string

const (
	VideoSourceYouTube VideoSource = "youtube"
	VideoSourceTikTok  VideoSource = "tiktok"
	VideoSourceURL     VideoSource = "url"
)

const (
	DefaultDuration    = 5
	DefaultRSSDuration = 10
)

var ErrValidation = errors.New("invalid content item")

// ContentItem is the unit of playback.
type ContentItem struct {
	ID                   string      `db:"id"                     json:"id"`
	Type                 ContentType `db:"type"                   json:"type"`
	Title                string      `db:"title"                  json:"title"`
	Source               string      `db:"source"                 json:"source"`
	VideoSource          VideoSource `db:"video_source"           json:"videoSource,omitempty"`
	Duration             int         `db:"duration"               json:"duration"`
	UseVideoDuration     bool        `db:"use_video_duration"     json:"useVideoDuration"`
	Active               bool        `db:"active"                 json:"active"`
	Position             int         `db:"position"               json:"position"`
	LeftBackgroundImage  *string     `db:"left_background_image"  json:"leftBackgroundImage,omitempty"`
	RightBackgroundImage *string     `db:"right_background_image" json:"rightBackgroundImage,omitempty"`
	CreatedAt            time.Time   `db:"created_at"             json:"createdAt"`
}

// ContentDraft is an item that has not been assigned an id or creation time yet.
// Importers and the admin API produce drafts; the store turns them into items.
type ContentDraft struct {
	Type                 ContentType
	Title                string
	Source               string
	VideoSource          VideoSource
	Duration             int
	UseVideoDuration     bool
	Active               bool
	LeftBackgroundImage  *string
	RightBackgroundImage *string
}

// ContentPatch carries a partial update. Nil fields are left untouched.
type ContentPatch struct {
	Type                 *ContentType
	Title                *string
	Source               *string
	VideoSource          *VideoSource
	Duration             *int
	UseVideoDuration     *bool
	Active               *bool
	LeftBackgroundImage  *string
	RightBackgroundImage *string
}

func (t ContentType) Valid() bool {
	return t == ContentTypeImage || t == ContentTypeVideo
}

func (s VideoSource) Valid() bool {
	switch s {
	case VideoSourceYouTube, VideoSourceTikTok, VideoSourceURL:
		return true
	}
	return false
}

func (c ContentItem) IsVideo() bool { return c.Type == ContentTypeVideo }

// Draft strips the identity fields from an item.
func (c ContentItem) Draft() ContentDraft {
	return ContentDraft{
		Type:                 c.Type,
		Title:                c.Title,
		Source:               c.Source,
		VideoSource:          c.VideoSource,
		Duration:             c.Duration,
		UseVideoDuration:     c.UseVideoDuration,
		Active:               c.Active,
		LeftBackgroundImage:  c.LeftBackgroundImage,
		RightBackgroundImage: c.RightBackgroundImage,
	}
}

// Normalize fills defaults the admin form would have filled in.
func (d *ContentDraft) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Source = strings.TrimSpace(d.Source)
	if d.Duration == 0 {
		d.Duration = DefaultDuration
	}
	switch d.Type {
	case ContentTypeVideo:
		if d.VideoSource == "" {
			d.VideoSource = VideoSourceYouTube
		}
	case ContentTypeImage:
		d.VideoSource = ""
		d.UseVideoDuration = false
	}
}

func (d ContentDraft) Validate() error {
	if d.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !d.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrValidation, d.Type)
	}
	if d.Duration < 1 {
		return fmt.Errorf("%w: duration must be at least 1 second", ErrValidation)
	}
	if d.Type == ContentTypeVideo && !d.VideoSource.Valid() {
		return fmt.Errorf("%w: video requires a source of youtube, tiktok or url", ErrValidation)
	}
	if d.Source == "" {
		return fmt.Errorf("%w: source is required", ErrValidation)
	}
	if !IsValidSource(d.Source) {
		return fmt.Errorf("%w: source must be an http(s) URL, a data URI or a site path", ErrValidation)
	}
	for _, bg := range []*string{d.LeftBackgroundImage, d.RightBackgroundImage} {
		if bg != nil && *bg != "" && !IsValidSource(*bg) {
			return fmt.Errorf("%w: invalid background image %q", ErrValidation, *bg)
		}
	}
	return nil
}

func (c ContentItem) Validate() error {
	return c.Draft().Validate()
}

// Apply merges a patch into the item. The id and creation time never change.
func (c *ContentItem) Apply(p ContentPatch) {
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Title != nil {
		c.Title = strings.TrimSpace(*p.Title)
	}
	if p.Source != nil {
		c.Source = strings.TrimSpace(*p.Source)
	}
	if p.VideoSource != nil {
		c.VideoSource = *p.VideoSource
	}
	if p.Duration != nil {
		c.Duration = *p.Duration
	}
	if p.UseVideoDuration != nil {
		c.UseVideoDuration = *p.UseVideoDuration
	}
	if p.Active != nil {
		c.Active = *p.Active
	}
	if p.LeftBackgroundImage != nil {
		c.LeftBackgroundImage = emptyToNil(*p.LeftBackgroundImage)
	}
	if p.RightBackgroundImage != nil {
		c.RightBackgroundImage = emptyToNil(*p.RightBackgroundImage)
	}
	if c.Type == ContentTypeImage {
		c.VideoSource = ""
		c.UseVideoDuration = false
	}
}

// IsValidSource accepts absolute http(s) URLs, data URIs and site-relative paths
// such as the placeholder image.
func IsValidSource(s string) bool {
	if strings.HasPrefix(s, "data:") {
		return strings.Contains(s, ",")
	}
	if strings.HasPrefix(s, "/") {
		return true
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// FormatDuration renders seconds the way the admin list shows them: 45s, 2m, 1m 30s.
func FormatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	m, s := seconds/60, seconds%60
	if s == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dm %ds", m, s)
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
