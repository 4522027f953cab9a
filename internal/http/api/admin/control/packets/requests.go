package packets

import "github.com/Nixie-Tech-LLC/vibescreen/internal/model"

// REQUESTS FOR /api/admin/content

type CreateContentRequest struct {
	Type                 string  `json:"type"  binding:"required,oneof=image video"`
	Title                string  `json:"title" binding:"required"`
	Source               string  `json:"source" binding:"required"`
	VideoSource          string  `json:"videoSource" binding:"omitempty,oneof=youtube tiktok url"`
	Duration             int     `json:"duration" binding:"omitempty,min=1"`
	UseVideoDuration     bool    `json:"useVideoDuration"`
	Active               *bool   `json:"active"`
	LeftBackgroundImage  *string `json:"leftBackgroundImage"`
	RightBackgroundImage *string `json:"rightBackgroundImage"`
}

// Draft applies the editor defaults: items start active unless told otherwise.
func (r CreateContentRequest) Draft() model.ContentDraft {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return model.ContentDraft{
		Type:                 model.ContentType(r.Type),
		Title:                r.Title,
		Source:               r.Source,
		VideoSource:          model.VideoSource(r.VideoSource),
		Duration:             r.Duration,
		UseVideoDuration:     r.UseVideoDuration,
		Active:               active,
		LeftBackgroundImage:  emptyToNil(r.LeftBackgroundImage),
		RightBackgroundImage: emptyToNil(r.RightBackgroundImage),
	}
}

type UpdateContentRequest struct {
	Type                 *string `json:"type" binding:"omitempty,oneof=image video"`
	Title                *string `json:"title"`
	Source               *string `json:"source"`
	VideoSource          *string `json:"videoSource" binding:"omitempty,oneof=youtube tiktok url"`
	Duration             *int    `json:"duration"`
	UseVideoDuration     *bool   `json:"useVideoDuration"`
	Active               *bool   `json:"active"`
	LeftBackgroundImage  *string `json:"leftBackgroundImage"`
	RightBackgroundImage *string `json:"rightBackgroundImage"`
}

// Patch converts the request. An empty background string clears it.
func (r UpdateContentRequest) Patch() model.ContentPatch {
	p := model.ContentPatch{
		Title:                r.Title,
		Source:               r.Source,
		Duration:             r.Duration,
		UseVideoDuration:     r.UseVideoDuration,
		Active:               r.Active,
		LeftBackgroundImage:  r.LeftBackgroundImage,
		RightBackgroundImage: r.RightBackgroundImage,
	}
	if r.Type != nil {
		t := model.ContentType(*r.Type)
		p.Type = &t
	}
	if r.VideoSource != nil {
		s := model.VideoSource(*r.VideoSource)
		p.VideoSource = &s
	}
	return p
}

type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type MoveContentRequest struct {
	From *int `json:"from" binding:"required,min=0"`
	To   *int `json:"to"   binding:"required,min=0"`
}

type ReorderContentRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// REQUESTS FOR /api/admin/import

type ImportRSSRequest struct {
	URL     string `json:"url" binding:"required,url"`
	Preview bool   `json:"preview"`
}

type ImportTrailersRequest struct {
	Query   string `json:"query" binding:"required"`
	Preview bool   `json:"preview"`
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
