package packets

import (
	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/resolver"
)

// RESPONSES FOR /api/admin/content/*

// ContentResponse is a stored item plus what the list view shows for it.
type ContentResponse struct {
	model.ContentItem
	Thumbnail         string `json:"thumbnail"`
	FormattedDuration string `json:"formattedDuration"`
	SourceError       string `json:"sourceError,omitempty"`
}

func NewContentResponse(item model.ContentItem, placeholder string) ContentResponse {
	res := ContentResponse{
		ContentItem:       item,
		FormattedDuration: model.FormatDuration(item.Duration),
	}
	r, err := resolver.Resolve(item, placeholder)
	res.Thumbnail = r.Thumbnail
	if err != nil {
		res.SourceError = err.Error()
	}
	return res
}

func NewContentResponses(items []model.ContentItem, placeholder string) []ContentResponse {
	out := make([]ContentResponse, 0, len(items))
	for _, it := range items {
		out = append(out, NewContentResponse(it, placeholder))
	}
	return out
}

type UploadResponse struct {
	URL string `json:"url"`
}

// DraftResponse previews an import before it is saved.
type DraftResponse struct {
	Type                 model.ContentType `json:"type"`
	Title                string            `json:"title"`
	Source               string            `json:"source"`
	VideoSource          model.VideoSource `json:"videoSource,omitempty"`
	Duration             int               `json:"duration"`
	UseVideoDuration     bool              `json:"useVideoDuration"`
	LeftBackgroundImage  *string           `json:"leftBackgroundImage,omitempty"`
	RightBackgroundImage *string           `json:"rightBackgroundImage,omitempty"`
}

func NewDraftResponses(drafts []model.ContentDraft) []DraftResponse {
	out := make([]DraftResponse, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, DraftResponse{
			Type:                 d.Type,
			Title:                d.Title,
			Source:               d.Source,
			VideoSource:          d.VideoSource,
			Duration:             d.Duration,
			UseVideoDuration:     d.UseVideoDuration,
			LeftBackgroundImage:  d.LeftBackgroundImage,
			RightBackgroundImage: d.RightBackgroundImage,
		})
	}
	return out
}

type ImportResponse struct {
	Imported int               `json:"imported"`
	Items    []ContentResponse `json:"items"`
}

type DisplaySummary struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	ItemID    string `json:"itemId,omitempty"`
	Title     string `json:"title,omitempty"`
	ItemCount int    `json:"itemCount"`
	SyncError string `json:"syncError,omitempty"`
	Pinned    bool   `json:"pinned"`
}
