package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
)

func TestDraftNormalizeDefaults(t *testing.T) {
	d := model.ContentDraft{Type: model.ContentTypeVideo, Title: "  Clip ", Source: "https://youtu.be/dQw4w9WgXcQ"}
	d.Normalize()

	assert.Equal(t, "Clip", d.Title)
	assert.Equal(t, model.DefaultDuration, d.Duration)
	assert.Equal(t, model.VideoSourceYouTube, d.VideoSource)
	require.NoError(t, d.Validate())
}

func TestDraftNormalizeImageDropsVideoFields(t *testing.T) {
	d := model.ContentDraft{
		Type:             model.ContentTypeImage,
		Title:            "Poster",
		Source:           "https://example.com/a.png",
		VideoSource:      model.VideoSourceTikTok,
		UseVideoDuration: true,
	}
	d.Normalize()

	assert.Empty(t, d.VideoSource)
	assert.False(t, d.UseVideoDuration)
}

func TestDraftValidate(t *testing.T) {
	valid := model.ContentDraft{Type: model.ContentTypeImage, Title: "A", Source: "https://example.com/a.png", Duration: 5}

	cases := []struct {
		name   string
		mutate func(d *model.ContentDraft)
		ok     bool
	}{
		{"valid image", func(d *model.ContentDraft) {}, true},
		{"data uri", func(d *model.ContentDraft) { d.Source = "data:image/png;base64,AAAA" }, true},
		{"placeholder path", func(d *model.ContentDraft) { d.Source = "/placeholder.svg" }, true},
		{"empty title", func(d *model.ContentDraft) { d.Title = "" }, false},
		{"zero duration", func(d *model.ContentDraft) { d.Duration = 0 }, false},
		{"unknown type", func(d *model.ContentDraft) { d.Type = "audio" }, false},
		{"video without source kind", func(d *model.ContentDraft) { d.Type = model.ContentTypeVideo }, false},
		{"relative garbage", func(d *model.ContentDraft) { d.Source = "not a url" }, false},
		{"ftp", func(d *model.ContentDraft) { d.Source = "ftp://example.com/a.png" }, false},
		{"bad background", func(d *model.ContentDraft) {
			bg := "nope"
			d.LeftBackgroundImage = &bg
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := valid
			tc.mutate(&d)
			err := d.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, model.ErrValidation)
			}
		})
	}
}

func TestApplyPatchKeepsIdentity(t *testing.T) {
	item := model.ContentItem{ID: "a", Type: model.ContentTypeVideo, Title: "A", VideoSource: model.VideoSourceURL, UseVideoDuration: true, Duration: 5}
	title := "B"
	typ := model.ContentTypeImage
	empty := ""
	item.Apply(model.ContentPatch{Title: &title, Type: &typ, LeftBackgroundImage: &empty})

	assert.Equal(t, "a", item.ID)
	assert.Equal(t, "B", item.Title)
	assert.Empty(t, item.VideoSource)
	assert.False(t, item.UseVideoDuration)
	assert.Nil(t, item.LeftBackgroundImage)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", model.FormatDuration(45))
	assert.Equal(t, "2m", model.FormatDuration(120))
	assert.Equal(t, "1m 30s", model.FormatDuration(90))
}
