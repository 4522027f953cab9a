package importer

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
)

const rssFallbackTitle = "RSS Item"

var imgSrc = regexp.MustCompile(`<img[^>]+src="([^">]+)"`)

type RSS struct {
	client      *http.Client
	placeholder string
}

func NewRSS(placeholder string, opts ...Option) *RSS {
	o := collect(opts)
	return &RSS{client: o.client, placeholder: placeholder}
}

// Fetch downloads a feed and maps every entry to an image draft.
func (r *RSS) Fetch(ctx context.Context, feedURL string) ([]model.ContentDraft, error) {
	resp, err := get(ctx, r.client, feedURL, "application/rss+xml, application/atom+xml, application/xml, text/xml;q=0.9")
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	if len(feed.Items) == 0 {
		return nil, ErrEmptyFeed
	}

	drafts := make([]model.ContentDraft, 0, len(feed.Items))
	for _, item := range feed.Items {
		drafts = append(drafts, r.draft(item))
	}
	return drafts, nil
}

func (r *RSS) draft(item *gofeed.Item) model.ContentDraft {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = rssFallbackTitle
	}
	source := imageFor(item)
	if source == "" {
		source = r.placeholder
	}
	return model.ContentDraft{
		Type:     model.ContentTypeImage,
		Title:    title,
		Source:   source,
		Duration: model.DefaultRSSDuration,
		Active:   true,
	}
}

// imageFor picks media:content, then media:thumbnail, then an image
// enclosure, then the first <img> in the body.
func imageFor(item *gofeed.Item) string {
	if u := mediaURL(item.Extensions, "content"); u != "" {
		return u
	}
	if u := mediaURL(item.Extensions, "thumbnail"); u != "" {
		return u
	}
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	for _, body := range []string{item.Content, item.Description} {
		if m := imgSrc.FindStringSubmatch(body); m != nil {
			return m[1]
		}
	}
	return ""
}

func mediaURL(exts ext.Extensions, name string) string {
	for _, e := range exts["media"][name] {
		if u := e.Attrs["url"]; u != "" {
			return u
		}
	}
	return ""
}
