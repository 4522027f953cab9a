// Package importer turns external catalogues (RSS feeds, TMDB trailers) into
// content drafts.
package importer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/telemetry"
)

var (
	ErrMissingAPIKey = errors.New("TMDB_API_KEY is not configured")
	ErrEmptyFeed     = errors.New("no items found in feed")
)

const userAgent = "vibescreen-importer/1.0"

// Creator is the write side the importers save into.
type Creator interface {
	CreateContentItems(ctx context.Context, drafts []model.ContentDraft) ([]model.ContentItem, error)
}

type options struct {
	client  *http.Client
	baseURL string
}

type Option func(*options)

// WithHTTPClient replaces the default client, which times out after 15s.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithBaseURL points an importer at another API root.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = strings.TrimSuffix(u, "/") }
}

func collect(opts []Option) options {
	o := options{client: &http.Client{Timeout: 15 * time.Second}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Save stores drafts in one batch, so a bad draft imports nothing.
func Save(ctx context.Context, store Creator, importer string, drafts []model.ContentDraft) ([]model.ContentItem, error) {
	if len(drafts) == 0 {
		return []model.ContentItem{}, nil
	}
	items, err := store.CreateContentItems(ctx, drafts)
	if err != nil {
		return nil, fmt.Errorf("save %s import: %w", importer, err)
	}
	telemetry.Imports.WithLabelValues(importer).Add(float64(len(items)))
	log.Info().Str("importer", importer).Int("items", len(items)).Msg("[import] items created")
	return items, nil
}

func get(ctx context.Context, client *http.Client, rawURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := client.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("GET %s: %w", redact(rawURL), err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", redact(rawURL), resp.Status)
	}
	return resp, nil
}

// redact hides the api_key query parameter in error messages.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
