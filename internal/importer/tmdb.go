package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
)

const (
	tmdbBaseURL    = "https://api.themoviedb.org/3"
	tmdbImageURL   = "https://image.tmdb.org/t/p"
	youtubeWatch   = "https://www.youtube.com/watch?v="
	tmdbTopResults = 5
)

type mediaKind string

const (
	kindMovie mediaKind = "movie"
	kindTV    mediaKind = "tv"
)

type tmdbResult struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	PosterPath   string `json:"poster_path"`
	BackdropPath string `json:"backdrop_path"`
}

func (r tmdbResult) displayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

type tmdbVideo struct {
	Key  string `json:"key"`
	Site string `json:"site"`
	Type string `json:"type"`
}

type TMDB struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	language string
	duration int
}

// NewTMDB builds a trailer importer. Trailers play to their natural end and
// fall back to fallback when the player never reports it.
func NewTMDB(apiKey, language string, fallback time.Duration, opts ...Option) *TMDB {
	o := collect(opts)
	if o.baseURL == "" {
		o.baseURL = tmdbBaseURL
	}
	return &TMDB{
		client:   o.client,
		baseURL:  o.baseURL,
		apiKey:   apiKey,
		language: language,
		duration: int(fallback / time.Second),
	}
}

// SearchTrailers looks up movies and series matching query and returns one
// draft per result that has a YouTube trailer or teaser, movies first.
func (t *TMDB) SearchTrailers(ctx context.Context, query string) ([]model.ContentDraft, error) {
	if t.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	var movies, shows []model.ContentDraft
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		movies, err = t.search(gctx, kindMovie, query)
		return err
	})
	g.Go(func() (err error) {
		shows, err = t.search(gctx, kindTV, query)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return append(movies, shows...), nil
}

func (t *TMDB) search(ctx context.Context, kind mediaKind, query string) ([]model.ContentDraft, error) {
	var page struct {
		Results []tmdbResult `json:"results"`
	}
	q := url.Values{"query": {query}}
	if err := t.getJSON(ctx, fmt.Sprintf("/search/%s", kind), q, &page); err != nil {
		return nil, fmt.Errorf("search %s: %w", kind, err)
	}

	results := page.Results
	if len(results) > tmdbTopResults {
		results = results[:tmdbTopResults]
	}

	drafts := make([]*model.ContentDraft, len(results))
	g, gctx := errgroup.WithContext(ctx)
	for i, res := range results {
		g.Go(func() error {
			key, err := t.trailerKey(gctx, kind, res.ID)
			if err != nil {
				// One title without videos should not sink the whole search.
				log.Warn().Err(err).Str("kind", string(kind)).Int("id", res.ID).Msg("[import] trailer lookup failed")
				return nil
			}
			if key != "" {
				d := t.draft(res, key)
				drafts[i] = &d
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.ContentDraft, 0, len(drafts))
	for _, d := range drafts {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (t *TMDB) trailerKey(ctx context.Context, kind mediaKind, id int) (string, error) {
	var videos struct {
		Results []tmdbVideo `json:"results"`
	}
	if err := t.getJSON(ctx, fmt.Sprintf("/%s/%d/videos", kind, id), nil, &videos); err != nil {
		return "", err
	}
	for _, v := range videos.Results {
		if v.Site == "YouTube" && (v.Type == "Trailer" || v.Type == "Teaser") {
			return v.Key, nil
		}
	}
	return "", nil
}

func (t *TMDB) draft(res tmdbResult, key string) model.ContentDraft {
	d := model.ContentDraft{
		Type:             model.ContentTypeVideo,
		Title:            res.displayTitle(),
		Source:           youtubeWatch + key,
		VideoSource:      model.VideoSourceYouTube,
		Duration:         t.duration,
		UseVideoDuration: true,
		Active:           true,
	}
	if res.PosterPath != "" {
		poster := tmdbImageURL + "/w500" + res.PosterPath
		d.LeftBackgroundImage = &poster
	}
	if res.BackdropPath != "" {
		backdrop := tmdbImageURL + "/original" + res.BackdropPath
		d.RightBackgroundImage = &backdrop
	}
	return d
}

func (t *TMDB) getJSON(ctx context.Context, path string, q url.Values, dst any) error {
	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", t.apiKey)
	q.Set("language", t.language)

	resp, err := get(ctx, t.client, t.baseURL+path+"?"+q.Encode(), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
