package importer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
)

func tmdbServer(t *testing.T) *httptest.Server {
	t.Helper()
	videos := map[string][]tmdbVideo{
		"/3/movie/1/videos": {{Key: "clipAAAAAAA", Site: "Vimeo", Type: "Trailer"}, {Key: "teaserBBBBB", Site: "YouTube", Type: "Teaser"}},
		"/3/movie/2/videos": {{Key: "featurette1", Site: "YouTube", Type: "Featurette"}},
		"/3/tv/10/videos":   {{Key: "showTrailer", Site: "YouTube", Type: "Trailer"}},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/3/search/movie", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		assert.Equal(t, "pt-BR", r.URL.Query().Get("language"))
		assert.Equal(t, "dune", r.URL.Query().Get("query"))
		results := []tmdbResult{
			{ID: 1, Title: "Dune", PosterPath: "/p1.jpg", BackdropPath: "/b1.jpg"},
			{ID: 2, Title: "Dune: Extras"},
		}
		for i := 100; i < 110; i++ {
			results = append(results, tmdbResult{ID: i, Title: "Other"})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	})
	mux.HandleFunc("/3/search/tv", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []tmdbResult{{ID: 10, Name: "Dune: Prophecy"}}})
	})
	mux.HandleFunc("/3/", func(w http.ResponseWriter, r *http.Request) {
		v, ok := videos[r.URL.Path]
		if !ok {
			if r.URL.Path == "/3/movie/100/videos" {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			v = nil
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": v})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestTMDBSearchTrailers(t *testing.T) {
	srv := tmdbServer(t)
	tmdb := NewTMDB("secret", "pt-BR", 300*time.Second, WithBaseURL(srv.URL+"/3"), WithHTTPClient(srv.Client()))

	drafts, err := tmdb.SearchTrailers(context.Background(), "dune")
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	movie := drafts[0]
	assert.Equal(t, "Dune", movie.Title)
	assert.Equal(t, model.ContentTypeVideo, movie.Type)
	assert.Equal(t, model.VideoSourceYouTube, movie.VideoSource)
	assert.Equal(t, "https://www.youtube.com/watch?v=teaserBBBBB", movie.Source)
	assert.Equal(t, 300, movie.Duration)
	assert.True(t, movie.UseVideoDuration)
	require.NotNil(t, movie.LeftBackgroundImage)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/p1.jpg", *movie.LeftBackgroundImage)
	require.NotNil(t, movie.RightBackgroundImage)
	assert.Equal(t, "https://image.tmdb.org/t/p/original/b1.jpg", *movie.RightBackgroundImage)

	show := drafts[1]
	assert.Equal(t, "Dune: Prophecy", show.Title)
	assert.Equal(t, "https://www.youtube.com/watch?v=showTrailer", show.Source)
	assert.Nil(t, show.LeftBackgroundImage)

	for _, d := range drafts {
		d.Normalize()
		assert.NoError(t, d.Validate())
	}
}

func TestTMDBRequiresKey(t *testing.T) {
	_, err := NewTMDB("", "pt-BR", time.Minute).SearchTrailers(context.Background(), "x")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestTMDBSearchFailureHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewTMDB("secret", "pt-BR", time.Minute, WithBaseURL(srv.URL)).SearchTrailers(context.Background(), "x")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")
	assert.Contains(t, err.Error(), "401")
}
