package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
  <title>News</title>
  <item>
    <title>Media content</title>
    <media:content url="https://img.example.com/content.jpg" type="image/jpeg"/>
    <media:thumbnail url="https://img.example.com/thumb.jpg"/>
  </item>
  <item>
    <title>Thumbnail only</title>
    <media:thumbnail url="https://img.example.com/thumb.jpg"/>
  </item>
  <item>
    <title>Enclosure</title>
    <enclosure url="https://img.example.com/enc.png" type="image/png" length="1"/>
  </item>
  <item>
    <title>Inline</title>
    <description><![CDATA[<p>Hi <img alt="x" src="https://img.example.com/inline.gif"></p>]]></description>
  </item>
  <item>
    <description>No picture here</description>
    <enclosure url="https://audio.example.com/a.mp3" type="audio/mpeg" length="1"/>
  </item>
</channel>
</rss>`

func serve(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRSSImagePriority(t *testing.T) {
	srv := serve(t, feedXML, http.StatusOK)
	drafts, err := NewRSS("/placeholder.svg", WithHTTPClient(srv.Client())).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, drafts, 5)

	want := []struct{ title, source string }{
		{"Media content", "https://img.example.com/content.jpg"},
		{"Thumbnail only", "https://img.example.com/thumb.jpg"},
		{"Enclosure", "https://img.example.com/enc.png"},
		{"Inline", "https://img.example.com/inline.gif"},
		{"RSS Item", "/placeholder.svg"},
	}
	for i, w := range want {
		assert.Equal(t, w.title, drafts[i].Title)
		assert.Equal(t, w.source, drafts[i].Source)
		assert.Equal(t, model.ContentTypeImage, drafts[i].Type)
		assert.Equal(t, 10, drafts[i].Duration)
		assert.True(t, drafts[i].Active)
	}
}

func TestRSSErrors(t *testing.T) {
	empty := serve(t, `<rss version="2.0"><channel><title>x</title></channel></rss>`, http.StatusOK)
	_, err := NewRSS("/p.svg").Fetch(context.Background(), empty.URL)
	assert.ErrorIs(t, err, ErrEmptyFeed)

	broken := serve(t, `not xml at all`, http.StatusOK)
	_, err = NewRSS("/p.svg").Fetch(context.Background(), broken.URL)
	assert.ErrorContains(t, err, "parse feed")

	missing := serve(t, ``, http.StatusNotFound)
	_, err = NewRSS("/p.svg").Fetch(context.Background(), missing.URL)
	assert.ErrorContains(t, err, "404")
}

type fakeCreator struct {
	got []model.ContentDraft
}

func (f *fakeCreator) CreateContentItems(_ context.Context, drafts []model.ContentDraft) ([]model.ContentItem, error) {
	f.got = drafts
	items := make([]model.ContentItem, len(drafts))
	for i, d := range drafts {
		items[i] = model.ContentItem{ID: d.Title, Title: d.Title}
	}
	return items, nil
}

func TestSave(t *testing.T) {
	store := &fakeCreator{}
	items, err := Save(context.Background(), store, "rss", []model.ContentDraft{{Title: "a"}, {Title: "b"}})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Len(t, store.got, 2)

	store.got = nil
	items, err = Save(context.Background(), store, "rss", nil)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Nil(t, store.got, "nothing to store")
}
