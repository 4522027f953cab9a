package endpoints

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/changefeed"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/clock"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/db"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/display"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/http/api"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/http/api/tv/packets"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/redis"
)

type fakeCache map[string]redis.NowShowing

func (f fakeCache) Get(_ context.Context, name string) (redis.NowShowing, bool, error) {
	e, ok := f[name]
	return e, ok, nil
}

type harness struct {
	router  *gin.Engine
	store   *db.MemoryStore
	manager *display.Manager
}

func newHarness(t *testing.T, cache NowShowingReader) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	feed := changefeed.NewMemory()
	store := db.NewMemoryStore(feed)
	ctx := context.Background()
	for _, title := range []string{"first", "second"} {
		_, err := store.CreateContentItem(ctx, model.ContentDraft{
			Type: model.ContentTypeImage, Title: title,
			Source: "https://cdn.example.com/" + title + ".png", Duration: 5, Active: true,
		})
		require.NoError(t, err)
	}

	manager := display.NewManager(store, feed, clock.NewManual(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)), display.DefaultConfig())
	t.Cleanup(manager.Shutdown)

	r := gin.New()
	api.MountGroup(r, api.GroupConfig{Prefix: "/api/tv"}, DisplayModule(manager, cache))
	return &harness{router: r, store: store, manager: manager}
}

func (h *harness) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func TestGetStateOfMountedDisplay(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.manager.Open(context.Background(), "lobby", nil)
	require.NoError(t, err)

	w := h.do(http.MethodGet, "/api/tv/displays/lobby", "")
	require.Equal(t, http.StatusOK, w.Code)

	var st display.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "lobby", st.Display)
	assert.Equal(t, 2, st.ItemCount)
	require.NotNil(t, st.Item)
	assert.Equal(t, "first", st.Item.Title)
	assert.Equal(t, display.SurfaceImage, st.Surface.Kind)
}

func TestGetStateFallsBackToNowShowing(t *testing.T) {
	h := newHarness(t, fakeCache{"hall": {Display: "hall", Title: "elsewhere", ItemCount: 3}})

	w := h.do(http.MethodGet, "/api/tv/displays/hall", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp packets.CachedStateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Mounted)
	assert.Equal(t, "elsewhere", resp.NowShowing.Title)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/tv/displays/nowhere", "").Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/tv/displays/bad%20name", "").Code)
}

func TestEventsRequireMountedDisplay(t *testing.T) {
	h := newHarness(t, nil)

	w := h.do(http.MethodPost, "/api/tv/displays/lobby/advance", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdvanceAndStaleEnded(t *testing.T) {
	h := newHarness(t, nil)
	d, err := h.manager.Open(context.Background(), "lobby", nil)
	require.NoError(t, err)
	visit := d.State().VisitID

	w := h.do(http.MethodPost, "/api/tv/displays/lobby/advance", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp packets.EventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Changed)
	assert.True(t, resp.State.IsTransitioning)

	body, _ := json.Marshal(packets.MediaEventRequest{VisitID: visit})
	w = h.do(http.MethodPost, "/api/tv/displays/lobby/ended", string(body))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Changed, "ended for an old visit is ignored")
}

func TestMediaEventNeedsVisitID(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.manager.Open(context.Background(), "lobby", nil)
	require.NoError(t, err)

	w := h.do(http.MethodPost, "/api/tv/displays/lobby/media-error", `{"reason":"404"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshPicksUpNewItems(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.manager.Open(context.Background(), "lobby", nil)
	require.NoError(t, err)

	_, err = h.store.CreateContentItem(context.Background(), model.ContentDraft{
		Type: model.ContentTypeImage, Title: "third",
		Source: "https://cdn.example.com/third.png", Duration: 5, Active: true,
	})
	require.NoError(t, err)

	w := h.do(http.MethodPost, "/api/tv/displays/lobby/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp packets.EventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.State.ItemCount)
	assert.Equal(t, "first", resp.State.Item.Title)
}

func TestStreamMountsAndReleases(t *testing.T) {
	h := newHarness(t, nil)
	srv := httptest.NewServer(h.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/tv/displays/lobby/stream?start=1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	var msg packets.StreamMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, packets.StreamState, msg.Type)
	require.NotNil(t, msg.State)
	require.NotNil(t, msg.State.Item)
	assert.Equal(t, "second", msg.State.Item.Title, "start hint picks the first item")

	require.NoError(t, conn.WriteJSON(display.Event{Type: display.EventAdvance}))

	var acked, moved bool
	for !acked || !moved {
		var m packets.StreamMessage
		require.NoError(t, conn.ReadJSON(&m))
		switch m.Type {
		case packets.StreamAck:
			require.NotNil(t, m.Changed)
			assert.True(t, *m.Changed)
			acked = true
		case packets.StreamState:
			if m.State.IsTransitioning {
				moved = true
			}
		}
	}

	require.NoError(t, conn.WriteJSON(display.Event{Type: "dance"}))
	for {
		var m packets.StreamMessage
		require.NoError(t, conn.ReadJSON(&m))
		if m.Type == packets.StreamError {
			assert.Contains(t, m.Error, "unknown display event")
			break
		}
	}

	_, ok := h.manager.Get("lobby")
	assert.True(t, ok)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		_, ok := h.manager.Get("lobby")
		return !ok
	}, 2*time.Second, 10*time.Millisecond, "the last stream unmounts the display")
}

func TestStreamRejectsBadStartHint(t *testing.T) {
	h := newHarness(t, nil)
	w := h.do(http.MethodGet, "/api/tv/displays/lobby/stream?start=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
