package endpoints

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/display"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/http/api"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/http/api/tv/packets"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/redis"
)

// NowShowingReader looks up what another node last reported for a display.
type NowShowingReader interface {
	Get(ctx context.Context, display string) (redis.NowShowing, bool, error)
}

type DisplayController struct {
	manager *display.Manager
	cache   NowShowingReader
}

// DisplayModule mounts the screen-facing display endpoints. cache may be nil.
func DisplayModule(manager *display.Manager, cache NowShowingReader) api.Module {
	ctl := &DisplayController{manager: manager, cache: cache}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/displays/:name", ctl.getState)
		c.POST("/displays/:name/ended", ctl.mediaEvent(display.EventEnded))
		c.POST("/displays/:name/media-error", ctl.mediaEvent(display.EventMediaError))
		c.POST("/displays/:name/advance", ctl.event(display.EventAdvance))
		c.POST("/displays/:name/refresh", ctl.event(display.EventRefresh))
		c.Raw(http.MethodGet, "/displays/:name/stream", ctl.stream)
	})
}

func (t *DisplayController) mounted(ctx *gin.Context) (*display.Display, *api.APIError) {
	name := ctx.Param("name")
	if !display.ValidName(name) {
		return nil, api.BadRequest(display.ErrInvalidName.Error())
	}
	d, ok := t.manager.Get(name)
	if !ok {
		return nil, api.NotFound("display not mounted")
	}
	return d, nil
}

func (t *DisplayController) getState(ctx *gin.Context) (any, *api.APIError) {
	d, apiErr := t.mounted(ctx)
	if apiErr == nil {
		return d.State(), nil
	}
	if apiErr.Code != http.StatusNotFound || t.cache == nil {
		return nil, apiErr
	}

	entry, ok, err := t.cache.Get(ctx.Request.Context(), ctx.Param("name"))
	if err != nil {
		log.Warn().Err(err).Str("display", ctx.Param("name")).Msg("[display] now showing lookup failed")
		return nil, apiErr
	}
	if !ok {
		return nil, apiErr
	}
	return packets.CachedStateResponse{Mounted: false, NowShowing: entry}, nil
}

func (t *DisplayController) mediaEvent(kind display.EventType) api.HandlerFunc {
	return func(ctx *gin.Context) (any, *api.APIError) {
		var req packets.MediaEventRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			return nil, api.BadRequest(err.Error())
		}
		return t.handle(ctx, display.Event{Type: kind, VisitID: req.VisitID, Reason: req.Reason})
	}
}

func (t *DisplayController) event(kind display.EventType) api.HandlerFunc {
	return func(ctx *gin.Context) (any, *api.APIError) {
		return t.handle(ctx, display.Event{Type: kind})
	}
}

func (t *DisplayController) handle(ctx *gin.Context, ev display.Event) (any, *api.APIError) {
	d, apiErr := t.mounted(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	changed, err := d.Handle(ctx.Request.Context(), ev)
	if err != nil {
		log.Warn().Err(err).Str("display", d.Name()).Str("event", string(ev.Type)).Msg("[display] event failed")
		return nil, &api.APIError{Code: http.StatusBadGateway, Message: err.Error()}
	}
	return packets.EventResponse{Changed: changed, State: d.State()}, nil
}
