package endpoints

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/display"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/http/api"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/http/api/admin/control/packets"
)

type DisplayController struct {
	manager *display.Manager
}

// DisplayModule lists mounted displays and pins headless ones.
func DisplayModule(manager *display.Manager) api.Module {
	ctl := &DisplayController{manager: manager}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/displays", ctl.listDisplays)
		c.PUT("/displays/:name/pin", ctl.pin)
		c.DELETE("/displays/:name/pin", ctl.unpin)
	})
}

func (c *DisplayController) summary(d *display.Display) packets.DisplaySummary {
	st := d.State()
	s := packets.DisplaySummary{
		Name:      d.Name(),
		State:     string(st.State),
		ItemCount: st.ItemCount,
		SyncError: st.SyncError,
		Pinned:    c.manager.Pinned(d.Name()),
	}
	if st.Item != nil {
		s.ItemID = st.Item.ID
		s.Title = st.Item.Title
	}
	return s
}

func (c *DisplayController) listDisplays(ctx *gin.Context) (any, *api.APIError) {
	out := make([]packets.DisplaySummary, 0)
	for _, name := range c.manager.Names() {
		if d, ok := c.manager.Get(name); ok {
			out = append(out, c.summary(d))
		}
	}
	return out, nil
}

func (c *DisplayController) pin(ctx *gin.Context) (any, *api.APIError) {
	d, err := c.manager.Pin(ctx.Request.Context(), ctx.Param("name"))
	if errors.Is(err, display.ErrInvalidName) {
		return nil, api.BadRequest(err.Error())
	}
	if err != nil {
		return nil, api.Internal(err.Error())
	}
	return c.summary(d), nil
}

func (c *DisplayController) unpin(ctx *gin.Context) (any, *api.APIError) {
	if !c.manager.Unpin(ctx.Param("name")) {
		return nil, api.NotFound("display is not pinned")
	}
	return nil, nil
}
