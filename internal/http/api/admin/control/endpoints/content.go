package endpoints

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/db"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/http/api"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/storage"
)

type ContentController struct {
	store       db.Store
	storage     storage.Storage
	placeholder string
}

func newContentController(store db.Store, storage storage.Storage, placeholder string) *ContentController {
	return &ContentController{store: store, storage: storage, placeholder: placeholder}
}

// ContentModule mounts the /content endpoints
func ContentModule(store db.Store, storage storage.Storage, placeholder string) api.Module {
	ctl := newContentController(store, storage, placeholder)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/content", ctl.listContent)
		c.GET("/content/:id", ctl.getContent)
		c.POST("/content", ctl.createContent)
		c.PATCH("/content/:id", ctl.updateContent)
		c.PUT("/content/:id/active", ctl.setActive)
		c.DELETE("/content/:id", ctl.deleteContent)
		c.POST("/content/move", ctl.moveContent)
		c.PUT("/content/order", ctl.reorderContent)
		c.POST("/uploads", ctl.upload)
	})
}

// storeError maps store failures onto responses; anything unexpected is
// logged and hidden behind a 500.
func storeError(err error, op string) *api.APIError {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return api.NotFound("content item not found")
	case errors.Is(err, model.ErrValidation):
		return api.Unprocessable(err)
	}
	log.Error().Err(err).Str("op", op).Msg("[content] store failure")
	return api.Internal("could not " + op)
}

func (c *ContentController) listContent(ctx *gin.Context) (any, *api.APIError) {
	items, err := c.store.ListContentItems(ctx.Request.Context())
	if err != nil {
		return nil, storeError(err, "list content")
	}
	return packets.NewContentResponses(items, c.placeholder), nil
}

func (c *ContentController) getContent(ctx *gin.Context) (any, *api.APIError) {
	item, err := c.store.GetContentItem(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		return nil, storeError(err, "get content")
	}
	return packets.NewContentResponse(item, c.placeholder), nil
}

func (c *ContentController) createContent(ctx *gin.Context) (any, *api.APIError) {
	var req packets.CreateContentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("[content] createContent: bad request")
		return nil, api.BadRequest(err.Error())
	}

	draft := req.Draft()
	if storage.IsDataURI(draft.Source) {
		url, err := storage.SaveDataURI(ctx.Request.Context(), c.storage, draft.Title, draft.Source)
		if err != nil {
			log.Warn().Err(err).Msg("[content] createContent: data URI rejected")
			return nil, api.BadRequest(err.Error())
		}
		draft.Source = url
	}

	item, err := c.store.CreateContentItem(ctx.Request.Context(), draft)
	if err != nil {
		return nil, storeError(err, "create content")
	}
	log.Info().Str("id", item.ID).Str("type", string(item.Type)).Msg("[content] created")
	return api.Created{Body: packets.NewContentResponse(item, c.placeholder)}, nil
}

func (c *ContentController) updateContent(ctx *gin.Context) (any, *api.APIError) {
	var req packets.UpdateContentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	item, err := c.store.UpdateContentItem(ctx.Request.Context(), ctx.Param("id"), req.Patch())
	if err != nil {
		return nil, storeError(err, "update content")
	}
	return packets.NewContentResponse(item, c.placeholder), nil
}

func (c *ContentController) setActive(ctx *gin.Context) (any, *api.APIError) {
	var req packets.SetActiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	item, err := c.store.SetContentItemActive(ctx.Request.Context(), ctx.Param("id"), *req.Active)
	if err != nil {
		return nil, storeError(err, "toggle content")
	}
	return packets.NewContentResponse(item, c.placeholder), nil
}

func (c *ContentController) deleteContent(ctx *gin.Context) (any, *api.APIError) {
	if err := c.store.DeleteContentItem(ctx.Request.Context(), ctx.Param("id")); err != nil {
		return nil, storeError(err, "delete content")
	}
	log.Info().Str("id", ctx.Param("id")).Msg("[content] deleted")
	return nil, nil
}

func (c *ContentController) moveContent(ctx *gin.Context) (any, *api.APIError) {
	var req packets.MoveContentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if err := c.store.MoveContentItem(ctx.Request.Context(), *req.From, *req.To); err != nil {
		return nil, storeError(err, "move content")
	}
	return c.listContent(ctx)
}

func (c *ContentController) reorderContent(ctx *gin.Context) (any, *api.APIError) {
	var req packets.ReorderContentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if err := c.store.ReorderContentItems(ctx.Request.Context(), req.IDs); err != nil {
		return nil, storeError(err, "reorder content")
	}
	return c.listContent(ctx)
}

// upload stores a multipart "file" and returns its public URL, for use as an
// item source or background image.
func (c *ContentController) upload(ctx *gin.Context) (any, *api.APIError) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		log.Warn().Err(err).Msg("[content] upload: missing file")
		return nil, api.BadRequest("file is required")
	}

	url, err := storage.SaveFile(ctx.Request.Context(), c.storage, fileHeader)
	if errors.Is(err, storage.ErrUnsupportedMedia) {
		return nil, &api.APIError{Code: http.StatusUnsupportedMediaType, Message: err.Error()}
	}
	if err != nil {
		log.Error().Err(err).Msg("[content] upload: save failed")
		return nil, api.Internal("could not save file")
	}
	return api.Created{Body: packets.UploadResponse{URL: url}}, nil
}
