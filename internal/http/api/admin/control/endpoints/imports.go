package endpoints

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/db"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/http/api"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/importer"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
)

// FeedSource and TrailerSource are the importer operations the API needs.
type FeedSource interface {
	Fetch(ctx context.Context, feedURL string) ([]model.ContentDraft, error)
}

type TrailerSource interface {
	SearchTrailers(ctx context.Context, query string) ([]model.ContentDraft, error)
}

type ImportController struct {
	store       db.Store
	rss         FeedSource
	trailers    TrailerSource
	placeholder string
}

// ImportModule mounts /import/rss and /import/trailers. With "preview" set the
// drafts are returned without being saved.
func ImportModule(store db.Store, rss FeedSource, trailers TrailerSource, placeholder string) api.Module {
	ctl := &ImportController{store: store, rss: rss, trailers: trailers, placeholder: placeholder}
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/import/rss", ctl.importRSS)
		c.POST("/import/trailers", ctl.importTrailers)
	})
}

func (c *ImportController) importRSS(ctx *gin.Context) (any, *api.APIError) {
	var req packets.ImportRSSRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	drafts, err := c.rss.Fetch(ctx.Request.Context(), req.URL)
	if err != nil {
		log.Warn().Err(err).Str("url", req.URL).Msg("[import] rss fetch failed")
		if errors.Is(err, importer.ErrEmptyFeed) {
			return nil, api.Unprocessable(err)
		}
		return nil, &api.APIError{Code: http.StatusBadGateway, Message: "failed to fetch or parse RSS feed"}
	}
	return c.finish(ctx, "rss", drafts, req.Preview)
}

func (c *ImportController) importTrailers(ctx *gin.Context) (any, *api.APIError) {
	var req packets.ImportTrailersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	drafts, err := c.trailers.SearchTrailers(ctx.Request.Context(), req.Query)
	if err != nil {
		if errors.Is(err, importer.ErrMissingAPIKey) {
			return nil, &api.APIError{Code: http.StatusServiceUnavailable, Message: err.Error()}
		}
		log.Warn().Err(err).Str("query", req.Query).Msg("[import] trailer search failed")
		return nil, &api.APIError{Code: http.StatusBadGateway, Message: "failed to search trailers"}
	}
	return c.finish(ctx, "tmdb", drafts, req.Preview)
}

func (c *ImportController) finish(ctx *gin.Context, name string, drafts []model.ContentDraft, preview bool) (any, *api.APIError) {
	if preview {
		return packets.NewDraftResponses(drafts), nil
	}
	items, err := importer.Save(ctx.Request.Context(), c.store, name, drafts)
	if err != nil {
		return nil, storeError(err, "import content")
	}
	return api.Created{Body: packets.ImportResponse{
		Imported: len(items),
		Items:    packets.NewContentResponses(items, c.placeholder),
	}}, nil
}
