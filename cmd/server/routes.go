package main

import (
	"html/template"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/display"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/http/api"
	adminapi "github.com/Nixie-Tech-LLC/vibescreen/internal/http/api/admin/control/endpoints"
	clientapi "github.com/Nixie-Tech-LLC/vibescreen/internal/http/api/tv/endpoints"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/importer"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/telemetry"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes(r *gin.Engine, env *Environment, manager *display.Manager, tmpl *template.Template) {
	cfg := env.Config
	r.SetHTMLTemplate(tmpl)
	r.Use(telemetry.Middleware())
	// CORS
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
		},
		ExposeHeaders: []string{
			"Content-Length",
		},
		AllowCredentials: false,
	}))

	rss := importer.NewRSS(cfg.PlaceholderURL)
	trailers := importer.NewTMDB(cfg.TMDBAPIKey, cfg.TMDBLanguage, cfg.YouTubeFallback)

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api/admin",
	},
		adminapi.ContentModule(env.Store, env.Storage, cfg.PlaceholderURL),
		adminapi.ImportModule(env.Store, rss, trailers, cfg.PlaceholderURL),
		adminapi.DisplayModule(manager),
	)

	var cache clientapi.NowShowingReader
	if env.NowShowing != nil {
		cache = env.NowShowing
	}
	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api/tv",
	},
		clientapi.DisplayModule(manager, cache),
	)

	r.GET("/metrics", gin.WrapH(telemetry.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "node": env.NodeID, "displays": len(manager.Names())})
	})

	// Player and static content
	r.GET("/", playerPage(cfg, "default"))
	r.GET("/screens/:name", func(c *gin.Context) {
		name := c.Param("name")
		if !display.ValidName(name) {
			c.String(http.StatusBadRequest, display.ErrInvalidName.Error())
			return
		}
		playerPage(cfg, name)(c)
	})
	r.Static("/static", staticDir)
	r.StaticFile("/placeholder.svg", staticDir+"/placeholder.svg")
	if !cfg.UseSpaces {
		r.Static(uploadURL, uploadDir)
	}
}
