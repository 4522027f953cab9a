package main

import (
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/config"
)

const (
	templatesGlob = "web/templates/*.html"
	staticDir     = "web/static"
)

// LoadTemplates parses the HTML templates served to screens
func LoadTemplates() *template.Template {
	tmpl := template.New("")
	files, err := filepath.Glob(templatesGlob)
	if err != nil {
		panic(err)
	}
	for _, f := range files {
		tmpl = template.Must(tmpl.ParseFiles(f))
	}
	return tmpl
}

func playerPage(cfg *config.Config, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "player.html", gin.H{
			"Display":     name,
			"Start":       c.Query("start"),
			"FadeMs":      cfg.FadeDuration.Milliseconds(),
			"Placeholder": cfg.PlaceholderURL,
		})
	}
}
