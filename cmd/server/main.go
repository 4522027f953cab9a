package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/config"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/db"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/display"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/logging"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "vibescreen",
	Short: "Vibescreen digital signage server",
	Long:  "Vibescreen keeps a shared playlist of images and videos and plays it on any number of screens.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and display playback",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Setup(cfg.Environment)
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	if err := db.Init(cfg.DatabaseURL); err != nil {
		return err
	}
	defer db.DB.Close()
	return db.RunMigrations(cfg.MigrationsPath)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := LoadEnvironment(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	manager := display.NewManager(env.Store, env.Feed, nil, displayConfig(cfg))
	wireDisplays(manager, env)
	for _, name := range cfg.Displays {
		if _, err := manager.Pin(ctx, name); err != nil {
			log.Error().Err(err).Str("display", name).Msg("[server] could not pin display")
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	RegisterRoutes(r, env, manager, LoadTemplates())

	httpServer := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ServerAddress).Str("node", env.NodeID).Msg("[server] listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		manager.Shutdown()
		return fmt.Errorf("http server: %w", err)
	}

	log.Info().Msg("[server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("[server] graceful shutdown failed")
	}
	manager.Shutdown()
	log.Info().Msg("[server] stopped")
	return nil
}

func displayConfig(c *config.Config) display.Config {
	dc := display.DefaultConfig()
	dc.Timing.Fade = c.FadeDuration
	dc.Timing.YouTubeFallback = c.YouTubeFallback
	dc.Timing.TikTokDefault = c.TikTokFallback
	dc.Placeholder = c.PlaceholderURL
	dc.RetryInterval = c.SubscribeRetry
	return dc
}
