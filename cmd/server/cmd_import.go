package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/changefeed"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/config"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/db"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/importer"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/redis"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import content items from external sources",
}

var importRSSCmd = &cobra.Command{
	Use:   "rss <feed-url>",
	Short: "Append the items of an RSS or Atom feed to the playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), "rss", func(ctx context.Context) ([]model.ContentDraft, error) {
			return importer.NewRSS(cfg.PlaceholderURL).Fetch(ctx, args[0])
		})
	},
}

var importTrailersCmd = &cobra.Command{
	Use:   "trailers <query>",
	Short: "Append YouTube trailers of movies and shows matching a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), "tmdb", func(ctx context.Context) ([]model.ContentDraft, error) {
			return importer.NewTMDB(cfg.TMDBAPIKey, cfg.TMDBLanguage, cfg.YouTubeFallback).SearchTrailers(ctx, args[0])
		})
	},
}

var importDryRun bool

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importRSSCmd)
	importCmd.AddCommand(importTrailersCmd)
	importCmd.PersistentFlags().BoolVar(&importDryRun, "dry-run", false, "Print what would be imported without saving")
}

func runImport(ctx context.Context, name string, fetch func(context.Context) ([]model.ContentDraft, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	drafts, err := fetch(ctx)
	if err != nil {
		return err
	}
	if importDryRun {
		for _, d := range drafts {
			fmt.Printf("%-5s %-60s %s\n", d.Type, d.Title, d.Source)
		}
		return nil
	}

	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	if err := db.Init(cfg.DatabaseURL); err != nil {
		return err
	}
	defer db.DB.Close()

	notifier, closeFeed, err := importNotifier(cfg)
	if err != nil {
		return err
	}
	defer closeFeed()

	items, err := importer.Save(ctx, db.NewStore(db.DB, notifier), name, drafts)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d items\n", len(items))
	return nil
}

// importNotifier tells running servers about the import when their change feed
// is not driven by the database itself.
func importNotifier(c *config.Config) (changefeed.Notifier, func(), error) {
	if c.ChangeFeed != config.FeedRedis && c.ChangeFeed != config.FeedNATS {
		return nil, func() {}, nil
	}
	env := &Environment{Config: c, NodeID: "import"}
	if c.ChangeFeed == config.FeedRedis {
		if err := redis.InitRedis(c.RedisAddress, c.RedisUsername, c.RedisPassword); err != nil {
			log.Warn().Err(err).Msg("[import] redis unreachable, running servers will not be notified")
		}
		env.closers = append(env.closers, redis.Close)
	}
	notifier, err := env.openFeed(c)
	if err != nil {
		env.Close()
		return nil, func() {}, err
	}
	return notifier, env.Close, nil
}
