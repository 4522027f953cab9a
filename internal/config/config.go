package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	FeedMemory   = "memory"
	FeedPostgres = "postgres"
	FeedRedis    = "redis"
	FeedNATS     = "nats"
)

// Config holds environment-based settings
type Config struct {
	Environment    string   `mapstructure:"app_env"`
	ServerAddress  string   `mapstructure:"server_address"`
	DatabaseURL    string   `mapstructure:"database_url"`
	MigrationsPath string   `mapstructure:"migrations_path"`
	ChangeFeed     string   `mapstructure:"change_feed"`
	NodeID         string   `mapstructure:"node_id"`
	Displays       []string `mapstructure:"displays"`

	RedisAddress  string `mapstructure:"redis_address"`
	RedisUsername string `mapstructure:"redis_username"`
	RedisPassword string `mapstructure:"redis_password"`
	NATSURL       string `mapstructure:"nats_url"`
	MQTTBrokerURL string `mapstructure:"mqtt_broker_url"`

	UseSpaces       bool   `mapstructure:"use_spaces"`
	SpacesEndpoint  string `mapstructure:"spaces_endpoint"`
	SpacesRegion    string `mapstructure:"spaces_region"`
	SpacesBucket    string `mapstructure:"spaces_bucket"`
	SpacesCDNURL    string `mapstructure:"spaces_cdn_url"`
	SpacesAccessKey string `mapstructure:"spaces_access_key"`
	SpacesSecretKey string `mapstructure:"spaces_secret_key"`

	TMDBAPIKey   string `mapstructure:"tmdb_api_key"`
	TMDBLanguage string `mapstructure:"tmdb_language"`

	FadeDuration    time.Duration `mapstructure:"fade_duration"`
	YouTubeFallback time.Duration `mapstructure:"youtube_fallback"`
	TikTokFallback  time.Duration `mapstructure:"tiktok_fallback"`
	SubscribeRetry  time.Duration `mapstructure:"subscribe_retry"`
	PlaceholderURL  string        `mapstructure:"placeholder_url"`
}

var keys = []string{
	"app_env", "server_address", "database_url", "migrations_path", "change_feed", "node_id", "displays",
	"redis_address", "redis_username", "redis_password", "nats_url", "mqtt_broker_url",
	"use_spaces", "spaces_endpoint", "spaces_region", "spaces_bucket", "spaces_cdn_url",
	"spaces_access_key", "spaces_secret_key",
	"tmdb_api_key", "tmdb_language",
	"fade_duration", "youtube_fallback", "tiktok_fallback", "subscribe_retry", "placeholder_url",
}

func (c *Config) Development() bool {
	return c.Environment == "" || c.Environment == "development"
}

// Load reads .env files (when present) and then the process environment.
// Environment variables win over .env entries.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// A missing .env is normal outside development.
		_ = godotenv.Load(f)
	}
	return FromViper(viper.New())
}

// FromViper binds the known keys on v to the environment and decodes them.
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetDefault("app_env", "development")
	v.SetDefault("server_address", ":8080")
	v.SetDefault("migrations_path", "./migrations")
	v.SetDefault("tmdb_language", "pt-BR")
	v.SetDefault("fade_duration", 500*time.Millisecond)
	v.SetDefault("youtube_fallback", 300*time.Second)
	v.SetDefault("tiktok_fallback", 30*time.Second)
	v.SetDefault("subscribe_retry", 5*time.Second)
	v.SetDefault("placeholder_url", "/placeholder.svg")

	for _, k := range keys {
		if err := v.BindEnv(k, strings.ToUpper(k)); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// DISPLAYS arrives as one comma separated string from the environment.
	cfg.Displays = splitList(v.GetString("displays"))

	if cfg.ChangeFeed == "" {
		cfg.ChangeFeed = FeedMemory
		if cfg.DatabaseURL != "" {
			cfg.ChangeFeed = FeedPostgres
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.ChangeFeed {
	case FeedMemory:
	case FeedPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("CHANGE_FEED=postgres requires DATABASE_URL"))
		}
	case FeedRedis:
		if c.RedisAddress == "" {
			errs = append(errs, errors.New("CHANGE_FEED=redis requires REDIS_ADDRESS"))
		}
	case FeedNATS:
		if c.NATSURL == "" {
			errs = append(errs, errors.New("CHANGE_FEED=nats requires NATS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CHANGE_FEED %q", c.ChangeFeed))
	}
	if c.UseSpaces && (c.SpacesBucket == "" || c.SpacesEndpoint == "") {
		errs = append(errs, errors.New("USE_SPACES requires SPACES_ENDPOINT and SPACES_BUCKET"))
	}
	if c.FadeDuration < 0 || c.YouTubeFallback <= 0 || c.TikTokFallback <= 0 {
		errs = append(errs, errors.New("playback durations must be positive"))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
