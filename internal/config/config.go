package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported values for database.driver.
const (
	DatabaseMemory   = "memory"
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	LogLevel            string
	DatabaseDriver      string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	EventsChannel       string
	JWTSecret           string
	AIProvider          string
	AIModel             string
	AITemperature       float64
	AITimeout           time.Duration
	AIMaxRetries        int
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	AnthropicAPIKey     string
	GeminiAPIKey        string
	GenerationDelay     time.Duration
	GenerationRateLimit int
	StatsCacheTTL       time.Duration
	SeedTemplates       bool
	SeedToken           string
	CORSAllowOrigins    []string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LABGEN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "LabGen API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", DatabaseMemory)
	v.SetDefault("events.channel", "labgen")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.max_retries", 2)
	v.SetDefault("generation.delay", "100ms")
	v.SetDefault("generation.rate_limit", 10)
	v.SetDefault("stats.cache_ttl", "1m")
	v.SetDefault("seed.templates", true)

	aiTimeout, err := parseDuration(v, "ai.timeout", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	delay, err := parseDuration(v, "generation.delay", 100*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	ttl, err := parseDuration(v, "stats.cache_ttl", time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		LogLevel:            strings.ToLower(v.GetString("log.level")),
		DatabaseDriver:      strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		EventsChannel:       v.GetString("events.channel"),
		JWTSecret:           v.GetString("jwt.secret"),
		AIProvider:          strings.ToLower(v.GetString("ai.provider")),
		AIModel:             v.GetString("ai.model"),
		AITemperature:       v.GetFloat64("ai.temperature"),
		AITimeout:           aiTimeout,
		AIMaxRetries:        v.GetInt("ai.max_retries"),
		OpenAIAPIKey:        v.GetString("openai_api_key"),
		OpenAIBaseURL:       v.GetString("openai_base_url"),
		AnthropicAPIKey:     v.GetString("anthropic_api_key"),
		GeminiAPIKey:        v.GetString("gemini_api_key"),
		GenerationDelay:     delay,
		GenerationRateLimit: v.GetInt("generation.rate_limit"),
		StatsCacheTTL:       ttl,
		SeedTemplates:       v.GetBool("seed.templates"),
		SeedToken:           v.GetString("seed.token"),
		CORSAllowOrigins:    splitList(v.GetString("cors.allow_origins")),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.DatabaseDriver {
	case DatabaseMemory:
	case DatabasePostgres, DatabaseSQLite:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("database url must be provided for driver %q", cfg.DatabaseDriver)
		}
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.GenerationRateLimit <= 0 {
		cfg.GenerationRateLimit = 10
	}

	if cfg.AIMaxRetries < 0 {
		cfg.AIMaxRetries = 0
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return fallback, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}

	return value, nil
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
