package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// maxCarouselBubbles is LINE's limit on bubbles in one flex carousel.
const maxCarouselBubbles = 12

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port string

	LineChannelSecret string
	LineChannelToken  string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	RedisURL         string

	FetchTransport    string
	ScrapingBeeAPIKey string
	PhantomJSCloudKey string
	ChromeBin         string
	HTTPTimeoutSec    int
	RenderTimeoutSec  int
	RequestRPS        float64
	ListingsCSVPath   string

	MaxPerMessage    int
	MaxNotifications int

	ScheduleSpec   string
	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int

	Sites SitesConfig
}

// SitesConfig carries per-source overrides. It is only populated from the
// optional YAML file named by CONFIG_FILE.
type SitesConfig struct {
	SuumoBaseURL  string `yaml:"suumo_base_url"`
	CanaryBaseURL string `yaml:"canary_base_url"`
	SafetyCap     int    `yaml:"safety_cap"`
}

// Load reads the .env file and returns a populated Config struct.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		LineChannelSecret: getEnv("LINE_CHANNEL_SECRET", ""),
		LineChannelToken:  getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "rental"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "rental123"),
		PostgresDB:       getEnv("POSTGRES_DB", "rental_bot"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		RedisURL:         getEnv("REDIS_URL", ""),

		FetchTransport:    getEnv("FETCH_TRANSPORT", "scrapingbee"),
		ScrapingBeeAPIKey: getEnv("SCRAPINGBEE_API_KEY", ""),
		PhantomJSCloudKey: getEnv("PHANTOMJSCLOUD_API_KEY", ""),
		ChromeBin:         getEnv("CHROME_BIN", ""),
		HTTPTimeoutSec:    getEnvInt("HTTP_TIMEOUT_SEC", 15),
		RenderTimeoutSec:  getEnvInt("RENDER_TIMEOUT_SEC", 60),
		RequestRPS:        getEnvFloat("REQUEST_RPS", 1),
		ListingsCSVPath:   getEnv("LISTINGS_CSV_PATH", ""),

		MaxPerMessage:    getEnvInt("MAX_PER_MESSAGE", 10),
		MaxNotifications: getEnvInt("MAX_NOTIFICATIONS", 20),

		ScheduleSpec:   getEnv("SCHEDULE_SPEC", ""),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 1000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),

		Sites: SitesConfig{
			SuumoBaseURL:  "https://suumo.jp",
			CanaryBaseURL: "https://web.canary-app.jp",
			SafetyCap:     100,
		},
	}

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.loadSites(path); err != nil {
			return nil, err
		}
	}

	cfg.MaxPerMessage = clamp(cfg.MaxPerMessage, 1, maxCarouselBubbles)

	if cfg.LineChannelSecret == "" || cfg.LineChannelToken == "" {
		return nil, fmt.Errorf("LINE_CHANNEL_SECRET and LINE_CHANNEL_ACCESS_TOKEN are required")
	}
	return cfg, nil
}

// loadSites overlays non-zero values from a YAML file onto the defaults.
func (c *Config) loadSites(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}

	var file struct {
		Sites SitesConfig `yaml:"sites"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("config: parse %q: %w", path, err)
	}

	if file.Sites.SuumoBaseURL != "" {
		c.Sites.SuumoBaseURL = file.Sites.SuumoBaseURL
	}
	if file.Sites.CanaryBaseURL != "" {
		c.Sites.CanaryBaseURL = file.Sites.CanaryBaseURL
	}
	if file.Sites.SafetyCap > 0 {
		c.Sites.SafetyCap = file.Sites.SafetyCap
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// HTTPTimeout is the budget for direct page retrieval.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// RenderTimeout is the budget for JavaScript-rendering transports.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.RenderTimeoutSec) * time.Second
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}
