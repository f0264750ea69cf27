package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`
	DefaultLLM   string `yaml:"default_llm"`

	TelegramBotToken string `yaml:"telegram_bot_token"`
	WebhookURL       string `yaml:"webhook_url"`

	DatabaseURL string        `yaml:"database_url"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`

	MQTTBroker      string `yaml:"mqtt_broker"`
	MQTTTopicPrefix string `yaml:"mqtt_topic_prefix"`

	PDFFontPath       string `yaml:"pdf_font_path"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
}

func defaults() *Config {
	return &Config{
		Port:              "8000",
		GeminiModel:       "gemini-2.5-flash",
		OpenAIModel:       "gpt-4o-mini",
		DefaultLLM:        "gemini",
		CacheTTL:          24 * time.Hour,
		MQTTTopicPrefix:   "first-aid",
		RequestTimeoutSec: 60,
	}
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// Load reads the optional YAML file named by AID_CONFIG, then lets env vars
// override it. Invalid configuration is fatal.
func Load() *Config {
	cfg, err := LoadFrom(os.Getenv("AID_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func LoadFrom(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = getEnv("GEMINI_MODEL", c.GeminiModel)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIModel = getEnv("OPENAI_MODEL", c.OpenAIModel)
	c.DefaultLLM = strings.ToLower(getEnv("DEFAULT_LLM", c.DefaultLLM))
	c.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", c.TelegramBotToken)
	c.WebhookURL = getEnv("WEBHOOK_URL", c.WebhookURL)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.MQTTBroker = getEnv("MQTT_BROKER", c.MQTTBroker)
	c.MQTTTopicPrefix = getEnv("MQTT_TOPIC_PREFIX", c.MQTTTopicPrefix)
	c.PDFFontPath = getEnv("PDF_FONT_PATH", c.PDFFontPath)

	if v := getEnv("CACHE_TTL", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CACHE_TTL: %w", err)
		}
		c.CacheTTL = d
	}
	if v := getEnv("REQUEST_TIMEOUT_SEC", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REQUEST_TIMEOUT_SEC: %w", err)
		}
		c.RequestTimeoutSec = n
	}
	return nil
}

func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" && c.OpenAIAPIKey == "" {
		return errors.New("set GEMINI_API_KEY or OPENAI_API_KEY")
	}
	switch c.DefaultLLM {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("DEFAULT_LLM=gemini but GEMINI_API_KEY is empty")
		}
	case "gpt", "openai":
		if c.OpenAIAPIKey == "" {
			return errors.New("DEFAULT_LLM=gpt but OPENAI_API_KEY is empty")
		}
	default:
		return fmt.Errorf("DEFAULT_LLM %q: use gemini or gpt", c.DefaultLLM)
	}
	if c.RequestTimeoutSec <= 0 {
		return errors.New("REQUEST_TIMEOUT_SEC must be positive")
	}
	if c.CacheTTL < 0 {
		return errors.New("CACHE_TTL must not be negative")
	}
	return nil
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// ResolveDSN prefers DatabaseURL and otherwise builds a DSN from POSTGRES_* / PG*
// env vars when POSTGRES_PASSWORD is set. Empty means run without a database.
func (c *Config) ResolveDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	pass := os.Getenv("POSTGRES_PASSWORD")
	if pass == "" {
		return ""
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "firstaid"), pass),
		Host:     net.JoinHostPort(getEnv("PGHOST", "db"), getEnv("PGPORT", "5432")),
		Path:     "/" + getEnv("POSTGRES_DB", "firstaid"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// SafeDSNSummary describes a DSN without its password, for logs.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	host, port := u.Host, ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, u.User.Username())
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, u.User.Username())
}
