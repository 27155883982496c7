package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	LogLevel    string

	ServerPort int
	PublicURL  string

	DatabaseURL string

	JWTAccessSecret  []byte
	JWTRefreshSecret []byte

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	RedisAddr string

	PriceFeed PriceFeedConfig
	Mail      MailConfig

	AdminEmail    string
	AdminPassword string

	PaymentWebhookSecret string

	CSRFEnabled bool
	RateLimit   int
	RateBurst   int
}

type PriceFeedConfig struct {
	URL      string
	Asset    string
	Currency string
	Timeout  time.Duration
	CacheTTL time.Duration
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found: %v, using system environment variables", err)
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "storefront"),
		LogLevel:    os.Getenv("LOG_LEVEL"),

		ServerPort: EnvIntDefault("SERVER_PORT", 8080),
		PublicURL:  strings.TrimRight(EnvDefault("PUBLIC_URL", "http://localhost:8080"), "/"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTAccessSecret:  []byte(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		PriceFeed: PriceFeedConfig{
			URL:      EnvDefault("PRICE_FEED_URL", "https://api.coingecko.com/api/v3"),
			Asset:    EnvDefault("PRICE_FEED_ASSET", "ethereum"),
			Currency: EnvDefault("PRICE_FEED_CURRENCY", "usd"),
			Timeout:  EnvDurationDefault("PRICE_FEED_TIMEOUT", 3*time.Second),
			CacheTTL: EnvDurationDefault("PRICE_FEED_CACHE_TTL", 30*time.Second),
		},

		Mail: MailConfig{
			Host:     os.Getenv("MAIL_HOST"),
			Port:     EnvIntDefault("MAIL_PORT", 465),
			Username: os.Getenv("MAIL_USERNAME"),
			Password: os.Getenv("MAIL_PASSWORD"),
			From:     EnvDefault("MAIL_FROM", "noreply@teslix.com"),
		},

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),

		CSRFEnabled: EnvDefault("CSRF_ENABLED", "true") == "true",
		RateLimit:   EnvIntDefault("RATE_LIMIT_RPS", 5),
		RateBurst:   EnvIntDefault("RATE_LIMIT_BURST", 10),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
