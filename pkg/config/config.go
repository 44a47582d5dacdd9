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
	Env         string
	ServiceName string
	LogLevel    string

	ServerPort  int
	CORSOrigins []string

	DatabaseURL    string
	MigrationsPath string

	JWTAccessSecret  []byte
	JWTRefreshSecret []byte
	AccessTTL        time.Duration
	RefreshTTL       time.Duration

	KafkaBrokers  []string
	NotifyTimeout time.Duration

	RedisURL         string
	LoginMaxAttempts int
	LoginWindow      time.Duration

	MongoURL string
	MongoDB  string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	CartTTL           time.Duration
	CartSweepInterval time.Duration

	OTLPEndpoint string
}

// Load reads the process environment, optionally seeded from the given .env files.
func Load(envFiles ...string) Config {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			log.Printf("warning: could not load .env: %v", err)
		}
	}

	return Config{
		Env:         EnvDefault("APP_ENV", "production"),
		ServiceName: EnvDefault("SERVICE_NAME", "storefront"),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		CORSOrigins: CSV(EnvDefault("CORS_ORIGINS", "*")),

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MigrationsPath: EnvDefault("MIGRATIONS_PATH", "file://migrations"),

		JWTAccessSecret:  []byte(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),
		AccessTTL:        EnvDurationDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:       EnvDurationDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		KafkaBrokers:  CSV(os.Getenv("KAFKA_BROKERS")),
		NotifyTimeout: EnvDurationDefault("NOTIFY_TIMEOUT", 5*time.Second),

		RedisURL:         os.Getenv("REDIS_URL"),
		LoginMaxAttempts: EnvIntDefault("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindow:      EnvDurationDefault("LOGIN_WINDOW", 15*time.Minute),

		MongoURL: os.Getenv("MONGO_URL"),
		MongoDB:  EnvDefault("MONGO_DB", "storefront"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),

		CartTTL:           EnvDurationDefault("CART_TTL", 7*24*time.Hour),
		CartSweepInterval: EnvDurationDefault("CART_SWEEP_INTERVAL", time.Hour),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
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
