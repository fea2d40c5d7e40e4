package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/autoparts-storefront/internal/storage"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort string

	Store storage.Config

	BackendURL       string
	GatewayScriptURL string
	PaymentCurrency  string
	JWTSecret        string

	KafkaBrokers []string
	KafkaTopic   string

	LogLevel  string
	LogFormat string
	LogFile   string

	SessionIdleTTL    time.Duration
	GatewayAbandonTTL time.Duration
	RequestTimeout    time.Duration
	ShutdownTimeout   time.Duration
}

// Load reads the environment after applying any .env files. Files that do not
// exist are skipped; existing variables are never overridden.
func Load(files ...string) Config {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("env file not loaded", "file", f, "error", err)
		}
	}

	return Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		Store: storage.Config{
			Driver:        getEnv("STORE_DRIVER", storage.DriverMemory),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			TTL:           getDurationEnv("CART_TTL", 30*24*time.Hour),
			MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDBName:   getEnv("MONGO_DB_NAME", "storefront"),
			Postgres: storage.Credentials{
				Host:     getEnv("DB_HOST", "localhost"),
				Port:     getIntEnv("DB_PORT", 5432),
				User:     getEnv("DB_USER", "postgres"),
				Password: getEnv("DB_PASSWORD", "postgres"),
				DBName:   getEnv("DB_NAME", "storefront"),
			},
			SQLitePath: getEnv("SQLITE_PATH", "storefront.db"),
		},
		BackendURL:        getEnv("BACKEND_URL", "http://localhost:5000/api"),
		GatewayScriptURL:  getEnv("GATEWAY_SCRIPT_URL", "https://checkout.razorpay.com/v1/checkout.js"),
		PaymentCurrency:   getEnv("PAYMENT_CURRENCY", "INR"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		KafkaBrokers:      getListEnv("KAFKA_BROKERS"),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "checkout-events"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		LogFile:           getEnv("LOG_FILE", ""),
		SessionIdleTTL:    getDurationEnv("SESSION_IDLE_TTL", 30*time.Minute),
		GatewayAbandonTTL: getDurationEnv("GATEWAY_ABANDON_TTL", 15*time.Minute),
		RequestTimeout:    getDurationEnv("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:   getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer, using default", "key", key, "value", v, "default", defaultValue)
		return defaultValue
	}
	return n
}

// getDurationEnv accepts Go durations ("90s", "15m").
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", v, "default", defaultValue)
		return defaultValue
	}
	return d
}

func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
