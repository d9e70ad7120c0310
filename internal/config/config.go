// Package config reads process settings from the environment, after
// loading a .env file when one is present.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ahinestrog/cartengine/internal/storage"
)

type Config struct {
	Storage    storage.Config
	StorageKey string
	WriteQueue int

	RabbitURL    string // empty disables the event publisher and broker dispatch
	CartExchange string

	CatalogDBPath    string
	CatalogCacheSize int

	HTTPAddr    string
	GRPCAddr    string
	CORSOrigins []string

	OrderPhone string
	LogLevel   zerolog.Level
}

const ShutdownGrace = 10 * time.Second

// LoadConfig loads .env files (missing ones are ignored) and reads the
// environment.
func LoadConfig(files ...string) Config {
	_ = godotenv.Load(files...)
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		Storage: storage.Config{
			Backend:      getenv("CART_STORAGE", storage.BackendSQLite),
			DBPath:       getenv("CART_DB_PATH", "./data/cart.db"),
			SQLiteDriver: getenv("CART_SQLITE_DRIVER", "sqlite"),
			RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
			RedisDB:      getint("REDIS_DB", 0),
		},
		StorageKey: getenv("CART_STORAGE_KEY", "cart-storage"),
		WriteQueue: getint("CART_WRITE_QUEUE", 64),

		RabbitURL:    os.Getenv("RABBITMQ_URL"),
		CartExchange: getenv("CART_EXCHANGE", "cart.events"),

		CatalogDBPath:    getenv("CATALOG_DB_PATH", "./data/catalog.db"),
		CatalogCacheSize: getint("CATALOG_CACHE_SIZE", 256),

		HTTPAddr:    getenv("CART_HTTP_ADDR", ":8080"),
		GRPCAddr:    getenv("CART_GRPC_ADDR", ":50051"),
		CORSOrigins: getlist("CART_CORS_ORIGINS", []string{"*"}),

		OrderPhone: os.Getenv("ORDER_PHONE"),
		LogLevel:   getlevel("LOG_LEVEL", zerolog.InfoLevel),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getlist(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func getlevel(key string, def zerolog.Level) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(os.Getenv(key)))
	if err != nil || os.Getenv(key) == "" {
		return def
	}
	return lvl
}
