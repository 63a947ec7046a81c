package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	StoreDriver string // sqlite | mongo
	DBDSN       string // sqlite file path
	MongoURI    string
	MongoDB     string
	GeminiKey   string
	GeminiModel string
	LogFile     string
}

func Load() Config {
	// Load .env only when present; deployed environments use real env vars.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("[config] could not load .env: %v", err)
		}
	}

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		StoreDriver: getEnv("STORE_DRIVER", "sqlite"),
		DBDSN:       getEnv("DB_DSN", "mermanager.db"),
		MongoURI:    getEnv("MONGO_URI", ""),
		MongoDB:     getEnv("MONGO_DB", "mermanager"),
		GeminiKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel: getEnv("GEMINI_MODEL", ""),
		LogFile:     getEnv("LOG_FILE", ""),
	}
	log.Printf("[config] PORT=%s STORE_DRIVER=%s DB_DSN=%s MONGO_DB=%s", cfg.Port, cfg.StoreDriver, cfg.DBDSN, cfg.MongoDB)
	return cfg
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
