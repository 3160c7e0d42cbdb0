/*
config.go - Environment-driven configuration

PURPOSE:
  Loads configuration from a .env file (when present) and the process
  environment, with sane defaults for local development. Flags in
  cmd/server override environment values.

VARIABLES:
  ADDR       Listen address            (default :8080)
  DB_PATH    SQLite database path      (default ./data/premiacao.db)
  SEED       Seed demo data on start   (default false)
*/
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr   string
	DBPath string
	Seed   bool
}

// Load reads .env (ignored when absent) and the environment.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Addr:   GetString("ADDR", ":8080"),
		DBPath: GetString("DB_PATH", "./data/premiacao.db"),
		Seed:   GetBool("SEED", false),
	}
}

func GetString(key, fallback string) string {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return val
}

func GetInt(key string, fallback int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	valInt, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return valInt
}

func GetBool(key string, fallback bool) bool {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	valBool, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return valBool
}
