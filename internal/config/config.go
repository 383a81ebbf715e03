package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port         string
	AllowOrigins string
	BcryptCost   int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func Load() *Config {
	return &Config{
		Port:         getenv("PORT", "8080"),
		AllowOrigins: getenv("ALLOW_ORIGINS", "*"),
		BcryptCost:   atoi("BCRYPT_COST", 10),
	}
}
