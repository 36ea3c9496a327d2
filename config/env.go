package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server ServerConfig
	Redis  RedisConfig
	DB     DBConfig
	Auth   AuthConfig
	POS    POSConfig
	Rates  RatesConfig
}

type ServerConfig struct {
	Addr string
}

type DBConfig struct {
	DSN string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type POSConfig struct {
	// TaxRate is the per-tenant VAT rate applied at checkout, e.g. "0.16".
	TaxRate         string
	DefaultCurrency string
	RateLimit       string
}

type RatesConfig struct {
	UpstreamURL string
	CacheTTL    time.Duration
}

func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	tokenTTL, err := time.ParseDuration(getEnv("AUTH_TOKEN_TTL", "12h"))
	if err != nil {
		log.Printf("Invalid AUTH_TOKEN_TTL, using 12h: %v", err)
		tokenTTL = 12 * time.Hour
	}

	ratesTTL, err := time.ParseDuration(getEnv("RATES_CACHE_TTL", "1h"))
	if err != nil {
		log.Printf("Invalid RATES_CACHE_TTL, using 1h: %v", err)
		ratesTTL = time.Hour
	}

	return Config{
		Server: ServerConfig{
			Addr: getEnv("SERVER_ADDR", ":8080"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		DB: DBConfig{
			DSN: getEnv("POS_DSN", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  tokenTTL,
		},
		POS: POSConfig{
			TaxRate:         getEnv("POS_TAX_RATE", "0.16"),
			DefaultCurrency: getEnv("POS_CURRENCY", "MXN"),
			RateLimit:       getEnv("RATE_LIMIT", "100-M"),
		},
		Rates: RatesConfig{
			UpstreamURL: getEnv("RATES_UPSTREAM_URL", ""),
			CacheTTL:    ratesTTL,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
