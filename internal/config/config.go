package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	SourcePlatform string
	SourceBaseURL  string
	FetchTimeout   time.Duration

	GeminiAPIKeys     []string
	GeminiModel       string
	ExtractionTimeout time.Duration

	CompanySiteTimeout time.Duration

	PostgresDSN string

	NATSURL         string
	NATSConnTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ArtifactTTL   time.Duration
	CacheTTL      time.Duration

	OTLPCollectorURL string

	MaxItemsPerRun       int
	VerificationInterval time.Duration
}

func LoadConfig() (*Config, error) {
	config := &Config{
		SourcePlatform: getEnvString("SOURCE_PLATFORM", "ausbildung.de"),
		SourceBaseURL:  getEnvString("SOURCE_BASE_URL", "https://www.ausbildung.de"),
		FetchTimeout:   getEnvDuration("FETCH_TIMEOUT", 30*time.Second),

		GeminiAPIKeys:     getEnvStringSlice("GEMINI_API_KEYS"),
		GeminiModel:       getEnvString("GEMINI_MODEL", "gemini-1.5-flash"),
		ExtractionTimeout: getEnvDuration("EXTRACTION_TIMEOUT", 60*time.Second),

		CompanySiteTimeout: getEnvDuration("COMPANY_SITE_TIMEOUT", 15*time.Second),

		PostgresDSN: getEnvString("POSTGRES_DSN",
			"host=localhost user=postgres password=postgres dbname=azubimine port=5432 sslmode=disable"),

		NATSURL:         getEnvString("NATS_URL", "nats://localhost:4222"),
		NATSConnTimeout: getEnvDuration("NATS_CONN_TIMEOUT", 10*time.Second),

		RedisAddr:     getEnvString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnvString("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		ArtifactTTL:   getEnvDuration("ARTIFACT_TTL", 48*time.Hour),
		CacheTTL:      getEnvDuration("CACHE_TTL", 24*time.Hour),

		OTLPCollectorURL: getEnvString("OTLP_COLLECTOR_URL", ""),

		MaxItemsPerRun:       getEnvInt("MAX_ITEMS_PER_RUN", 200),
		VerificationInterval: getEnvDuration("VERIFICATION_INTERVAL", 30*24*time.Hour),
	}

	return config, nil
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvStringSlice(key string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
