package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

type Config struct {
	ServerAddress string
	JWTSecret     string
	JWTExpiration time.Duration

	StoreBackend  string
	MongoURI      string
	MongoDatabase string
	DataDir       string

	CacheTTL    time.Duration
	CacheSize   int
	UpstreamRPS float64

	ClinicalTrialsBaseURL string
	PubMedBaseURL         string
	ORCIDBaseURL          string

	AIAPIKey  string
	AIModel   string
	AIBaseURL string

	SeedCategories bool

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":5000"),
		JWTSecret:     getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTExpiration: getDuration("JWT_EXPIRATION", 7*24*time.Hour),

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "curalink"),
		DataDir:       getEnv("DATA_DIR", "./data"),

		CacheTTL:    getDuration("CACHE_TTL", 5*time.Minute),
		CacheSize:   getInt("CACHE_SIZE", 500),
		UpstreamRPS: getFloat("UPSTREAM_RPS", 3),

		ClinicalTrialsBaseURL: getEnv("CLINICALTRIALS_BASE_URL", "https://clinicaltrials.gov"),
		PubMedBaseURL:         getEnv("PUBMED_BASE_URL", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"),
		ORCIDBaseURL:          getEnv("ORCID_BASE_URL", "https://pub.orcid.org/v3.0"),

		AIAPIKey:  getEnv("GOOGLE_AI_API_KEY", ""),
		AIModel:   getEnv("AI_MODEL", "gemini-2.5-flash-lite"),
		AIBaseURL: getEnv("AI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		SeedCategories: getBool("SEED_CATEGORIES", true),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil && d > 0 {
		return d
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil && f > 0 {
		return f
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return b
	}
	return defaultValue
}
