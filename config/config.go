package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Redis configuration (product store / price history)
	RedisAddr string
	RedisDB   int

	// Memcache configuration (product and resolve caches)
	MemcacheAddr string

	// HTTP configuration
	HTTPTimeout   time.Duration
	FetchRetries  int
	FetchBaseWait time.Duration
	FetchRate     float64
	FetchBurst    int

	// Redirect following
	MaxRedirectHops  int
	RedirectHopDelay time.Duration

	// Page validation
	MinPageSize int

	// Cache TTLs
	ProductCacheTTL time.Duration
	ResolveCacheTTL time.Duration

	// Batch parsing
	BatchLimit int

	// Parse history ring size
	ParseHistorySize int

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	httpTimeout, _ := strconv.Atoi(getEnv("HTTP_TIMEOUT_SECONDS", "10"))
	fetchRetries, _ := strconv.Atoi(getEnv("FETCH_RETRIES", "3"))
	fetchBaseWait, _ := strconv.Atoi(getEnv("FETCH_BASE_WAIT_MS", "2000"))
	fetchRate, _ := strconv.ParseFloat(getEnv("FETCH_RATE_PER_SECOND", "2"), 64)
	fetchBurst, _ := strconv.Atoi(getEnv("FETCH_BURST", "4"))
	maxHops, _ := strconv.Atoi(getEnv("MAX_REDIRECT_HOPS", "10"))
	hopDelay, _ := strconv.Atoi(getEnv("REDIRECT_HOP_DELAY_MS", "200"))
	minPageSize, _ := strconv.Atoi(getEnv("MIN_PAGE_SIZE", "50000"))
	productTTL, _ := strconv.Atoi(getEnv("PRODUCT_CACHE_TTL_SECONDS", "3600"))
	resolveTTL, _ := strconv.Atoi(getEnv("RESOLVE_CACHE_TTL_SECONDS", "300"))
	batchLimit, _ := strconv.Atoi(getEnv("BATCH_LIMIT", "20"))
	historySize, _ := strconv.Atoi(getEnv("PARSE_HISTORY_SIZE", "100"))

	return &Config{
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:          redisDB,
		MemcacheAddr:     getEnv("MEMCACHE_ADDR", "localhost:11211"),
		HTTPTimeout:      time.Duration(httpTimeout) * time.Second,
		FetchRetries:     fetchRetries,
		FetchBaseWait:    time.Duration(fetchBaseWait) * time.Millisecond,
		FetchRate:        fetchRate,
		FetchBurst:       fetchBurst,
		MaxRedirectHops:  maxHops,
		RedirectHopDelay: time.Duration(hopDelay) * time.Millisecond,
		MinPageSize:      minPageSize,
		ProductCacheTTL:  time.Duration(productTTL) * time.Second,
		ResolveCacheTTL:  time.Duration(resolveTTL) * time.Second,
		BatchLimit:       batchLimit,
		ParseHistorySize: historySize,
		Environment:      getEnv("RESOLVER_ENVIRONMENT", "development"),
	}
}

// Validate checks configuration values that have no sensible fallback
func (c *Config) Validate() error {
	if c.FetchRetries < 1 {
		return fmt.Errorf("FETCH_RETRIES must be at least 1, got %d", c.FetchRetries)
	}
	if c.MaxRedirectHops < 1 {
		return fmt.Errorf("MAX_REDIRECT_HOPS must be at least 1, got %d", c.MaxRedirectHops)
	}
	if c.BatchLimit < 1 {
		return fmt.Errorf("BATCH_LIMIT must be at least 1, got %d", c.BatchLimit)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
