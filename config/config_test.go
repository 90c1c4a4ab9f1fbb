package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.Equal(t, 0, config.RedisDB)
	assert.Equal(t, "localhost:11211", config.MemcacheAddr)
	assert.Equal(t, 10*time.Second, config.HTTPTimeout)
	assert.Equal(t, 3, config.FetchRetries)
	assert.Equal(t, 10, config.MaxRedirectHops)
	assert.Equal(t, 200*time.Millisecond, config.RedirectHopDelay)
	assert.Equal(t, 300*time.Second, config.ResolveCacheTTL)
	assert.Equal(t, 20, config.BatchLimit)

	// Test with environment variables
	os.Setenv("REDIS_ADDR", "redis.example.com:6379")
	os.Setenv("REDIS_DB", "1")
	os.Setenv("MEMCACHE_ADDR", "memcache.example.com:11211")
	os.Setenv("MAX_REDIRECT_HOPS", "5")
	os.Setenv("FETCH_RETRIES", "2")
	os.Setenv("BATCH_LIMIT", "10")

	config = LoadConfig()
	assert.Equal(t, "redis.example.com:6379", config.RedisAddr)
	assert.Equal(t, 1, config.RedisDB)
	assert.Equal(t, "memcache.example.com:11211", config.MemcacheAddr)
	assert.Equal(t, 5, config.MaxRedirectHops)
	assert.Equal(t, 2, config.FetchRetries)
	assert.Equal(t, 10, config.BatchLimit)

	// Clean up
	os.Unsetenv("REDIS_ADDR")
	os.Unsetenv("REDIS_DB")
	os.Unsetenv("MEMCACHE_ADDR")
	os.Unsetenv("MAX_REDIRECT_HOPS")
	os.Unsetenv("FETCH_RETRIES")
	os.Unsetenv("BATCH_LIMIT")
}

func TestValidate(t *testing.T) {
	config := LoadConfig()
	assert.NoError(t, config.Validate())

	config.FetchRetries = 0
	assert.Error(t, config.Validate())

	config = LoadConfig()
	config.MaxRedirectHops = 0
	assert.Error(t, config.Validate())
}
