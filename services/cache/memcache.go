package cache

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheService implements CacheService on memcached. It backs the
// resolve:<urlhash> and product:<id> key spaces used by the resolver and
// the product service.
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService creates a service talking to the memcached instance
// at serverAddr. The client connects lazily; a missing server surfaces as
// cache misses, which the pipeline treats as uncached.
func NewMemcacheService(serverAddr string) *MemcacheService {
	return &MemcacheService{
		client: memcache.New(serverAddr),
	}
}

// Get retrieves a cached resolution or product document
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

// Set stores a value with a TTL; resolve entries run minutes, product
// entries an hour
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
}

// Delete removes a value from memcache
func (m *MemcacheService) Delete(key string) error {
	return m.client.Delete(key)
}