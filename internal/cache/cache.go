package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is the storage interface behind the geocoder.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a namespaced cache key from the given parts.
func Key(namespace string, parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return "covera:v1:" + namespace + ":" + hex.EncodeToString(h[:])[:24]
}

// Memory is an in-process cache with TTL eviction.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates a memory cache with the given default TTL.
func NewMemory(defaultTTL time.Duration) *Memory {
	return &Memory{c: gocache.New(defaultTTL, 10*time.Minute)}
}

func (m *Memory) Get(key string) ([]byte, bool) {
	if v, ok := m.c.Get(key); ok {
		return v.([]byte), true
	}
	return nil, false
}

func (m *Memory) Set(key string, value []byte, ttl time.Duration) error {
	m.c.Set(key, value, ttl)
	return nil
}

func (m *Memory) Delete(key string) error {
	m.c.Delete(key)
	return nil
}

func (m *Memory) Clear() error {
	m.c.Flush()
	return nil
}
