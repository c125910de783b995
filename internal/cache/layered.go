package cache

import "time"

// Layered checks memory first and falls through to disk, promoting hits.
// With no disk directory configured it degrades to memory only.
type Layered struct {
	memory Cache
	disk   Cache
}

// NewLayered builds the layered cache. diskDir may be empty.
func NewLayered(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *Layered {
	l := &Layered{memory: NewMemory(memoryTTL)}
	if diskDir != "" {
		l.disk = NewDisk(diskDir, diskTTL)
	}
	return l
}

func (l *Layered) Get(key string) ([]byte, bool) {
	if v, ok := l.memory.Get(key); ok {
		return v, true
	}
	if l.disk == nil {
		return nil, false
	}
	if v, ok := l.disk.Get(key); ok {
		_ = l.memory.Set(key, v, 0) // promote with default TTL
		return v, true
	}
	return nil, false
}

func (l *Layered) Set(key string, value []byte, ttl time.Duration) error {
	if err := l.memory.Set(key, value, ttl); err != nil {
		return err
	}
	if l.disk != nil {
		return l.disk.Set(key, value, ttl)
	}
	return nil
}

func (l *Layered) Delete(key string) error {
	_ = l.memory.Delete(key)
	if l.disk != nil {
		return l.disk.Delete(key)
	}
	return nil
}

func (l *Layered) Clear() error {
	_ = l.memory.Clear()
	if l.disk != nil {
		return l.disk.Clear()
	}
	return nil
}
