package cache

import (
	"testing"
	"time"
)

func TestKey_DeterministicAndNamespaced(t *testing.T) {
	a := Key("geocode", "St. Mary Hospital", "Coast")
	b := Key("geocode", "St. Mary Hospital", "Coast")
	c := Key("geocode", "St. Mary Hospital", "Rift")
	if a != b {
		t.Error("same inputs must produce the same key")
	}
	if a == c {
		t.Error("different inputs must produce different keys")
	}
}

func TestMemory_SetGetDelete(t *testing.T) {
	m := NewMemory(time.Minute)
	if _, ok := m.Get("k"); ok {
		t.Error("unexpected hit on empty cache")
	}
	if err := m.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	v, ok := m.Get("k")
	if !ok || string(v) != "v" {
		t.Errorf("expected v, got %q ok=%v", v, ok)
	}
	_ = m.Delete("k")
	if _, ok := m.Get("k"); ok {
		t.Error("expected miss after delete")
	}
}

func TestDisk_RoundTripAndExpiry(t *testing.T) {
	d := NewDisk(t.TempDir(), time.Minute)
	if err := d.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	v, ok := d.Get("k")
	if !ok || string(v) != "v" {
		t.Fatalf("expected v, got %q ok=%v", v, ok)
	}

	// Entry with an already-passed TTL must read as a miss.
	if err := d.Set("stale", []byte("v"), -time.Second); err != nil {
		t.Fatal(err)
	}
	if _, ok := d.Get("stale"); ok {
		t.Error("expired entry must miss")
	}
}

func TestLayered_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	warm := NewLayered(time.Minute, dir, time.Hour)
	if err := warm.Set("k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}

	// A fresh layered cache over the same directory has a cold memory
	// layer; the value must come back from disk.
	cold := NewLayered(time.Minute, dir, time.Hour)
	v, ok := cold.Get("k")
	if !ok || string(v) != "v" {
		t.Fatalf("expected disk hit, got ok=%v", ok)
	}
}

func TestLayered_MemoryOnlyWhenNoDiskDir(t *testing.T) {
	l := NewLayered(time.Minute, "", time.Hour)
	if err := l.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, ok := l.Get("k"); !ok {
		t.Error("expected memory hit")
	}
}
