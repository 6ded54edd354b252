package cache

import (
	"testing"
	"time"
)

func TestPromptKey_Deterministic(t *testing.T) {
	k1 := PromptKey("opus", "verify these citations")
	k2 := PromptKey("opus", "verify these citations")
	if k1 != k2 {
		t.Error("same model+prompt should produce the same key")
	}
}

func TestPromptKey_ModelSeparation(t *testing.T) {
	if PromptKey("opus", "p") == PromptKey("haiku", "p") {
		t.Error("different models must not share cache keys")
	}
	if PromptKey("opus", "a") == PromptKey("opus", "b") {
		t.Error("different prompts must not share cache keys")
	}
}

func TestDiskCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	key := PromptKey("opus", "prompt")
	if err := c.Set(key, []byte(`[{"status":"verified"}]`), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	val, found := c.Get(key)
	if !found {
		t.Fatal("expected cache hit")
	}
	if string(val) != `[{"status":"verified"}]` {
		t.Errorf("unexpected value: %s", val)
	}
}

func TestDiskCache_Expiration(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, -time.Hour) // already expired

	key := PromptKey("opus", "prompt")
	if err := c.Set(key, []byte("x"), -time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}

	if _, found := c.Get(key); found {
		t.Error("expired entry should miss")
	}
}

func TestLayeredCache_DiskPromotion(t *testing.T) {
	dir := t.TempDir()

	// Seed the disk tier directly, then read through a fresh layered cache.
	disk := NewDiskCache(dir, time.Hour)
	key := PromptKey("opus", "prompt")
	if err := disk.Set(key, []byte("cached"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}

	layered := NewLayeredCache(time.Hour, dir, time.Hour)
	val, found := layered.Get(key)
	if !found || string(val) != "cached" {
		t.Fatalf("expected disk hit through layered cache, got %q found=%v", val, found)
	}

	// Now present in the memory tier too
	if _, found := layered.memory.Get(key); !found {
		t.Error("expected promotion to memory tier")
	}
}

func TestLayeredCache_Stats(t *testing.T) {
	layered := NewLayeredCache(time.Hour, t.TempDir(), time.Hour)
	key := PromptKey("opus", "prompt")

	if _, found := layered.Get(key); found {
		t.Fatal("expected miss on empty cache")
	}
	if err := layered.Set(key, []byte("answer"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, found := layered.Get(key); !found {
		t.Fatal("expected hit after set")
	}

	memHits, diskHits, misses := layered.Stats()
	if memHits != 1 || diskHits != 0 || misses != 1 {
		t.Errorf("expected 1 memory hit, 0 disk hits, 1 miss; got %d/%d/%d", memHits, diskHits, misses)
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Hour)
	if _, found := c.Get("k"); found {
		t.Fatal("expected miss")
	}
	if err := c.Set("k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	c.Get("k")
	c.Get("k")

	hits, misses := c.Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("expected 2 hits and 1 miss, got %d and %d", hits, misses)
	}
}
