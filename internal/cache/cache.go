// Package cache memoizes reasoning-service responses so a resumed run does
// not re-pay for calls that already succeeded.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// PromptKey generates a cache key from a model name and prompt text.
// Responses are model-specific, so the model is part of the key.
func PromptKey(model, prompt string) string {
	hash := sha256.Sum256([]byte(model + "\x00" + prompt))
	return "briefcheck:v1:" + hex.EncodeToString(hash[:])
}
