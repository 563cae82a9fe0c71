package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"
	"sync"

	"metrics-chat-api/pkg/models"
)

const explanationTemperature = 0.2

// ExplanationCache memoizes collaborator explanations by prompt hash.
// Explanations over the same dataset are deterministic either way, so a
// repeat prompt is served from memory instead of a second network call.
// Invalidate drops everything; entries are never mutated in place.
type ExplanationCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewExplanationCache returns an empty cache.
func NewExplanationCache() *ExplanationCache {
	return &ExplanationCache{entries: make(map[string]string)}
}

// Generate returns the cached explanation for the prompt, calling the
// collaborator on a miss. Empty responses are not cached. Failures return a
// CollaboratorUnavailableError for the caller to recover from.
func (c *ExplanationCache) Generate(ctx context.Context, generator TextGenerator, prompt string) (string, error) {
	key := promptKey(prompt)

	c.mu.RLock()
	if text, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		return text, nil
	}
	c.mu.RUnlock()

	response, err := generator.Generate(ctx, prompt, explanationTemperature)
	if err != nil {
		log.Printf("explanation call failed: %v", err)
		return "", &models.CollaboratorUnavailableError{Err: err}
	}

	text := strings.TrimSpace(response)
	if text == "" {
		return "", nil
	}

	c.mu.Lock()
	if _, ok := c.entries[key]; !ok { // write-once per key
		c.entries[key] = text
	} else {
		text = c.entries[key]
	}
	c.mu.Unlock()
	return text, nil
}

// Invalidate drops every cached explanation. Called on dataset reload.
func (c *ExplanationCache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]string)
	c.mu.Unlock()
}

func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
