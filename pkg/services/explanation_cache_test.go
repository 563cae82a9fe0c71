package services

import (
	"context"
	"errors"
	"testing"

	"metrics-chat-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplanationCacheMemoizesByPrompt(t *testing.T) {
	cache := NewExplanationCache()
	stub := &stubGenerator{response: "  Traffic fell first.  "}

	text, err := cache.Generate(context.Background(), stub, "prompt A")
	require.NoError(t, err)
	assert.Equal(t, "Traffic fell first.", text)

	// repeat prompt is served from memory
	text, err = cache.Generate(context.Background(), stub, "prompt A")
	require.NoError(t, err)
	assert.Equal(t, "Traffic fell first.", text)
	assert.Equal(t, 1, stub.callCount())

	// a different prompt is a different entry
	_, err = cache.Generate(context.Background(), stub, "prompt B")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.callCount())
}

func TestExplanationCacheDoesNotCacheFailures(t *testing.T) {
	cache := NewExplanationCache()
	stub := &stubGenerator{err: errors.New("connection refused")}

	var unavailable *models.CollaboratorUnavailableError
	_, err := cache.Generate(context.Background(), stub, "prompt A")
	require.Error(t, err)
	assert.True(t, errors.As(err, &unavailable))

	// the failure was not memoized; a recovered collaborator gets retried
	stub.err = nil
	stub.response = "recovered"
	text, err := cache.Generate(context.Background(), stub, "prompt A")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, 2, stub.callCount())
}

func TestExplanationCacheDoesNotCacheEmptyResponses(t *testing.T) {
	cache := NewExplanationCache()
	stub := &stubGenerator{response: "   "}

	text, err := cache.Generate(context.Background(), stub, "prompt A")
	require.NoError(t, err)
	assert.Empty(t, text)

	_, err = cache.Generate(context.Background(), stub, "prompt A")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.callCount())
}

func TestExplanationCacheInvalidate(t *testing.T) {
	cache := NewExplanationCache()
	stub := &stubGenerator{response: "before reload"}

	_, err := cache.Generate(context.Background(), stub, "prompt A")
	require.NoError(t, err)

	cache.Invalidate()
	stub.response = "after reload"

	text, err := cache.Generate(context.Background(), stub, "prompt A")
	require.NoError(t, err)
	assert.Equal(t, "after reload", text)
}
