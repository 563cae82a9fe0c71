package services

import (
	"errors"
	"testing"

	"metrics-chat-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryContextBuild(t *testing.T) {
	store := newTestStore(t, twoDayCSV)
	graph := newTestGraph(t)

	summary := NewSummaryContext(store, graph)

	assert.True(t, summary.CanAnswerValue("Revenue", "latest"))
	assert.True(t, summary.CanAnswerValue("Revenue", "today"))
	assert.True(t, summary.CanAnswerValue("Revenue", "yesterday"))
	assert.False(t, summary.CanAnswerValue("Revenue", "last_week"))
	assert.False(t, summary.CanAnswerValue("Profit", "latest"))

	assert.True(t, summary.CanAnswerSummary("today"))
	assert.True(t, summary.CanAnswerSummary("yesterday"))
	assert.False(t, summary.CanAnswerSummary("last_week"))

	value, err := summary.GetValue("Revenue", "today")
	require.NoError(t, err)
	assert.Equal(t, 1100.0, value)

	value, err = summary.GetValue("Revenue", "yesterday")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, value)
}

func TestSummaryContextSkipsUnresolvableMetrics(t *testing.T) {
	// dataset lacks Orders even though the graph tracks it
	store := newTestStore(t, `date,Revenue,Traffic
2025-06-01,1000,500
2025-06-02,1100,550
`)
	graph := newTestGraph(t)

	summary := NewSummaryContext(store, graph)

	assert.True(t, summary.CanAnswerValue("Revenue", "latest"))
	assert.False(t, summary.CanAnswerValue("Orders", "latest"))

	changes := summary.GetSummary()
	require.Len(t, changes, 2)
	// build order follows graph declaration order
	assert.Equal(t, "Revenue", changes[0].Metric)
	assert.Equal(t, "Traffic", changes[1].Metric)
	assert.Equal(t, 10.0, changes[0].ChangePct)
}

func TestSummaryContextCacheMissIsProgrammingError(t *testing.T) {
	store := newTestStore(t, twoDayCSV)
	summary := NewSummaryContext(store, newTestGraph(t))

	var missErr *models.CacheMissError
	_, err := summary.GetValue("Profit", "latest")
	require.Error(t, err)
	assert.True(t, errors.As(err, &missErr))

	_, err = summary.GetValue("Revenue", "last_week")
	require.Error(t, err)
	assert.True(t, errors.As(err, &missErr))
}

func TestSummaryContextEmptyDataset(t *testing.T) {
	// single day: yesterday never resolves, so the cache stays empty
	store := newTestStore(t, `date,Revenue
2025-06-01,1000
`)
	summary := NewSummaryContext(store, newTestGraph(t))

	assert.False(t, summary.CanAnswerSummary("today"))
	assert.False(t, summary.CanAnswerValue("Revenue", "latest"))
	assert.Empty(t, summary.GetSummary())
}
