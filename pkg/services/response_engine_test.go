package services

import (
	"context"
	"errors"
	"os"
	"testing"

	"metrics-chat-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, csvContent string, generator TextGenerator) (*ResponseEngine, *MetricsStore) {
	t.Helper()
	store := newTestStore(t, csvContent)
	return NewResponseEngine(store, newTestGraph(t), generator), store
}

func TestExecuteValueServedFromSummaryCache(t *testing.T) {
	engine, _ := newTestEngine(t, twoDayCSV, &stubGenerator{})

	reply, err := engine.Execute(context.Background(), models.QueryPlan{
		Intent: models.IntentValue, Metric: "Revenue", Period: "latest",
	})
	require.NoError(t, err)
	assert.Equal(t, "Revenue for latest is 1100.", reply)

	reply, err = engine.Execute(context.Background(), models.QueryPlan{
		Intent: models.IntentValue, Metric: "Conversion Rate", Period: "yesterday",
	})
	require.NoError(t, err)
	assert.Equal(t, "Conversion Rate for yesterday is 2.", reply)
}

func TestExecuteValueExplicitDateBypassesCache(t *testing.T) {
	engine, _ := newTestEngine(t, twoDayCSV, &stubGenerator{})

	reply, err := engine.Execute(context.Background(), models.QueryPlan{
		Intent: models.IntentValue, Metric: "Revenue", Period: "2025-06-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "Revenue for 2025-06-01 is 1000.", reply)
}

func TestSummaryCacheIsStaleUntilRefreshed(t *testing.T) {
	path := writeDataset(t, twoDayCSV)
	store, err := NewMetricsStore(path)
	require.NoError(t, err)
	engine := NewResponseEngine(store, newTestGraph(t), &stubGenerator{})

	require.NoError(t, os.WriteFile(path, []byte(`date,Revenue,Traffic,Conversion Rate,Orders
2025-06-01,1000,500,2.0,10
2025-06-02,2000,550,2.2,12
`), 0o644))
	require.NoError(t, store.Reload())

	plan := models.QueryPlan{Intent: models.IntentValue, Metric: "Revenue", Period: "latest"}

	reply, err := engine.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, "Revenue for latest is 1100.", reply)

	engine.RefreshSummary()

	reply, err = engine.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, "Revenue for latest is 2000.", reply)
}

func TestExecuteComparison(t *testing.T) {
	engine, _ := newTestEngine(t, twoDayCSV, &stubGenerator{})

	reply, err := engine.Execute(context.Background(), models.QueryPlan{
		Intent: models.IntentComparison, Metric: "Revenue", Period: "latest", CompareTo: "yesterday",
	})
	require.NoError(t, err)
	assert.Equal(t, "Revenue increased by 10.0% from yesterday to latest.", reply)
}

func TestExecuteComparisonDecrease(t *testing.T) {
	engine, _ := newTestEngine(t, `date,Revenue,Traffic,Conversion Rate,Orders
2025-06-01,1000,500,2.0,10
2025-06-02,900,550,2.2,12
`, &stubGenerator{})

	reply, err := engine.Execute(context.Background(), models.QueryPlan{
		Intent: models.IntentComparison, Metric: "Revenue", Period: "latest", CompareTo: "yesterday",
	})
	require.NoError(t, err)
	assert.Equal(t, "Revenue decreased by 10.0% from yesterday to latest.", reply)
}

func TestExecuteTrend(t *testing.T) {
	engine, _ := newTestEngine(t, fortnightCSV(t, 14, 10), &stubGenerator{})

	reply, err := engine.Execute(context.Background(), models.QueryPlan{
		Intent: models.IntentTrend, Metric: "Revenue", Period: "last_7_days",
	})
	require.NoError(t, err)
	assert.Equal(t, "Revenue shows an upward trend over the last 7 days with a change of 5.61%.", reply)
}

func TestExecuteTrendRejectsUnsupportedPeriod(t *testing.T) {
	engine, _ := newTestEngine(t, fortnightCSV(t, 14, 10), &stubGenerator{})

	var unsupportedErr *models.UnsupportedPeriodError
	_, err := engine.Execute(context.Background(), models.QueryPlan{
		Intent: models.IntentTrend, Metric: "Revenue", Period: "last_month",
	})
	require.Error(t, err)
	assert.True(t, errors.As(err, &unsupportedErr))
}

func TestExecuteSummaryFastPath(t *testing.T) {
	stub := &stubGenerator{}
	engine, _ := newTestEngine(t, twoDayCSV, stub)

	reply, err := engine.Execute(context.Background(), models.QueryPlan{
		Intent: models.IntentSummary, Period: "latest", CompareTo: "yesterday",
	})
	require.NoError(t, err)
	assert.Equal(t, "Here's a summary for latest: Orders was up 20.0%; Revenue was up 10.0%; Traffic was up 10.0%.", reply)
	assert.Zero(t, stub.callCount())
}

func TestExecuteSummaryWeeklyRange(t *testing.T) {
	stub := &stubGenerator{response: "Mixed week with traffic softening."}
	engine, _ := newTestEngine(t, fortnightCSV(t, 14, -10), stub)

	reply, err := engine.Execute(context.Background(), models.QueryPlan{
		Intent: models.IntentSummary, Period: "last_week", CompareTo: "week_before",
	})
	require.NoError(t, err)
	assert.Equal(t, "Mixed week with traffic softening.", reply)
	assert.Equal(t, 1, stub.callCount())
}

func TestExecuteSummaryWeeklyFallback(t *testing.T) {
	stub := &stubGenerator{err: errors.New("connection refused")}
	engine, _ := newTestEngine(t, fortnightCSV(t, 14, -10), stub)

	reply, err := engine.Execute(context.Background(), models.QueryPlan{
		Intent: models.IntentSummary, Period: "last_week", CompareTo: "week_before",
	})
	require.NoError(t, err)
	assert.Contains(t, reply, "Compared to the previous week:")
	assert.Contains(t, reply, "declined")
}

func TestExecuteRootCauseRequiresAllSlots(t *testing.T) {
	engine, _ := newTestEngine(t, twoDayCSV, &stubGenerator{})

	var requiredErr *models.RequiredFieldError
	for _, plan := range []models.QueryPlan{
		{Intent: models.IntentRootCause},
		{Intent: models.IntentRootCause, Metric: "Revenue"},
		{Intent: models.IntentRootCause, Metric: "Revenue", Period: "latest"},
	} {
		_, err := engine.Execute(context.Background(), plan)
		require.Error(t, err)
		assert.True(t, errors.As(err, &requiredErr))
	}
}

func TestExecuteRootCauseUsesCollaborator(t *testing.T) {
	stub := &stubGenerator{response: "The drop tracks a decline in traffic."}
	engine, _ := newTestEngine(t, twoDayCSV, stub)

	plan := models.QueryPlan{
		Intent: models.IntentRootCause, Metric: "Revenue", Period: "latest", CompareTo: "yesterday",
	}

	reply, err := engine.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, "The drop tracks a decline in traffic.", reply)
	assert.Contains(t, stub.lastPrompt(), "Revenue")
	assert.Contains(t, stub.lastPrompt(), "Causal Graph")

	// identical plan hits the explanation cache, not the collaborator
	_, err = engine.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.callCount())
}

func TestExecuteRootCauseFallsBackWhenCollaboratorFails(t *testing.T) {
	stub := &stubGenerator{err: errors.New("connection refused")}
	engine, _ := newTestEngine(t, twoDayCSV, stub)

	reply, err := engine.Execute(context.Background(), models.QueryPlan{
		Intent: models.IntentRootCause, Metric: "Revenue", Period: "latest", CompareTo: "yesterday",
	})
	require.NoError(t, err)
	assert.Equal(t, "Revenue breached the configured threshold. Current value is 1100 compared to 1000 in the previous period.", reply)
}

func TestExecutePeriodRootCauseNoDeclines(t *testing.T) {
	stub := &stubGenerator{response: "should never be used"}
	engine, _ := newTestEngine(t, fortnightCSV(t, 14, 10), stub)

	reply, err := engine.Execute(context.Background(), models.QueryPlan{
		Intent: models.IntentPeriodRootCause, Period: "last_week", CompareTo: "week_before",
	})
	require.NoError(t, err)
	assert.Equal(t, "Last week did not perform worse compared to the previous week.", reply)
	assert.Zero(t, stub.callCount())
}

func TestExecutePeriodRootCauseWithDeclines(t *testing.T) {
	stub := &stubGenerator{response: "Traffic fell hardest and dragged revenue down."}
	engine, _ := newTestEngine(t, fortnightCSV(t, 14, -10), stub)

	reply, err := engine.Execute(context.Background(), models.QueryPlan{
		Intent: models.IntentPeriodRootCause, Period: "last_week", CompareTo: "week_before",
	})
	require.NoError(t, err)
	assert.Equal(t, "Traffic fell hardest and dragged revenue down.", reply)
	assert.Equal(t, 1, stub.callCount())
	assert.Contains(t, stub.lastPrompt(), "Weekly Performance Decline")
}

func TestExecutePeriodRootCauseInsufficientHistory(t *testing.T) {
	engine, _ := newTestEngine(t, twoDayCSV, &stubGenerator{})

	var insufficient *models.InsufficientDataError
	_, err := engine.Execute(context.Background(), models.QueryPlan{
		Intent: models.IntentPeriodRootCause, Period: "last_week", CompareTo: "week_before",
	})
	require.Error(t, err)
	assert.True(t, errors.As(err, &insufficient))
}

func TestExecuteForecastGuard(t *testing.T) {
	stub := &stubGenerator{}
	engine, _ := newTestEngine(t, twoDayCSV, stub)

	reply, err := engine.Execute(context.Background(), models.QueryPlan{
		Intent: models.IntentTrend, Unsupported: models.UnsupportedForecast,
	})
	require.NoError(t, err)
	assert.Equal(t, forecastRejection, reply)
	assert.Zero(t, stub.callCount())
}

func TestExecuteUnknownIntent(t *testing.T) {
	engine, _ := newTestEngine(t, twoDayCSV, &stubGenerator{})

	reply, err := engine.Execute(context.Background(), models.QueryPlan{Intent: models.IntentUnknown})
	require.NoError(t, err)
	assert.Equal(t, unknownIntentReply, reply)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, `⚠️ metric not found: "Profit"`,
		UserMessage(&models.MetricNotFoundError{Metric: "Profit"}))

	msg := UserMessage(&models.RequiredFieldError{Field: "metric", Hint: "tell me which metric you mean"})
	assert.Contains(t, msg, "⚠️ ")
	assert.Contains(t, msg, "metric")

	// internal failures are not echoed to the user
	assert.Equal(t, "⚠️ I ran into an issue while answering that. Please try rephrasing.",
		UserMessage(errors.New("dial tcp: connection refused")))
}
