package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"

	"metrics-chat-api/pkg/models"
)

const forecastRejection = "I currently analyze historical data and don't generate future projections. " +
	"You can ask about recent trends, summaries, or why metrics changed."

const unknownIntentReply = "I'm not sure how to answer that yet. " +
	"Try asking about a specific metric, comparison, trend, or root cause."

// ResponseEngine executes a resolved query plan against the store and the
// summary cache, dispatching on intent. Handlers either return a finished
// numeric statement or assemble a causation context for the explanation
// collaborator, with a deterministic fallback when that collaborator fails.
type ResponseEngine struct {
	store     *MetricsStore
	graph     *CausalGraph
	generator TextGenerator

	mu      sync.RWMutex
	summary *SummaryContext

	explanations *ExplanationCache
}

// NewResponseEngine wires the engine. The summary cache is built immediately
// from the current dataset.
func NewResponseEngine(store *MetricsStore, graph *CausalGraph, generator TextGenerator) *ResponseEngine {
	return &ResponseEngine{
		store:        store,
		graph:        graph,
		generator:    generator,
		summary:      NewSummaryContext(store, graph),
		explanations: NewExplanationCache(),
	}
}

// RefreshSummary rebuilds every derived cache after a dataset reload. The
// summary pointer is swapped in one step so no partial state is observable.
func (e *ResponseEngine) RefreshSummary() {
	rebuilt := NewSummaryContext(e.store, e.graph)
	e.mu.Lock()
	e.summary = rebuilt
	e.mu.Unlock()
	e.explanations.Invalidate()
}

func (e *ResponseEngine) summaryContext() *SummaryContext {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.summary
}

// Execute runs the plan and returns the reply text. A returned error is a
// user-input-shape problem; callers surface it and skip the memory update.
func (e *ResponseEngine) Execute(ctx context.Context, plan models.QueryPlan) (string, error) {
	if plan.Unsupported == models.UnsupportedForecast {
		return forecastRejection, nil
	}

	switch plan.Intent {
	case models.IntentValue:
		return e.handleValue(plan)
	case models.IntentComparison:
		return e.handleComparison(plan)
	case models.IntentTrend:
		return e.handleTrend(plan)
	case models.IntentSummary:
		return e.handleSummary(ctx, plan)
	case models.IntentRootCause:
		return e.handleRootCause(ctx, plan)
	case models.IntentPeriodRootCause:
		return e.handlePeriodRootCause(ctx, plan)
	}
	return unknownIntentReply, nil
}

// UserMessage converts an Execute error into a plain-language chat reply.
// Internal errors are logged in full and reported generically.
func UserMessage(err error) string {
	var (
		periodErr      *models.PeriodError
		metricErr      *models.MetricNotFoundError
		noDataErr      *models.NoDataError
		insufficient   *models.InsufficientDataError
		unsupportedErr *models.UnsupportedPeriodError
		requiredErr    *models.RequiredFieldError
	)
	switch {
	case errors.As(err, &periodErr),
		errors.As(err, &metricErr),
		errors.As(err, &noDataErr),
		errors.As(err, &insufficient),
		errors.As(err, &unsupportedErr),
		errors.As(err, &requiredErr):
		return "⚠️ " + err.Error()
	}
	log.Printf("response building failed: %v", err)
	return "⚠️ I ran into an issue while answering that. Please try rephrasing."
}

// --------------------------------------------------
// Intent handlers
// --------------------------------------------------

func (e *ResponseEngine) handleValue(plan models.QueryPlan) (string, error) {
	if plan.Metric == "" {
		return "", &models.RequiredFieldError{Field: "metric", Hint: "tell me which metric you mean (e.g., revenue or traffic)"}
	}
	if plan.Period == "" {
		return "", &models.RequiredFieldError{Field: "period", Hint: "tell me which day you mean (e.g., today or yesterday)"}
	}

	if summary := e.summaryContext(); summary.CanAnswerValue(plan.Metric, plan.Period) {
		value, err := summary.GetValue(plan.Metric, plan.Period)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s for %s is %s.", plan.Metric, humanPeriod(plan.Period), formatValue(value)), nil
	}

	value, err := e.store.GetValue(plan.Metric, plan.Period)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s for %s is %s.", plan.Metric, humanPeriod(plan.Period), formatValue(value)), nil
}

func (e *ResponseEngine) handleComparison(plan models.QueryPlan) (string, error) {
	if plan.Metric == "" {
		return "", &models.RequiredFieldError{Field: "metric", Hint: "tell me which metric to compare"}
	}
	if plan.Period == "" {
		return "", &models.RequiredFieldError{Field: "period", Hint: "tell me which day to compare (e.g., today)"}
	}
	if plan.CompareTo == "" {
		return "", &models.RequiredFieldError{Field: "compare_to", Hint: "tell me which period to compare against (e.g., vs yesterday)"}
	}

	values, err := e.store.GetComparison(plan.Metric, plan.Period, plan.CompareTo)
	if err != nil {
		return "", err
	}

	changePct := PctChange(values.Current, values.Baseline)
	direction := "increased"
	if changePct <= 0 {
		direction = "decreased"
	}
	return fmt.Sprintf("%s %s by %s%% from %s to %s.",
		plan.Metric, direction, formatPct(abs(changePct)),
		humanPeriod(plan.CompareTo), humanPeriod(plan.Period)), nil
}

func (e *ResponseEngine) handleTrend(plan models.QueryPlan) (string, error) {
	if plan.Metric == "" {
		return "", &models.RequiredFieldError{Field: "metric", Hint: "tell me which metric you want to analyze (e.g., revenue or traffic)"}
	}
	if plan.Period == "" {
		return "", &models.RequiredFieldError{Field: "period", Hint: "tell me the time range (e.g., last 7 days)"}
	}

	series, err := e.store.GetSeries(plan.Metric, plan.Period)
	if err != nil {
		return "", err
	}

	start := series[0].Value
	end := series[len(series)-1].Value
	changePct := PctChange(end, start)
	direction := "an upward"
	if changePct <= 0 {
		direction = "a downward"
	}
	return fmt.Sprintf("%s shows %s trend over the %s with a change of %s%%.",
		plan.Metric, direction, humanPeriod(plan.Period), formatPct(abs(changePct))), nil
}

func (e *ResponseEngine) handleSummary(ctx context.Context, plan models.QueryPlan) (string, error) {
	// fast path: cached latest-vs-yesterday deltas
	if summary := e.summaryContext(); summary.CanAnswerSummary(plan.Period) {
		changes := summary.GetSummary()
		sort.SliceStable(changes, func(i, j int) bool {
			return abs(changes[i].ChangePct) > abs(changes[j].ChangePct)
		})
		return summaryLine(plan.Period, changes), nil
	}

	// range path: week-over-week narrative
	if plan.Period == "last_week" {
		signals := e.weeklyChanges()
		if len(signals) == 0 {
			return "", &models.InsufficientDataError{Detail: "cannot summarize last week"}
		}

		var declines, improvements []models.MetricChange
		for _, s := range signals {
			if s.ChangePct < 0 {
				declines = append(declines, s)
			} else if s.ChangePct > 0 {
				improvements = append(improvements, s)
			}
		}
		sortByMagnitude(declines)
		sortByMagnitude(improvements)
		declines = topN(declines, 2)
		improvements = topN(improvements, 2)

		prompt := buildWeeklySummaryPrompt("last week", declines, improvements)
		if text, err := e.explanations.Generate(ctx, e.generator, prompt); err == nil && text != "" {
			return text, nil
		}
		// literal-number fallback; this path must never fail
		return weeklySummaryFallback(declines, improvements), nil
	}

	// daily comparison path over tracked KPIs
	if plan.CompareTo == "" {
		return "", &models.InsufficientDataError{Detail: "cannot summarize performance without a comparison period"}
	}
	var changes []models.MetricChange
	for _, metric := range e.graph.Metrics() {
		values, err := e.store.GetComparison(metric, plan.Period, plan.CompareTo)
		if err != nil {
			continue
		}
		changes = append(changes, models.MetricChange{Metric: metric, ChangePct: PctChange(values.Current, values.Baseline)})
	}
	if len(changes) == 0 {
		return "", &models.InsufficientDataError{Detail: "cannot summarize performance"}
	}
	sortByMagnitude(changes)
	return summaryLine(plan.Period, changes), nil
}

func (e *ResponseEngine) handleRootCause(ctx context.Context, plan models.QueryPlan) (string, error) {
	if plan.Metric == "" {
		return "", &models.RequiredFieldError{Field: "metric", Hint: "tell me which metric changed"}
	}
	if plan.Period == "" {
		return "", &models.RequiredFieldError{Field: "period", Hint: "tell me when the change happened (e.g., today)"}
	}
	// never guessed: inferring the baseline here silently changes the answer
	if plan.CompareTo == "" {
		return "", &models.RequiredFieldError{Field: "compare_to", Hint: "tell me which period to compare against (e.g., vs yesterday)"}
	}

	target, err := e.store.GetComparison(plan.Metric, plan.Period, plan.CompareTo)
	if err != nil {
		return "", err
	}

	var supporting []models.SupportingMetric
	for _, metric := range e.store.Metrics() {
		if metric == plan.Metric {
			continue
		}
		values, err := e.store.GetComparison(metric, plan.Period, plan.CompareTo)
		if err != nil {
			continue
		}
		supporting = append(supporting, models.SupportingMetric{
			Name:     metric,
			Current:  values.Current,
			Baseline: values.Baseline,
		})
	}

	event := models.ThresholdEvent{
		RuleName:          plan.Metric + " Change Explanation",
		Metric:            plan.Metric,
		CurrentValue:      target.Current,
		BaselineValue:     target.Baseline,
		ThresholdType:     "CHAT_QUERY",
		TimeWindow:        humanPeriod(plan.Period) + " vs " + humanPeriod(plan.CompareTo),
		SupportingMetrics: supporting,
		CausalGraphYAML:   e.graph.RawYAML(),
	}
	return e.explainEvent(ctx, event), nil
}

func (e *ResponseEngine) handlePeriodRootCause(ctx context.Context, plan models.QueryPlan) (string, error) {
	changes := e.weeklyChanges()
	if len(changes) == 0 {
		return "", &models.InsufficientDataError{Detail: "cannot analyze last week's performance"}
	}

	var declines []models.MetricChange
	for _, c := range changes {
		if c.ChangePct < 0 {
			declines = append(declines, c)
		}
	}
	sortByMagnitude(declines)

	if len(declines) == 0 {
		return "Last week did not perform worse compared to the previous week.", nil
	}

	primary := declines[0]
	var supporting []models.SupportingMetric
	for _, c := range topN(declines[1:], 3) {
		supporting = append(supporting, models.SupportingMetric{
			Name:     c.Metric,
			Current:  c.ChangePct,
			Baseline: 0,
		})
	}

	event := models.ThresholdEvent{
		RuleName:          "Weekly Performance Decline",
		Metric:            primary.Metric,
		CurrentValue:      primary.ChangePct,
		BaselineValue:     0,
		ThresholdType:     "WEEKLY_DECLINE",
		TimeWindow:        "Last week vs previous week",
		SupportingMetrics: supporting,
		CausalGraphYAML:   e.graph.RawYAML(),
	}
	return e.explainEvent(ctx, event), nil
}

// weeklyChanges computes week-over-week percent change per tracked KPI using
// the trailing 7-day window against the 7 days before it. KPIs without
// enough history are skipped.
func (e *ResponseEngine) weeklyChanges() []models.MetricChange {
	var out []models.MetricChange
	for _, metric := range e.graph.Metrics() {
		agg := e.store.AggregationFor(metric)
		last, err := e.store.GetAggregateRange(metric, 6, 0, agg)
		if err != nil {
			continue
		}
		prev, err := e.store.GetAggregateRange(metric, 13, 7, agg)
		if err != nil {
			continue
		}
		out = append(out, models.MetricChange{Metric: metric, ChangePct: PctChange(last, prev)})
	}
	return out
}

// explainEvent hands the event to the explanation collaborator, falling back
// to the deterministic template when the call fails or returns nothing.
func (e *ResponseEngine) explainEvent(ctx context.Context, event models.ThresholdEvent) string {
	context := BuildCausationContext(event)
	prompt := buildExplanationPrompt(context)

	if text, err := e.explanations.Generate(ctx, e.generator, prompt); err == nil && text != "" {
		return text
	}
	return fallbackExplanation(context)
}

// --------------------------------------------------
// Formatting helpers
// --------------------------------------------------

func summaryLine(period string, changes []models.MetricChange) string {
	parts := make([]string, 0, 3)
	for _, c := range topN(changes, 3) {
		direction := "up"
		if c.ChangePct <= 0 {
			direction = "down"
		}
		parts = append(parts, fmt.Sprintf("%s was %s %s%%", c.Metric, direction, formatPct(abs(c.ChangePct))))
	}
	return fmt.Sprintf("Here's a summary for %s: %s.", humanPeriod(period), strings.Join(parts, "; "))
}

func weeklySummaryFallback(declines, improvements []models.MetricChange) string {
	var parts []string
	for _, c := range declines {
		parts = append(parts, fmt.Sprintf("%s declined %s%%", c.Metric, formatPct(abs(c.ChangePct))))
	}
	for _, c := range improvements {
		parts = append(parts, fmt.Sprintf("%s improved %s%%", c.Metric, formatPct(abs(c.ChangePct))))
	}
	if len(parts) == 0 {
		return "Last week was flat compared to the previous week."
	}
	return "Compared to the previous week: " + strings.Join(parts, "; ") + "."
}

// humanPeriod turns a symbolic period into readable text.
func humanPeriod(period string) string {
	return strings.ReplaceAll(period, "_", " ")
}

// formatValue prints a metric value without a trailing zero tail.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatPct prints an already rounded percentage with at least one decimal,
// so whole-number changes still read as percentages (e.g. "10.0").
func formatPct(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func sortByMagnitude(changes []models.MetricChange) {
	sort.SliceStable(changes, func(i, j int) bool {
		return abs(changes[i].ChangePct) > abs(changes[j].ChangePct)
	})
}

func topN(changes []models.MetricChange, n int) []models.MetricChange {
	if len(changes) <= n {
		return changes
	}
	return changes[:n]
}
