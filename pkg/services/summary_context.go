package services

import (
	"log"

	"metrics-chat-api/pkg/models"
)

// SummaryContext is a read-through cache over MetricsStore for the dominant
// "today vs yesterday" query shape. It is built once per dataset load and is
// immutable afterwards; staleness is resolved only by full reconstruction.
type SummaryContext struct {
	daily  map[string]models.DailySummaryEntry
	values map[string]map[string]float64 // metric -> normalized period -> value
	order  []string                      // build order, used as the stable tie-break
}

// NewSummaryContext precomputes latest-vs-yesterday deltas for every metric
// the causal graph tracks. Metrics that fail to resolve are skipped; partial
// summaries are acceptable.
func NewSummaryContext(store *MetricsStore, graph *CausalGraph) *SummaryContext {
	ctx := &SummaryContext{
		daily:  make(map[string]models.DailySummaryEntry),
		values: make(map[string]map[string]float64),
	}

	for _, metric := range graph.Metrics() {
		current, err := store.GetValue(metric, "latest")
		if err != nil {
			log.Printf("summary cache: skipping %s: %v", metric, err)
			continue
		}
		baseline, err := store.GetValue(metric, "yesterday")
		if err != nil {
			log.Printf("summary cache: skipping %s: %v", metric, err)
			continue
		}

		ctx.daily[metric] = models.DailySummaryEntry{
			Current:   current,
			ChangePct: PctChange(current, baseline),
		}
		ctx.values[metric] = map[string]float64{
			"latest":    current,
			"yesterday": baseline,
		}
		ctx.order = append(ctx.order, metric)
	}
	return ctx
}

// normalizePeriod folds "today" into "latest"; everything else passes through.
func normalizePeriod(period string) string {
	if period == "today" {
		return "latest"
	}
	return period
}

// CanAnswerValue reports whether GetValue can serve this exact lookup from
// cache. Callers must gate through this before calling GetValue.
func (c *SummaryContext) CanAnswerValue(metric, period string) bool {
	p := normalizePeriod(period)
	if p != "latest" && p != "yesterday" {
		return false
	}
	periods, ok := c.values[metric]
	if !ok {
		return false
	}
	_, ok = periods[p]
	return ok
}

// CanAnswerSummary reports whether a cached daily summary exists for the period.
func (c *SummaryContext) CanAnswerSummary(period string) bool {
	p := normalizePeriod(period)
	return (p == "latest" || p == "yesterday") && len(c.daily) > 0
}

// GetValue returns the cached value for (metric, period). A miss is a
// programming error: the caller skipped the CanAnswerValue gate.
func (c *SummaryContext) GetValue(metric, period string) (float64, error) {
	p := normalizePeriod(period)
	if periods, ok := c.values[metric]; ok {
		if v, ok := periods[p]; ok {
			return v, nil
		}
	}
	return 0, &models.CacheMissError{Metric: metric, Period: period}
}

// GetSummary returns the cached per-metric deltas in build order.
func (c *SummaryContext) GetSummary() []models.MetricChange {
	out := make([]models.MetricChange, 0, len(c.order))
	for _, metric := range c.order {
		out = append(out, models.MetricChange{Metric: metric, ChangePct: c.daily[metric].ChangePct})
	}
	return out
}

// Entry returns the cached snapshot for one metric.
func (c *SummaryContext) Entry(metric string) (models.DailySummaryEntry, bool) {
	e, ok := c.daily[metric]
	return e, ok
}
