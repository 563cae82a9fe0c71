package models

import "time"

// Intent is the classified shape of a user question.
type Intent string

const (
	IntentValue           Intent = "VALUE"             // single metric value at a point in time
	IntentComparison      Intent = "COMPARISON"        // compare one metric between two periods
	IntentTrend           Intent = "TREND"             // metric over a time range
	IntentSummary         Intent = "SUMMARY"           // overall performance across metrics
	IntentRootCause       Intent = "ROOT_CAUSE"        // why did a metric change at a point in time
	IntentPeriodRootCause Intent = "PERIOD_ROOT_CAUSE" // why was an aggregated period good or bad
	IntentUnknown         Intent = "UNKNOWN"
)

// ParseIntent maps a raw classifier label to an Intent, defaulting to UNKNOWN.
func ParseIntent(s string) Intent {
	switch Intent(s) {
	case IntentValue, IntentComparison, IntentTrend, IntentSummary,
		IntentRootCause, IntentPeriodRootCause:
		return Intent(s)
	}
	return IntentUnknown
}

// UnsupportedForecast marks a plan that asked for a future projection.
const UnsupportedForecast = "forecast"

// QueryPlan is the fully typed plan produced by the planner and resolved by
// conversation memory. Empty strings mean "not specified".
type QueryPlan struct {
	Intent      Intent `json:"intent"`
	Metric      string `json:"metric,omitempty"`
	Period      string `json:"period,omitempty"`
	CompareTo   string `json:"compare_to,omitempty"`
	Unsupported string `json:"unsupported,omitempty"` // terminal when set
}

// ComparisonResult holds a metric value for two resolved periods.
type ComparisonResult struct {
	Current  float64 `json:"current"`
	Baseline float64 `json:"baseline"`
}

// SeriesPoint is a single daily value in a metric time series.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// SupportingMetric is one non-target metric's comparison over the same window
// as the target. Kept as an ordered slice so signal ranking stays stable.
type SupportingMetric struct {
	Name     string  `json:"name"`
	Current  float64 `json:"current"`
	Baseline float64 `json:"baseline"`
}

// ThresholdEvent bundles the evidence for one explanation request: the target
// metric's change plus every same-window supporting comparison.
type ThresholdEvent struct {
	RuleName          string             `json:"rule_name"`
	Metric            string             `json:"metric"`
	CurrentValue      float64            `json:"current_value"`
	BaselineValue     float64            `json:"baseline_value"`
	ThresholdType     string             `json:"threshold_type"`
	ThresholdValue    float64            `json:"threshold_value"`
	TimeWindow        string             `json:"time_window"`
	SupportingMetrics []SupportingMetric `json:"supporting_metrics,omitempty"`
	CausalGraphYAML   string             `json:"-"`
}

// CausationSignal is a supporting metric whose direction of change matches
// the target metric's. Correlational evidence only, never proven causation.
type CausationSignal struct {
	Metric        string  `json:"metric"`
	Direction     string  `json:"direction"` // "up" or "down"
	ChangePercent float64 `json:"change_percent"`
}

// CausationContext is the structured grounding handed to the explanation
// collaborator. Signals are ranked descending by absolute change.
type CausationContext struct {
	Alert struct {
		Name       string `json:"name"`
		Metric     string `json:"metric"`
		TimeWindow string `json:"time_window"`
	} `json:"alert"`
	Threshold struct {
		Type       string  `json:"type"`
		Value      float64 `json:"value"`
		BreachedBy float64 `json:"breached_by"`
	} `json:"threshold"`
	Values struct {
		Current  float64 `json:"current"`
		Baseline float64 `json:"baseline"`
	} `json:"values"`
	CausationSignals []CausationSignal `json:"causation_signals"`
	CausalGraphYAML  string            `json:"causal_graph_yaml,omitempty"`
}

// MetricChange is one metric's percent change over a comparison window.
type MetricChange struct {
	Metric    string  `json:"metric"`
	ChangePct float64 `json:"change_pct"`
}

// DailySummaryEntry is one metric's cached latest-vs-yesterday snapshot.
type DailySummaryEntry struct {
	Current   float64 `json:"current"`
	ChangePct float64 `json:"change_pct"`
}

// ChatRequest represents an incoming chat request
type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id,omitempty"` // keys an independent conversation memory
}

// ChatResponse represents the response from the chat API
type ChatResponse struct {
	Reply     string   `json:"reply"`
	Followups []string `json:"followups"`
	SessionID string   `json:"session_id,omitempty"`
	Intent    string   `json:"intent,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
}
