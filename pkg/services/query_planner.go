package services

import (
	"strings"

	"metrics-chat-api/pkg/models"
)

// futureKeywords short-circuit a plan to the forecast rejection. Checked
// before any other extraction.
var futureKeywords = []string{
	"next week", "next month", "forecast", "projected",
	"prediction", "expected growth",
}

// metricAliases maps common shorthand to canonical metric names. An alias
// only resolves when the target metric exists in the dataset schema.
var metricAliases = []struct {
	alias  string
	metric string
}{
	{"conversion rate", "Conversion Rate"},
	{"aov", "Average Order Value"},
	{"avg order value", "Average Order Value"},
	{"orders", "Orders"},
	{"revenue", "Revenue"},
	{"traffic", "Traffic"},
}

const fuzzyMatchCutoff = 0.6

// QueryPlanner converts raw question text plus a classified intent into a
// typed query plan. Plan is a pure function: identical input always yields
// the identical plan.
type QueryPlanner struct{}

// NewQueryPlanner returns a planner.
func NewQueryPlanner() *QueryPlanner {
	return &QueryPlanner{}
}

// Plan builds the query plan for a question. knownMetrics is the dataset
// schema; the planner never invents a metric outside of it.
func (p *QueryPlanner) Plan(text string, intent models.Intent, knownMetrics []string) models.QueryPlan {
	if ContainsFutureLanguage(text) {
		return models.QueryPlan{Intent: intent, Unsupported: models.UnsupportedForecast}
	}

	plan := models.QueryPlan{Intent: intent}
	plan.Metric = ExtractMetric(text, knownMetrics)

	period, compareTo := ExtractTimeRange(text)
	plan.Period = period
	plan.CompareTo = compareTo

	// intent-specific defaults
	switch intent {
	case models.IntentSummary:
		if plan.Period == "" {
			plan.Period = "latest"
			plan.CompareTo = "yesterday"
		}
	case models.IntentPeriodRootCause:
		plan.Period = "last_week"
		plan.CompareTo = "week_before"
	}

	return plan
}

// ContainsFutureLanguage reports whether the question asks for a projection.
func ContainsFutureLanguage(text string) bool {
	q := strings.ToLower(text)
	for _, k := range futureKeywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}

// ExtractMetric resolves the metric a question refers to: exact alias match
// first, then token-overlap scoring, then an edit-distance fallback. Returns
// "" when nothing matches confidently.
func ExtractMetric(text string, knownMetrics []string) string {
	query := strings.ToLower(text)

	for _, a := range metricAliases {
		if strings.Contains(query, a.alias) && containsString(knownMetrics, a.metric) {
			return a.metric
		}
	}

	// token overlap: score each metric by the longest query word it shares
	var bestMatch string
	var bestScore float64
	for _, metric := range knownMetrics {
		metricLower := strings.ToLower(metric)
		for _, word := range strings.Fields(query) {
			word = strings.Trim(word, "?.,!")
			if word == "" {
				continue
			}
			if strings.Contains(metricLower, word) || strings.Contains(word, metricLower) {
				score := float64(len(word)) / float64(len(metricLower))
				if score > bestScore {
					bestScore = score
					bestMatch = metric
				}
			}
		}
	}
	if bestMatch != "" {
		return bestMatch
	}

	// approximate match against the whole query as a last resort
	for _, metric := range knownMetrics {
		if similarity(query, strings.ToLower(metric)) >= fuzzyMatchCutoff {
			return metric
		}
	}
	return ""
}

// ExtractTimeRange applies ordered pattern rules over the lowercased text.
// The first matching rule wins; no match leaves both fields empty so the
// intent assembly can supply its own default.
func ExtractTimeRange(text string) (period, compareTo string) {
	q := strings.ToLower(text)

	switch {
	case containsAny(q, "recently", "recent", "lately", "just now"):
		return "latest", "yesterday"
	// the two-days-back phrasing embeds "yesterday", so it must win first
	case strings.Contains(q, "day before yesterday") || strings.Contains(q, "2 days ago"):
		return "day_before", ""
	case strings.Contains(q, "yesterday"):
		return "yesterday", "day_before"
	case containsAny(q, "today", "now", "current"):
		return "latest", "yesterday"
	case strings.Contains(q, "last week"):
		return "last_week", "week_before"
	case containsAny(q, "last 7 days", "past week", "7 days"):
		return "last_7_days", ""
	}
	return "", ""
}

// similarity is 1 - normalized edit distance, in [0, 1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshteinDistance(a, b))/float64(longest)
}

// levenshteinDistance computes the minimum number of single-character edits
// between two strings, using two rows instead of a full matrix.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	if len(a) < len(b) {
		a, b = b, a
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, minInt(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
