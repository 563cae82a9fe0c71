package services

import (
	"strings"

	"metrics-chat-api/pkg/models"
)

// SuggestFollowups returns up to two safe, executable follow-up questions for
// the answered plan. Suggestions never point at unsupported operations.
func SuggestFollowups(intent models.Intent, plan models.QueryPlan) []string {
	var suggestions []string
	metric := strings.ToLower(plan.Metric)

	switch intent {
	case models.IntentSummary:
		suggestions = append(suggestions,
			"Why did revenue change?",
			"Show traffic trend over the last 7 days")

	case models.IntentRootCause:
		if metric != "" {
			suggestions = append(suggestions, "Show "+metric+" trend over the last 7 days")
		}
		suggestions = append(suggestions, "Give me a summary for today")

	case models.IntentPeriodRootCause:
		suggestions = append(suggestions,
			"Show traffic trend over the last 7 days",
			"Why did conversion rate change yesterday?")

	case models.IntentValue:
		if metric != "" {
			suggestions = append(suggestions,
				"Compare "+metric+" today vs yesterday",
				"Show "+metric+" trend over the last 7 days")
		}

	case models.IntentComparison:
		if metric != "" {
			suggestions = append(suggestions,
				"Why did "+metric+" change?",
				"Show "+metric+" trend over the last 7 days")
		}

	case models.IntentTrend:
		if metric != "" {
			suggestions = append(suggestions, "Why did "+metric+" change recently?")
		}
		suggestions = append(suggestions, "Give me a summary for today")
	}

	if len(suggestions) > 2 {
		suggestions = suggestions[:2]
	}
	return suggestions
}
