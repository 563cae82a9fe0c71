package services

import (
	"fmt"
	"strings"

	"metrics-chat-api/pkg/models"
)

// buildExplanationPrompt renders a causation context into the analyst prompt.
// The prompt forbids the model from introducing anything beyond the supplied
// evidence; the causal graph is attached as structural reference only.
func buildExplanationPrompt(ctx models.CausationContext) string {
	var causationLines strings.Builder
	for _, c := range ctx.CausationSignals {
		causationLines.WriteString(fmt.Sprintf("- %s moved %s by %s%%\n", c.Metric, c.Direction, formatPct(c.ChangePercent)))
	}

	var b strings.Builder
	b.WriteString("System:\n")
	b.WriteString("You are a data analyst explaining why a metric threshold alert was triggered.\n")
	b.WriteString("Use ONLY the information explicitly provided below.\n")
	b.WriteString("Do NOT introduce new metrics, relationships, or assumptions.\n\n")
	b.WriteString("User:\n")
	b.WriteString("An alert was triggered.\n\n")
	b.WriteString("Alert:\n")
	b.WriteString(fmt.Sprintf("- Name: %s\n", ctx.Alert.Name))
	b.WriteString(fmt.Sprintf("- Metric: %s\n", ctx.Alert.Metric))
	b.WriteString(fmt.Sprintf("- Time Window: %s\n\n", ctx.Alert.TimeWindow))
	b.WriteString("Threshold:\n")
	b.WriteString(fmt.Sprintf("- Type: %s\n", ctx.Threshold.Type))
	b.WriteString(fmt.Sprintf("- Value: %s%%\n", formatPct(ctx.Threshold.Value)))
	b.WriteString(fmt.Sprintf("- Breached by: %s%%\n\n", formatPct(ctx.Threshold.BreachedBy)))
	b.WriteString("Values:\n")
	b.WriteString(fmt.Sprintf("- Current: %s\n", formatValue(ctx.Values.Current)))
	b.WriteString(fmt.Sprintf("- Baseline: %s\n\n", formatValue(ctx.Values.Baseline)))
	b.WriteString("Deterministic Causation Signals (PRIMARY EVIDENCE):\n")
	b.WriteString(causationLines.String())
	if ctx.CausalGraphYAML != "" {
		b.WriteString("\nCausal Graph (STRUCTURAL REFERENCE ONLY, not proof of causation):\n")
		b.WriteString("```yaml\n")
		b.WriteString(ctx.CausalGraphYAML)
		b.WriteString("\n```\n")
	}
	b.WriteString("\nExplain in 2-3 sentences what most likely drove this change.\n")
	return b.String()
}

// buildWeeklySummaryPrompt renders the narrative summary prompt for the
// range-based SUMMARY path.
func buildWeeklySummaryPrompt(period string, declines, improvements []models.MetricChange) string {
	var b strings.Builder
	b.WriteString("You are an analytics assistant summarizing performance.\n\n")
	b.WriteString("Use ONLY the information below.\n")
	b.WriteString("Do NOT invent metrics or numbers.\n\n")
	b.WriteString("Period: " + period + "\n\n")
	b.WriteString("Declining metrics:\n")
	for _, c := range declines {
		b.WriteString(fmt.Sprintf("- %s: %s%%\n", c.Metric, formatPct(c.ChangePct)))
	}
	b.WriteString("\nImproving metrics:\n")
	for _, c := range improvements {
		b.WriteString(fmt.Sprintf("- %s: %s%%\n", c.Metric, formatPct(c.ChangePct)))
	}
	b.WriteString("\nWrite a 2-3 sentence executive summary.\n")
	return b.String()
}

// fallbackExplanation is the deterministic template used whenever the
// explanation collaborator errors, times out, or returns nothing. It reports
// the grounded numbers verbatim and must never fail.
func fallbackExplanation(ctx models.CausationContext) string {
	return fmt.Sprintf(
		"%s breached the configured threshold. Current value is %s compared to %s in the previous period.",
		ctx.Alert.Metric,
		formatValue(ctx.Values.Current),
		formatValue(ctx.Values.Baseline),
	)
}
