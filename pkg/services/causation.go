package services

import (
	"sort"

	"metrics-chat-api/pkg/models"
)

// BuildCausationContext derives the structured grounding for an explanation
// request from a threshold event. A supporting metric becomes a causation
// signal only when its direction of change matches the target metric's;
// opposite-signed changes are dropped, never reported as counter-evidence.
// Signals are ranked descending by absolute change. This is
// correlation-direction alignment, not causal inference.
func BuildCausationContext(event models.ThresholdEvent) models.CausationContext {
	targetChange := PctChange(event.CurrentValue, event.BaselineValue)

	var signals []models.CausationSignal
	for _, sm := range event.SupportingMetrics {
		change := PctChange(sm.Current, sm.Baseline)
		switch {
		case targetChange < 0 && change < 0:
			signals = append(signals, models.CausationSignal{
				Metric:        sm.Name,
				Direction:     "down",
				ChangePercent: abs(change),
			})
		case targetChange > 0 && change > 0:
			signals = append(signals, models.CausationSignal{
				Metric:        sm.Name,
				Direction:     "up",
				ChangePercent: abs(change),
			})
		}
	}
	sortSignals(signals)

	var ctx models.CausationContext
	ctx.Alert.Name = event.RuleName
	ctx.Alert.Metric = event.Metric
	ctx.Alert.TimeWindow = event.TimeWindow
	ctx.Threshold.Type = event.ThresholdType
	ctx.Threshold.Value = event.ThresholdValue
	ctx.Threshold.BreachedBy = abs(targetChange)
	ctx.Values.Current = event.CurrentValue
	ctx.Values.Baseline = event.BaselineValue
	ctx.CausationSignals = signals
	ctx.CausalGraphYAML = event.CausalGraphYAML
	return ctx
}

func sortSignals(signals []models.CausationSignal) {
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].ChangePercent > signals[j].ChangePercent
	})
}
