package services

import "math"

// PctChange is the single percent-change formula used everywhere a change is
// reported: value comparisons, trend windows, and causation signal strength.
// Defined as 0.0 when the baseline is exactly zero.
func PctChange(current, baseline float64) float64 {
	if baseline == 0 {
		return 0.0
	}
	return round2(((current - baseline) / baseline) * 100)
}

// round2 rounds to two decimal places, matching the reported precision of
// every numeric answer.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
