package models

import "fmt"

// Error kinds for the analytics engine. Callers branch on the kind with
// errors.As, never on message content.

// PeriodError reports an unrecognized period symbol or insufficient history
// to resolve it.
type PeriodError struct {
	Period string
	Reason string
}

func (e *PeriodError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("period %q: %s", e.Period, e.Reason)
	}
	return fmt.Sprintf("unsupported period: %q", e.Period)
}

// MetricNotFoundError reports a metric absent from the dataset schema.
type MetricNotFoundError struct {
	Metric string
}

func (e *MetricNotFoundError) Error() string {
	return fmt.Sprintf("metric not found: %q", e.Metric)
}

// NoDataError reports a resolved date with no record in the dataset.
type NoDataError struct {
	Date string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data for date: %s", e.Date)
}

// InsufficientDataError reports an aggregation window with no rows.
type InsufficientDataError struct {
	Detail string
}

func (e *InsufficientDataError) Error() string {
	return "not enough data: " + e.Detail
}

// UnsupportedPeriodError reports a period with no defined series window.
type UnsupportedPeriodError struct {
	Period string
}

func (e *UnsupportedPeriodError) Error() string {
	return fmt.Sprintf("unsupported period for series: %q", e.Period)
}

// RequiredFieldError reports a plan field a handler needs but which is still
// missing after memory resolution.
type RequiredFieldError struct {
	Field string
	Hint  string
}

func (e *RequiredFieldError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("missing %s: %s", e.Field, e.Hint)
	}
	return "missing required field: " + e.Field
}

// CacheMissError reports a summary-cache read that was not gated through the
// corresponding capability check. It indicates a programming error.
type CacheMissError struct {
	Metric string
	Period string
}

func (e *CacheMissError) Error() string {
	return fmt.Sprintf("summary cache miss for (%s, %s); call CanAnswerValue first", e.Metric, e.Period)
}

// CollaboratorUnavailableError reports a failed call to the text-generation
// collaborator. It is always recovered locally with a deterministic fallback.
type CollaboratorUnavailableError struct {
	Err error
}

func (e *CollaboratorUnavailableError) Error() string {
	return fmt.Sprintf("text generation unavailable: %v", e.Err)
}

func (e *CollaboratorUnavailableError) Unwrap() error { return e.Err }
