package services

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"metrics-chat-api/pkg/models"

	"github.com/xuri/excelize/v2"
)

// MetricsStore is the single source of truth for daily metric data.
// It loads a tabular file once at construction (CSV or Excel), resolves
// symbolic periods against the dataset's latest date, and memoizes value
// lookups. The memo is invalidated in full on Reload, never partially.
type MetricsStore struct {
	mu   sync.RWMutex
	path string

	dates   []time.Time                      // sorted ascending, one entry per day
	rows    map[time.Time]map[string]float64 // date -> metric -> value
	metrics []string                         // column order from the source file

	valueCache map[string]float64 // (metric, period) -> value

	aggOverrides map[string]string // explicit per-metric aggregation, wins over inference
	dateLayouts  []string
}

// NewMetricsStore loads the dataset at path. Supported sources: a daily wide
// file (date column + one column per metric) or a transaction-level file
// (date, order_id, customer_id, line_total) which is aggregated to daily
// Revenue / Orders / Traffic / Conversion Rate.
func NewMetricsStore(path string) (*MetricsStore, error) {
	s := &MetricsStore{
		path:       path,
		valueCache: make(map[string]float64),
		aggOverrides: map[string]string{
			"Revenue":         "sum",
			"Orders":          "sum",
			"Traffic":         "sum",
			"Conversion Rate": "avg",
		},
		dateLayouts: []string{
			time.RFC3339,
			"2006-01-02",
			"2006-1-2",
			"2006/01/02",
			"2006/1/2",
			"01/02/2006",
			"20060102",
		},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the source file and atomically replaces the dataset.
// All derived caches are invalidated in full while the lock is held, so no
// partial cache state is ever observable.
func (s *MetricsStore) Reload() error {
	return s.load()
}

func (s *MetricsStore) load() error {
	rows, err := s.readTable()
	if err != nil {
		return err
	}

	header := normalizeHeader(rows[0])
	dateIdx := findIndex(header, []string{"date"})
	if dateIdx == -1 {
		return fmt.Errorf("dataset %s: date column not found", s.path)
	}

	var (
		dates   []time.Time
		byDate  map[time.Time]map[string]float64
		metrics []string
	)
	if isTransactionHeader(header) {
		dates, byDate, metrics, err = s.aggregateTransactions(rows, header, dateIdx)
	} else {
		dates, byDate, metrics, err = s.parseDaily(rows, header, dateIdx)
	}
	if err != nil {
		return err
	}
	if len(dates) == 0 {
		return fmt.Errorf("dataset %s: no valid rows", s.path)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dates = dates
	s.rows = byDate
	s.metrics = metrics
	s.valueCache = make(map[string]float64) // full invalidation, never partial
	return nil
}

// readTable reads the raw rows from CSV or xlsx depending on the extension.
func (s *MetricsStore) readTable() ([][]string, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, fmt.Errorf("dataset not found: %s", s.path)
	}

	var rows [][]string
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".xlsx":
		f, err := excelize.OpenFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook %s: %w", s.path, err)
		}
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", s.path)
		}
		rows, err = f.GetRows(sheets[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
		}
	default:
		f, err := os.Open(s.path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r := csv.NewReader(f)
		r.FieldsPerRecord = -1
		rows, err = r.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
		}
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("dataset %s: no data rows", s.path)
	}
	return rows, nil
}

// parseDaily handles the wide layout: one row per day, named metric columns.
// Duplicate dates keep the last row seen.
func (s *MetricsStore) parseDaily(rows [][]string, header []string, dateIdx int) ([]time.Time, map[time.Time]map[string]float64, []string, error) {
	var metrics []string
	metricIdx := make(map[string]int)
	for i, h := range header {
		if i == dateIdx || h == "" {
			continue
		}
		name := rows[0][i] // keep original casing for metric names
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		metrics = append(metrics, name)
		metricIdx[name] = i
	}
	if len(metrics) == 0 {
		return nil, nil, nil, fmt.Errorf("dataset %s: no metric columns", s.path)
	}

	byDate := make(map[time.Time]map[string]float64)
	var dates []time.Time
	for _, row := range rows[1:] {
		if len(row) <= dateIdx {
			continue
		}
		dt, ok := parseAnyDate(row[dateIdx], s.dateLayouts)
		if !ok {
			continue
		}
		values := make(map[string]float64, len(metrics))
		for _, m := range metrics {
			idx := metricIdx[m]
			if len(row) <= idx {
				continue
			}
			v, err := strconv.ParseFloat(filterNumeric(row[idx]), 64)
			if err != nil {
				continue
			}
			values[m] = v
		}
		if len(values) == 0 {
			continue
		}
		if _, seen := byDate[dt]; !seen {
			dates = append(dates, dt)
		}
		byDate[dt] = values
	}
	return dates, byDate, metrics, nil
}

// aggregateTransactions rolls order-level rows up to daily granularity:
// revenue = sum of line totals, orders = distinct order count,
// traffic = distinct customer count, conversion rate = orders per visitor.
func (s *MetricsStore) aggregateTransactions(rows [][]string, header []string, dateIdx int) ([]time.Time, map[time.Time]map[string]float64, []string, error) {
	orderIdx := findIndex(header, []string{"order_id", "orderid"})
	customerIdx := findIndex(header, []string{"customer_id", "customerid", "user_id"})
	amountIdx := findIndex(header, []string{"line_total", "amount", "total", "price"})
	if orderIdx == -1 || customerIdx == -1 || amountIdx == -1 {
		return nil, nil, nil, fmt.Errorf("dataset %s: transaction file must have order_id, customer_id and line_total columns", s.path)
	}

	type dayAgg struct {
		revenue   float64
		orders    map[string]struct{}
		customers map[string]struct{}
	}
	perDay := make(map[time.Time]*dayAgg)
	var dates []time.Time
	for _, row := range rows[1:] {
		if len(row) <= dateIdx || len(row) <= orderIdx || len(row) <= customerIdx || len(row) <= amountIdx {
			continue
		}
		dt, ok := parseAnyDate(row[dateIdx], s.dateLayouts)
		if !ok {
			continue
		}
		amount, err := strconv.ParseFloat(filterNumeric(row[amountIdx]), 64)
		if err != nil {
			continue
		}
		agg, seen := perDay[dt]
		if !seen {
			agg = &dayAgg{orders: make(map[string]struct{}), customers: make(map[string]struct{})}
			perDay[dt] = agg
			dates = append(dates, dt)
		}
		agg.revenue += amount
		agg.orders[strings.TrimSpace(row[orderIdx])] = struct{}{}
		agg.customers[strings.TrimSpace(row[customerIdx])] = struct{}{}
	}

	byDate := make(map[time.Time]map[string]float64, len(perDay))
	for dt, agg := range perDay {
		orders := float64(len(agg.orders))
		traffic := float64(len(agg.customers))
		conversion := 0.0
		if traffic != 0 {
			conversion = orders / traffic * 100
		}
		byDate[dt] = map[string]float64{
			"Revenue":         agg.revenue,
			"Orders":          orders,
			"Traffic":         traffic,
			"Conversion Rate": conversion,
		}
	}
	return dates, byDate, []string{"Revenue", "Orders", "Traffic", "Conversion Rate"}, nil
}

// --------------------------------------------------
// Period resolution
// --------------------------------------------------

// ResolvePeriod maps a symbolic period to a concrete date in the dataset.
// Resolution is relative to the latest loaded date, not the wall clock.
func (s *MetricsStore) ResolvePeriod(period string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolvePeriodLocked(period)
}

func (s *MetricsStore) resolvePeriodLocked(period string) (time.Time, error) {
	n := len(s.dates)
	if n == 0 {
		return time.Time{}, &models.PeriodError{Period: period, Reason: "dataset is empty"}
	}

	switch period {
	case "latest", "today":
		return s.dates[n-1], nil
	case "yesterday":
		if n < 2 {
			return time.Time{}, &models.PeriodError{Period: period, Reason: "not enough history"}
		}
		return s.dates[n-2], nil
	case "day_before":
		if n < 3 {
			return time.Time{}, &models.PeriodError{Period: period, Reason: "not enough history"}
		}
		return s.dates[n-3], nil
	}

	// N_days_ago relative to the latest date
	if offset, ok := parseDaysAgo(period); ok {
		if n <= offset {
			return time.Time{}, &models.PeriodError{Period: period, Reason: "not enough history"}
		}
		return s.dates[n-1-offset], nil
	}

	// explicit date, must not be after the latest loaded date
	if dt, ok := parseAnyDate(period, s.dateLayouts); ok {
		if dt.After(s.dates[n-1]) {
			return time.Time{}, &models.PeriodError{Period: period, Reason: "date is after the latest available data"}
		}
		return dt, nil
	}

	return time.Time{}, &models.PeriodError{Period: period}
}

// --------------------------------------------------
// Value lookups
// --------------------------------------------------

// GetValue returns a single metric value for a symbolic period.
// Results are memoized per (metric, period) until the next Reload.
func (s *MetricsStore) GetValue(metric, period string) (float64, error) {
	key := metric + "\x00" + period

	s.mu.RLock()
	if v, ok := s.valueCache[key]; ok {
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.valueCache[key]; ok { // double-check
		return v, nil
	}

	if !s.hasMetricLocked(metric) {
		return 0, &models.MetricNotFoundError{Metric: metric}
	}
	dt, err := s.resolvePeriodLocked(period)
	if err != nil {
		return 0, err
	}
	row, ok := s.rows[dt]
	if !ok {
		return 0, &models.NoDataError{Date: dt.Format("2006-01-02")}
	}
	v, ok := row[metric]
	if !ok {
		return 0, &models.NoDataError{Date: dt.Format("2006-01-02")}
	}

	s.valueCache[key] = v
	return v, nil
}

// GetComparison returns a metric's value for two periods. Either leg failing
// propagates the failure; there is no implicit fallback.
func (s *MetricsStore) GetComparison(metric, period, compareTo string) (models.ComparisonResult, error) {
	current, err := s.GetValue(metric, period)
	if err != nil {
		return models.ComparisonResult{}, err
	}
	baseline, err := s.GetValue(metric, compareTo)
	if err != nil {
		return models.ComparisonResult{}, err
	}
	return models.ComparisonResult{Current: current, Baseline: baseline}, nil
}

// GetSeries returns the daily series for a metric over a window period.
// Only last_7_days (trailing 7 days ending at the latest date) is defined.
func (s *MetricsStore) GetSeries(metric, period string) ([]models.SeriesPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasMetricLocked(metric) {
		return nil, &models.MetricNotFoundError{Metric: metric}
	}
	if period != "last_7_days" {
		return nil, &models.UnsupportedPeriodError{Period: period}
	}

	latest := s.dates[len(s.dates)-1]
	start := latest.AddDate(0, 0, -6)
	var out []models.SeriesPoint
	for _, dt := range s.dates {
		if dt.Before(start) || dt.After(latest) {
			continue
		}
		if v, ok := s.rows[dt][metric]; ok {
			out = append(out, models.SeriesPoint{Date: dt, Value: v})
		}
	}
	if len(out) == 0 {
		return nil, &models.InsufficientDataError{Detail: "no rows in the last 7 days"}
	}
	return out, nil
}

// GetAggregateRange aggregates a metric over the inclusive window
// [latest - startOffsetDays, latest - endOffsetDays]. agg is "sum" or "avg".
func (s *MetricsStore) GetAggregateRange(metric string, startOffsetDays, endOffsetDays int, agg string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasMetricLocked(metric) {
		return 0, &models.MetricNotFoundError{Metric: metric}
	}

	latest := s.dates[len(s.dates)-1]
	start := latest.AddDate(0, 0, -startOffsetDays)
	end := latest.AddDate(0, 0, -endOffsetDays)

	var sum float64
	var count int
	for _, dt := range s.dates {
		if dt.Before(start) || dt.After(end) {
			continue
		}
		if v, ok := s.rows[dt][metric]; ok {
			sum += v
			count++
		}
	}
	if count == 0 {
		return 0, &models.InsufficientDataError{Detail: fmt.Sprintf("no rows between %s and %s", start.Format("2006-01-02"), end.Format("2006-01-02"))}
	}

	switch agg {
	case "sum":
		return sum, nil
	case "avg":
		return sum / float64(count), nil
	}
	return 0, fmt.Errorf("unsupported aggregation type: %q", agg)
}

// --------------------------------------------------
// Schema
// --------------------------------------------------

// Metrics returns the metric names in source-column order.
func (s *MetricsStore) Metrics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.metrics))
	copy(out, s.metrics)
	return out
}

// HasMetric reports whether the dataset schema contains the metric.
func (s *MetricsStore) HasMetric(metric string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasMetricLocked(metric)
}

func (s *MetricsStore) hasMetricLocked(metric string) bool {
	for _, m := range s.metrics {
		if m == metric {
			return true
		}
	}
	return false
}

// LatestDate returns the maximum date present, the sole temporal anchor.
func (s *MetricsStore) LatestDate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.dates) == 0 {
		return time.Time{}
	}
	return s.dates[len(s.dates)-1]
}

// AggregationFor returns the aggregation to use when rolling this metric up
// over a window. An explicit override wins; otherwise inferred from name
// tokens; unknown shapes default to sum.
func (s *MetricsStore) AggregationFor(metric string) string {
	if agg, ok := s.aggOverrides[metric]; ok {
		return agg
	}
	name := strings.ToLower(metric)
	switch {
	case containsAny(name, "rate", "ratio", "percent"):
		return "avg"
	case containsAny(name, "average", "mean", "aov"):
		return "avg"
	case containsAny(name, "count", "order", "user", "visit", "session", "click"):
		return "sum"
	case containsAny(name, "revenue", "sales", "cost", "price", "amount"):
		return "sum"
	}
	return "sum"
}

// --------------------------------------------------
// Helpers
// --------------------------------------------------

// parseDaysAgo matches "N_days_ago" style periods.
func parseDaysAgo(period string) (int, bool) {
	rest, ok := strings.CutSuffix(period, "_days_ago")
	if !ok {
		rest, ok = strings.CutSuffix(period, "_day_ago")
		if !ok {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func parseAnyDate(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return day(t), true
		}
	}
	// try the date part if a time component is attached
	if i := strings.IndexAny(s, " T"); i > 0 {
		part := s[:i]
		for _, layout := range layouts {
			if t, err := time.Parse(layout, part); err == nil {
				return day(t), true
			}
		}
	}
	return time.Time{}, false
}

func normalizeHeader(hdr []string) []string {
	out := make([]string, len(hdr))
	for i, v := range hdr {
		v = strings.TrimPrefix(v, "\ufeff")
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

func findIndex(hdr []string, candidates []string) int {
	for i, v := range hdr {
		for _, c := range candidates {
			if v == c {
				return i
			}
		}
	}
	return -1
}

func isTransactionHeader(header []string) bool {
	return findIndex(header, []string{"order_id", "orderid"}) != -1 &&
		findIndex(header, []string{"line_total", "amount", "total", "price"}) != -1
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// filterNumeric keeps digits, dot, and minus to parse numbers like "35,000" -> "35000".
func filterNumeric(s string) string {
	b := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b = append(b, r)
		}
	}
	return string(b)
}
