package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeDataset writes a CSV dataset to a temp dir and returns its path.
func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metrics.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeGraph writes a causal graph YAML to a temp dir and returns its path.
func writeGraph(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "causal_graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const testGraphYAML = `metrics:
  Revenue:
    causes: [Traffic, Conversion Rate]
  Traffic:
    causes: [Marketing Spend]
  Conversion Rate:
    causes: [Site Speed]
  Orders:
    causes: [Traffic, Conversion Rate]
`

// twoDayCSV is the minimal comparison fixture: Revenue 1000 then 1100.
const twoDayCSV = `date,Revenue,Traffic,Conversion Rate,Orders
2025-06-01,1000,500,2.0,10
2025-06-02,1100,550,2.2,12
`

// fortnightCSV builds days*4 metric values ending at endDate, one row per
// day. Each metric follows a per-day slope so week-over-week direction is
// controlled by the sign.
func fortnightCSV(t *testing.T, days int, slope float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("date,Revenue,Traffic,Conversion Rate,Orders\n")
	end := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days; i++ {
		dt := end.AddDate(0, 0, -(days - 1 - i))
		base := 1000.0 + slope*float64(i)
		b.WriteString(fmt.Sprintf("%s,%.2f,%.2f,%.2f,%.2f\n",
			dt.Format("2006-01-02"), base, base/2, 2+float64(i)*slope/1000, base/100))
	}
	return b.String()
}

func newTestStore(t *testing.T, csvContent string) *MetricsStore {
	t.Helper()
	store, err := NewMetricsStore(writeDataset(t, csvContent))
	require.NoError(t, err)
	return store
}

func newTestGraph(t *testing.T) *CausalGraph {
	t.Helper()
	graph, err := NewCausalGraph(writeGraph(t, testGraphYAML))
	require.NoError(t, err)
	return graph
}

// stubGenerator is a scripted TextGenerator for tests.
type stubGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string, _ float64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

func (s *stubGenerator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func (s *stubGenerator) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}
