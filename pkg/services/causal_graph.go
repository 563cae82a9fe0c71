package services

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CausalGraph is the static metric -> known upstream causes reference,
// loaded once at startup and read-only afterwards. The raw YAML text is kept
// verbatim so it can be injected into explanation prompts as structural
// reference, never as proof of causation.
type CausalGraph struct {
	metrics map[string]causalEntry
	order   []string
	rawYAML string
}

type causalEntry struct {
	Causes []string `yaml:"causes"`
}

type causalGraphFile struct {
	Metrics yaml.Node `yaml:"metrics"`
}

// NewCausalGraph loads the graph from a YAML file of the form:
//
//	metrics:
//	  Revenue:
//	    causes: [Traffic, Conversion Rate]
func NewCausalGraph(path string) (*CausalGraph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read causal graph %s: %w", path, err)
	}

	var file causalGraphFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse causal graph %s: %w", path, err)
	}
	if file.Metrics.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("causal graph %s: 'metrics' must be a mapping", path)
	}

	g := &CausalGraph{
		metrics: make(map[string]causalEntry),
		rawYAML: string(raw),
	}
	// walk the mapping node directly to preserve declaration order
	for i := 0; i+1 < len(file.Metrics.Content); i += 2 {
		name := file.Metrics.Content[i].Value
		var entry causalEntry
		if err := file.Metrics.Content[i+1].Decode(&entry); err != nil {
			return nil, fmt.Errorf("causal graph %s: metric %q: %w", path, name, err)
		}
		g.metrics[name] = entry
		g.order = append(g.order, name)
	}
	if len(g.order) == 0 {
		return nil, fmt.Errorf("causal graph %s: no metrics declared", path)
	}
	return g, nil
}

// Metrics returns the tracked metric names in declaration order.
func (g *CausalGraph) Metrics() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// CausesOf returns the known upstream causes for a metric, in declared order.
func (g *CausalGraph) CausesOf(metric string) []string {
	entry, ok := g.metrics[metric]
	if !ok {
		return nil
	}
	out := make([]string, len(entry.Causes))
	copy(out, entry.Causes)
	return out
}

// Has reports whether the metric is tracked by the graph.
func (g *CausalGraph) Has(metric string) bool {
	_, ok := g.metrics[metric]
	return ok
}

// RawYAML returns the graph source text verbatim.
func (g *CausalGraph) RawYAML() string {
	return g.rawYAML
}
