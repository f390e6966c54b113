package beacon

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// NewNodeGrid creates multiple nodes of the same mode from an id template
// and dimensions using cartesian product expansion.
//
// The id template uses Go's text/template syntax. Missing template keys
// cause an error (fail-fast). Generated ids must be unique and must not
// contain "/".
//
// When [WithGridLabel] is set, each node label includes dimension values in
// the format "Base Label (val1/val2)" (values from alphabetically sorted
// keys); otherwise the label is the generated id.
//
// Example:
//
//	workers, err := beacon.NewNodeGrid(beacon.ModePush,
//	    beacon.WithIDTemplate("worker-{{.region}}-{{.slot}}"),
//	    beacon.WithDimensions(map[string][]string{
//	        "region": {"eu", "us"},
//	        "slot":   {"1", "2"},
//	    }),
//	    beacon.WithGridLabel("Worker"),
//	)
//	// Returns 4 nodes, usable with NewProbe("api", workers)
func NewNodeGrid(mode Mode, opts ...GridOption) ([]Node, error) {
	if mode != ModePush && mode != ModeLocal {
		return nil, fmt.Errorf("unknown node mode %q", mode)
	}

	cfg := &gridConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// validate required fields
	if cfg.idTemplate == "" {
		return nil, errors.New("id template required")
	}
	if len(cfg.dimensions) == 0 {
		return nil, errors.New("at least one dimension required")
	}

	// parse template with missingkey=error for fail-fast behaviour
	tmpl, err := template.New("id").Option("missingkey=error").Parse(cfg.idTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid id template: %w", err)
	}

	combinations := cartesianProduct(cfg.dimensions)
	if len(combinations) == 0 {
		return nil, nil
	}

	nodes := make([]Node, 0, len(combinations))
	seen := make(map[string]bool, len(combinations))
	for _, combo := range combinations {
		id, err := executeTemplate(tmpl, combo)
		if err != nil {
			return nil, fmt.Errorf("template execution failed: %w", err)
		}
		if seen[id] {
			return nil, fmt.Errorf("id template generated duplicate node id %q", id)
		}
		seen[id] = true

		nodeOpts := make([]NodeOption, 0, 2)
		if cfg.label != "" {
			nodeOpts = append(nodeOpts, WithNodeLabel(formatGridLabel(cfg.label, combo)))
		}
		if len(cfg.replicas) > 0 {
			nodeOpts = append(nodeOpts, WithReplicas(cfg.replicas...))
		}

		n, err := newNode(id, mode, nodeOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to create node '%s': %w", id, err)
		}
		nodes = append(nodes, n)
	}

	return nodes, nil
}

// cartesianProduct generates all combinations of dimension values.
// Keys are sorted alphabetically for deterministic output.
// Values maintain their original slice order.
//
// Example:
//
//	Input:  {"x": ["a","b"], "y": ["1","2"]}
//	Output: [{"x":"a","y":"1"}, {"x":"a","y":"2"}, {"x":"b","y":"1"}, {"x":"b","y":"2"}]
func cartesianProduct(dims map[string][]string) []map[string]string {
	if len(dims) == 0 {
		return nil
	}

	keys := sortedKeys(dims)
	total := 1
	for _, k := range keys {
		if len(dims[k]) == 0 {
			return nil
		}
		total *= len(dims[k])
	}

	result := make([]map[string]string, 0, total)

	indices := make([]int, len(keys))
	for {
		combo := make(map[string]string, len(keys))
		for i, k := range keys {
			combo[k] = dims[k][indices[i]]
		}
		result = append(result, combo)

		// increment indices (rightmost first)
		for i := len(keys) - 1; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(dims[keys[i]]) {
				break
			}
			indices[i] = 0
			if i == 0 {
				return result
			}
		}
	}
}

// executeTemplate renders the template with the given data.
func executeTemplate(tmpl *template.Template, data map[string]string) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatGridLabel creates a label in the format "Base (v1/v2)".
func formatGridLabel(base string, combo map[string]string) string {
	keys := sortedKeys(combo)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = combo[k]
	}
	return fmt.Sprintf("%s (%s)", base, strings.Join(parts, "/"))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
