package beacon

import (
	"errors"
	"fmt"
	"strings"
)

// gridConfig holds configuration during node grid construction.
type gridConfig struct {
	idTemplate string
	dimensions map[string][]string
	label      string
	replicas   []string
}

// GridOption configures node grid generation.
// GridOption implements the functional options pattern for [NewNodeGrid].
type GridOption func(*gridConfig) error

// WithIDTemplate sets the node id template.
// The template uses Go's text/template syntax with dimension keys as variables.
//
// Example:
//
//	WithIDTemplate("worker-{{.region}}-{{.slot}}")
//
// Returns an error if the template string is empty.
func WithIDTemplate(tmpl string) GridOption {
	return func(cfg *gridConfig) error {
		if strings.TrimSpace(tmpl) == "" {
			return errors.New("id template required")
		}
		cfg.idTemplate = tmpl
		return nil
	}
}

// WithDimensions sets the dimension values for cartesian product expansion.
// Each key in the map becomes a template variable, and the cartesian product
// of all values generates the node combinations.
//
// Returns an error if the map is empty, any dimension has no values,
// or any value is an empty string.
func WithDimensions(dims map[string][]string) GridOption {
	return func(cfg *gridConfig) error {
		if len(dims) == 0 {
			return errors.New("at least one dimension required")
		}
		for k, vals := range dims {
			if len(vals) == 0 {
				return fmt.Errorf("dimension '%s' has no values", k)
			}
			for i, v := range vals {
				if v == "" {
					return fmt.Errorf("dimension '%s' contains empty value at index %d", k, i)
				}
			}
		}
		cfg.dimensions = dims
		return nil
	}
}

// WithGridLabel sets the base label of generated nodes. Each node is
// labelled "base (values)".
func WithGridLabel(base string) GridOption {
	return func(cfg *gridConfig) error {
		cfg.label = base
		return nil
	}
}

// WithGridReplicas declares the same replica ids on every generated node.
func WithGridReplicas(ids ...string) GridOption {
	return func(cfg *gridConfig) error {
		cfg.replicas = append(cfg.replicas, ids...)
		return nil
	}
}
