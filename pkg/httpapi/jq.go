package httpapi

import (
	"fmt"

	"github.com/itchyny/gojq"
)

// projectMetrics applies a gojq expression to a run's metrics map, letting
// an operator debug a run's metrics JSON without a separate tool (SPEC_FULL.md
// §B: "optional ?jq= projection over a run's metrics JSON for operator
// debugging"). Returns the first emitted value.
func projectMetrics(expr string, metrics map[string]any) (any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	iter := query.Run(metrics)
	v, ok := iter.Next()
	if !ok {
		return nil, nil
	}
	if err, ok := v.(error); ok {
		return nil, fmt.Errorf("jq evaluation failed: %w", err)
	}
	return v, nil
}
