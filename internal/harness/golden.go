package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/uniflux/internal/state"
)

// RunWithGolden executes a scenario, verifies its expectation, and
// compares the canonical-JSON trace against a golden file stored in
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if err := Verify(scenario, result); err != nil {
		return err
	}

	traceJSON, err := state.MarshalCanonical(snapshotMap(scenario, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return nil
}

// snapshotMap converts a result to a generic map so canonical JSON
// serialization yields a byte-stable golden payload.
func snapshotMap(scenario *Scenario, result *Result) map[string]any {
	traceList := make([]any, len(result.Trace))
	for i, ev := range result.Trace {
		traceList[i] = map[string]any{
			"kind":    ev.Kind,
			"counter": ev.Counter,
			"name":    ev.Name,
		}
	}
	return map[string]any{
		"scenario": scenario.Name,
		"final": map[string]any{
			"counter": result.Final.Counter,
			"name":    result.Final.Name,
		},
		"trace": traceList,
	}
}
