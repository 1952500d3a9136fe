package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// Run executes a scenario and asserts its expectations.
func Run(t *testing.T, scenarioPath string) {
	t.Helper()

	s, err := LoadScenario(scenarioPath)
	require.NoError(t, err, "load scenario %s", scenarioPath)

	results, err := s.Execute()
	require.NoError(t, err, "execute scenario %s", s.Name)

	byName := make(map[string]Result, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}

	for _, expect := range s.Expect {
		r, ok := byName[expect.Query]
		require.True(t, ok, "scenario %s expects query %q which was not compiled", s.Name, expect.Query)
		require.Equal(t, expect.SQL, r.SQL, "query %q SQL", expect.Query)
		if expect.Params != nil {
			require.Equal(t, normalizeParams(expect.Params), normalizeParams(r.Params), "query %q params", expect.Query)
		}
	}
}

// RunWithGolden executes a scenario and compares the full compiled
// output against a golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenarioPath string) {
	t.Helper()

	s, err := LoadScenario(scenarioPath)
	require.NoError(t, err, "load scenario %s", scenarioPath)

	results, err := s.Execute()
	require.NoError(t, err, "execute scenario %s", s.Name)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))
	g.Assert(t, s.Name, []byte(renderResults(results)))
}

// renderResults produces the deterministic text form that golden files
// pin down.
func renderResults(results []Result) string {
	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "-- %s\n%s;\n", r.Name, r.SQL)
		for i, p := range r.Params {
			fmt.Fprintf(&sb, "-- $%d = %v\n", i+1, p)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// normalizeParams widens numeric params so YAML-decoded ints compare
// equal to the compiler's int64 values.
func normalizeParams(params []any) []any {
	out := make([]any, len(params))
	for i, p := range params {
		switch v := p.(type) {
		case int:
			out[i] = int64(v)
		case int32:
			out[i] = int64(v)
		default:
			out[i] = p
		}
	}
	return out
}
