// Package harness runs conformance scenarios for the query compiler.
//
// A scenario is a YAML file naming a query-definition directory and the
// SQL each query is expected to compile to. Scenarios double as golden
// tests: RunWithGolden compares the full compiled output against a
// golden file, regenerated with -update.
package harness

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/arborq/arborq/internal/compile"
	"github.com/arborq/arborq/internal/queryfile"
	"github.com/arborq/arborq/internal/render"
	"github.com/arborq/arborq/internal/sqlir"
	"github.com/arborq/arborq/internal/typemap"
)

// Scenario defines a compilation conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Queries is the query-definition directory, relative to the
	// scenario file location.
	Queries string `yaml:"queries"`

	// TypeMap optionally points at a YAML type-override file, relative
	// to the scenario file location.
	TypeMap string `yaml:"type_map,omitempty"`

	// Expect lists per-query expectations. Queries without an entry are
	// compiled but only checked for success.
	Expect []Expectation `yaml:"expect"`
}

// Expectation pins the compiled output of one named query.
type Expectation struct {
	// Query is the query name from the definition file.
	Query string `yaml:"query"`

	// SQL is the exact statement text expected.
	SQL string `yaml:"sql"`

	// Params are the expected parameter values, in order.
	Params []any `yaml:"params,omitempty"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if s.Queries == "" {
		return nil, fmt.Errorf("scenario %s: queries directory is required", path)
	}

	// Resolve paths relative to the scenario file.
	base := filepath.Dir(path)
	s.Queries = filepath.Join(base, s.Queries)
	if s.TypeMap != "" {
		s.TypeMap = filepath.Join(base, s.TypeMap)
	}
	return &s, nil
}

// Result is the compiled output of one query.
type Result struct {
	Name   string
	SQL    string
	Params []any
}

// Execute compiles every query the scenario points at, in definition
// order.
func (s *Scenario) Execute() ([]Result, error) {
	var overrides *typemap.Overrides
	if s.TypeMap != "" {
		var err error
		overrides, err = typemap.LoadOverrides(s.TypeMap)
		if err != nil {
			return nil, err
		}
	}
	resolver, err := typemap.New(overrides)
	if err != nil {
		return nil, err
	}
	compiler := compile.New(resolver)

	loaded, err := queryfile.Load(s.Queries)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(loaded.Queries))
	for _, q := range loaded.Queries {
		var where sqlir.Node
		if q.Filter != nil {
			where, err = compiler.Compile(q.Filter)
			if err != nil {
				return nil, fmt.Errorf("query %q: %w", q.Name, err)
			}
		}
		sql, params, err := render.Statement(q.Table, q.Select, where)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", q.Name, err)
		}
		results = append(results, Result{Name: q.Name, SQL: sql, Params: params})
	}
	return results, nil
}
