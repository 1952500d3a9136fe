// Package typemap resolves backend type descriptors for the logical
// types the translator works with.
//
// Resolution is a construction-time concern: a Resolver is built once,
// validates that every required logical type has a backend mapping, and
// is immutable afterward. A missing mapping fails construction, never an
// individual translation call.
package typemap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arborq/arborq/internal/sqlir"
)

// defaults is the stock mapping for a database with the ltree extension
// installed in the search path.
var defaults = map[sqlir.LogicalType]string{
	sqlir.TypeBool:       "boolean",
	sqlir.TypeInt:        "integer",
	sqlir.TypeText:       "text",
	sqlir.TypePath:       "ltree",
	sqlir.TypePathArray:  "ltree[]",
	sqlir.TypeQuery:      "lquery",
	sqlir.TypeQueryArray: "lquery[]",
	sqlir.TypeTextQuery:  "ltxtquery",
}

// required lists the logical types every translator construction depends
// on. If any of these cannot be resolved, construction must fail before
// any translation call is attempted.
var required = []sqlir.LogicalType{
	sqlir.TypeBool,
	sqlir.TypePath,
	sqlir.TypePathArray,
	sqlir.TypeQuery,
	sqlir.TypeQueryArray,
	sqlir.TypeTextQuery,
}

// Overrides replaces backend type names for individual logical types,
// e.g. schema-qualified names when the extension is not on the search
// path. Keys are the stock names ("ltree", "lquery[]", ...).
type Overrides struct {
	Types map[string]string `yaml:"types"`
}

// LoadOverrides reads an Overrides document from a YAML file.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read type overrides: %w", err)
	}
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse type overrides: %w", err)
	}
	return &o, nil
}

// Resolver supplies backend type descriptors for logical types.
//
// Descriptors are resolved once in New and shared by value afterward;
// the Resolver is read-only and safe for unsynchronized concurrent use.
type Resolver struct {
	descs map[sqlir.LogicalType]*sqlir.TypeDescriptor
}

// New builds a Resolver from the stock mapping plus optional overrides.
// Overrides may be nil.
//
// Returns an error if any required logical type ends up without a
// backend type name. This is the translator's only fatal error class and
// it must surface at startup.
func New(o *Overrides) (*Resolver, error) {
	names := make(map[sqlir.LogicalType]string, len(defaults))
	for t, name := range defaults {
		names[t] = name
	}
	if o != nil {
		for stock, replacement := range o.Types {
			t, ok := typeForName(stock)
			if !ok {
				return nil, fmt.Errorf("type map: override for unknown type %q", stock)
			}
			names[t] = replacement
		}
	}

	descs := make(map[sqlir.LogicalType]*sqlir.TypeDescriptor, len(names))
	for t, name := range names {
		if name == "" {
			return nil, fmt.Errorf("type map: empty backend name for %s", t)
		}
		descs[t] = &sqlir.TypeDescriptor{Name: name}
	}
	for _, t := range required {
		if _, ok := descs[t]; !ok {
			return nil, fmt.Errorf("type map: no backend type for required logical type %s", t)
		}
	}
	return &Resolver{descs: descs}, nil
}

// typeForName maps a stock backend type name back to its logical type.
func typeForName(name string) (sqlir.LogicalType, bool) {
	for t, n := range defaults {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Descriptor returns the resolved descriptor for a logical type.
// Panics on logical types outside the resolved set; those indicate a
// programming error, not a configuration one, since New validated the
// full set.
func (r *Resolver) Descriptor(t sqlir.LogicalType) *sqlir.TypeDescriptor {
	d, ok := r.descs[t]
	if !ok {
		panic(fmt.Sprintf("typemap: no descriptor resolved for %s", t))
	}
	return d
}

// Apply re-tags a node with the descriptor for the given logical type.
// Idempotent: re-applying the same logical type yields an identical tag.
func (r *Resolver) Apply(n sqlir.Node, t sqlir.LogicalType) sqlir.Node {
	return sqlir.WithDescriptor(n, t, r.Descriptor(t))
}
