// Package queryfile loads query definitions from CUE files.
//
// A definition file declares a list of named queries, each with a source
// table, selected columns, and a filter expression in a structured form
// that decodes into the domain expression AST. Method names are resolved
// to their identities once here, at load time; translation never
// compares names.
package queryfile

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/arborq/arborq/internal/expr"
)

//go:embed schema.cue
var schemaSource string

// Query is one loaded query definition.
type Query struct {
	Name   string
	Table  string
	Select []string
	Filter expr.Expr // nil when the query has no filter
}

// LoadResult carries the loaded queries plus load metadata.
type LoadResult struct {
	Queries   []Query
	FileCount int
}

// LoadError is a load or decode failure with a CUE position when one is
// available.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

// Load error codes.
const (
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeNoFiles    = "NO_FILES"
	ErrCodeSyntax     = "SYNTAX"
	ErrCodeSchema     = "SCHEMA"
	ErrCodeExpression = "EXPRESSION"
)

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load reads every .cue file in dir, validates against the embedded
// schema, and decodes the query list. Fails on the first error.
func Load(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query directory not found: %s", dir)}
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".cue") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no .cue files in %s", dir)}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("internal schema: %w", err)
	}

	result := &LoadResult{FileCount: len(files)}
	for _, file := range files {
		queries, err := loadFile(ctx, schema, file)
		if err != nil {
			return nil, err
		}
		result.Queries = append(result.Queries, queries...)
	}

	seen := make(map[string]bool, len(result.Queries))
	for _, q := range result.Queries {
		if seen[q.Name] {
			return nil, &LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("duplicate query name %q", q.Name)}
		}
		seen[q.Name] = true
	}
	return result, nil
}

func loadFile(ctx *cue.Context, schema cue.Value, file string) ([]Query, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	v := ctx.CompileBytes(data, cue.Filename(file))
	if err := v.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeSyntax, Message: err.Error()}
	}

	unified := v.Unify(schema)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, &LoadError{Code: ErrCodeSchema, Message: err.Error()}
	}

	list := unified.LookupPath(cue.ParsePath("queries"))
	if !list.Exists() {
		return nil, &LoadError{Code: ErrCodeSchema, Message: "queries list is required", Pos: v.Pos()}
	}

	iter, err := list.List()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeSchema, Message: err.Error(), Pos: list.Pos()}
	}

	var queries []Query
	for iter.Next() {
		q, err := decodeQuery(iter.Value())
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return queries, nil
}

func decodeQuery(v cue.Value) (Query, error) {
	var q Query

	name, err := stringField(v, "name")
	if err != nil {
		return Query{}, err
	}
	q.Name = name

	table, err := stringField(v, "table")
	if err != nil {
		return Query{}, err
	}
	q.Table = table

	sel := v.LookupPath(cue.ParsePath("select"))
	if sel.Exists() {
		iter, err := sel.List()
		if err != nil {
			return Query{}, &LoadError{Code: ErrCodeSchema, Message: err.Error(), Pos: sel.Pos()}
		}
		for iter.Next() {
			col, err := iter.Value().String()
			if err != nil {
				return Query{}, &LoadError{Code: ErrCodeSchema, Message: err.Error(), Pos: iter.Value().Pos()}
			}
			q.Select = append(q.Select, col)
		}
	}

	filter := v.LookupPath(cue.ParsePath("filter"))
	if filter.Exists() {
		e, err := decodeExpr(filter, nil)
		if err != nil {
			return Query{}, err
		}
		q.Filter = e
	}
	return q, nil
}

func stringField(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &LoadError{Code: ErrCodeSchema, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", &LoadError{Code: ErrCodeSchema, Message: err.Error(), Pos: fv.Pos()}
	}
	if s == "" {
		return "", &LoadError{Code: ErrCodeSchema, Message: field + " must be non-empty", Pos: fv.Pos()}
	}
	return s, nil
}
