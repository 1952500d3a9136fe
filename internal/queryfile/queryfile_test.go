package queryfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborq/arborq/internal/expr"
	"github.com/arborq/arborq/internal/pathval"
	"github.com/arborq/arborq/internal/sqlir"
)

func writeQueries(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeQueries(t, map[string]string{
		"queries.cue": `
queries: [{
	name:   "descendants"
	table:  "nodes"
	select: ["id", "path"]
	filter: {
		call: "IsDescendantOf"
		on: {column: "path"}
		args: [{path: "top.science"}]
	}
}, {
	name:  "all"
	table: "nodes"
}]
`,
	})

	result, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.Queries, 2)

	q := result.Queries[0]
	assert.Equal(t, "descendants", q.Name)
	assert.Equal(t, "nodes", q.Table)
	assert.Equal(t, []string{"id", "path"}, q.Select)

	call, ok := q.Filter.(*expr.Call)
	require.True(t, ok)
	assert.Equal(t, expr.MethodIsDescendantOf, call.Method, "method identity resolved at load time")
	col, ok := call.Recv.(*expr.Column)
	require.True(t, ok)
	assert.Equal(t, "path", col.Name)
	assert.Equal(t, sqlir.TypePath, col.Type)
	require.Len(t, call.Args, 1)
	c, ok := call.Args[0].(*expr.Const)
	require.True(t, ok)
	assert.True(t, pathval.MustParse("top.science").Equal(c.Value.(pathval.PathValue)))

	assert.Nil(t, result.Queries[1].Filter, "filter is optional")
}

func TestLoad_MultipleFilesSorted(t *testing.T) {
	dir := writeQueries(t, map[string]string{
		"b.cue": `queries: [{name: "second", table: "nodes"}]`,
		"a.cue": `queries: [{name: "first", table: "nodes"}]`,
	})

	result, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, result.FileCount)
	require.Len(t, result.Queries, 2)
	assert.Equal(t, "first", result.Queries[0].Name)
	assert.Equal(t, "second", result.Queries[1].Name)
}

func TestLoad_Combinators(t *testing.T) {
	dir := writeQueries(t, map[string]string{
		"queries.cue": `
queries: [{
	name:  "matching"
	table: "nodes"
	filter: {
		any: {
			source: {column: "patterns", type: "lquery[]"}
			param:     "q"
			paramType: "lquery"
			body: {
				call: "MatchesLQuery"
				on: {column: "path"}
				args: [{param: "q"}]
			}
		}
	}
}]
`,
	})

	result, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, result.Queries, 1)

	seq, ok := result.Queries[0].Filter.(*expr.SeqCall)
	require.True(t, ok)
	assert.Equal(t, expr.SeqAny, seq.Kind)
	require.NotNil(t, seq.Pred)
	assert.Equal(t, sqlir.TypeQuery, seq.Pred.Param.Type)

	// The param reference inside the body is the lambda's own Param value.
	call, ok := seq.Pred.Body.(*expr.Call)
	require.True(t, ok)
	assert.Same(t, seq.Pred.Param, call.Args[0])
}

func TestLoad_BooleanForms(t *testing.T) {
	dir := writeQueries(t, map[string]string{
		"queries.cue": `
queries: [{
	name:  "combined"
	table: "nodes"
	filter: {
		and: [{
			call: "IsDescendantOf"
			on: {column: "path"}
			args: [{path: "top"}]
		}, {
			not: {
				call: "MatchesLQuery"
				on: {column: "path"}
				args: [{lquery: "*.hidden.*"}]
			}
		}, {
			ge: [{property: "NLevel", on: {column: "path"}}, {int: 2}]
		}]
	}
}]
`,
	})

	result, err := Load(dir)
	require.NoError(t, err)

	// Variadic and folds left: ((a AND b) AND c).
	outer, ok := result.Queries[0].Filter.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.OpAnd, outer.Op)
	inner, ok := outer.L.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.OpAnd, inner.Op)

	cmp, ok := outer.R.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.OpGe, cmp.Op)
	prop, ok := cmp.L.(*expr.Property)
	require.True(t, ok)
	assert.Equal(t, expr.PropNLevel, prop.Prop)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope"))
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, ErrCodeNotFound, le.Code)
	})

	t.Run("no cue files", func(t *testing.T) {
		_, err := Load(t.TempDir())
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, ErrCodeNoFiles, le.Code)
	})

	t.Run("syntax error", func(t *testing.T) {
		dir := writeQueries(t, map[string]string{"bad.cue": `queries: [{`})
		_, err := Load(dir)
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, ErrCodeSyntax, le.Code)
	})

	t.Run("schema violation", func(t *testing.T) {
		dir := writeQueries(t, map[string]string{"bad.cue": `queries: [{name: "x", table: 42}]`})
		_, err := Load(dir)
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, ErrCodeSchema, le.Code)
	})

	t.Run("empty table name", func(t *testing.T) {
		dir := writeQueries(t, map[string]string{"bad.cue": `queries: [{name: "x", table: ""}]`})
		_, err := Load(dir)
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, ErrCodeSchema, le.Code)
	})

	t.Run("duplicate names across files", func(t *testing.T) {
		dir := writeQueries(t, map[string]string{
			"a.cue": `queries: [{name: "dup", table: "nodes"}]`,
			"b.cue": `queries: [{name: "dup", table: "nodes"}]`,
		})
		_, err := Load(dir)
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, ErrCodeSchema, le.Code)
		assert.Contains(t, le.Message, "dup")
	})
}

func TestLoad_ExpressionErrors(t *testing.T) {
	testCases := []struct {
		name   string
		filter string
		want   string
	}{
		{
			name:   "invalid path literal",
			filter: `{path: "a..b"}`,
			want:   "invalid path literal",
		},
		{
			name:   "unknown kind key",
			filter: `{frobnicate: "x"}`,
			want:   "no recognized kind key",
		},
		{
			name:   "out of scope parameter",
			filter: `{call: "IsAncestorOf", on: {param: "t"}, args: [{path: "a"}]}`,
			want:   "not in scope",
		},
		{
			name:   "unknown column type",
			filter: `{column: "c", type: "tree"}`,
			want:   "unknown column type",
		},
		{
			name:   "comparison arity",
			filter: `{eq: [{int: 1}]}`,
			want:   "exactly two",
		},
		{
			name:   "variadic arity",
			filter: `{and: [{bool: true}]}`,
			want:   "at least two",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeQueries(t, map[string]string{
				"q.cue": `queries: [{name: "x", table: "nodes", filter: ` + tc.filter + `}]`,
			})
			_, err := Load(dir)
			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, ErrCodeExpression, le.Code)
			assert.Contains(t, le.Message, tc.want)
		})
	}
}
