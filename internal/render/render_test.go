package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborq/arborq/internal/pathval"
	"github.com/arborq/arborq/internal/sqlir"
)

var (
	ltreeDesc     = &sqlir.TypeDescriptor{Name: "ltree"}
	lqueryDesc    = &sqlir.TypeDescriptor{Name: "lquery"}
	ltxtqueryDesc = &sqlir.TypeDescriptor{Name: "ltxtquery"}
	arrayDesc     = &sqlir.TypeDescriptor{Name: "ltree[]"}
)

func pathCol(name string) sqlir.Node {
	return &sqlir.ColumnExpr{Name: name, Type: sqlir.TypePath, Desc: ltreeDesc}
}

func pathLit(s string) sqlir.Node {
	return &sqlir.LiteralExpr{Value: pathval.MustParse(s), Type: sqlir.TypePath, Desc: ltreeDesc}
}

func TestRender_OperatorSymbols(t *testing.T) {
	testCases := []struct {
		name  string
		node  *sqlir.BinaryExpr
		want  string
		param any
	}{
		{
			name: "contains",
			node: &sqlir.BinaryExpr{Op: sqlir.OpContains, Left: pathCol("path"), Right: pathLit("a.b"), Type: sqlir.TypeBool},
			want: "(path @> $1::ltree)", param: "a.b",
		},
		{
			name: "contained by",
			node: &sqlir.BinaryExpr{Op: sqlir.OpContainedBy, Left: pathCol("path"), Right: pathLit("a.b"), Type: sqlir.TypeBool},
			want: "(path <@ $1::ltree)", param: "a.b",
		},
		{
			name: "lquery match",
			node: &sqlir.BinaryExpr{
				Op:   sqlir.OpMatches,
				Left: pathCol("path"),
				Right: &sqlir.LiteralExpr{
					Value: pathval.MustParseQuery("a.*"), Type: sqlir.TypeQuery, Desc: lqueryDesc,
				},
				Type: sqlir.TypeBool,
			},
			want: "(path ~ $1::lquery)", param: "a.*",
		},
		{
			name: "ltxtquery match picks the other overload",
			node: &sqlir.BinaryExpr{
				Op:   sqlir.OpMatches,
				Left: pathCol("path"),
				Right: &sqlir.LiteralExpr{
					Value: pathval.MustParseTextQuery("a & b"), Type: sqlir.TypeTextQuery, Desc: ltxtqueryDesc,
				},
				Type: sqlir.TypeBool,
			},
			want: "(path @ $1::ltxtquery)", param: "a & b",
		},
		{
			name: "match any",
			node: &sqlir.BinaryExpr{
				Op:   sqlir.OpMatchesAny,
				Left: pathCol("path"),
				Right: &sqlir.ColumnExpr{
					Name: "patterns", Type: sqlir.TypeQueryArray,
					Desc: &sqlir.TypeDescriptor{Name: "lquery[]"},
				},
				Type: sqlir.TypeBool,
			},
			want: "(path ? patterns)",
		},
		{
			name: "first ancestor",
			node: &sqlir.BinaryExpr{
				Op:    sqlir.OpFirstAncestor,
				Left:  &sqlir.ColumnExpr{Name: "paths", Type: sqlir.TypePathArray, Desc: arrayDesc},
				Right: pathLit("a.b"),
				Type:  sqlir.TypePath, Desc: ltreeDesc,
			},
			want: "(paths ?@> $1::ltree)", param: "a.b",
		},
		{
			name: "first match with ltxtquery",
			node: &sqlir.BinaryExpr{
				Op:   sqlir.OpFirstMatches,
				Left: &sqlir.ColumnExpr{Name: "paths", Type: sqlir.TypePathArray, Desc: arrayDesc},
				Right: &sqlir.LiteralExpr{
					Value: pathval.MustParseTextQuery("a & b"), Type: sqlir.TypeTextQuery, Desc: ltxtqueryDesc,
				},
				Type: sqlir.TypePath, Desc: ltreeDesc,
			},
			want: "(paths ?@ $1::ltxtquery)", param: "a & b",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sql, params, err := Render(tc.node)
			require.NoError(t, err)
			assert.Equal(t, tc.want, sql)
			if tc.param != nil {
				require.Len(t, params, 1)
				assert.Equal(t, tc.param, params[0])
			} else {
				assert.Empty(t, params)
			}
		})
	}
}

func TestRender_Function(t *testing.T) {
	fn := &sqlir.FunctionExpr{
		Name: "subltree",
		Args: []sqlir.Node{
			pathCol("path"),
			&sqlir.LiteralExpr{Value: int64(1), Type: sqlir.TypeInt},
			&sqlir.LiteralExpr{Value: int64(3), Type: sqlir.TypeInt},
		},
		ArgsNullable: []bool{true, true, true},
		Type:         sqlir.TypePath,
		Desc:         ltreeDesc,
		Nullable:     true,
	}

	sql, params, err := Render(fn)
	require.NoError(t, err)
	assert.Equal(t, "subltree(path, $1, $2)", sql)
	assert.Equal(t, []any{int64(1), int64(3)}, params)
}

func TestRender_FunctionNullabilityMismatch(t *testing.T) {
	fn := &sqlir.FunctionExpr{
		Name:         "nlevel",
		Args:         []sqlir.Node{pathCol("path")},
		ArgsNullable: []bool{},
		Type:         sqlir.TypeInt,
	}
	_, _, err := Render(fn)
	assert.Error(t, err)
}

func TestRender_ArrayLiterals(t *testing.T) {
	lit := &sqlir.LiteralExpr{
		Value: []pathval.PathValue{pathval.MustParse("a.b"), pathval.MustParse("c")},
		Type:  sqlir.TypePathArray,
		Desc:  arrayDesc,
	}
	sql, params, err := Render(lit)
	require.NoError(t, err)
	assert.Equal(t, "$1::ltree[]", sql)
	require.Len(t, params, 1)
	assert.Equal(t, `{"a.b","c"}`, params[0])
}

func TestRender_QualifiedColumn(t *testing.T) {
	sql, params, err := Render(&sqlir.ColumnExpr{Table: "nodes", Name: "path", Type: sqlir.TypePath})
	require.NoError(t, err)
	assert.Equal(t, "nodes.path", sql)
	assert.Empty(t, params)
}

func TestRender_ParameterNumbering(t *testing.T) {
	node := &sqlir.BinaryExpr{
		Op:    sqlir.OpAnd,
		Left:  &sqlir.BinaryExpr{Op: sqlir.OpContains, Left: pathCol("path"), Right: pathLit("a"), Type: sqlir.TypeBool},
		Right: &sqlir.BinaryExpr{Op: sqlir.OpContainedBy, Left: pathCol("path"), Right: pathLit("a.b.c"), Type: sqlir.TypeBool},
		Type:  sqlir.TypeBool,
	}
	sql, params, err := Render(node)
	require.NoError(t, err)
	assert.Equal(t, "((path @> $1::ltree) AND (path <@ $2::ltree))", sql)
	assert.Equal(t, []any{"a", "a.b.c"}, params)
}

func TestRender_Not(t *testing.T) {
	node := &sqlir.NotExpr{
		Operand: &sqlir.BinaryExpr{Op: sqlir.OpContains, Left: pathCol("path"), Right: pathLit("a"), Type: sqlir.TypeBool},
	}
	sql, _, err := Render(node)
	require.NoError(t, err)
	assert.Equal(t, "NOT ((path @> $1::ltree))", sql)
}

func TestRender_Scans(t *testing.T) {
	pred := &sqlir.BinaryExpr{
		Op:    sqlir.OpGe,
		Left:  &sqlir.FunctionExpr{Name: "nlevel", Args: []sqlir.Node{&sqlir.ColumnExpr{Name: "t_0", Type: sqlir.TypePath}}, ArgsNullable: []bool{true}, Type: sqlir.TypeInt},
		Right: &sqlir.LiteralExpr{Value: int64(3), Type: sqlir.TypeInt},
		Type:  sqlir.TypeBool,
	}
	source := &sqlir.ColumnExpr{Name: "paths", Type: sqlir.TypePathArray, Desc: arrayDesc}

	t.Run("exists", func(t *testing.T) {
		sql, params, err := Render(&sqlir.ScanExpr{
			Mode: sqlir.ScanExists, Source: source, Binding: "t_0", Pred: pred, Type: sqlir.TypeBool,
		})
		require.NoError(t, err)
		assert.Equal(t, "EXISTS (SELECT 1 FROM unnest(paths) AS t_0 WHERE (nlevel(t_0) >= $1))", sql)
		assert.Equal(t, []any{int64(3)}, params)
	})

	t.Run("first", func(t *testing.T) {
		sql, _, err := Render(&sqlir.ScanExpr{
			Mode: sqlir.ScanFirst, Source: source, Binding: "t_0", Pred: pred, Type: sqlir.TypePath, Desc: ltreeDesc,
		})
		require.NoError(t, err)
		assert.Equal(t, "(SELECT t_0 FROM unnest(paths) AS t_0 WHERE (nlevel(t_0) >= $1) LIMIT 1)", sql)
	})

	t.Run("missing binding", func(t *testing.T) {
		_, _, err := Render(&sqlir.ScanExpr{Mode: sqlir.ScanExists, Source: source, Pred: pred})
		assert.Error(t, err)
	})
}

func TestRender_Errors(t *testing.T) {
	_, _, err := Render(nil)
	assert.Error(t, err)

	_, _, err = Render(&sqlir.LiteralExpr{Value: nil, Type: sqlir.TypeText})
	assert.Error(t, err)

	_, _, err = Render(&sqlir.LiteralExpr{Value: 3.14, Type: sqlir.TypeText})
	assert.Error(t, err)
}

func TestStatement(t *testing.T) {
	where := &sqlir.BinaryExpr{Op: sqlir.OpContains, Left: pathCol("path"), Right: pathLit("top"), Type: sqlir.TypeBool}

	sql, params, err := Statement("nodes", []string{"id", "path"}, where)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, path FROM nodes WHERE (path @> $1::ltree)", sql)
	assert.Equal(t, []any{"top"}, params)

	sql, params, err = Statement("nodes", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM nodes", sql)
	assert.Empty(t, params)

	_, _, err = Statement("", nil, nil)
	assert.Error(t, err)
}
