package sqlir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDescriptor_CopiesWithoutMutating(t *testing.T) {
	ltree := &TypeDescriptor{Name: "ltree"}
	lquery := &TypeDescriptor{Name: "lquery"}

	col := &ColumnExpr{Name: "path", Type: TypeText}
	tagged := WithDescriptor(col, TypePath, ltree)

	taggedCol, ok := tagged.(*ColumnExpr)
	require.True(t, ok)
	assert.Equal(t, "path", taggedCol.Name)
	assert.Equal(t, TypePath, tagged.ResultType())
	assert.Same(t, ltree, tagged.Descriptor())

	// Original untouched.
	assert.Equal(t, TypeText, col.ResultType())
	assert.Nil(t, col.Descriptor())

	// Re-tagging replaces, never accumulates.
	retagged := WithDescriptor(tagged, TypeQuery, lquery)
	assert.Equal(t, TypeQuery, retagged.ResultType())
	assert.Same(t, lquery, retagged.Descriptor())
	assert.Same(t, ltree, tagged.Descriptor())
}

func TestWithDescriptor_AllNodeKinds(t *testing.T) {
	d := &TypeDescriptor{Name: "ltree"}
	nodes := []Node{
		&BinaryExpr{Op: OpContains},
		&FunctionExpr{Name: "nlevel"},
		&ColumnExpr{Name: "path"},
		&LiteralExpr{Value: "a.b"},
		&NotExpr{Operand: &LiteralExpr{Value: true}},
		&ScanExpr{Mode: ScanExists},
	}
	for _, n := range nodes {
		tagged := WithDescriptor(n, TypePath, d)
		assert.NotSame(t, n, tagged, "%T must be copied", n)
		assert.Same(t, d, tagged.Descriptor(), "%T", n)
	}
}

func TestWalk(t *testing.T) {
	inner := &FunctionExpr{
		Name: "nlevel",
		Args: []Node{&ColumnExpr{Name: "path"}},
	}
	root := &BinaryExpr{
		Op:    OpAnd,
		Left:  &NotExpr{Operand: inner},
		Right: &LiteralExpr{Value: true},
	}

	var kinds []string
	Walk(root, func(n Node) bool {
		switch n.(type) {
		case *BinaryExpr:
			kinds = append(kinds, "binary")
		case *NotExpr:
			kinds = append(kinds, "not")
		case *FunctionExpr:
			kinds = append(kinds, "func")
		case *ColumnExpr:
			kinds = append(kinds, "column")
		case *LiteralExpr:
			kinds = append(kinds, "literal")
		}
		return true
	})
	assert.Equal(t, []string{"binary", "not", "func", "column", "literal"}, kinds)
}

func TestWalk_Prunes(t *testing.T) {
	root := &BinaryExpr{
		Op:    OpAnd,
		Left:  &NotExpr{Operand: &ColumnExpr{Name: "hidden"}},
		Right: &ColumnExpr{Name: "visible"},
	}

	var names []string
	Walk(root, func(n Node) bool {
		switch e := n.(type) {
		case *NotExpr:
			return false
		case *ColumnExpr:
			names = append(names, e.Name)
		}
		return true
	})
	assert.Equal(t, []string{"visible"}, names)
}

func TestOperatorAndTypeStrings(t *testing.T) {
	assert.Equal(t, "Contains", OpContains.String())
	assert.Equal(t, "FirstMatches", OpFirstMatches.String())
	assert.Equal(t, "path", TypePath.String())
	assert.Equal(t, "query[]", TypeQueryArray.String())
}
