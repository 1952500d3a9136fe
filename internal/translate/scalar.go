package translate

import (
	"github.com/arborq/arborq/internal/expr"
	"github.com/arborq/arborq/internal/sqlir"
	"github.com/arborq/arborq/internal/typemap"
)

// Translator translates recognized path-value operations into backend
// expression nodes.
//
// All descriptor resolution happens in New; a built Translator holds
// only read-only state and is safe for unsynchronized concurrent use.
type Translator struct {
	types *typemap.Resolver

	boolDesc  *sqlir.TypeDescriptor
	pathDesc  *sqlir.TypeDescriptor
	arrayDesc *sqlir.TypeDescriptor
}

// New builds a Translator over an already-validated type map.
func New(types *typemap.Resolver) *Translator {
	return &Translator{
		types:     types,
		boolDesc:  types.Descriptor(sqlir.TypeBool),
		pathDesc:  types.Descriptor(sqlir.TypePath),
		arrayDesc: types.Descriptor(sqlir.TypePathArray),
	}
}

// TranslateCall translates one method call whose operands are already
// lowered. Dispatch is on method identity, never on name, so same-named
// operations on unrelated types cannot match.
//
// Reports false for any method outside the recognized vocabulary or any
// arity the vocabulary does not declare; that is the normal outcome for
// most calls and the caller must fall back.
func (t *Translator) TranslateCall(instance sqlir.Node, method expr.Method, args []sqlir.Node) (sqlir.Node, bool) {
	switch method {
	case expr.MethodIsAncestorOf:
		if instance == nil || len(args) != 1 {
			return nil, false
		}
		return t.binary(sqlir.OpContains, instance, sqlir.TypePath, args[0], sqlir.TypePath), true

	case expr.MethodIsDescendantOf:
		if instance == nil || len(args) != 1 {
			return nil, false
		}
		return t.binary(sqlir.OpContainedBy, instance, sqlir.TypePath, args[0], sqlir.TypePath), true

	case expr.MethodMatchesLQuery:
		if instance == nil || len(args) != 1 {
			return nil, false
		}
		return t.binary(sqlir.OpMatches, instance, sqlir.TypePath, args[0], sqlir.TypeQuery), true

	case expr.MethodMatchesLTxtQuery:
		if instance == nil || len(args) != 1 {
			return nil, false
		}
		return t.binary(sqlir.OpMatches, instance, sqlir.TypePath, args[0], sqlir.TypeTextQuery), true

	case expr.MethodSubtree:
		if instance == nil || len(args) != 2 {
			return nil, false
		}
		return t.function("subltree", sqlir.TypePath, t.pathDesc,
			operand{instance, sqlir.TypePath},
			operand{args[0], sqlir.TypeInt},
			operand{args[1], sqlir.TypeInt},
		), true

	case expr.MethodSubpath:
		// Arity-sensitive: the optional length argument adds a third
		// operand but never changes the function name.
		switch {
		case instance != nil && len(args) == 1:
			return t.function("subpath", sqlir.TypePath, t.pathDesc,
				operand{instance, sqlir.TypePath},
				operand{args[0], sqlir.TypeInt},
			), true
		case instance != nil && len(args) == 2:
			return t.function("subpath", sqlir.TypePath, t.pathDesc,
				operand{instance, sqlir.TypePath},
				operand{args[0], sqlir.TypeInt},
				operand{args[1], sqlir.TypeInt},
			), true
		}
		return nil, false

	case expr.MethodIndex:
		switch {
		case instance != nil && len(args) == 1:
			return t.function("index", sqlir.TypeInt, nil,
				operand{instance, sqlir.TypePath},
				operand{args[0], sqlir.TypePath},
			), true
		case instance != nil && len(args) == 2:
			return t.function("index", sqlir.TypeInt, nil,
				operand{instance, sqlir.TypePath},
				operand{args[0], sqlir.TypePath},
				operand{args[1], sqlir.TypeInt},
			), true
		}
		return nil, false

	case expr.MethodLongestCommonAncestor:
		// Logically a static operation over one array operand; any
		// instance the call site carried is ignored.
		if len(args) != 1 {
			return nil, false
		}
		return t.function("lca", sqlir.TypePath, t.pathDesc,
			operand{args[0], sqlir.TypePathArray},
		), true
	}
	return nil, false
}

// TranslateMember translates a recognized property read.
func (t *Translator) TranslateMember(instance sqlir.Node, prop expr.PropertyID) (sqlir.Node, bool) {
	if prop != expr.PropNLevel || instance == nil {
		return nil, false
	}
	return t.function("nlevel", sqlir.TypeInt, nil,
		operand{instance, sqlir.TypePath},
	), true
}

// operand pairs a lowered node with the logical type its slot expects.
type operand struct {
	node sqlir.Node
	typ  sqlir.LogicalType
}

// binary builds a boolean operator node. Operand descriptors are
// re-applied even when an operand already carries one, so the backend
// sees exactly the type each operator slot expects no matter how the
// operand was produced upstream.
func (t *Translator) binary(op sqlir.Operator, left sqlir.Node, lt sqlir.LogicalType, right sqlir.Node, rt sqlir.LogicalType) sqlir.Node {
	return &sqlir.BinaryExpr{
		Op:    op,
		Left:  t.types.Apply(left, lt),
		Right: t.types.Apply(right, rt),
		Type:  sqlir.TypeBool,
		Desc:  t.boolDesc,
	}
}

// pathBinary builds a path-returning operator node (the first-match
// operators).
func (t *Translator) pathBinary(op sqlir.Operator, left sqlir.Node, lt sqlir.LogicalType, right sqlir.Node, rt sqlir.LogicalType) sqlir.Node {
	return &sqlir.BinaryExpr{
		Op:    op,
		Left:  t.types.Apply(left, lt),
		Right: t.types.Apply(right, rt),
		Type:  sqlir.TypePath,
		Desc:  t.pathDesc,
	}
}

// function builds a backend function call. Every operand slot is
// nullable: a NULL operand yields a NULL result for all of the ltree
// functions.
func (t *Translator) function(name string, result sqlir.LogicalType, resultDesc *sqlir.TypeDescriptor, operands ...operand) sqlir.Node {
	args := make([]sqlir.Node, len(operands))
	nullable := make([]bool, len(operands))
	for i, o := range operands {
		args[i] = t.types.Apply(o.node, o.typ)
		nullable[i] = true
	}
	return &sqlir.FunctionExpr{
		Name:         name,
		Args:         args,
		ArgsNullable: nullable,
		Type:         result,
		Desc:         resultDesc,
		Nullable:     true,
	}
}
