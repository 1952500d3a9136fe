package expr

import "github.com/arborq/arborq/internal/sqlir"

// Expr represents a domain-level query expression.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the compiler and the pattern matcher.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Method is the resolved identity of a recognized path-value operation.
//
// Identity is this enum, never a name string: two methods that happen to
// share a name on unrelated types do not share a Method value. A Call
// whose operation is not part of the recognized vocabulary carries
// MethodUnknown plus its raw name.
//
// The set is closed and resolved once when an AST is built; nothing
// mutates it afterward, so translation dispatch is a constant-time
// comparison safe for concurrent use.
type Method int

const (
	MethodUnknown Method = iota
	MethodIsAncestorOf
	MethodIsDescendantOf
	MethodMatchesLQuery
	MethodMatchesLTxtQuery
	MethodSubtree
	MethodSubpath
	MethodIndex
	MethodLongestCommonAncestor
)

// methodNames maps the vocabulary's surface names to identities.
// Resolution happens at AST construction only (see ResolveMethod).
var methodNames = map[string]Method{
	"IsAncestorOf":          MethodIsAncestorOf,
	"IsDescendantOf":        MethodIsDescendantOf,
	"MatchesLQuery":         MethodMatchesLQuery,
	"MatchesLTxtQuery":      MethodMatchesLTxtQuery,
	"Subtree":               MethodSubtree,
	"Subpath":               MethodSubpath,
	"Index":                 MethodIndex,
	"LongestCommonAncestor": MethodLongestCommonAncestor,
}

// ResolveMethod maps a surface name on a path-typed receiver to its
// identity. Returns MethodUnknown for names outside the vocabulary.
//
// Callers must only resolve names seen on path-typed receivers; a
// same-named operation on an unrelated type must stay MethodUnknown.
func ResolveMethod(name string) Method {
	return methodNames[name]
}

// String returns the method's surface name.
func (m Method) String() string {
	for name, id := range methodNames {
		if id == m {
			return name
		}
	}
	return "unknown"
}

// PropertyID is the resolved identity of a recognized property read.
type PropertyID int

const (
	PropUnknown PropertyID = iota
	PropNLevel
)

// String returns the property's surface name.
func (p PropertyID) String() string {
	if p == PropNLevel {
		return "NLevel"
	}
	return "unknown"
}

// SeqKind is the collection combinator applied to a sequence expression.
type SeqKind int

const (
	// SeqAny asks whether any element satisfies the predicate.
	SeqAny SeqKind = iota

	// SeqFirstOrDefault asks for the first element satisfying the
	// predicate, or NULL when none does.
	SeqFirstOrDefault
)

// String returns the combinator name.
func (k SeqKind) String() string {
	if k == SeqFirstOrDefault {
		return "FirstOrDefault"
	}
	return "Any"
}

// Column references a table column.
type Column struct {
	Table string // optional qualifier
	Name  string
	Type  sqlir.LogicalType
}

func (*Column) exprNode() {}

// Const is a literal value. Value holds the Go representation
// (pathval.PathValue, pathval.PathQuery, string, int64, bool, or slices
// of those for array-typed constants).
type Const struct {
	Value any
	Type  sqlir.LogicalType
}

func (*Const) exprNode() {}

// Param is a lambda parameter. Parameter identity is pointer identity:
// the same *Param value appears in the Lambda header and at every use
// site in its body, so "operand is the lambda's parameter" is a single
// pointer comparison.
type Param struct {
	Name string
	Type sqlir.LogicalType
}

func (*Param) exprNode() {}

// Lambda is a single-parameter predicate, e.g. the argument of Any.
type Lambda struct {
	Param *Param
	Body  Expr
}

func (*Lambda) exprNode() {}

// Call is a method call. Method is the resolved identity; for calls
// outside the recognized vocabulary it is MethodUnknown and Name carries
// the surface name for diagnostics.
type Call struct {
	Method Method
	Name   string
	Recv   Expr // nil for static calls (LongestCommonAncestor)
	Args   []Expr
}

func (*Call) exprNode() {}

// Property is a property read on a receiver.
type Property struct {
	Prop PropertyID
	Name string
	Recv Expr
}

func (*Property) exprNode() {}

// SeqCall applies a collection combinator to a sequence-valued source
// with a one-parameter predicate.
type SeqCall struct {
	Kind   SeqKind
	Source Expr
	Pred   *Lambda
}

func (*SeqCall) exprNode() {}

// BinaryOp is the operation of a Binary expression.
type BinaryOp int

const (
	OpAnd BinaryOp = iota
	OpOr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

// Binary is boolean/comparison glue around the path vocabulary.
type Binary struct {
	Op BinaryOp
	L  Expr
	R  Expr
}

func (*Binary) exprNode() {}

// Not negates a boolean expression.
type Not struct {
	Operand Expr
}

func (*Not) exprNode() {}
