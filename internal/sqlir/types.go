package sqlir

// Node represents a backend-side query expression.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the renderer.
//
// Every node carries a logical result type and, optionally, the backend
// type descriptor the value should be cast to. Descriptors are attached
// by the translator via WithDescriptor immediately before a node is used
// as an operand, so the backend always sees the exact type an operator or
// function expects regardless of how the operand was produced.
type Node interface {
	node() // Marker method - seals interface to this package

	// ResultType is the logical type of the value this node produces.
	ResultType() LogicalType

	// Descriptor is the backend type descriptor, or nil if untagged.
	Descriptor() *TypeDescriptor
}

// LogicalType is a backend-independent value type.
type LogicalType int

const (
	TypeBool LogicalType = iota
	TypeInt
	TypeText
	TypePath       // ltree
	TypePathArray  // ltree[]
	TypeQuery      // lquery
	TypeQueryArray // lquery[]
	TypeTextQuery  // ltxtquery
)

// String returns the logical type name for diagnostics.
func (t LogicalType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeText:
		return "text"
	case TypePath:
		return "path"
	case TypePathArray:
		return "path[]"
	case TypeQuery:
		return "query"
	case TypeQueryArray:
		return "query[]"
	case TypeTextQuery:
		return "textquery"
	default:
		return "unknown"
	}
}

// TypeDescriptor identifies the concrete backend type an operand must be
// presented as, e.g. "lquery" or "public.ltree[]".
type TypeDescriptor struct {
	Name string
}

// Operator tags the operation of a BinaryExpr.
//
// The tree-path operators are abstract: the renderer picks the concrete
// SQL symbol from the tag plus the operand descriptors, because the
// backend overloads its symbols by operand type (for example Matches is
// "~" against lquery but "@" against ltxtquery).
type Operator int

const (
	// Tree-path operators.
	OpContains        Operator = iota // left is (or contains) an ancestor of right
	OpContainedBy                     // left is (or contains) a descendant of right
	OpMatches                         // left matches pattern right
	OpMatchesAny                      // left matches any pattern in right
	OpFirstAncestor                   // first element of left that is an ancestor of right
	OpFirstDescendant                 // first element of left that is a descendant of right
	OpFirstMatches                    // first element of left that matches right

	// General-purpose operators used by the surrounding pipeline.
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

// String returns the operator tag name for diagnostics.
func (op Operator) String() string {
	switch op {
	case OpContains:
		return "Contains"
	case OpContainedBy:
		return "ContainedBy"
	case OpMatches:
		return "Matches"
	case OpMatchesAny:
		return "MatchesAny"
	case OpFirstAncestor:
		return "FirstAncestor"
	case OpFirstDescendant:
		return "FirstDescendant"
	case OpFirstMatches:
		return "FirstMatches"
	case OpEq:
		return "Eq"
	case OpNe:
		return "Ne"
	case OpLt:
		return "Lt"
	case OpLe:
		return "Le"
	case OpGt:
		return "Gt"
	case OpGe:
		return "Ge"
	case OpAnd:
		return "And"
	case OpOr:
		return "Or"
	default:
		return "unknown"
	}
}

// BinaryExpr applies an operator to two operands.
type BinaryExpr struct {
	Op    Operator
	Left  Node
	Right Node
	Type  LogicalType
	Desc  *TypeDescriptor
}

func (*BinaryExpr) node() {}

func (e *BinaryExpr) ResultType() LogicalType     { return e.Type }
func (e *BinaryExpr) Descriptor() *TypeDescriptor { return e.Desc }

// FunctionExpr calls a backend function.
//
// ArgsNullable must have the same length as Args; it records, per
// operand, whether a NULL operand makes the whole call NULL. Nullable
// records whether the function itself can return NULL.
type FunctionExpr struct {
	Name         string
	Args         []Node
	ArgsNullable []bool
	Type         LogicalType
	Desc         *TypeDescriptor
	Nullable     bool
}

func (*FunctionExpr) node() {}

func (e *FunctionExpr) ResultType() LogicalType     { return e.Type }
func (e *FunctionExpr) Descriptor() *TypeDescriptor { return e.Desc }

// ColumnExpr references a column (or an in-scope binding introduced by a
// ScanExpr).
type ColumnExpr struct {
	Table string // optional qualifier
	Name  string
	Type  LogicalType
	Desc  *TypeDescriptor
}

func (*ColumnExpr) node() {}

func (e *ColumnExpr) ResultType() LogicalType     { return e.Type }
func (e *ColumnExpr) Descriptor() *TypeDescriptor { return e.Desc }

// LiteralExpr is a constant value, rendered as a query parameter.
type LiteralExpr struct {
	Value any
	Type  LogicalType
	Desc  *TypeDescriptor
}

func (*LiteralExpr) node() {}

func (e *LiteralExpr) ResultType() LogicalType     { return e.Type }
func (e *LiteralExpr) Descriptor() *TypeDescriptor { return e.Desc }

// NotExpr negates a boolean operand.
type NotExpr struct {
	Operand Node
	Desc    *TypeDescriptor
}

func (*NotExpr) node() {}

func (e *NotExpr) ResultType() LogicalType     { return TypeBool }
func (e *NotExpr) Descriptor() *TypeDescriptor { return e.Desc }

// ScanMode selects the shape of a ScanExpr.
type ScanMode int

const (
	// ScanExists renders EXISTS (SELECT 1 FROM unnest(source) ...).
	ScanExists ScanMode = iota

	// ScanFirst renders (SELECT b FROM unnest(source) ... LIMIT 1).
	ScanFirst
)

// ScanExpr is the general per-element fallback for collection queries
// whose shape did not match any array-operator template: it scans the
// unnested source array, filtering elements with Pred. Binding names the
// element column Pred refers to.
type ScanExpr struct {
	Mode    ScanMode
	Source  Node
	Binding string
	Pred    Node
	Type    LogicalType
	Desc    *TypeDescriptor
}

func (*ScanExpr) node() {}

func (e *ScanExpr) ResultType() LogicalType     { return e.Type }
func (e *ScanExpr) Descriptor() *TypeDescriptor { return e.Desc }
