// Package compile lowers domain filter expressions into backend
// expression trees.
//
// The compiler offers every method call and property read to the scalar
// translator first, and every collection combinator to the pattern
// matcher first; whatever they decline is lowered by general-purpose
// rules (boolean glue directly, combinators as an unnest scan over the
// array). The translators' "no match" is invisible in the output - only
// the chosen strategy differs.
package compile

import (
	"errors"
	"fmt"

	"github.com/arborq/arborq/internal/expr"
	"github.com/arborq/arborq/internal/sqlir"
	"github.com/arborq/arborq/internal/translate"
	"github.com/arborq/arborq/internal/typemap"
)

// Error codes for compilation failures.
const (
	ErrCodeUnsupported  = "UNSUPPORTED_EXPRESSION"
	ErrCodeUnboundParam = "UNBOUND_PARAMETER"
)

// Error represents a compilation failure with a structured code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnsupported reports whether err is an unsupported-expression error.
// Uses errors.As to handle wrapped errors.
func IsUnsupported(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == ErrCodeUnsupported
}

// Compiler lowers expr trees to sqlir trees. One Compiler may serve
// concurrent Compile calls; per-call state lives in the scope passed
// down the recursion.
type Compiler struct {
	types      *typemap.Resolver
	translator *translate.Translator
}

// New builds a Compiler. Descriptor resolution happens here, via the
// translator; an invalid type map has already failed in typemap.New.
func New(types *typemap.Resolver) *Compiler {
	return &Compiler{
		types:      types,
		translator: translate.New(types),
	}
}

// Translator exposes the underlying translator, mainly for explain-style
// diagnostics.
func (c *Compiler) Translator() *translate.Translator {
	return c.translator
}

// scope binds lambda parameters to the scan bindings that introduced
// them during fallback lowering.
type scope struct {
	parent  *scope
	param   *expr.Param
	binding string
}

func (s *scope) lookup(p *expr.Param) (string, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.param == p {
			return cur.binding, true
		}
	}
	return "", false
}

// bindingName returns a scan binding name unique within a scope chain.
func (s *scope) bindingName(p *expr.Param) string {
	depth := 0
	for cur := s; cur != nil; cur = cur.parent {
		depth++
	}
	if p.Name != "" {
		return fmt.Sprintf("%s_%d", p.Name, depth)
	}
	return fmt.Sprintf("elem_%d", depth)
}

// Compile lowers a filter expression.
func (c *Compiler) Compile(e expr.Expr) (sqlir.Node, error) {
	return c.lower(e, nil)
}

// subTranslator adapts the compiler recursion to the matcher's
// collaborator interface, carrying the scope the matcher was invoked
// under. Template operands are translated in that same scope, so a
// lambda parameter leaking into a non-parameter role has no binding and
// poisons the match instead of silently compiling.
type subTranslator struct {
	c *Compiler
	s *scope
}

func (st subTranslator) Translate(e expr.Expr) (sqlir.Node, bool) {
	n, err := st.c.lower(e, st.s)
	if err != nil {
		return nil, false
	}
	return n, true
}

func (c *Compiler) lower(e expr.Expr, s *scope) (sqlir.Node, error) {
	switch n := e.(type) {
	case *expr.Column:
		return &sqlir.ColumnExpr{Table: n.Table, Name: n.Name, Type: n.Type}, nil

	case *expr.Const:
		return &sqlir.LiteralExpr{Value: n.Value, Type: n.Type}, nil

	case *expr.Param:
		binding, ok := s.lookup(n)
		if !ok {
			return nil, &Error{Code: ErrCodeUnboundParam, Message: fmt.Sprintf("parameter %q used outside its lambda", n.Name)}
		}
		return &sqlir.ColumnExpr{Name: binding, Type: n.Type}, nil

	case *expr.Not:
		inner, err := c.lower(n.Operand, s)
		if err != nil {
			return nil, err
		}
		return &sqlir.NotExpr{Operand: inner}, nil

	case *expr.Binary:
		return c.lowerBinary(n, s)

	case *expr.Call:
		return c.lowerCall(n, s)

	case *expr.Property:
		return c.lowerProperty(n, s)

	case *expr.SeqCall:
		return c.lowerSeq(n, s)
	}
	return nil, &Error{Code: ErrCodeUnsupported, Message: fmt.Sprintf("expression %T", e)}
}

var binaryOps = map[expr.BinaryOp]sqlir.Operator{
	expr.OpAnd: sqlir.OpAnd,
	expr.OpOr:  sqlir.OpOr,
	expr.OpEq:  sqlir.OpEq,
	expr.OpNe:  sqlir.OpNe,
	expr.OpLt:  sqlir.OpLt,
	expr.OpLe:  sqlir.OpLe,
	expr.OpGt:  sqlir.OpGt,
	expr.OpGe:  sqlir.OpGe,
}

func (c *Compiler) lowerBinary(n *expr.Binary, s *scope) (sqlir.Node, error) {
	op, ok := binaryOps[n.Op]
	if !ok {
		return nil, &Error{Code: ErrCodeUnsupported, Message: fmt.Sprintf("binary op %d", n.Op)}
	}
	left, err := c.lower(n.L, s)
	if err != nil {
		return nil, err
	}
	right, err := c.lower(n.R, s)
	if err != nil {
		return nil, err
	}
	return &sqlir.BinaryExpr{Op: op, Left: left, Right: right, Type: sqlir.TypeBool}, nil
}

func (c *Compiler) lowerCall(n *expr.Call, s *scope) (sqlir.Node, error) {
	var instance sqlir.Node
	if n.Recv != nil {
		var err error
		instance, err = c.lower(n.Recv, s)
		if err != nil {
			return nil, err
		}
	}
	args := make([]sqlir.Node, len(n.Args))
	for i, a := range n.Args {
		lowered, err := c.lower(a, s)
		if err != nil {
			return nil, err
		}
		args[i] = lowered
	}

	if node, ok := c.translator.TranslateCall(instance, n.Method, args); ok {
		return node, nil
	}
	name := n.Name
	if name == "" {
		name = n.Method.String()
	}
	return nil, &Error{Code: ErrCodeUnsupported, Message: fmt.Sprintf("method %s", name)}
}

func (c *Compiler) lowerProperty(n *expr.Property, s *scope) (sqlir.Node, error) {
	instance, err := c.lower(n.Recv, s)
	if err != nil {
		return nil, err
	}
	if node, ok := c.translator.TranslateMember(instance, n.Prop); ok {
		return node, nil
	}
	name := n.Name
	if name == "" {
		name = n.Prop.String()
	}
	return nil, &Error{Code: ErrCodeUnsupported, Message: fmt.Sprintf("property %s", name)}
}

// lowerSeq offers the combinator to the pattern matcher first and falls
// back to a per-element unnest scan when no template fits. The fallback
// is the general, less efficient strategy: it cannot use an array-level
// index, but it can compile any predicate the compiler can.
func (c *Compiler) lowerSeq(n *expr.SeqCall, s *scope) (sqlir.Node, error) {
	if node, ok := c.translator.TranslateSeq(n.Kind, n.Source, n.Pred, subTranslator{c: c, s: s}); ok {
		return node, nil
	}

	if n.Pred == nil || n.Pred.Param == nil {
		return nil, &Error{Code: ErrCodeUnsupported, Message: "combinator without predicate"}
	}

	source, err := c.lower(n.Source, s)
	if err != nil {
		return nil, err
	}
	inner := &scope{parent: s, param: n.Pred.Param}
	inner.binding = s.bindingName(n.Pred.Param)
	pred, err := c.lower(n.Pred.Body, inner)
	if err != nil {
		return nil, err
	}

	mode := sqlir.ScanExists
	resultType := sqlir.TypeBool
	var desc *sqlir.TypeDescriptor
	if n.Kind == expr.SeqFirstOrDefault {
		mode = sqlir.ScanFirst
		resultType = n.Pred.Param.Type
		desc = c.types.Descriptor(resultType)
	}
	if arrayType, ok := arrayTypeFor(n.Pred.Param.Type); ok {
		source = c.types.Apply(source, arrayType)
	}
	return &sqlir.ScanExpr{
		Mode:    mode,
		Source:  source,
		Binding: inner.binding,
		Pred:    pred,
		Type:    resultType,
		Desc:    desc,
	}, nil
}

// arrayTypeFor returns the array logical type whose elements have the
// given type, for the element types that have one.
func arrayTypeFor(t sqlir.LogicalType) (sqlir.LogicalType, bool) {
	switch t {
	case sqlir.TypePath:
		return sqlir.TypePathArray, true
	case sqlir.TypeQuery:
		return sqlir.TypeQueryArray, true
	}
	return 0, false
}
