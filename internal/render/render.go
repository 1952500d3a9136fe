// Package render turns backend expression trees into parameterized
// PostgreSQL text.
//
// All literal values are parameterized (never interpolated); parameters
// are positional ($1, $2, ...) and carry a cast to their backend type
// descriptor so the server resolves the ltree operator overloads the
// translator chose.
package render

import (
	"fmt"
	"strings"

	"github.com/arborq/arborq/internal/pathval"
	"github.com/arborq/arborq/internal/sqlir"
)

// Render produces SQL text and the parameter list for an expression.
func Render(n sqlir.Node) (string, []any, error) {
	r := &renderer{}
	var sb strings.Builder
	if err := r.render(&sb, n); err != nil {
		return "", nil, err
	}
	return sb.String(), r.params, nil
}

type renderer struct {
	params []any
}

func (r *renderer) render(sb *strings.Builder, n sqlir.Node) error {
	switch e := n.(type) {
	case *sqlir.BinaryExpr:
		return r.renderBinary(sb, e)
	case *sqlir.FunctionExpr:
		return r.renderFunction(sb, e)
	case *sqlir.ColumnExpr:
		if e.Table != "" {
			sb.WriteString(e.Table)
			sb.WriteByte('.')
		}
		sb.WriteString(e.Name)
		return nil
	case *sqlir.LiteralExpr:
		return r.renderLiteral(sb, e)
	case *sqlir.NotExpr:
		sb.WriteString("NOT (")
		if err := r.render(sb, e.Operand); err != nil {
			return err
		}
		sb.WriteByte(')')
		return nil
	case *sqlir.ScanExpr:
		return r.renderScan(sb, e)
	case nil:
		return fmt.Errorf("cannot render nil expression")
	}
	return fmt.Errorf("unsupported expression type: %T", n)
}

func (r *renderer) renderBinary(sb *strings.Builder, e *sqlir.BinaryExpr) error {
	symbol, err := operatorSymbol(e)
	if err != nil {
		return err
	}
	sb.WriteByte('(')
	if err := r.render(sb, e.Left); err != nil {
		return err
	}
	sb.WriteByte(' ')
	sb.WriteString(symbol)
	sb.WriteByte(' ')
	if err := r.render(sb, e.Right); err != nil {
		return err
	}
	sb.WriteByte(')')
	return nil
}

// operatorSymbol picks the concrete SQL symbol for an operator tag. The
// backend overloads symbols by operand type, so the pattern operators
// consult the right operand's logical type.
func operatorSymbol(e *sqlir.BinaryExpr) (string, error) {
	switch e.Op {
	case sqlir.OpContains:
		return "@>", nil
	case sqlir.OpContainedBy:
		return "<@", nil
	case sqlir.OpMatches:
		if e.Right != nil && e.Right.ResultType() == sqlir.TypeTextQuery {
			return "@", nil
		}
		return "~", nil
	case sqlir.OpMatchesAny:
		return "?", nil
	case sqlir.OpFirstAncestor:
		return "?@>", nil
	case sqlir.OpFirstDescendant:
		return "?<@", nil
	case sqlir.OpFirstMatches:
		if e.Right != nil && e.Right.ResultType() == sqlir.TypeTextQuery {
			return "?@", nil
		}
		return "?~", nil
	case sqlir.OpEq:
		return "=", nil
	case sqlir.OpNe:
		return "<>", nil
	case sqlir.OpLt:
		return "<", nil
	case sqlir.OpLe:
		return "<=", nil
	case sqlir.OpGt:
		return ">", nil
	case sqlir.OpGe:
		return ">=", nil
	case sqlir.OpAnd:
		return "AND", nil
	case sqlir.OpOr:
		return "OR", nil
	}
	return "", fmt.Errorf("unsupported operator tag %s", e.Op)
}

func (r *renderer) renderFunction(sb *strings.Builder, e *sqlir.FunctionExpr) error {
	if len(e.ArgsNullable) != len(e.Args) {
		return fmt.Errorf("function %s: %d operands but %d nullability flags", e.Name, len(e.Args), len(e.ArgsNullable))
	}
	sb.WriteString(e.Name)
	sb.WriteByte('(')
	for i, arg := range e.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := r.render(sb, arg); err != nil {
			return err
		}
	}
	sb.WriteByte(')')
	return nil
}

// renderLiteral appends a positional parameter with a descriptor cast.
func (r *renderer) renderLiteral(sb *strings.Builder, e *sqlir.LiteralExpr) error {
	value, err := parameterValue(e.Value)
	if err != nil {
		return err
	}
	r.params = append(r.params, value)
	fmt.Fprintf(sb, "$%d", len(r.params))
	if e.Desc != nil {
		sb.WriteString("::")
		sb.WriteString(e.Desc.Name)
	}
	return nil
}

// parameterValue converts a domain constant to its wire representation.
// Path values and patterns become their text form; arrays become
// PostgreSQL array literals.
func parameterValue(v any) (any, error) {
	switch val := v.(type) {
	case pathval.PathValue:
		return val.String(), nil
	case pathval.PathQuery:
		return val.String(), nil
	case pathval.PathTextQuery:
		return val.String(), nil
	case []pathval.PathValue:
		elems := make([]string, len(val))
		for i, p := range val {
			elems[i] = p.String()
		}
		return arrayLiteral(elems), nil
	case []pathval.PathQuery:
		elems := make([]string, len(val))
		for i, q := range val {
			elems[i] = q.String()
		}
		return arrayLiteral(elems), nil
	case string, bool, int, int32, int64:
		return val, nil
	case nil:
		return nil, fmt.Errorf("nil literal value")
	}
	return nil, fmt.Errorf("unsupported literal type %T", v)
}

// arrayLiteral builds a PostgreSQL array literal with quoted elements.
func arrayLiteral(elems []string) string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, elem := range elems {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(strings.ReplaceAll(elem, `\`, `\\`), `"`, `\"`))
		sb.WriteByte('"')
	}
	sb.WriteByte('}')
	return sb.String()
}

func (r *renderer) renderScan(sb *strings.Builder, e *sqlir.ScanExpr) error {
	if e.Binding == "" {
		return fmt.Errorf("scan without binding name")
	}
	switch e.Mode {
	case sqlir.ScanExists:
		sb.WriteString("EXISTS (SELECT 1 FROM unnest(")
		if err := r.render(sb, e.Source); err != nil {
			return err
		}
		sb.WriteString(") AS ")
		sb.WriteString(e.Binding)
		sb.WriteString(" WHERE ")
		if err := r.render(sb, e.Pred); err != nil {
			return err
		}
		sb.WriteByte(')')
		return nil
	case sqlir.ScanFirst:
		sb.WriteString("(SELECT ")
		sb.WriteString(e.Binding)
		sb.WriteString(" FROM unnest(")
		if err := r.render(sb, e.Source); err != nil {
			return err
		}
		sb.WriteString(") AS ")
		sb.WriteString(e.Binding)
		sb.WriteString(" WHERE ")
		if err := r.render(sb, e.Pred); err != nil {
			return err
		}
		sb.WriteString(" LIMIT 1)")
		return nil
	}
	return fmt.Errorf("unsupported scan mode %d", e.Mode)
}
