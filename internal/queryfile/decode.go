package queryfile

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/arborq/arborq/internal/expr"
	"github.com/arborq/arborq/internal/pathval"
	"github.com/arborq/arborq/internal/sqlir"
)

// typeNames maps filter-form type names to logical types.
var typeNames = map[string]sqlir.LogicalType{
	"bool":      sqlir.TypeBool,
	"int":       sqlir.TypeInt,
	"text":      sqlir.TypeText,
	"path":      sqlir.TypePath,
	"path[]":    sqlir.TypePathArray,
	"lquery":    sqlir.TypeQuery,
	"lquery[]":  sqlir.TypeQueryArray,
	"ltxtquery": sqlir.TypeTextQuery,
}

// decodeExpr decodes one node of the structured filter form. Each node
// is a struct with exactly one head key naming its kind; params maps
// in-scope lambda parameter names to their Param values.
func decodeExpr(v cue.Value, params map[string]*expr.Param) (expr.Expr, error) {
	switch {
	case fieldExists(v, "column"):
		return decodeColumn(v)
	case fieldExists(v, "path"):
		s, err := headString(v, "path")
		if err != nil {
			return nil, err
		}
		p, err := pathval.Parse(s)
		if err != nil {
			return nil, exprErr(v, "invalid path literal: %v", err)
		}
		return &expr.Const{Value: p, Type: sqlir.TypePath}, nil
	case fieldExists(v, "lquery"):
		s, err := headString(v, "lquery")
		if err != nil {
			return nil, err
		}
		q, err := pathval.ParseQuery(s)
		if err != nil {
			return nil, exprErr(v, "invalid lquery literal: %v", err)
		}
		return &expr.Const{Value: q, Type: sqlir.TypeQuery}, nil
	case fieldExists(v, "ltxtquery"):
		s, err := headString(v, "ltxtquery")
		if err != nil {
			return nil, err
		}
		q, err := pathval.ParseTextQuery(s)
		if err != nil {
			return nil, exprErr(v, "invalid ltxtquery literal: %v", err)
		}
		return &expr.Const{Value: q, Type: sqlir.TypeTextQuery}, nil
	case fieldExists(v, "paths"):
		elems, err := headStrings(v, "paths")
		if err != nil {
			return nil, err
		}
		vals := make([]pathval.PathValue, len(elems))
		for i, s := range elems {
			p, err := pathval.Parse(s)
			if err != nil {
				return nil, exprErr(v, "invalid path literal %q: %v", s, err)
			}
			vals[i] = p
		}
		return &expr.Const{Value: vals, Type: sqlir.TypePathArray}, nil
	case fieldExists(v, "lqueries"):
		elems, err := headStrings(v, "lqueries")
		if err != nil {
			return nil, err
		}
		vals := make([]pathval.PathQuery, len(elems))
		for i, s := range elems {
			q, err := pathval.ParseQuery(s)
			if err != nil {
				return nil, exprErr(v, "invalid lquery literal %q: %v", s, err)
			}
			vals[i] = q
		}
		return &expr.Const{Value: vals, Type: sqlir.TypeQueryArray}, nil
	case fieldExists(v, "int"):
		iv := v.LookupPath(cue.ParsePath("int"))
		n, err := iv.Int64()
		if err != nil {
			return nil, exprErr(iv, "invalid int literal: %v", err)
		}
		return &expr.Const{Value: n, Type: sqlir.TypeInt}, nil
	case fieldExists(v, "string"):
		s, err := headString(v, "string")
		if err != nil {
			return nil, err
		}
		return &expr.Const{Value: s, Type: sqlir.TypeText}, nil
	case fieldExists(v, "bool"):
		bv := v.LookupPath(cue.ParsePath("bool"))
		b, err := bv.Bool()
		if err != nil {
			return nil, exprErr(bv, "invalid bool literal: %v", err)
		}
		return &expr.Const{Value: b, Type: sqlir.TypeBool}, nil
	case fieldExists(v, "param"):
		name, err := headString(v, "param")
		if err != nil {
			return nil, err
		}
		p, ok := params[name]
		if !ok {
			return nil, exprErr(v, "parameter %q is not in scope", name)
		}
		return p, nil
	case fieldExists(v, "call"):
		return decodeCall(v, params)
	case fieldExists(v, "property"):
		return decodeProperty(v, params)
	case fieldExists(v, "any"):
		return decodeSeq(v, "any", expr.SeqAny, params)
	case fieldExists(v, "first"):
		return decodeSeq(v, "first", expr.SeqFirstOrDefault, params)
	case fieldExists(v, "and"):
		return decodeVariadic(v, "and", expr.OpAnd, params)
	case fieldExists(v, "or"):
		return decodeVariadic(v, "or", expr.OpOr, params)
	case fieldExists(v, "not"):
		inner, err := decodeExpr(v.LookupPath(cue.ParsePath("not")), params)
		if err != nil {
			return nil, err
		}
		return &expr.Not{Operand: inner}, nil
	case fieldExists(v, "eq"):
		return decodeComparison(v, "eq", expr.OpEq, params)
	case fieldExists(v, "ne"):
		return decodeComparison(v, "ne", expr.OpNe, params)
	case fieldExists(v, "lt"):
		return decodeComparison(v, "lt", expr.OpLt, params)
	case fieldExists(v, "le"):
		return decodeComparison(v, "le", expr.OpLe, params)
	case fieldExists(v, "gt"):
		return decodeComparison(v, "gt", expr.OpGt, params)
	case fieldExists(v, "ge"):
		return decodeComparison(v, "ge", expr.OpGe, params)
	}
	return nil, exprErr(v, "expression has no recognized kind key")
}

func decodeColumn(v cue.Value) (expr.Expr, error) {
	name, err := headString(v, "column")
	if err != nil {
		return nil, err
	}
	col := &expr.Column{Name: name, Type: sqlir.TypePath}
	tv := v.LookupPath(cue.ParsePath("type"))
	if tv.Exists() {
		typeName, err := tv.String()
		if err != nil {
			return nil, exprErr(tv, "invalid column type: %v", err)
		}
		t, ok := typeNames[typeName]
		if !ok {
			return nil, exprErr(tv, "unknown column type %q", typeName)
		}
		col.Type = t
	}
	return col, nil
}

func decodeCall(v cue.Value, params map[string]*expr.Param) (expr.Expr, error) {
	name, err := headString(v, "call")
	if err != nil {
		return nil, err
	}

	call := &expr.Call{
		Method: expr.ResolveMethod(name),
		Name:   name,
	}

	on := v.LookupPath(cue.ParsePath("on"))
	if on.Exists() {
		recv, err := decodeExpr(on, params)
		if err != nil {
			return nil, err
		}
		call.Recv = recv
	}

	argsVal := v.LookupPath(cue.ParsePath("args"))
	if argsVal.Exists() {
		iter, err := argsVal.List()
		if err != nil {
			return nil, exprErr(argsVal, "args must be a list: %v", err)
		}
		for iter.Next() {
			arg, err := decodeExpr(iter.Value(), params)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
		}
	}
	return call, nil
}

func decodeProperty(v cue.Value, params map[string]*expr.Param) (expr.Expr, error) {
	name, err := headString(v, "property")
	if err != nil {
		return nil, err
	}
	on := v.LookupPath(cue.ParsePath("on"))
	if !on.Exists() {
		return nil, exprErr(v, "property requires an 'on' expression")
	}
	recv, err := decodeExpr(on, params)
	if err != nil {
		return nil, err
	}
	prop := expr.PropUnknown
	if name == "NLevel" {
		prop = expr.PropNLevel
	}
	return &expr.Property{Prop: prop, Name: name, Recv: recv}, nil
}

func decodeSeq(v cue.Value, field string, kind expr.SeqKind, params map[string]*expr.Param) (expr.Expr, error) {
	body := v.LookupPath(cue.ParsePath(field))

	source := body.LookupPath(cue.ParsePath("source"))
	if !source.Exists() {
		return nil, exprErr(body, "%s requires a 'source' expression", field)
	}
	src, err := decodeExpr(source, params)
	if err != nil {
		return nil, err
	}

	paramName, err := headString(body, "param")
	if err != nil {
		return nil, err
	}
	paramType := sqlir.TypePath
	tv := body.LookupPath(cue.ParsePath("paramType"))
	if tv.Exists() {
		typeName, err := tv.String()
		if err != nil {
			return nil, exprErr(tv, "invalid paramType: %v", err)
		}
		t, ok := typeNames[typeName]
		if !ok {
			return nil, exprErr(tv, "unknown paramType %q", typeName)
		}
		paramType = t
	}

	p := &expr.Param{Name: paramName, Type: paramType}
	inner := make(map[string]*expr.Param, len(params)+1)
	for k, val := range params {
		inner[k] = val
	}
	inner[paramName] = p

	bodyVal := body.LookupPath(cue.ParsePath("body"))
	if !bodyVal.Exists() {
		return nil, exprErr(body, "%s requires a 'body' expression", field)
	}
	pred, err := decodeExpr(bodyVal, inner)
	if err != nil {
		return nil, err
	}

	return &expr.SeqCall{
		Kind:   kind,
		Source: src,
		Pred:   &expr.Lambda{Param: p, Body: pred},
	}, nil
}

func decodeVariadic(v cue.Value, field string, op expr.BinaryOp, params map[string]*expr.Param) (expr.Expr, error) {
	list := v.LookupPath(cue.ParsePath(field))
	iter, err := list.List()
	if err != nil {
		return nil, exprErr(list, "%s must be a list: %v", field, err)
	}
	var exprs []expr.Expr
	for iter.Next() {
		e, err := decodeExpr(iter.Value(), params)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	if len(exprs) < 2 {
		return nil, exprErr(list, "%s requires at least two operands", field)
	}
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = &expr.Binary{Op: op, L: out, R: e}
	}
	return out, nil
}

func decodeComparison(v cue.Value, field string, op expr.BinaryOp, params map[string]*expr.Param) (expr.Expr, error) {
	list := v.LookupPath(cue.ParsePath(field))
	iter, err := list.List()
	if err != nil {
		return nil, exprErr(list, "%s must be a list: %v", field, err)
	}
	var exprs []expr.Expr
	for iter.Next() {
		e, err := decodeExpr(iter.Value(), params)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	if len(exprs) != 2 {
		return nil, exprErr(list, "%s requires exactly two operands", field)
	}
	return &expr.Binary{Op: op, L: exprs[0], R: exprs[1]}, nil
}

func fieldExists(v cue.Value, field string) bool {
	return v.LookupPath(cue.ParsePath(field)).Exists()
}

func headString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", exprErr(v, "%s is required", field)
	}
	s, err := fv.String()
	if err != nil {
		return "", exprErr(fv, "%s must be a string: %v", field, err)
	}
	return s, nil
}

func headStrings(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	iter, err := fv.List()
	if err != nil {
		return nil, exprErr(fv, "%s must be a list of strings: %v", field, err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, exprErr(iter.Value(), "%s must be a list of strings: %v", field, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func exprErr(v cue.Value, format string, args ...any) error {
	return &LoadError{
		Code:    ErrCodeExpression,
		Message: fmt.Sprintf(format, args...),
		Pos:     v.Pos(),
	}
}
