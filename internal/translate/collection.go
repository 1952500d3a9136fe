package translate

import (
	"github.com/arborq/arborq/internal/expr"
	"github.com/arborq/arborq/internal/sqlir"
)

// SubExprTranslator lowers an arbitrary domain sub-expression. The
// surrounding compiler provides it so the matcher can translate the
// array expression and call operands of a matched template.
//
// It is total: false means the expression could not be lowered, which
// the matcher treats as "no match" for the whole template.
type SubExprTranslator interface {
	Translate(e expr.Expr) (sqlir.Node, bool)
}

// TranslateSeq rewrites a collection combinator over an array-valued
// source into a single array-level operator, when the predicate matches
// one of the known templates.
//
// Templates are tested in a fixed order; the first one whose method
// identity and operand roles both fit wins. The nested existence
// template is only reachable once every flat template has been rejected,
// because it requires the predicate body to be a second existence check
// rather than a direct call. A body that is merely close to a template -
// wrong operand role, an extra intermediate call, a parameter used on
// both sides - reports false with no partial output.
func (t *Translator) TranslateSeq(kind expr.SeqKind, source expr.Expr, pred *expr.Lambda, sub SubExprTranslator) (sqlir.Node, bool) {
	if source == nil || pred == nil || pred.Param == nil || sub == nil {
		return nil, false
	}

	switch kind {
	case expr.SeqAny:
		return t.translateAny(source, pred, sub)
	case expr.SeqFirstOrDefault:
		return t.translateFirst(source, pred, sub)
	}
	return nil, false
}

// translateAny handles the existence-check templates.
func (t *Translator) translateAny(source expr.Expr, pred *expr.Lambda, sub SubExprTranslator) (sqlir.Node, bool) {
	p := pred.Param

	if call, ok := pred.Body.(*expr.Call); ok {
		// queries.Any(q => path.MatchesLQuery(q))
		// The parameter is the argument: the instance is matched
		// against every pattern in the array.
		if call.Method == expr.MethodMatchesLQuery && len(call.Args) == 1 && call.Args[0] == p {
			if !freeOf(call.Recv, p) {
				return nil, false
			}
			inst, ok := sub.Translate(call.Recv)
			if !ok {
				return nil, false
			}
			arr, ok := sub.Translate(source)
			if !ok {
				return nil, false
			}
			return t.binary(sqlir.OpMatchesAny, inst, sqlir.TypePath, arr, sqlir.TypeQueryArray), true
		}

		// paths.Any(t => t.IsAncestorOf(x)) and friends: the
		// parameter is the instance, the array-level operator takes
		// the array on the left.
		if call.Recv == p && len(call.Args) == 1 && freeOf(call.Args[0], p) {
			switch call.Method {
			case expr.MethodIsAncestorOf:
				return t.arrayBinary(sqlir.OpContains, source, call.Args[0], sqlir.TypePath, sub)
			case expr.MethodIsDescendantOf:
				return t.arrayBinary(sqlir.OpContainedBy, source, call.Args[0], sqlir.TypePath, sub)
			case expr.MethodMatchesLQuery:
				return t.arrayBinary(sqlir.OpMatches, source, call.Args[0], sqlir.TypeQuery, sub)
			case expr.MethodMatchesLTxtQuery:
				return t.arrayBinary(sqlir.OpMatches, source, call.Args[0], sqlir.TypeTextQuery, sub)
			}
		}
		return nil, false
	}

	// paths.Any(t => queries.Any(q => t.MatchesLQuery(q))): set
	// intersection, some path matches some pattern.
	if inner, ok := pred.Body.(*expr.SeqCall); ok {
		if inner.Kind != expr.SeqAny || inner.Pred == nil || inner.Pred.Param == nil {
			return nil, false
		}
		call, ok := inner.Pred.Body.(*expr.Call)
		if !ok || call.Method != expr.MethodMatchesLQuery {
			return nil, false
		}
		// The instance must be exactly the outer parameter and the
		// argument exactly the inner one - an intermediate call on
		// either side breaks the template.
		if call.Recv != p || len(call.Args) != 1 || call.Args[0] != inner.Pred.Param {
			return nil, false
		}
		if !freeOf(inner.Source, p) {
			return nil, false
		}
		arr, ok := sub.Translate(source)
		if !ok {
			return nil, false
		}
		innerArr, ok := sub.Translate(inner.Source)
		if !ok {
			return nil, false
		}
		return t.binary(sqlir.OpMatchesAny, arr, sqlir.TypePathArray, innerArr, sqlir.TypeQueryArray), true
	}

	return nil, false
}

// translateFirst handles the first-match templates. Every one of them
// requires the parameter in the instance role.
//
// The full-text row records its result as a path value like its
// siblings; the backend operator returns ltree for all four.
func (t *Translator) translateFirst(source expr.Expr, pred *expr.Lambda, sub SubExprTranslator) (sqlir.Node, bool) {
	p := pred.Param

	call, ok := pred.Body.(*expr.Call)
	if !ok || call.Recv != p || len(call.Args) != 1 || !freeOf(call.Args[0], p) {
		return nil, false
	}

	var op sqlir.Operator
	var argType sqlir.LogicalType
	switch call.Method {
	case expr.MethodIsAncestorOf:
		op, argType = sqlir.OpFirstAncestor, sqlir.TypePath
	case expr.MethodIsDescendantOf:
		op, argType = sqlir.OpFirstDescendant, sqlir.TypePath
	case expr.MethodMatchesLQuery:
		op, argType = sqlir.OpFirstMatches, sqlir.TypeQuery
	case expr.MethodMatchesLTxtQuery:
		op, argType = sqlir.OpFirstMatches, sqlir.TypeTextQuery
	default:
		return nil, false
	}

	arr, ok := sub.Translate(source)
	if !ok {
		return nil, false
	}
	arg, ok := sub.Translate(call.Args[0])
	if !ok {
		return nil, false
	}
	return t.pathBinary(op, arr, sqlir.TypePathArray, arg, argType), true
}

// arrayBinary lowers source and arg and builds array-op-scalar.
func (t *Translator) arrayBinary(op sqlir.Operator, source, arg expr.Expr, argType sqlir.LogicalType, sub SubExprTranslator) (sqlir.Node, bool) {
	arr, ok := sub.Translate(source)
	if !ok {
		return nil, false
	}
	other, ok := sub.Translate(arg)
	if !ok {
		return nil, false
	}
	return t.binary(op, arr, sqlir.TypePathArray, other, argType), true
}

// freeOf reports whether e never references the parameter p. Operands in
// the non-parameter role must be free of it: an expression like
// p.IsAncestorOf(p) fits no template.
func freeOf(e expr.Expr, p *expr.Param) bool {
	switch n := e.(type) {
	case nil:
		return true
	case *expr.Param:
		return n != p
	case *expr.Column, *expr.Const:
		return true
	case *expr.Call:
		if !freeOf(n.Recv, p) {
			return false
		}
		for _, a := range n.Args {
			if !freeOf(a, p) {
				return false
			}
		}
		return true
	case *expr.Property:
		return freeOf(n.Recv, p)
	case *expr.SeqCall:
		if !freeOf(n.Source, p) {
			return false
		}
		if n.Pred != nil {
			return freeOf(n.Pred.Body, p)
		}
		return true
	case *expr.Lambda:
		return freeOf(n.Body, p)
	case *expr.Binary:
		return freeOf(n.L, p) && freeOf(n.R, p)
	case *expr.Not:
		return freeOf(n.Operand, p)
	}
	return false
}
