package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveMethod(t *testing.T) {
	assert.Equal(t, MethodIsAncestorOf, ResolveMethod("IsAncestorOf"))
	assert.Equal(t, MethodLongestCommonAncestor, ResolveMethod("LongestCommonAncestor"))
	assert.Equal(t, MethodUnknown, ResolveMethod("isancestorof"), "resolution is case-sensitive")
	assert.Equal(t, MethodUnknown, ResolveMethod("StartsWith"))
	assert.Equal(t, MethodUnknown, ResolveMethod(""))
}

func TestMethodString_RoundTrips(t *testing.T) {
	for name, id := range map[string]Method{
		"IsAncestorOf":          MethodIsAncestorOf,
		"MatchesLTxtQuery":      MethodMatchesLTxtQuery,
		"Subpath":               MethodSubpath,
		"LongestCommonAncestor": MethodLongestCommonAncestor,
	} {
		assert.Equal(t, name, id.String())
		assert.Equal(t, id, ResolveMethod(id.String()))
	}
	assert.Equal(t, "unknown", MethodUnknown.String())
}

func TestParamIdentity(t *testing.T) {
	a := &Param{Name: "t"}
	b := &Param{Name: "t"}

	var x, y Expr = a, b
	assert.False(t, x == y, "same name is not the same parameter")
	assert.True(t, x == Expr(a))
}
