// Package translate maps tree-path operations onto backend ltree
// operators and functions.
//
// Two entry points mirror the two shapes the surrounding compiler can
// offer: TranslateCall/TranslateMember for a single method call or
// property read whose operands are already lowered, and TranslateSeq for
// a whole collection combinator (Any / FirstOrDefault) over an array
// expression, which is rewritten into one array-level operator when its
// predicate matches a known template.
//
// Both entry points are total: they return a node and true, or nil and
// false. "No match" is the designed-for common outcome - most calls a
// query compiler sees have nothing to do with tree paths - and the
// caller is expected to fall back to its general strategy. Nothing here
// mutates shared state after construction, so one Translator may serve
// concurrent compilations.
package translate
