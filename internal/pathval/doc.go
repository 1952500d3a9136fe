// Package pathval implements the tree-path value types that arborq
// queries range over: PathValue (ltree), PathQuery (lquery), and
// PathTextQuery (ltxtquery).
//
// Values are immutable and operations are pure, mirroring the backend
// operators they translate to so that in-memory evaluation and compiled
// SQL agree. The query translator itself never inspects path contents;
// these types exist for literals, in-memory filtering, and tests.
package pathval
