// Package sqlir defines the backend-side expression tree that domain
// queries are lowered into.
//
// The tree is deliberately small: binary operators (tree-path operators
// plus boolean/comparison glue), function calls, columns, literals, and
// the unnest-scan fallback. Nodes are built by internal/translate and
// internal/compile and turned into SQL text by internal/render.
//
// Operator tags are abstract; the renderer chooses concrete symbols from
// tag plus operand descriptors, since the backend overloads its symbols
// by operand type.
package sqlir
