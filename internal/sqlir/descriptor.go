package sqlir

// WithDescriptor returns a copy of n tagged with the given descriptor and
// logical type. The original node is never mutated, so already-shared
// subtrees stay valid.
//
// Applying the same descriptor twice yields an identical node: tags
// replace, they do not accumulate.
func WithDescriptor(n Node, t LogicalType, d *TypeDescriptor) Node {
	switch e := n.(type) {
	case *BinaryExpr:
		c := *e
		c.Type, c.Desc = t, d
		return &c
	case *FunctionExpr:
		c := *e
		c.Type, c.Desc = t, d
		return &c
	case *ColumnExpr:
		c := *e
		c.Type, c.Desc = t, d
		return &c
	case *LiteralExpr:
		c := *e
		c.Type, c.Desc = t, d
		return &c
	case *NotExpr:
		c := *e
		c.Desc = d
		return &c
	case *ScanExpr:
		c := *e
		c.Type, c.Desc = t, d
		return &c
	default:
		return n
	}
}
