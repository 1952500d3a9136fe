package sqlir

// Walk visits n and every node beneath it in depth-first order. The
// visit function returning false prunes the subtree below that node.
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	switch e := n.(type) {
	case *BinaryExpr:
		Walk(e.Left, visit)
		Walk(e.Right, visit)
	case *FunctionExpr:
		for _, arg := range e.Args {
			Walk(arg, visit)
		}
	case *NotExpr:
		Walk(e.Operand, visit)
	case *ScanExpr:
		Walk(e.Source, visit)
		Walk(e.Pred, visit)
	}
}
