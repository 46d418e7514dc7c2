package detect

// Match is an accepted element with its classification.
type Match struct {
	Node  Node
	Class Class
}

// Walk visits root's descendants depth-first in document order. Accepted
// elements are consumed: their subtrees are not visited. Excluded subtrees
// are skipped. root itself is never classified.
func Walk(root Node, c Classifier) []Match {
	var out []Match
	var visit func(Node)
	visit = func(n Node) {
		for _, ch := range n.Children() {
			cl := c.Classify(ch)
			switch {
			case cl.Kind == KindExcluded:
			case cl.Slot():
				out = append(out, Match{Node: ch, Class: cl})
			default:
				visit(ch)
			}
		}
	}
	visit(root)
	return out
}
