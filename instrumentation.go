package cpmp

// Middleware receives every decision the search driver takes, together with
// a summary of the node it was taken at. Useful for logging, statistics and
// testing; the solver itself stays silent.
type Middleware interface {
	ProcessDecision(node NodeSummary, decision SearchDecision)
}

// discardMiddleware is the default middleware; it drops everything.
type discardMiddleware struct{}

func (discardMiddleware) ProcessDecision(NodeSummary, SearchDecision) {}

// NodeSummary summarizes the state of a search node at decision time.
// Note that we deliberately do not hand out references to the node's
// internal datastructures here.
type NodeSummary struct {
	// ID numbers the nodes in order of creation, starting at 1 for the root.
	ID int64

	// Depth is the number of branching constraints on the node's path.
	Depth int

	// Z is the node's relaxation bound; NaN when the relaxation was infeasible.
	Z float64

	// Columns is the number of master columns after the node's pricing loop.
	Columns int
}

// SearchDecision labels the decisions the branch-and-price driver can take
// at a node.
type SearchDecision string

const (
	NODE_INFEASIBLE                 SearchDecision = "relaxation infeasible, Farkas pricing found no repairing column"
	WORSE_THAN_INCUMBENT            SearchDecision = "bound not better than incumbent"
	BETTER_THAN_INCUMBENT_BRANCHING SearchDecision = "better than incumbent but fractional, so branching"
	BETTER_THAN_INCUMBENT_FEASIBLE  SearchDecision = "better than incumbent and integral, so replacing incumbent"
)
