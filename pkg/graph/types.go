package graph

// NodeType represents the semantic type of a node in the support graph.
type NodeType string

const (
	NodeVoter  NodeType = "voter"
	NodeTarget NodeType = "target"
)

// Node represents a vertex in the support graph.
type Node struct {
	ID         string            `json:"id"`
	Type       NodeType          `json:"type"`
	Label      string            `json:"label"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Edge represents a weighted support edge from a voter to a target.
type Edge struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Weight uint64 `json:"weight"`
}

// Graph represents a support graph snapshot for one round.
type Graph struct {
	Nodes map[string]*Node `json:"nodes"`
	Edges []*Edge          `json:"edges"`
}

// NewGraph creates an empty support graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes: make(map[string]*Node),
		Edges: make([]*Edge, 0),
	}
}

// AddNode adds a node to the graph.
func (g *Graph) AddNode(n *Node) {
	g.Nodes[n.ID] = n
}

// AddEdge adds an edge to the graph.
func (g *Graph) AddEdge(e *Edge) {
	g.Edges = append(g.Edges, e)
}
