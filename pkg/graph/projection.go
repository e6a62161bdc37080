package graph

import (
	"fmt"

	"github.com/open-tally/tally/pkg/election"
)

// Voter and target namespaces are kept separate so an account that both
// votes and stands for election gets two distinct nodes.
func voterID(who string) string  { return "voter:" + who }
func targetID(who string) string { return "target:" + who }

// Project builds a support graph from a staked assignment set. Every voter
// with at least one edge becomes a voter node carrying its total backing,
// every supported target becomes a target node carrying its support, and
// each staked edge becomes a weighted edge between the two.
func Project(assignments []election.StakedAssignment) *Graph {
	g := NewGraph()

	supports := election.SupportMap(assignments)

	for _, a := range assignments {
		if len(a.Edges) == 0 {
			continue
		}

		var total uint64
		for _, e := range a.Edges {
			total += e.Weight
		}

		g.AddNode(&Node{
			ID:    voterID(a.Who),
			Type:  NodeVoter,
			Label: a.Who,
			Properties: map[string]string{
				"stake": fmt.Sprintf("%d", total),
			},
		})

		for _, e := range a.Edges {
			if _, exists := g.Nodes[targetID(e.Target)]; !exists {
				g.AddNode(&Node{
					ID:    targetID(e.Target),
					Type:  NodeTarget,
					Label: e.Target,
					Properties: map[string]string{
						"support": fmt.Sprintf("%d", supports[e.Target]),
					},
				})
			}
			g.AddEdge(&Edge{
				FromID: voterID(a.Who),
				ToID:   targetID(e.Target),
				Weight: e.Weight,
			})
		}
	}

	return g
}
