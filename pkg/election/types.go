package election

// Voter is one ballot: a stake and the set of approved candidates.
type Voter struct {
	Who       string   `json:"who"`
	Stake     uint64   `json:"stake"`
	Approvals []string `json:"approvals"`
}

// Winner is an elected candidate with the total stake backing it.
type Winner struct {
	Who     string `json:"who"`
	Support uint64 `json:"support"`
}

// TargetRatio is one slice of a voter's stake distribution, as a fraction
// of the voter's total stake.
type TargetRatio struct {
	Target string  `json:"target"`
	Ratio  float64 `json:"ratio"`
}

// Assignment is a voter's fractional stake distribution over the winners
// it approves.
type Assignment struct {
	Who          string        `json:"who"`
	Distribution []TargetRatio `json:"distribution"`
}

// StakedEdge is one absolute-weight support edge from a voter to a target.
type StakedEdge struct {
	Target string `json:"target"`
	Weight uint64 `json:"weight"`
}

// StakedAssignment is a voter's distribution converted to absolute stake.
// Edge weights sum exactly to the voter's stake whenever the distribution
// is non-empty.
type StakedAssignment struct {
	Who   string       `json:"who"`
	Edges []StakedEdge `json:"edges"`
}

// Result is the outcome of one solved election.
type Result struct {
	Winners     []Winner           `json:"winners"`
	Assignments []StakedAssignment `json:"assignments"`
}

// SupportMap aggregates per-target support from staked assignments.
func SupportMap(assignments []StakedAssignment) map[string]uint64 {
	out := make(map[string]uint64)
	for _, a := range assignments {
		for _, e := range a.Edges {
			out[e.Target] += e.Weight
		}
	}
	return out
}

// EdgeCount counts the non-zero edges across assignments.
func EdgeCount(assignments []StakedAssignment) int {
	n := 0
	for _, a := range assignments {
		for _, e := range a.Edges {
			if e.Weight > 0 {
				n++
			}
		}
	}
	return n
}
