// Package election implements a sequential Phragmén approval election:
// winners are picked one seat at a time by lowest score, where a
// candidate's score reflects how loaded its supporters already are. The
// output is the winner set plus each voter's stake distribution over the
// winners it approves.
package election

import (
	"fmt"
	"math"
	"sort"
)

type candidate struct {
	who           string
	approvalStake float64
	score         float64
	elected       bool
}

type edge struct {
	to   *candidate
	load float64
}

type ballot struct {
	who   string
	stake float64
	load  float64
	edges []edge
}

// Solve runs a sequential Phragmén election for up to seats winners.
// Candidates nobody approves can never be elected; if fewer candidates are
// electable than seats, all electable ones win. Ties on score break toward
// the lexicographically smaller candidate ID, so results are deterministic
// for identical input.
func Solve(seats int, candidates []string, voters []Voter) (*Result, error) {
	if seats <= 0 {
		return nil, fmt.Errorf("invalid seat count %d", seats)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates")
	}

	cands := make([]*candidate, 0, len(candidates))
	byWho := make(map[string]*candidate, len(candidates))
	for _, who := range candidates {
		if _, dup := byWho[who]; dup {
			return nil, fmt.Errorf("duplicate candidate %q", who)
		}
		c := &candidate{who: who}
		byWho[who] = c
		cands = append(cands, c)
	}

	ballots := make([]*ballot, 0, len(voters))
	for _, v := range voters {
		if v.Stake == 0 {
			continue
		}
		b := &ballot{who: v.Who, stake: float64(v.Stake)}
		seen := make(map[string]bool, len(v.Approvals))
		for _, approval := range v.Approvals {
			c, ok := byWho[approval]
			if !ok || seen[approval] {
				continue
			}
			seen[approval] = true
			b.edges = append(b.edges, edge{to: c})
			c.approvalStake += b.stake
		}
		if len(b.edges) > 0 {
			ballots = append(ballots, b)
		}
	}

	var winners []Winner
	toElect := seats
	if len(cands) < toElect {
		toElect = len(cands)
	}

	for round := 0; round < toElect; round++ {
		for _, c := range cands {
			if c.elected || c.approvalStake == 0 {
				c.score = math.Inf(1)
				continue
			}
			c.score = 1 / c.approvalStake
		}
		for _, b := range ballots {
			for _, e := range b.edges {
				if e.to.elected || e.to.approvalStake == 0 {
					continue
				}
				e.to.score += b.stake * b.load / e.to.approvalStake
			}
		}

		var best *candidate
		for _, c := range cands {
			if math.IsInf(c.score, 1) {
				continue
			}
			if best == nil || c.score < best.score ||
				(c.score == best.score && c.who < best.who) {
				best = c
			}
		}
		if best == nil {
			break
		}

		best.elected = true
		for _, b := range ballots {
			for i := range b.edges {
				if b.edges[i].to == best {
					b.edges[i].load = best.score - b.load
					b.load = best.score
				}
			}
		}
		winners = append(winners, Winner{Who: best.who})
	}

	assignments := make([]StakedAssignment, 0, len(ballots))
	for _, b := range ballots {
		sa := distribute(b)
		if len(sa.Edges) > 0 {
			assignments = append(assignments, sa)
		}
	}

	support := SupportMap(assignments)
	for i := range winners {
		winners[i].Support = support[winners[i].Who]
	}

	return &Result{Winners: winners, Assignments: assignments}, nil
}

// distribute turns a ballot's edge loads into absolute stake weights.
// Rounding remainders land on the last edge so the weights sum exactly to
// the voter's stake.
func distribute(b *ballot) StakedAssignment {
	sa := StakedAssignment{Who: b.who}
	if b.load == 0 {
		return sa
	}

	var live []edge
	for _, e := range b.edges {
		if e.to.elected && e.load > 0 {
			live = append(live, e)
		}
	}
	if len(live) == 0 {
		return sa
	}
	sort.Slice(live, func(i, j int) bool { return live[i].to.who < live[j].to.who })

	stake := uint64(b.stake)
	var used uint64
	for i, e := range live {
		var w uint64
		if i == len(live)-1 {
			w = stake - used
		} else {
			w = uint64(e.load / b.load * b.stake)
			used += w
		}
		sa.Edges = append(sa.Edges, StakedEdge{Target: e.to.who, Weight: w})
	}
	return sa
}
