package sim

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/open-tally/tally/pkg/election"
	"github.com/open-tally/tally/pkg/reduce"
)

// RunScenario generates a random electorate from the scenario seed and runs
// the solve+reduce pipeline in process for the configured number of rounds,
// checking conservation and minimality after each pass.
func RunScenario(s Scenario) SimulationResult {
	if s.Seed == 0 {
		s.Seed = time.Now().UnixNano()
	}
	applyDefaults(&s)

	log.Printf("Running Scenario: %s (Seed: %d)", s.Name, s.Seed)

	rng := rand.New(rand.NewSource(s.Seed))

	res := SimulationResult{
		ScenarioName: s.Name,
		Seed:         s.Seed,
	}

	for round := 1; round <= s.Rounds; round++ {
		candidates := makeCandidates(s.Candidates)
		voters := makeVoters(rng, s, candidates)

		result, err := election.Solve(s.Seats, candidates, voters)
		if err != nil {
			res.Invariants = append(res.Invariants, InvariantResult{
				Metric:   "solve_ok",
				Scope:    fmt.Sprintf("round-%d", round),
				Expected: "no error",
				Actual:   err.Error(),
				Passed:   false,
			})
			continue
		}

		reduced := reduce.Reduce(result.Assignments)

		stats := RoundStats{
			Round:       round,
			TotalStake:  totalStake(voters),
			EdgesBefore: election.EdgeCount(result.Assignments),
			EdgesAfter:  election.EdgeCount(reduced),
		}
		stats.EdgesRemoved = stats.EdgesBefore - stats.EdgesAfter
		for _, w := range result.Winners {
			stats.Winners = append(stats.Winners, w.Who)
		}

		res.RoundStats = append(res.RoundStats, stats)
		res.TotalEdges += stats.EdgesAfter
		res.TotalRemoved += stats.EdgesRemoved

		checkRound(&res, round, result.Assignments, reduced)
	}

	res.Success = true
	for _, inv := range res.Invariants {
		if !inv.Passed {
			res.Success = false
			break
		}
	}

	return res
}

func applyDefaults(s *Scenario) {
	if s.Rounds <= 0 {
		s.Rounds = 1
	}
	if s.Seats <= 0 {
		s.Seats = 4
	}
	if s.Candidates <= 0 {
		s.Candidates = 10
	}
	if s.Voters <= 0 {
		s.Voters = 50
	}
	if s.MaxApprovals <= 0 {
		s.MaxApprovals = 4
	}
	if s.MinStake == 0 {
		s.MinStake = 1
	}
	if s.MaxStake < s.MinStake {
		s.MaxStake = s.MinStake + 999
	}
}

func makeCandidates(n int) []string {
	candidates := make([]string, n)
	for i := range candidates {
		candidates[i] = fmt.Sprintf("cand-%02d", i)
	}
	return candidates
}

func makeVoters(rng *rand.Rand, s Scenario, candidates []string) []election.Voter {
	voters := make([]election.Voter, s.Voters)
	for i := range voters {
		span := int64(s.MaxStake - s.MinStake + 1)
		stake := s.MinStake + uint64(rng.Int63n(span))

		count := 1 + rng.Intn(s.MaxApprovals)
		if count > len(candidates) {
			count = len(candidates)
		}
		perm := rng.Perm(len(candidates))
		approvals := make([]string, count)
		for j := 0; j < count; j++ {
			approvals[j] = candidates[perm[j]]
		}

		voters[i] = election.Voter{
			Who:       fmt.Sprintf("voter-%03d", i),
			Stake:     stake,
			Approvals: approvals,
		}
	}
	return voters
}

func totalStake(voters []election.Voter) uint64 {
	var total uint64
	for _, v := range voters {
		total += v.Stake
	}
	return total
}

// checkRound records conservation and minimality checks for one pass.
func checkRound(res *SimulationResult, round int, before, after []election.StakedAssignment) {
	scope := fmt.Sprintf("round-%d", round)

	// Per-target support must be untouched by reduction.
	supportsBefore := election.SupportMap(before)
	supportsAfter := election.SupportMap(after)
	supportsOK := len(supportsBefore) == len(supportsAfter)
	if supportsOK {
		for target, support := range supportsBefore {
			if supportsAfter[target] != support {
				supportsOK = false
				break
			}
		}
	}
	res.Invariants = append(res.Invariants, InvariantResult{
		Metric:   "support_preserved",
		Scope:    scope,
		Expected: "per-target supports equal",
		Actual:   fmt.Sprintf("%d targets before, %d after", len(supportsBefore), len(supportsAfter)),
		Passed:   supportsOK,
	})

	// Per-voter totals must be untouched as well.
	stakesOK := true
	beforeTotals := voterTotals(before)
	afterTotals := voterTotals(after)
	for who, total := range beforeTotals {
		if afterTotals[who] != total {
			stakesOK = false
			break
		}
	}
	res.Invariants = append(res.Invariants, InvariantResult{
		Metric:   "stake_preserved",
		Scope:    scope,
		Expected: "per-voter totals equal",
		Actual:   fmt.Sprintf("%d voters", len(beforeTotals)),
		Passed:   stakesOK,
	})

	// A forest over V voters and T targets has at most V+T-1 edges.
	voters := make(map[string]struct{})
	targets := make(map[string]struct{})
	edges := 0
	for _, a := range after {
		if len(a.Edges) == 0 {
			continue
		}
		voters[a.Who] = struct{}{}
		for _, e := range a.Edges {
			targets[e.Target] = struct{}{}
			edges++
		}
	}
	bound := len(voters) + len(targets) - 1
	res.Invariants = append(res.Invariants, InvariantResult{
		Metric:   "edge_bound",
		Scope:    scope,
		Expected: fmt.Sprintf("<= %d", bound),
		Actual:   fmt.Sprintf("%d", edges),
		Passed:   edges <= bound,
	})
}

func voterTotals(assignments []election.StakedAssignment) map[string]uint64 {
	totals := make(map[string]uint64)
	for _, a := range assignments {
		for _, e := range a.Edges {
			totals[a.Who] += e.Weight
		}
	}
	return totals
}
