package sim

import "testing"

func TestRunScenario_Deterministic(t *testing.T) {
	s := Scenario{
		Name:       "determinism",
		Seed:       42,
		Rounds:     3,
		Seats:      4,
		Candidates: 10,
		Voters:     50,
	}

	first := RunScenario(s)
	second := RunScenario(s)

	if !first.Success {
		t.Fatalf("expected success, failing invariants: %+v", failing(first))
	}
	if len(first.RoundStats) != 3 {
		t.Fatalf("expected 3 rounds, got %d", len(first.RoundStats))
	}

	for i := range first.RoundStats {
		a, b := first.RoundStats[i], second.RoundStats[i]
		if a.EdgesBefore != b.EdgesBefore || a.EdgesAfter != b.EdgesAfter {
			t.Errorf("round %d differs between runs: %+v vs %+v", i+1, a, b)
		}
		if len(a.Winners) != len(b.Winners) {
			t.Errorf("round %d winner count differs", i+1)
			continue
		}
		for j := range a.Winners {
			if a.Winners[j] != b.Winners[j] {
				t.Errorf("round %d winner %d differs: %s vs %s", i+1, j, a.Winners[j], b.Winners[j])
			}
		}
	}
}

func TestRunScenario_InvariantsHoldUnderLoad(t *testing.T) {
	s := Scenario{
		Name:         "load",
		Seed:         7,
		Rounds:       10,
		Seats:        8,
		Candidates:   20,
		Voters:       200,
		MaxApprovals: 6,
		MinStake:     1,
		MaxStake:     1_000_000,
	}

	res := RunScenario(s)
	if !res.Success {
		t.Fatalf("invariants failed: %+v", failing(res))
	}

	for _, rs := range res.RoundStats {
		if rs.EdgesAfter > rs.EdgesBefore {
			t.Errorf("round %d gained edges: %d -> %d", rs.Round, rs.EdgesBefore, rs.EdgesAfter)
		}
		if len(rs.Winners) != 8 {
			t.Errorf("round %d expected 8 winners, got %d", rs.Round, len(rs.Winners))
		}
	}
}

func TestRunScenario_Defaults(t *testing.T) {
	res := RunScenario(Scenario{Name: "defaults", Seed: 1})
	if len(res.RoundStats) != 1 {
		t.Fatalf("expected 1 round by default, got %d", len(res.RoundStats))
	}
	if !res.Success {
		t.Fatalf("invariants failed: %+v", failing(res))
	}
}

func failing(res SimulationResult) []InvariantResult {
	var out []InvariantResult
	for _, inv := range res.Invariants {
		if !inv.Passed {
			out = append(out, inv)
		}
	}
	return out
}
