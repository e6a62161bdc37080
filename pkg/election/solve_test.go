package election

import "testing"

func TestSolveBasic(t *testing.T) {
	candidates := []string{"A", "B", "C"}
	voters := []Voter{
		{Who: "v1", Stake: 10, Approvals: []string{"A"}},
		{Who: "v2", Stake: 20, Approvals: []string{"A", "B"}},
		{Who: "v3", Stake: 30, Approvals: []string{"B", "C"}},
	}

	res, err := Solve(2, candidates, voters)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	if len(res.Winners) != 2 {
		t.Fatalf("expected 2 winners, got %d", len(res.Winners))
	}
	// B has the largest approval stake and wins the first seat; A takes the
	// second once B's supporters are loaded.
	if res.Winners[0].Who != "B" || res.Winners[1].Who != "A" {
		t.Fatalf("winner order: got %v", res.Winners)
	}
	if res.Winners[0].Support != 39 || res.Winners[1].Support != 21 {
		t.Errorf("supports: got B=%d A=%d, want B=39 A=21",
			res.Winners[0].Support, res.Winners[1].Support)
	}

	// Each voter's edge weights sum exactly to its stake.
	stakes := map[string]uint64{"v1": 10, "v2": 20, "v3": 30}
	for _, a := range res.Assignments {
		var sum uint64
		for _, e := range a.Edges {
			sum += e.Weight
		}
		if sum != stakes[a.Who] {
			t.Errorf("voter %s distributes %d, stake is %d", a.Who, sum, stakes[a.Who])
		}
	}
}

func TestSolveFewerCandidatesThanSeats(t *testing.T) {
	res, err := Solve(5, []string{"A", "B"}, []Voter{
		{Who: "v1", Stake: 10, Approvals: []string{"A"}},
		{Who: "v2", Stake: 10, Approvals: []string{"B"}},
	})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if len(res.Winners) != 2 {
		t.Errorf("expected both candidates elected, got %d", len(res.Winners))
	}
}

func TestSolveIgnoresUnelectableInput(t *testing.T) {
	res, err := Solve(3, []string{"A", "B"}, []Voter{
		{Who: "v1", Stake: 0, Approvals: []string{"A"}},       // zero stake
		{Who: "v2", Stake: 10, Approvals: []string{"Z", "A"}}, // unknown approval
		{Who: "v3", Stake: 10, Approvals: nil},                // empty ballot
	})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	// Only A has backing; B is unapproved and can never win.
	if len(res.Winners) != 1 || res.Winners[0].Who != "A" {
		t.Fatalf("winners: got %v, want [A]", res.Winners)
	}
	if res.Winners[0].Support != 10 {
		t.Errorf("support: got %d, want 10", res.Winners[0].Support)
	}
}

func TestSolveDeterministicTieBreak(t *testing.T) {
	for i := 0; i < 5; i++ {
		res, err := Solve(1, []string{"B", "A"}, []Voter{
			{Who: "v1", Stake: 10, Approvals: []string{"A", "B"}},
		})
		if err != nil {
			t.Fatalf("Solve failed: %v", err)
		}
		if res.Winners[0].Who != "A" {
			t.Fatalf("tie must break to smaller ID, got %q", res.Winners[0].Who)
		}
	}
}

func TestSolveRejectsBadInput(t *testing.T) {
	if _, err := Solve(0, []string{"A"}, nil); err == nil {
		t.Error("expected error for zero seats")
	}
	if _, err := Solve(1, nil, nil); err == nil {
		t.Error("expected error for no candidates")
	}
	if _, err := Solve(1, []string{"A", "A"}, nil); err == nil {
		t.Error("expected error for duplicate candidate")
	}
}
