package sim

// Scenario describes a synthetic electorate and how many rounds to run it.
type Scenario struct {
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description" yaml:"description"`
	Seed         int64  `json:"seed" yaml:"seed"` // Deterministic seed
	Rounds       int    `json:"rounds" yaml:"rounds"`
	Seats        int    `json:"seats" yaml:"seats"`
	Candidates   int    `json:"candidates" yaml:"candidates"`
	Voters       int    `json:"voters" yaml:"voters"`
	MaxApprovals int    `json:"max_approvals" yaml:"max_approvals"`
	MinStake     uint64 `json:"min_stake" yaml:"min_stake"`
	MaxStake     uint64 `json:"max_stake" yaml:"max_stake"`
}

// RoundStats captures one solve+reduce pass.
type RoundStats struct {
	Round        int      `json:"round"`
	Winners      []string `json:"winners"`
	TotalStake   uint64   `json:"total_stake"`
	EdgesBefore  int      `json:"edges_before"`
	EdgesAfter   int      `json:"edges_after"`
	EdgesRemoved int      `json:"edges_removed"`
}

type InvariantResult struct {
	Metric   string `json:"metric"`
	Scope    string `json:"scope"` // "global" or "round-N"
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
}

// SimulationResult captures the final state of the simulation for reporting.
type SimulationResult struct {
	ScenarioName string            `json:"scenario_name"`
	Seed         int64             `json:"seed"`
	RoundStats   []RoundStats      `json:"round_stats"`
	TotalEdges   int               `json:"total_edges"`
	TotalRemoved int               `json:"total_removed"`
	Invariants   []InvariantResult `json:"invariants"`
	Success      bool              `json:"success"`
}
