package api

import (
	"time"

	"github.com/open-tally/tally/pkg/election"
	"github.com/open-tally/tally/pkg/store"
)

// CreateRoundRequest is the body of POST /v1/rounds.
type CreateRoundRequest struct {
	RoundID    string           `json:"round_id,omitempty"`
	Seats      int              `json:"seats"`
	Candidates []string         `json:"candidates"`
	Voters     []election.Voter `json:"voters"`
}

// CreateRoundResponse confirms a created round.
type CreateRoundResponse struct {
	RoundID   string    `json:"round_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// RoundSummary is one entry of GET /v1/rounds.
type RoundSummary struct {
	RoundID    string    `json:"round_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	Seats      int       `json:"seats"`
	Candidates int       `json:"candidates"`
	Voters     int       `json:"voters"`
}

func summarize(r *store.Round) RoundSummary {
	return RoundSummary{
		RoundID:    r.RoundID,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt,
		Seats:      r.Ballots.Seats,
		Candidates: len(r.Ballots.Candidates),
		Voters:     len(r.Ballots.Voters),
	}
}
