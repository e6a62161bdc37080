// Package mcp adapts the tally daemon to the Model Context Protocol so
// agents can submit ballots and inspect election outcomes.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/open-tally/tally/pkg/api"
	"github.com/open-tally/tally/pkg/client"
	"github.com/open-tally/tally/pkg/election"
)

// Server adapts tally-d to the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	apiClient *client.Client
}

// NewServer creates a new MCP server backed by the daemon at apiURL.
func NewServer(apiURL string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"tally",
			"1.0.0",
		),
		apiClient: client.NewClient(apiURL),
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	// tally://rounds
	s.mcpServer.AddResource(mcp.NewResource(
		"tally://rounds",
		"Election Rounds",
		mcp.WithResourceDescription("Recent election rounds and their lifecycle status"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadRounds)

	// tally://events
	s.mcpServer.AddResource(mcp.NewResource(
		"tally://events",
		"Round Lifecycle Events",
		mcp.WithResourceDescription("Recent round lifecycle events (created, solved, failed)"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadEvents)
}

// --- Tools ---

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"create_round",
		mcp.WithDescription("Submit ballots for a new election round. Returns the round ID."),
		mcp.WithNumber("seats", mcp.Required(), mcp.Description("Number of seats to fill")),
		mcp.WithString("candidates", mcp.Required(), mcp.Description("JSON array of candidate IDs")),
		mcp.WithString("voters", mcp.Required(), mcp.Description(`JSON array of voters: [{"who":"v1","stake":10,"approvals":["A"]}]`)),
	), s.handleCreateRound)

	s.mcpServer.AddTool(mcp.NewTool(
		"solve_round",
		mcp.WithDescription("Run the election for a round: sequential Phragmén solve plus support-graph reduction."),
		mcp.WithString("round_id", mcp.Required(), mcp.Description("The round to solve")),
	), s.handleSolveRound)

	s.mcpServer.AddTool(mcp.NewTool(
		"get_result",
		mcp.WithDescription("Fetch the winners and reduced support edges of a solved round."),
		mcp.WithString("round_id", mcp.Required(), mcp.Description("The round to inspect")),
	), s.handleGetResult)
}

// --- Prompts ---

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		"tally-aware",
		mcp.WithPromptDescription("Provides context about tally concepts (Rounds, Ballots, Supports)"),
	), s.handleGetPrompt)
}

// --- Handlers ---

func (s *Server) handleReadRounds(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	rounds, err := s.apiClient.ListRounds(ctx, 50)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rounds: %w", err)
	}

	data, err := json.MarshalIndent(rounds, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rounds: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleReadEvents(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	events, err := s.apiClient.Events(ctx, 50)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal events: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleCreateRound(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seats := int(mcp.ParseFloat64(request, "seats", 0))
	candidatesJSON := mcp.ParseString(request, "candidates", "[]")
	votersJSON := mcp.ParseString(request, "voters", "[]")

	var candidates []string
	if err := json.Unmarshal([]byte(candidatesJSON), &candidates); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid candidates: %v", err)), nil
	}
	var voters []election.Voter
	if err := json.Unmarshal([]byte(votersJSON), &voters); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid voters: %v", err)), nil
	}

	resp, err := s.apiClient.CreateRound(ctx, api.CreateRoundRequest{
		Seats:      seats,
		Candidates: candidates,
		Voters:     voters,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Round created: %s (status: %s)", resp.RoundID, resp.Status)), nil
}

func (s *Server) handleSolveRound(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roundID := mcp.ParseString(request, "round_id", "")
	if roundID == "" {
		return mcp.NewToolResultError("round_id is required"), nil
	}

	result, err := s.apiClient.Solve(ctx, roundID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	return mcp.NewToolResultText(formatResult(result.Winners, result.EdgesBefore, result.EdgesAfter)), nil
}

func (s *Server) handleGetResult(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roundID := mcp.ParseString(request, "round_id", "")
	if roundID == "" {
		return mcp.NewToolResultError("round_id is required"), nil
	}

	result, err := s.apiClient.Result(ctx, roundID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	return mcp.NewToolResultText(formatResult(result.Winners, result.EdgesBefore, result.EdgesAfter)), nil
}

func formatResult(winners []election.Winner, before, after int) string {
	msg := fmt.Sprintf("Winners (%d):\n", len(winners))
	for _, w := range winners {
		msg += fmt.Sprintf("  %s (support: %d)\n", w.Who, w.Support)
	}
	msg += fmt.Sprintf("Support edges: %d before reduction, %d after", before, after)
	return msg
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != "tally-aware" {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You are interacting with tally, an approval-based election engine.

Concepts:
- Round: One election: a seat count, candidates, and voter ballots.
- Voter: Casts a stake-weighted approval ballot over candidates.
- Winner: A candidate elected by the sequential Phragmén method.
- Support edge: Stake flowing from one voter to one winner.
- Reduction: Cycles in the support graph are collapsed, so results carry
  a minimal edge set with identical totals.

Use 'create_round' to submit ballots, 'solve_round' to run the election,
and 'get_result' to inspect a solved round.
`

	return mcp.NewGetPromptResult(
		"tally-aware",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}
