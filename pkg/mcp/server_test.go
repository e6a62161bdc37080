package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestMCPServer_ReadRounds(t *testing.T) {
	// 1. Mock API Server
	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/rounds" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"round_id": "r-1", "status": "solved", "seats": 2, "candidates": 3, "voters": 5}]`))
			return
		}
		http.NotFound(w, r)
	})
	ts := httptest.NewServer(apiHandler)
	defer ts.Close()

	// 2. Create MCP Server
	s := NewServer(ts.URL)

	// 3. Test Handler directly
	req := mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: "tally://rounds",
		},
	}

	result, err := s.handleReadRounds(context.Background(), req)
	if err != nil {
		t.Fatalf("handleReadRounds failed: %v", err)
	}

	if len(result) != 1 {
		t.Fatalf("Expected 1 resource content, got %d", len(result))
	}

	content, ok := result[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("Expected TextResourceContents")
	}

	if content.MIMEType != "application/json" {
		t.Errorf("Expected application/json, got %s", content.MIMEType)
	}

	var rounds []map[string]interface{}
	if err := json.Unmarshal([]byte(content.Text), &rounds); err != nil {
		t.Errorf("Failed to parse result JSON: %v", err)
	}
	if len(rounds) != 1 {
		t.Errorf("Expected 1 round item")
	}
}

func TestMCPServer_SolveRound(t *testing.T) {
	// 1. Mock API Server
	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/rounds/r-1/solve" && r.Method == http.MethodPost {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"round_id": "r-1", "winners": [{"who": "B", "support": 39}, {"who": "A", "support": 21}], "edges_before": 4, "edges_after": 3}`))
			return
		}
		http.NotFound(w, r)
	})
	ts := httptest.NewServer(apiHandler)
	defer ts.Close()

	// 2. Create MCP Server
	s := NewServer(ts.URL)

	// 3. Test Handler directly
	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "solve_round",
			Arguments: map[string]interface{}{
				"round_id": "r-1",
			},
		},
	}

	result, err := s.handleSolveRound(context.Background(), req)
	if err != nil {
		t.Fatalf("handleSolveRound failed: %v", err)
	}

	if result.IsError {
		t.Errorf("Expected success, got error")
	}

	if len(result.Content) == 0 {
		t.Fatalf("Expected content in result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected TextContent")
	}
	if !strings.Contains(text.Text, "B (support: 39)") {
		t.Errorf("Expected winner line in output, got %q", text.Text)
	}
	if !strings.Contains(text.Text, "4 before reduction, 3 after") {
		t.Errorf("Expected edge summary in output, got %q", text.Text)
	}
}

func TestMCPServer_SolveRound_MissingID(t *testing.T) {
	s := NewServer("http://127.0.0.1:0")

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "solve_round",
			Arguments: map[string]interface{}{},
		},
	}

	result, err := s.handleSolveRound(context.Background(), req)
	if err != nil {
		t.Fatalf("handleSolveRound failed: %v", err)
	}
	if !result.IsError {
		t.Error("Expected error result for missing round_id")
	}
}
