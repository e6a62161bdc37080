package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/open-tally/tally/pkg/api"
	"github.com/open-tally/tally/pkg/client"
	"github.com/open-tally/tally/pkg/store"
)

var (
	Version   = "v1.0.0"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func usage() {
	fmt.Println("Usage: tally round create <ballots.json>")
	fmt.Println("       tally round solve <round-id>")
	fmt.Println("       tally round result <round-id>")
	os.Exit(1)
}

func endpoint() string {
	if url := os.Getenv("TALLY_URL"); url != "" {
		return url
	}
	return "http://127.0.0.1:8090"
}

func main() {
	if len(os.Args) < 4 || os.Args[1] != "round" {
		usage()
	}

	c := client.NewClient(endpoint())
	ctx := context.Background()

	switch os.Args[2] {
	case "create":
		createRound(ctx, c, os.Args[3])
	case "solve":
		solveRound(ctx, c, os.Args[3])
	case "result":
		showResult(ctx, c, os.Args[3])
	default:
		usage()
	}
}

func createRound(ctx context.Context, c *client.Client, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading ballots file: %v\n", err)
		os.Exit(1)
	}

	var req api.CreateRoundRequest
	if err := json.Unmarshal(data, &req); err != nil {
		fmt.Printf("Error parsing ballots file: %v\n", err)
		os.Exit(1)
	}

	resp, err := c.CreateRound(ctx, req)
	if err != nil {
		fmt.Printf("Error contacting daemon: %v\n", err)
		fmt.Println("Is tally-d running?")
		os.Exit(1)
	}

	fmt.Printf("Round Created: %s (status: %s)\n", resp.RoundID, resp.Status)
}

func solveRound(ctx context.Context, c *client.Client, roundID string) {
	result, err := c.Solve(ctx, roundID)
	if err != nil {
		fmt.Printf("Error solving round: %v\n", err)
		os.Exit(1)
	}
	printResult(result)
}

func showResult(ctx context.Context, c *client.Client, roundID string) {
	result, err := c.Result(ctx, roundID)
	if err != nil {
		fmt.Printf("Error fetching result: %v\n", err)
		os.Exit(1)
	}
	printResult(result)
}

func printResult(result *store.RoundResult) {
	fmt.Printf("Round %s\n", result.RoundID)
	fmt.Printf("Winners (%d):\n", len(result.Winners))
	for _, w := range result.Winners {
		fmt.Printf("  %s  support=%d\n", w.Who, w.Support)
	}
	fmt.Printf("Support edges: %d before reduction, %d after\n", result.EdgesBefore, result.EdgesAfter)
}
