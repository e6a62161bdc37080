package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/open-tally/tally/pkg/mcp"
)

func main() {
	apiURL := flag.String("api", envOrDefault("TALLY_URL", "http://127.0.0.1:8090"), "Base URL of tally-d API")
	flag.Parse()

	s := mcp.NewServer(*apiURL)
	if err := s.Serve(); err != nil {
		slog.Error("mcp server exited", "error", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
