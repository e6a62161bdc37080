package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/open-tally/tally/pkg/sim"
)

func main() {
	var (
		scenarioFile string
		seed         int64
		rounds       int
		jsonOutput   bool
		outputFile   string
	)

	flag.StringVar(&scenarioFile, "scenario", "", "Path to scenario JSON file")
	flag.Int64Var(&seed, "seed", 0, "Deterministic seed (0 = random)")
	flag.IntVar(&rounds, "rounds", 0, "Number of rounds (overrides scenario)")
	flag.BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	flag.StringVar(&outputFile, "out", "", "Write output to file instead of stdout")
	flag.Parse()

	var scenario sim.Scenario

	if scenarioFile != "" {
		data, err := os.ReadFile(scenarioFile)
		if err != nil {
			log.Fatalf("Failed to read scenario file: %v", err)
		}
		if err := json.Unmarshal(data, &scenario); err != nil {
			log.Fatalf("Failed to parse scenario file: %v", err)
		}
	} else {
		// Default Scenario
		fmt.Fprintln(os.Stderr, "No scenario file provided, running default demo scenario...")
		scenario = sim.Scenario{
			Name:        "Default Demo",
			Description: "Random electorate, solve and reduce",
			Rounds:      5,
			Seats:       4,
			Candidates:  10,
			Voters:      50,
		}
	}

	if seed != 0 {
		scenario.Seed = seed
	}
	if rounds > 0 {
		scenario.Rounds = rounds
	}

	result := sim.RunScenario(scenario)

	writeReport(result, jsonOutput, outputFile)

	if !result.Success {
		os.Exit(1)
	}
}

func writeReport(res sim.SimulationResult, jsonFmt bool, filePath string) {
	var output []byte
	var err error

	if jsonFmt {
		output, err = json.MarshalIndent(res, "", "  ")
	} else {
		var buf bytes.Buffer
		buf.WriteString(fmt.Sprintf("\n--- Simulation Report: %s (seed %d) ---\n", res.ScenarioName, res.Seed))
		for _, rs := range res.RoundStats {
			buf.WriteString(fmt.Sprintf("Round %d: winners [%s] | stake %d | edges %d -> %d (removed %d)\n",
				rs.Round, strings.Join(rs.Winners, ", "), rs.TotalStake,
				rs.EdgesBefore, rs.EdgesAfter, rs.EdgesRemoved))
		}
		buf.WriteString(fmt.Sprintf("Total: %d edges kept, %d removed\n", res.TotalEdges, res.TotalRemoved))

		if len(res.Invariants) > 0 {
			buf.WriteString("\nInvariants:\n")
			for _, inv := range res.Invariants {
				if inv.Passed {
					continue
				}
				buf.WriteString(fmt.Sprintf("[FAIL] %s (%s): Expected %s, Got %s\n", inv.Metric, inv.Scope, inv.Expected, inv.Actual))
			}
			if res.Success {
				buf.WriteString(fmt.Sprintf("All %d checks passed\n", len(res.Invariants)))
			}
		}
		output = buf.Bytes()
	}

	if err != nil {
		log.Fatalf("Failed to marshal report: %v", err)
	}

	if filePath != "" {
		if err := os.WriteFile(filePath, output, 0644); err != nil {
			log.Fatalf("Failed to write report to %s: %v", filePath, err)
		}
		fmt.Printf("Report written to %s\n", filePath)
	} else {
		fmt.Println(string(output))
	}
}
