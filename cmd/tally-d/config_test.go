package main

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_LeaseTTLValidation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		envVars     map[string]string
		expectError bool
		errorSubstr string
	}{
		{
			name:        "valid lease TTL from flag",
			args:        []string{"-lease-ttl", "5s"},
			expectError: false,
		},
		{
			name:        "zero lease TTL from flag",
			args:        []string{"-lease-ttl", "0s"},
			expectError: true,
			errorSubstr: "lease TTL must be positive",
		},
		{
			name:        "negative lease TTL from flag",
			args:        []string{"-lease-ttl", "-5s"},
			expectError: true,
			errorSubstr: "lease TTL must be positive",
		},
		{
			name:        "valid lease TTL from env",
			envVars:     map[string]string{"TALLY_LEASE_TTL": "5s"},
			expectError: false,
		},
		{
			name:        "zero lease TTL from env",
			envVars:     map[string]string{"TALLY_LEASE_TTL": "0s"},
			expectError: true,
			errorSubstr: "TALLY_LEASE_TTL must be positive",
		},
		{
			name:        "invalid lease TTL format from flag",
			args:        []string{"-lease-ttl", "invalid"},
			expectError: true,
			errorSubstr: "invalid lease TTL",
		},
		{
			name:        "invalid lease TTL format from env",
			envVars:     map[string]string{"TALLY_LEASE_TTL": "invalid"},
			expectError: true,
			errorSubstr: "invalid TALLY_LEASE_TTL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				os.Setenv(k, v)
				defer os.Unsetenv(k)
			}

			cfg, err := LoadConfig(tt.args)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.errorSubstr)
				} else if !strings.Contains(err.Error(), tt.errorSubstr) {
					t.Errorf("expected error containing %q, got %q", tt.errorSubstr, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				} else if cfg.LeaseTTL <= 0 {
					t.Errorf("expected positive lease TTL, got %v", cfg.LeaseTTL)
				}
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig([]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LeaseTTL != 10*time.Second {
		t.Errorf("expected default lease TTL of 10s, got %v", cfg.LeaseTTL)
	}
	if cfg.Addr != "127.0.0.1:8090" {
		t.Errorf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.LeaseName != "tally-solver" {
		t.Errorf("expected default lease name, got %q", cfg.LeaseName)
	}
	if cfg.NodeID == "" {
		t.Error("expected generated node ID")
	}
	if !strings.HasSuffix(cfg.DBPath, "tally.db") {
		t.Errorf("expected default db path ending in tally.db, got %q", cfg.DBPath)
	}
}

func TestLoadConfig_PortEnv(t *testing.T) {
	os.Setenv("TALLY_PORT", "9999")
	defer os.Unsetenv("TALLY_PORT")

	cfg, err := LoadConfig([]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9999" {
		t.Errorf("expected addr from TALLY_PORT, got %q", cfg.Addr)
	}
}
