package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultAddr      = "127.0.0.1:8090"
	defaultLeaseTTL  = 10 * time.Second
	defaultLeaseName = "tally-solver"
)

type Config struct {
	DBPath    string
	Addr      string
	NodeID    string
	RedisAddr  string
	ArchiveDir string
	LeaseTTL   time.Duration
	LeaseName  string
}

func LoadConfig(args []string) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	defaultDBPath := filepath.Join(cwd, "tally.db")

	dbPath := envOrDefault("TALLY_DB_PATH", defaultDBPath)
	addr := addrFromEnv(defaultAddr)
	nodeID := envOrDefault("TALLY_NODE_ID", "")
	redisAddr := os.Getenv("TALLY_REDIS_ADDR")
	archiveDir := os.Getenv("TALLY_ARCHIVE_DIR")
	leaseName := envOrDefault("TALLY_LEASE_NAME", defaultLeaseName)
	leaseTTL := defaultLeaseTTL
	if ttlEnv := os.Getenv("TALLY_LEASE_TTL"); ttlEnv != "" {
		parsed, err := time.ParseDuration(ttlEnv)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TALLY_LEASE_TTL: %w", err)
		}
		if parsed <= 0 {
			return Config{}, errors.New("TALLY_LEASE_TTL must be positive")
		}
		leaseTTL = parsed
	}

	flagSet := flag.NewFlagSet("tally-d", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagDB := flagSet.String("db", dbPath, "path to SQLite database")
	flagAddr := flagSet.String("addr", addr, "HTTP listen address")
	flagNodeID := flagSet.String("node-id", nodeID, "node identity for leader election")
	flagRedis := flagSet.String("redis", redisAddr, "Redis address for lease and result cache (optional)")
	flagArchive := flagSet.String("archive-dir", archiveDir, "directory for result snapshots (optional)")
	flagLeaseTTL := flagSet.String("lease-ttl", leaseTTL.String(), "leader lease TTL")
	flagLeaseName := flagSet.String("lease-name", leaseName, "leader lease name")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
			return Config{}, err
		}
		return Config{}, err
	}

	ttlParsed, err := time.ParseDuration(*flagLeaseTTL)
	if err != nil {
		return Config{}, fmt.Errorf("invalid lease TTL: %w", err)
	}
	if ttlParsed <= 0 {
		return Config{}, errors.New("lease TTL must be positive")
	}

	config := Config{
		DBPath:    resolvePath(*flagDB, cwd),
		Addr:      strings.TrimSpace(*flagAddr),
		NodeID:    strings.TrimSpace(*flagNodeID),
		RedisAddr: strings.TrimSpace(*flagRedis),
		LeaseTTL:  ttlParsed,
		LeaseName: strings.TrimSpace(*flagLeaseName),
	}

	if dir := strings.TrimSpace(*flagArchive); dir != "" {
		config.ArchiveDir = resolvePath(dir, cwd)
	}

	if config.Addr == "" {
		return Config{}, errors.New("addr cannot be empty")
	}
	if config.LeaseName == "" {
		return Config{}, errors.New("lease name cannot be empty")
	}
	if config.NodeID == "" {
		hostname, err := os.Hostname()
		if err != nil || hostname == "" {
			hostname = "tally"
		}
		config.NodeID = fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])
	}

	return config, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func addrFromEnv(fallback string) string {
	if value := os.Getenv("TALLY_ADDR"); value != "" {
		return value
	}
	if port := os.Getenv("TALLY_PORT"); port != "" {
		return fmt.Sprintf("127.0.0.1:%s", port)
	}
	return fallback
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}
