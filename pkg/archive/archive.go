// Package archive persists round result snapshots as JSON files on disk,
// one file per round, for offline inspection and recovery.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/open-tally/tally/pkg/store"
)

// LocalArchive writes result snapshots under a root directory.
type LocalArchive struct {
	rootPath string
}

// NewLocalArchive creates a LocalArchive rooted at the given directory.
func NewLocalArchive(rootPath string) *LocalArchive {
	return &LocalArchive{rootPath: rootPath}
}

func (a *LocalArchive) path(roundID string) string {
	return filepath.Join(a.rootPath, "rounds", roundID+".json")
}

// Put archives a round result. Failures are logged, not returned, so a broken
// disk never fails a solve that already committed to the primary store.
func (a *LocalArchive) Put(ctx context.Context, result *store.RoundResult) {
	if result == nil {
		return
	}
	if err := a.write(result); err != nil {
		slog.Error("failed to archive result", "error", err, "roundID", result.RoundID)
		return
	}
	slog.Debug("result archived", "roundID", result.RoundID)
}

// write lands the snapshot with a temp file and rename so readers never see
// a partially written file.
func (a *LocalArchive) write(result *store.RoundResult) error {
	fullPath := a.path(result.RoundID)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "temp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tempFile.Close()

	if _, err := tempFile.Write(data); err != nil {
		os.Remove(tempFile.Name())
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		os.Remove(tempFile.Name())
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		os.Remove(tempFile.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempFile.Name(), fullPath); err != nil {
		os.Remove(tempFile.Name())
		return fmt.Errorf("failed to rename temp file to %s: %w", fullPath, err)
	}

	return nil
}

// Read loads an archived result snapshot.
func (a *LocalArchive) Read(ctx context.Context, roundID string) (*store.RoundResult, error) {
	data, err := os.ReadFile(a.path(roundID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no archived result for round %s", roundID)
		}
		return nil, fmt.Errorf("failed to read archive for round %s: %w", roundID, err)
	}

	var result store.RoundResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse archive for round %s: %w", roundID, err)
	}
	return &result, nil
}

// List returns the archived round IDs in lexical order.
func (a *LocalArchive) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(a.rootPath, "rounds"))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes an archived snapshot.
func (a *LocalArchive) Delete(ctx context.Context, roundID string) error {
	if err := os.Remove(a.path(roundID)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no archived result for round %s", roundID)
		}
		return fmt.Errorf("failed to delete archive for round %s: %w", roundID, err)
	}
	return nil
}
