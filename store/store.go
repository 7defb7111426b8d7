package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/veildex/match-engine/engine"
)

// Store writes round artifacts to a flat directory. The path is a pure
// function of the round id, which is the deterministic pointer the relayer
// consumes; nothing is ever read back here and no round outlives its file.
type Store struct {
	dir    string
	logger *zap.Logger
}

func New(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		logger: logger.With(zap.String("module", "store")),
	}, nil
}

// SaveResult writes the round result and returns its pointer.
func (s *Store) SaveResult(res *engine.RoundResult) (string, error) {
	return s.write(roundFileName(res.RoundID, "json"), res)
}

// SaveError writes the fixed-shape error artifact for a failed round.
func (s *Store) SaveError(art *engine.ErrorArtifact) (string, error) {
	return s.write(roundFileName(art.RoundID, "error.json"), art)
}

func (s *Store) write(name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal artifact: %w", err)
	}

	path, err := filepath.Abs(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve artifact path: %w", err)
	}

	// Temp-file + rename so the relayer never observes a torn artifact.
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move artifact into place: %w", err)
	}

	s.logger.Debug("artifact written", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}

func roundFileName(roundID, ext string) string {
	id := strings.ToLower(strings.TrimPrefix(roundID, "0x"))
	if id == "" {
		id = "unknown"
	}
	return fmt.Sprintf("round-%s.%s", id, ext)
}
