// Package export periodically writes a metrics snapshot to disk for
// external display tooling. The file layout is consumed as-is by the
// metrics CLI command: a timestamp, the assigned pattern per strip, and one
// object per strip keyed by metric name.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mushlight/internal/pipeline"
)

// Source is the exact accessor surface the exporter polls. Reads must be
// side-effect free at any rate.
type Source interface {
	Patterns() map[string]string
	Performance() map[string]map[string]pipeline.Stat
}

// Exporter writes one JSON snapshot per interval, atomically
// (temp file + rename) so readers never observe a partial document.
type Exporter struct {
	path     string
	interval time.Duration
	src      Source
	logger   *slog.Logger
}

// New builds an exporter. Path and a positive interval are required.
func New(path string, interval time.Duration, src Source, logger *slog.Logger) (*Exporter, error) {
	if path == "" {
		return nil, errors.New("export: path required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("export: interval must be positive, got %v", interval)
	}
	if src == nil {
		return nil, errors.New("export: source required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{path: path, interval: interval, src: src, logger: logger}, nil
}

// Run writes snapshots until the context is canceled. Write failures are
// logged and retried on the next tick; they never stop the exporter.
func (e *Exporter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.WriteOnce(); err != nil {
				e.logger.Error("metrics export failed", "err", err)
			}
		}
	}
}

// WriteOnce captures and persists a single snapshot.
func (e *Exporter) WriteOnce() error {
	doc := map[string]any{
		"timestamp": time.Now().Unix(),
		"patterns":  e.src.Patterns(),
	}
	for strip, stats := range e.src.Performance() {
		doc[strip] = stats
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshal snapshot: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return fmt.Errorf("export: ensure directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, e.path); err != nil {
		return fmt.Errorf("export: publish %s: %w", e.path, err)
	}
	return nil
}
