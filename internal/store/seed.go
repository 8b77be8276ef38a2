// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/civicqa/internal/logging"
)

// SeedFile is the YAML layout accepted by Seed.
type SeedFile struct {
	Records []Record `yaml:"records"`
}

// SeedSummary holds counts from a seed run.
type SeedSummary struct {
	Loaded int
	Failed int
}

// Total returns the number of records processed.
func (s SeedSummary) Total() int {
	return s.Loaded + s.Failed
}

// Seed loads records from a YAML fixture file into the store. Invalid
// records are logged and counted; they do not abort the run.
func (s *Store) Seed(ctx context.Context, path string, logger *log.Logger) (SeedSummary, error) {
	logger = logging.OrDiscard(logger)

	data, err := os.ReadFile(path)
	if err != nil {
		return SeedSummary{}, fmt.Errorf("reading seed file %s: %w", path, err)
	}
	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return SeedSummary{}, fmt.Errorf("parsing seed file %s: %w", path, err)
	}

	var summary SeedSummary
	for _, r := range file.Records {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		if err := s.Upsert(ctx, r); err != nil {
			logger.Warn("skipping record", "key", r.Key, "err", err)
			summary.Failed++
			continue
		}
		summary.Loaded++
	}

	logger.Info("seed complete", "file", path, "loaded", summary.Loaded, "failed", summary.Failed)
	return summary, nil
}
