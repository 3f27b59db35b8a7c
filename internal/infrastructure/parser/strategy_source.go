package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trendcreate/internal/config"
	"trendcreate/internal/domain"
	"trendcreate/internal/ports"
	"trendcreate/internal/scanner"
)

// StrategySource implements ports.Source via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
	now      func() time.Time
}

var _ ports.Source = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	if log == nil {
		log = slog.Default()
	}
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   log,
		now:      time.Now,
	}
}

// Collect iterates over configured sources and executes their scanners. A
// batch is always tagged with the first source's name; multi-source runs keep
// per-item Source fields intact.
func (s *StrategySource) Collect(ctx context.Context) (domain.Batch, error) {
	if s.registry == nil {
		return domain.Batch{}, fmt.Errorf("scanner registry is not configured")
	}

	batch := domain.Batch{CollectedAt: s.now()}
	for _, src := range s.sources {
		strategy, err := s.registry.Resolve(src.Scanner)
		if err != nil {
			return domain.Batch{}, fmt.Errorf("source %s: %w", src.Name, err)
		}

		req := scanner.Request{
			SourceName: src.Name,
			URL:        src.URL,
			Section:    src.Section,
			Options:    src.Options,
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			return domain.Batch{}, fmt.Errorf("scan source %s: %w", src.Name, err)
		}

		for i := range results {
			if results[i].Source == "" {
				results[i].Source = src.Name
			}
		}

		s.logger.Debug("source produced candidates", "source", src.Name, "count", len(results))
		if batch.Source == "" {
			batch.Source = src.Name
		}
		batch.Items = append(batch.Items, results...)
	}

	return batch, nil
}
