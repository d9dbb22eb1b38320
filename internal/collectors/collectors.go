// Package collectors gathers raw openness signals from per-source adapters
// and merges them into a single deduplicated stream for the fusion engine.
package collectors

import (
	"context"

	"github.com/spigell/signal-fusion/internal/signal"
	"go.uber.org/zap"
)

// Collector is a single signal source. Implementations own how data is
// obtained; the aggregator only requires that every returned signal carries
// an identity hint when one is known.
type Collector interface {
	Name() string
	Collect(ctx context.Context, industry, roleLevel string) ([]signal.RawSignal, error)
}

// Aggregator fans out across all configured collectors sequentially.
type Aggregator struct {
	collectors []Collector
	logger     *zap.Logger
}

func NewAggregator(logger *zap.Logger, collectors ...Collector) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{collectors: collectors, logger: logger}
}

// CollectAll concatenates signals from every source, deduplicates by profile
// URL first-seen-wins, and hard-truncates to limit in arrival order with no
// ranking. A failing collector contributes zero signals instead of aborting
// the collection step. Signals without a URL pass through untouched; the
// resolver decides whether they can be attributed.
func (a *Aggregator) CollectAll(ctx context.Context, industry, roleLevel string, limit int) []signal.RawSignal {
	var all []signal.RawSignal

	for _, c := range a.collectors {
		signals, err := c.Collect(ctx, industry, roleLevel)
		if err != nil {
			a.logger.Warn("collector failed, skipping source",
				zap.String("collector", c.Name()),
				zap.Error(err),
			)
			continue
		}

		a.logger.Debug("collected signals",
			zap.String("collector", c.Name()),
			zap.Int("count", len(signals)),
		)

		all = append(all, signals...)
	}

	seen := make(map[string]struct{})
	unique := make([]signal.RawSignal, 0, len(all))
	for _, s := range all {
		if limit > 0 && len(unique) >= limit {
			break
		}

		url := s.LinkedInURL
		if url == "" {
			url = s.ProfileURL
		}
		if url != "" {
			if _, ok := seen[url]; ok {
				continue
			}
			seen[url] = struct{}{}
		}

		unique = append(unique, s)
	}

	a.logger.Info("signal collection finished",
		zap.Int("raw", len(all)),
		zap.Int("unique", len(unique)),
	)

	return unique
}
