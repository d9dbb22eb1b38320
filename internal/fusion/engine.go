// Package fusion orchestrates one end-to-end fusion run: collect raw
// signals, resolve them into candidates, score openness, filter by
// threshold and persist the surviving candidate/signal graph.
package fusion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/signal-fusion/internal/ai"
	"github.com/spigell/signal-fusion/internal/signal"
	"github.com/spigell/signal-fusion/internal/storage"
	"go.uber.org/zap"
)

// Collector supplies the collected, already-deduplicated signal stream for
// one run. The production implementation is collectors.Aggregator, whose
// URL dedup keeps one signal per URL-identified candidate; email-only
// signals are the ones the resolver can still fuse into multi-signal
// candidates.
type Collector interface {
	CollectAll(ctx context.Context, industry, roleLevel string, limit int) []signal.RawSignal
}

const (
	defaultMinScore = 70.0
	defaultLimit    = 50
)

var timeNow = func() time.Time { return time.Now().UTC() }

// Config carries the engine defaults. They are resolved per request at call
// time, never at process start.
type Config struct {
	// MinScore is the openness threshold applied when a request does not
	// override it.
	MinScore float64
	// Limit caps how many candidates a run returns when the request leaves
	// it unset.
	Limit int
}

// Request describes one fusion run.
type Request struct {
	Industry  string
	RoleLevel string
	// MinScore overrides the configured threshold when non-nil.
	MinScore *float64
	Limit    int
}

// CandidateSummary is the caller-facing result for one stored candidate.
// Reasoning comes from this run's scoring, not from stored data.
type CandidateSummary struct {
	CandidateID   string  `json:"candidate_id"`
	Name          string  `json:"name"`
	Title         string  `json:"title"`
	Company       string  `json:"company"`
	OpennessScore float64 `json:"openness_score"`
	Reasoning     string  `json:"reasoning"`
}

// Engine sequences the fusion pipeline. All steps run synchronously within
// one call; persistence is a single unit of work committed at the end, so a
// failed run leaves no partial state behind.
type Engine struct {
	collector Collector
	scorer    ai.Scorer
	store     storage.Store
	cfg       Config
	logger    *zap.Logger
}

func New(collector Collector, scorer ai.Scorer, store storage.Store, cfg Config, logger *zap.Logger) *Engine {
	if cfg.MinScore <= 0 {
		cfg.MinScore = defaultMinScore
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		collector: collector,
		scorer:    scorer,
		store:     store,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run executes one fusion run. Step order is fixed: collect twice the limit,
// resolve, batch-score, filter by threshold, then create-or-update each
// surviving candidate and append its signal rows inside one transaction.
func (e *Engine) Run(ctx context.Context, req Request) ([]CandidateSummary, error) {
	minScore := e.cfg.MinScore
	if req.MinScore != nil {
		minScore = *req.MinScore
	}
	limit := req.Limit
	if limit <= 0 {
		limit = e.cfg.Limit
	}

	e.logger.Info("collecting signals",
		zap.String("industry", req.Industry),
		zap.String("role_level", req.RoleLevel),
	)
	raw := e.collector.CollectAll(ctx, req.Industry, req.RoleLevel, limit*2)

	grouped := signal.Resolve(raw)
	e.logger.Info("resolved candidates",
		zap.Int("raw_signals", len(raw)),
		zap.Int("candidates", len(grouped)),
	)

	scored := e.scorer.BatchScore(ctx, grouped)

	surviving := make([]ai.ScoredCandidate, 0, len(scored))
	for _, item := range scored {
		if item.Scoring.OpennessScore >= minScore {
			surviving = append(surviving, item)
		}
	}
	e.logger.Info("scored candidates",
		zap.Int("scored", len(scored)),
		zap.Int("above_threshold", len(surviving)),
		zap.Float64("min_score", minScore),
	)

	summaries, err := e.persist(ctx, surviving)
	if err != nil {
		return nil, err
	}

	e.logger.Info("fusion run finished", zap.Int("stored", len(summaries)))
	return summaries, nil
}

// persist writes all surviving candidates and their signals in one unit of
// work with a single commit at the end.
func (e *Engine) persist(ctx context.Context, scored []ai.ScoredCandidate) ([]CandidateSummary, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin fusion transaction: %w", err)
	}
	defer tx.Rollback()

	summaries := make([]CandidateSummary, 0, len(scored))
	for _, item := range scored {
		candidate, err := e.createOrUpdate(ctx, tx, item.Candidate.Profile, item.Scoring)
		if err != nil {
			return nil, err
		}

		for _, sig := range item.Candidate.Signals {
			err := tx.AddSignal(ctx, &storage.Signal{
				CandidateID: candidate.ID,
				Source:      sig.Source,
				SignalType:  sig.SignalType,
				Content:     sig.Content,
				SignalData:  sig.SignalData,
				Confidence:  0.5,
			})
			if err != nil {
				return nil, err
			}
		}

		summaries = append(summaries, CandidateSummary{
			CandidateID:   candidate.ID,
			Name:          strings.TrimSpace(candidate.FirstName + " " + candidate.LastName),
			Title:         candidate.CurrentTitle,
			Company:       candidate.CurrentCompany,
			OpennessScore: candidate.OpennessScore,
			Reasoning:     item.Scoring.Reasoning,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit fusion transaction: %w", err)
	}

	return summaries, nil
}

// createOrUpdate looks a candidate up by LinkedIn URL, then email. Without
// either hint it falls back to a fresh insert, accepting that separate runs
// can create duplicates for such candidates.
func (e *Engine) createOrUpdate(ctx context.Context, tx storage.Tx, profile signal.Profile, scoring ai.ScoringResult) (*storage.Candidate, error) {
	var existing *storage.Candidate
	var err error

	switch {
	case profile.LinkedInURL != "":
		existing, err = tx.FindCandidateByLinkedIn(ctx, profile.LinkedInURL)
	case profile.Email != "":
		existing, err = tx.FindCandidateByEmail(ctx, profile.Email)
	}
	if err != nil {
		return nil, err
	}

	now := timeNow()

	if existing != nil {
		// Score and its timestamp are always overwritten. Title and
		// company follow non-empty-wins so a sparse sighting never erases
		// a known field.
		existing.OpennessScore = scoring.OpennessScore
		existing.LastScoreUpdate = now
		if profile.CurrentTitle != "" {
			existing.CurrentTitle = profile.CurrentTitle
		}
		if profile.CurrentCompany != "" {
			existing.CurrentCompany = profile.CurrentCompany
		}

		if err := tx.UpdateCandidate(ctx, existing); err != nil {
			return nil, err
		}

		e.logger.Debug("updated candidate",
			zap.String("candidate_id", existing.ID),
			zap.Float64("openness_score", existing.OpennessScore),
			zap.String("scoring_status", string(scoring.Status)),
		)
		return existing, nil
	}

	candidate := &storage.Candidate{
		FirstName:       profile.FirstName,
		LastName:        profile.LastName,
		Email:           profile.Email,
		LinkedInURL:     profile.LinkedInURL,
		CurrentTitle:    profile.CurrentTitle,
		CurrentCompany:  profile.CurrentCompany,
		Location:        profile.Location,
		OpennessScore:   scoring.OpennessScore,
		LastScoreUpdate: now,
	}

	if err := tx.CreateCandidate(ctx, candidate); err != nil {
		return nil, err
	}

	e.logger.Debug("created candidate",
		zap.String("candidate_id", candidate.ID),
		zap.Float64("openness_score", candidate.OpennessScore),
		zap.String("scoring_status", string(scoring.Status)),
	)
	return candidate, nil
}
