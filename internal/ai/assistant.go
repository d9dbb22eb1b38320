package ai

import (
	"context"

	"github.com/spigell/signal-fusion/internal/signal"
)

// Status reports which branch produced a ScoringResult, so callers and tests
// can tell an AI-derived score from the deterministic fallback.
type Status string

const (
	// StatusAI marks a result parsed from a model reply.
	StatusAI Status = "ai"
	// StatusFallback marks a result produced by the heuristic fallback.
	StatusFallback Status = "fallback"
)

// ScoringResult is the openness assessment for one candidate. It is always
// complete: either fully AI-derived or fully produced by the fallback.
type ScoringResult struct {
	// OpennessScore is on a 0-100 scale. An AI-reported value outside the
	// scale is passed through unclamped; the scorer logs it instead.
	OpennessScore float64
	// Confidence is on a 0-1 scale.
	Confidence float64
	Reasoning  string
	KeySignals []string
	Status     Status
	// Raw is the unparsed model reply, empty on the fallback path.
	Raw string
}

// ScoredCandidate pairs a grouped candidate with its scoring result.
type ScoredCandidate struct {
	Candidate signal.GroupedCandidate
	Scoring   ScoringResult
}

// Generator is the single blocking call into a language model backend.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Scorer assesses a candidate's openness to new opportunities.
type Scorer interface {
	Score(ctx context.Context, profile signal.Profile, signals []signal.RawSignal) ScoringResult
	BatchScore(ctx context.Context, grouped []signal.GroupedCandidate) []ScoredCandidate
}
