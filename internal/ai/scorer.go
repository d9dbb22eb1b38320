package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/signal-fusion/internal/signal"
	"github.com/spigell/signal-fusion/internal/utils"
	"go.uber.org/zap"
)

//go:embed prompt.md
var promptTemplate string

const (
	// signalExcerptLen bounds how much of a signal's content is quoted in
	// the prompt.
	signalExcerptLen = 200

	fallbackScorePerSignal = 15.0
	fallbackMaxScore       = 100.0
	fallbackConfidence     = 0.5
	fallbackKeySignals     = 3

	defaultMaxLogLength = 200
)

// OpennessScorer scores candidates with a language model and falls back to a
// signal-count heuristic whenever the model call fails or its reply cannot
// be parsed. Backend errors never propagate to the caller.
type OpennessScorer struct {
	generator Generator
	logger    *zap.Logger
	maxLogLen int
}

// NewOpennessScorer creates a scorer backed by the provided generator. A nil
// generator is allowed and sends every candidate down the fallback path.
func NewOpennessScorer(generator Generator, logger *zap.Logger, maxLogLength int) *OpennessScorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpennessScorer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Score assesses one candidate. The returned result is always usable: when
// the backend is unavailable or returns garbage, the deterministic fallback
// produces the result and marks it with StatusFallback.
func (s *OpennessScorer) Score(ctx context.Context, profile signal.Profile, signals []signal.RawSignal) ScoringResult {
	if s.generator == nil {
		return s.fallback(signals)
	}

	prompt := buildScoringPrompt(profile, signals)

	s.logger.Debug("scoring request",
		zap.String("candidate", profile.FullName()),
		zap.Int("signals", len(signals)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		s.logger.Warn("scoring backend failed, using fallback",
			zap.String("candidate", profile.FullName()),
			zap.Error(err),
		)
		return s.fallback(signals)
	}

	s.logger.Debug("scoring response",
		zap.String("candidate", profile.FullName()),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	result, err := parseScoringResponse(raw)
	if err != nil {
		s.logger.Warn("unparseable scoring response, using fallback",
			zap.String("candidate", profile.FullName()),
			zap.Error(err),
		)
		return s.fallback(signals)
	}

	if result.OpennessScore < 0 || result.OpennessScore > 100 {
		s.logger.Warn("model returned score outside 0-100 scale",
			zap.String("candidate", profile.FullName()),
			zap.Float64("openness_score", result.OpennessScore),
		)
	}

	return result
}

// BatchScore scores candidates independently. One candidate's backend
// failure never aborts the batch: Score already recovers via the fallback.
func (s *OpennessScorer) BatchScore(ctx context.Context, grouped []signal.GroupedCandidate) []ScoredCandidate {
	scored := make([]ScoredCandidate, 0, len(grouped))
	for _, candidate := range grouped {
		scored = append(scored, ScoredCandidate{
			Candidate: candidate,
			Scoring:   s.Score(ctx, candidate.Profile, candidate.Signals),
		})
	}
	return scored
}

func buildScoringPrompt(profile signal.Profile, signals []signal.RawSignal) string {
	candidate := fmt.Sprintf("Candidate: %s\nCurrent Role: %s\nCurrent Company: %s",
		profile.FullName(),
		orUnknown(profile.CurrentTitle),
		orUnknown(profile.CurrentCompany),
	)

	lines := make([]string, 0, len(signals))
	for _, sig := range signals {
		lines = append(lines, fmt.Sprintf("- %s: %s - %s",
			orUnknown(sig.Source),
			orUnknown(sig.SignalType),
			excerpt(sig.Content, signalExcerptLen),
		))
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{CANDIDATE}}", candidate)
	return strings.ReplaceAll(prompt, "{{SIGNALS}}", strings.Join(lines, "\n"))
}

// parseScoringResponse extracts the first well-formed JSON object from the
// reply, tolerating code fences and prose around it.
func parseScoringResponse(raw string) (ScoringResult, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return ScoringResult{}, fmt.Errorf("parse scoring response: %w", err)
	}

	score, err := coerceFloat(data["openness_score"])
	if err != nil {
		return ScoringResult{}, fmt.Errorf("openness_score: %w", err)
	}

	confidence, err := coerceFloat(data["confidence"])
	if err != nil {
		return ScoringResult{}, fmt.Errorf("confidence: %w", err)
	}

	return ScoringResult{
		OpennessScore: score,
		Confidence:    confidence,
		Reasoning:     coerceString(data["reasoning"]),
		KeySignals:    coerceStrings(data["key_signals"]),
		Status:        StatusAI,
		Raw:           raw,
	}, nil
}

func (s *OpennessScorer) fallback(signals []signal.RawSignal) ScoringResult {
	if len(signals) == 0 {
		return ScoringResult{
			OpennessScore: 0.0,
			Confidence:    0.0,
			Reasoning:     "No signals detected",
			KeySignals:    []string{},
			Status:        StatusFallback,
		}
	}

	score := fallbackScorePerSignal * float64(len(signals))
	if score > fallbackMaxScore {
		score = fallbackMaxScore
	}

	keySignals := make([]string, 0, fallbackKeySignals)
	for _, sig := range signals {
		if len(keySignals) == fallbackKeySignals {
			break
		}
		keySignals = append(keySignals, orUnknown(sig.SignalType))
	}

	return ScoringResult{
		OpennessScore: score,
		Confidence:    fallbackConfidence,
		Reasoning:     fmt.Sprintf("Fallback scoring based on %d signals", len(signals)),
		KeySignals:    keySignals,
		Status:        StatusFallback,
	}
}

// extractJSON strips code fences and surrounding prose, returning the first
// brace-balanced object found in the reply.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	start := strings.Index(raw, "{")
	if start == -1 {
		return raw
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}

	return raw[start:]
}

func coerceFloat(v any) (float64, error) {
	// encoding/json decodes every JSON number in a map[string]any as float64.
	switch val := v.(type) {
	case float64:
		return val, nil
	case string:
		trimmed := strings.TrimSpace(val)
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("missing or not a number: %v", v)
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	default:
		if v == nil {
			return ""
		}
		return fmt.Sprintf("%v", v)
	}
}

func coerceStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		if s := coerceString(item); s != "" {
			result = append(result, s)
		}
	}
	return result
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return strings.TrimSpace(s)
}

func excerpt(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit])
}
