package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spigell/signal-fusion/internal/signal"
	"go.uber.org/zap"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
	calls      int
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string { return "stub-model" }

func testProfile() signal.Profile {
	return signal.Profile{
		FirstName:      "Jane",
		LastName:       "Doe",
		CurrentTitle:   "VP Engineering",
		CurrentCompany: "TechCorp",
	}
}

func testSignals(n int) []signal.RawSignal {
	signals := make([]signal.RawSignal, 0, n)
	types := []string{"job_change_network", "podcast_appearance", "article", "speaking"}
	for i := 0; i < n; i++ {
		signals = append(signals, signal.RawSignal{
			Source:     "linkedin",
			SignalType: types[i%len(types)],
			Content:    "some observed activity",
		})
	}
	return signals
}

func TestScoreParsesModelReply(t *testing.T) {
	stub := &stubGenerator{response: `{"openness_score": 82, "confidence": 0.7, "reasoning": "Multiple strong signals", "key_signals": ["job_change_network", "speaking"]}`}
	scorer := NewOpennessScorer(stub, zap.NewNop(), 0)

	result := scorer.Score(context.Background(), testProfile(), testSignals(2))

	if result.Status != StatusAI {
		t.Fatalf("expected ai status, got %s", result.Status)
	}
	if result.OpennessScore != 82 {
		t.Fatalf("expected score 82, got %v", result.OpennessScore)
	}
	if result.Confidence != 0.7 {
		t.Fatalf("expected confidence 0.7, got %v", result.Confidence)
	}
	if len(result.KeySignals) != 2 {
		t.Fatalf("expected 2 key signals, got %d", len(result.KeySignals))
	}
	if result.Raw == "" {
		t.Fatal("expected raw reply to be kept")
	}
}

func TestScorePromptDocumentsBandsAndTruncatesContent(t *testing.T) {
	stub := &stubGenerator{response: `{"openness_score": 10, "confidence": 0.5}`}
	scorer := NewOpennessScorer(stub, zap.NewNop(), 0)

	long := strings.Repeat("x", 500)
	signals := []signal.RawSignal{{Source: "content", SignalType: "article", Content: long}}

	scorer.Score(context.Background(), testProfile(), signals)

	for _, band := range []string{
		"0-30: Stable",
		"31-50: Some activity",
		"51-70: Moderate signals",
		"71-85: Strong signals",
		"86-100: Very strong signals",
	} {
		if !strings.Contains(stub.lastPrompt, band) {
			t.Fatalf("prompt missing scoring band %q", band)
		}
	}

	if strings.Contains(stub.lastPrompt, strings.Repeat("x", 201)) {
		t.Fatal("expected signal content to be truncated to the excerpt length")
	}
	if !strings.Contains(stub.lastPrompt, strings.Repeat("x", 200)) {
		t.Fatal("expected truncated signal content in prompt")
	}
	if !strings.Contains(stub.lastPrompt, "Jane Doe") {
		t.Fatal("expected candidate name in prompt")
	}
}

func TestScoreExtractsJSONFromProse(t *testing.T) {
	stub := &stubGenerator{response: "Sure, here is my assessment:\n```json\n{\"openness_score\": 64, \"confidence\": 0.6, \"reasoning\": \"ok\", \"key_signals\": []}\n```\nLet me know if you need more."}
	scorer := NewOpennessScorer(stub, zap.NewNop(), 0)

	result := scorer.Score(context.Background(), testProfile(), testSignals(1))

	if result.Status != StatusAI {
		t.Fatalf("expected ai status, got %s", result.Status)
	}
	if result.OpennessScore != 64 {
		t.Fatalf("expected score 64, got %v", result.OpennessScore)
	}
}

func TestScoreFallbackOnBackendError(t *testing.T) {
	stub := &stubGenerator{err: errors.New("rate limited")}
	scorer := NewOpennessScorer(stub, zap.NewNop(), 0)

	for k, want := range map[int]float64{1: 15, 3: 45, 7: 100} {
		result := scorer.Score(context.Background(), testProfile(), testSignals(k))

		if result.Status != StatusFallback {
			t.Fatalf("expected fallback status for %d signals, got %s", k, result.Status)
		}
		if result.OpennessScore != want {
			t.Fatalf("expected score %v for %d signals, got %v", want, k, result.OpennessScore)
		}
		if result.Confidence != 0.5 {
			t.Fatalf("expected confidence 0.5, got %v", result.Confidence)
		}
		if len(result.KeySignals) > 3 {
			t.Fatalf("expected at most 3 key signals, got %d", len(result.KeySignals))
		}
	}
}

func TestScoreFallbackOnMalformedReply(t *testing.T) {
	stub := &stubGenerator{response: "I cannot answer that."}
	scorer := NewOpennessScorer(stub, zap.NewNop(), 0)

	result := scorer.Score(context.Background(), testProfile(), testSignals(2))

	if result.Status != StatusFallback {
		t.Fatalf("expected fallback status, got %s", result.Status)
	}
	if result.OpennessScore != 30 {
		t.Fatalf("expected score 30, got %v", result.OpennessScore)
	}
	if !strings.Contains(result.Reasoning, "2 signals") {
		t.Fatalf("expected reasoning to name the signal count, got %q", result.Reasoning)
	}
}

func TestScoreFallbackOnMissingConfidence(t *testing.T) {
	// A reply without confidence is treated as malformed: results are either
	// fully model-derived or fully fallback, never a mix.
	stub := &stubGenerator{response: `{"openness_score": 80, "reasoning": "partial"}`}
	scorer := NewOpennessScorer(stub, zap.NewNop(), 0)

	result := scorer.Score(context.Background(), testProfile(), testSignals(2))

	if result.Status != StatusFallback {
		t.Fatalf("expected fallback status, got %s", result.Status)
	}
	if result.OpennessScore != 30 || result.Confidence != 0.5 {
		t.Fatalf("unexpected fallback result: %+v", result)
	}
}

func TestScoreZeroSignals(t *testing.T) {
	scorer := NewOpennessScorer(nil, zap.NewNop(), 0)

	result := scorer.Score(context.Background(), testProfile(), nil)

	if result.OpennessScore != 0.0 || result.Confidence != 0.0 {
		t.Fatalf("expected zeroed result, got %+v", result)
	}
	if result.Reasoning != "No signals detected" {
		t.Fatalf("unexpected reasoning: %q", result.Reasoning)
	}
	if len(result.KeySignals) != 0 {
		t.Fatalf("expected no key signals, got %v", result.KeySignals)
	}
}

func TestScoreDoesNotClampOutOfRangeScore(t *testing.T) {
	stub := &stubGenerator{response: `{"openness_score": 120, "confidence": 0.9, "reasoning": "over", "key_signals": []}`}
	scorer := NewOpennessScorer(stub, zap.NewNop(), 0)

	result := scorer.Score(context.Background(), testProfile(), testSignals(1))

	if result.OpennessScore != 120 {
		t.Fatalf("expected unclamped score 120, got %v", result.OpennessScore)
	}
	if result.Status != StatusAI {
		t.Fatalf("expected ai status, got %s", result.Status)
	}
}

func TestBatchScoreIsolatesFailures(t *testing.T) {
	stub := &stubGenerator{err: errors.New("backend down")}
	scorer := NewOpennessScorer(stub, zap.NewNop(), 0)

	grouped := []signal.GroupedCandidate{
		{Key: "a", Profile: signal.Profile{FirstName: "A"}, Signals: testSignals(2)},
		{Key: "b", Profile: signal.Profile{FirstName: "B"}, Signals: testSignals(1)},
	}

	scored := scorer.BatchScore(context.Background(), grouped)

	if len(scored) != 2 {
		t.Fatalf("expected 2 results, got %d", len(scored))
	}
	if scored[0].Scoring.OpennessScore != 30 || scored[1].Scoring.OpennessScore != 15 {
		t.Fatalf("unexpected fallback scores: %v %v", scored[0].Scoring.OpennessScore, scored[1].Scoring.OpennessScore)
	}
	for _, item := range scored {
		if item.Scoring.Status != StatusFallback {
			t.Fatalf("expected fallback status, got %s", item.Scoring.Status)
		}
	}
}
