package collectors

import (
	"context"
	"errors"
	"testing"

	"github.com/spigell/signal-fusion/internal/signal"
	"go.uber.org/zap"
)

type stubCollector struct {
	name    string
	signals []signal.RawSignal
	err     error
}

func (s *stubCollector) Name() string { return s.name }

func (s *stubCollector) Collect(_ context.Context, _, _ string) ([]signal.RawSignal, error) {
	return s.signals, s.err
}

func TestCollectAllDedupesAndTruncates(t *testing.T) {
	// 5 signals, 2 of them duplicate identity keys, limit 3.
	first := &stubCollector{name: "linkedin", signals: []signal.RawSignal{
		{LinkedInURL: "https://linkedin.com/in/a", Name: "A One"},
		{LinkedInURL: "https://linkedin.com/in/b", Name: "B Two"},
		{LinkedInURL: "https://linkedin.com/in/a", Name: "A Duplicate"},
	}}
	second := &stubCollector{name: "conference", signals: []signal.RawSignal{
		{ProfileURL: "https://linkedin.com/in/b", Name: "B Duplicate"},
		{ProfileURL: "https://example.com/speakers/c", Name: "C Three"},
		{ProfileURL: "https://example.com/speakers/d", Name: "D Four"},
	}}

	agg := NewAggregator(zap.NewNop(), first, second)
	got := agg.CollectAll(context.Background(), "fintech", "VP", 3)

	if len(got) != 3 {
		t.Fatalf("expected 3 unique signals, got %d", len(got))
	}

	// First-seen-wins, arrival order preserved.
	if got[0].Name != "A One" || got[1].Name != "B Two" || got[2].Name != "C Three" {
		t.Fatalf("unexpected order: %q %q %q", got[0].Name, got[1].Name, got[2].Name)
	}
}

func TestCollectAllFailingCollectorContributesNothing(t *testing.T) {
	broken := &stubCollector{name: "podcast", err: errors.New("upstream down")}
	working := &stubCollector{name: "linkedin", signals: []signal.RawSignal{
		{LinkedInURL: "https://linkedin.com/in/a"},
	}}

	agg := NewAggregator(zap.NewNop(), broken, working)
	got := agg.CollectAll(context.Background(), "fintech", "VP", 10)

	if len(got) != 1 {
		t.Fatalf("expected 1 signal from the healthy source, got %d", len(got))
	}
}

func TestCollectAllPassesThroughSignalsWithoutURL(t *testing.T) {
	c := &stubCollector{name: "podcast", signals: []signal.RawSignal{
		{Email: "jane@example.com", Name: "Jane Doe"},
		{LinkedInURL: "https://linkedin.com/in/a"},
	}}

	agg := NewAggregator(zap.NewNop(), c)
	got := agg.CollectAll(context.Background(), "fintech", "VP", 10)

	if len(got) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(got))
	}
}

func TestCollectAllEmptySources(t *testing.T) {
	agg := NewAggregator(zap.NewNop(), NewContentCollector(nil), NewConferenceCollector(nil))
	if got := agg.CollectAll(context.Background(), "fintech", "VP", 5); len(got) != 0 {
		t.Fatalf("expected no signals, got %d", len(got))
	}
}
