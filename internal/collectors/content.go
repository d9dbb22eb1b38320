package collectors

import (
	"context"

	"github.com/spigell/signal-fusion/internal/signal"
	"go.uber.org/zap"
)

// ContentCollector will detect thought-leadership activity on Substack,
// Medium and X once those integrations land. It currently contributes no
// signals.
type ContentCollector struct {
	logger *zap.Logger
}

func NewContentCollector(logger *zap.Logger) *ContentCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentCollector{logger: logger}
}

func (c *ContentCollector) Name() string { return "content" }

func (c *ContentCollector) Collect(_ context.Context, _, _ string) ([]signal.RawSignal, error) {
	return nil, nil
}

// ConferenceCollector will detect speaking engagements from conference and
// event listings. It currently contributes no signals.
type ConferenceCollector struct {
	logger *zap.Logger
}

func NewConferenceCollector(logger *zap.Logger) *ConferenceCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConferenceCollector{logger: logger}
}

func (c *ConferenceCollector) Name() string { return "conference" }

func (c *ConferenceCollector) Collect(_ context.Context, _, _ string) ([]signal.RawSignal, error) {
	return nil, nil
}
