// Package outreach drafts personalized first-touch emails for scored
// candidates. It is a text producer only: delivery and tracking live
// elsewhere.
package outreach

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	_ "embed"

	"github.com/spigell/signal-fusion/internal/ai"
	"github.com/spigell/signal-fusion/internal/storage"
	"github.com/spigell/signal-fusion/internal/utils"
	"go.uber.org/zap"
)

//go:embed prompt.md
var promptTemplate string

const (
	// signalExcerptLen bounds quoted signal content in the prompt.
	signalExcerptLen = 150
	// maxPromptSignals limits how many signals are referenced per email.
	maxPromptSignals = 3

	defaultMaxLogLength = 200
)

var (
	subjectRegex = regexp.MustCompile(`(?i)SUBJECT:\s*(.+)`)
	bodyRegex    = regexp.MustCompile(`(?is)BODY:\s*(.+)`)
	boldRegex    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRegex  = regexp.MustCompile(`_(.+?)_`)
)

// Email is a drafted outreach message.
type Email struct {
	Subject string
	Body    string
	// Fallback reports that the built-in template produced the email
	// because the model call failed.
	Fallback bool
}

// Generator drafts emails with a language model and falls back to a plain
// template when the call fails.
type Generator struct {
	generator ai.Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewGenerator(generator ai.Generator, logger *zap.Logger, maxLogLength int) *Generator {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{generator: generator, logger: logger, maxLogLen: maxLogLength}
}

// GenerateEmail drafts one email for the candidate, referencing up to three
// of its signals. A failing model call switches to the template fallback.
func (g *Generator) GenerateEmail(ctx context.Context, candidate *storage.Candidate, signals []*storage.Signal) (*Email, error) {
	if candidate == nil {
		return nil, errors.New("candidate is required")
	}

	if g.generator == nil {
		return g.fallbackEmail(candidate), nil
	}

	prompt := buildEmailPrompt(candidate, signals)

	raw, err := g.generator.GenerateContent(ctx, prompt)
	if err != nil {
		g.logger.Warn("email generation failed, using template",
			zap.String("candidate_id", candidate.ID),
			zap.Error(err),
		)
		return g.fallbackEmail(candidate), nil
	}

	g.logger.Debug("email generation response",
		zap.String("candidate_id", candidate.ID),
		zap.String("response_preview", utils.TruncateForLog(raw, g.maxLogLen)),
	)

	return parseEmailResponse(raw, candidate), nil
}

func buildEmailPrompt(candidate *storage.Candidate, signals []*storage.Signal) string {
	info := fmt.Sprintf("Candidate: %s %s\nCurrent Role: %s\nCurrent Company: %s",
		candidate.FirstName, candidate.LastName,
		orUnknown(candidate.CurrentTitle),
		orUnknown(candidate.CurrentCompany),
	)

	var signalsBlock string
	if len(signals) > 0 {
		lines := make([]string, 0, maxPromptSignals)
		for _, sig := range signals {
			if len(lines) == maxPromptSignals {
				break
			}
			lines = append(lines, fmt.Sprintf("- %s: %s",
				sig.Source, utils.TruncateForLog(sig.Content, signalExcerptLen)))
		}
		signalsBlock = "Signals detected (why we think they might be open):\n" + strings.Join(lines, "\n")
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{CANDIDATE}}", info)
	return strings.ReplaceAll(prompt, "{{SIGNALS}}", signalsBlock)
}

func parseEmailResponse(raw string, candidate *storage.Candidate) *Email {
	subject := fmt.Sprintf("%s - Opportunity?", firstNameOr(candidate, "Candidate"))
	if m := subjectRegex.FindStringSubmatch(raw); m != nil {
		subject = strings.TrimSpace(m[1])
	}

	body := strings.TrimSpace(raw)
	if m := bodyRegex.FindStringSubmatch(raw); m != nil {
		body = strings.TrimSpace(m[1])
	}

	body = boldRegex.ReplaceAllString(body, "$1")
	body = italicRegex.ReplaceAllString(body, "$1")

	return &Email{Subject: subject, Body: body}
}

func (g *Generator) fallbackEmail(candidate *storage.Candidate) *Email {
	firstName := firstNameOr(candidate, "there")
	title := orUnknown(candidate.CurrentTitle)
	company := candidate.CurrentCompany
	if company == "" {
		company = "your company"
	}

	subject := fmt.Sprintf("%s - Impressed by your work at %s", firstName, company)
	body := fmt.Sprintf(`Hey %s,

Caught your work at %s - really impressive what you've built as %s.

I work with some interesting companies that are scaling. Not sure if you're open to exploring, but thought there might be alignment.

Worth a 15-min conversation?`, firstName, company, title)

	return &Email{Subject: subject, Body: body, Fallback: true}
}

func firstNameOr(candidate *storage.Candidate, fallback string) string {
	if name := strings.TrimSpace(candidate.FirstName); name != "" {
		return name
	}
	return fallback
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return strings.TrimSpace(s)
}
