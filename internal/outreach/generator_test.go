package outreach

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spigell/signal-fusion/internal/storage"
	"go.uber.org/zap"
)

type stubGenerator struct {
	reply string
	err   error
	seen  string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.seen = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubGenerator) Model() string { return "stub" }

func testCandidate() *storage.Candidate {
	return &storage.Candidate{
		ID:             "cand-1",
		FirstName:      "Jane",
		LastName:       "Doe",
		CurrentTitle:   "VP Engineering",
		CurrentCompany: "TechCorp",
	}
}

func TestGenerateEmailParsesSubjectAndBody(t *testing.T) {
	gen := &stubGenerator{reply: `SUBJECT: Your podcast episode was great
BODY:
Hey Jane,

Loved your take on platform teams. Open to a chat?`}

	email, err := NewGenerator(gen, zap.NewNop(), 0).GenerateEmail(context.Background(), testCandidate(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if email.Subject != "Your podcast episode was great" {
		t.Fatalf("unexpected subject: %q", email.Subject)
	}
	if !strings.HasPrefix(email.Body, "Hey Jane,") {
		t.Fatalf("unexpected body: %q", email.Body)
	}
	if email.Fallback {
		t.Fatal("expected model-written email, not fallback")
	}
}

func TestGenerateEmailStripsMarkdown(t *testing.T) {
	gen := &stubGenerator{reply: `SUBJECT: Hi
BODY:
Your **keynote** on _resilience_ stood out.`}

	email, err := NewGenerator(gen, zap.NewNop(), 0).GenerateEmail(context.Background(), testCandidate(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if email.Body != "Your keynote on resilience stood out." {
		t.Fatalf("markdown survived: %q", email.Body)
	}
}

func TestGenerateEmailPromptIncludesSignals(t *testing.T) {
	gen := &stubGenerator{reply: "SUBJECT: x\nBODY:\ny"}
	signals := []*storage.Signal{
		{Source: "podcast", Content: "Talked about what comes after hypergrowth"},
		{Source: "content", Content: "Essay on engineering culture"},
		{Source: "conference", Content: "Keynote on platform teams"},
		{Source: "linkedin", Content: "should be cut by the three-signal cap"},
	}

	if _, err := NewGenerator(gen, zap.NewNop(), 0).GenerateEmail(context.Background(), testCandidate(), signals); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(gen.seen, "Jane Doe") {
		t.Fatalf("prompt misses candidate name:\n%s", gen.seen)
	}
	if !strings.Contains(gen.seen, "podcast: Talked about what comes after hypergrowth") {
		t.Fatalf("prompt misses signal line:\n%s", gen.seen)
	}
	if strings.Contains(gen.seen, "three-signal cap") {
		t.Fatalf("prompt includes more than three signals:\n%s", gen.seen)
	}
}

func TestGenerateEmailFallsBackOnError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("backend unavailable")}

	email, err := NewGenerator(gen, zap.NewNop(), 0).GenerateEmail(context.Background(), testCandidate(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !email.Fallback {
		t.Fatal("expected fallback email")
	}
	if !strings.Contains(email.Subject, "Jane") {
		t.Fatalf("unexpected fallback subject: %q", email.Subject)
	}
	if !strings.Contains(email.Body, "TechCorp") {
		t.Fatalf("fallback body misses company: %q", email.Body)
	}
}

func TestGenerateEmailWithoutGenerator(t *testing.T) {
	email, err := NewGenerator(nil, zap.NewNop(), 0).GenerateEmail(context.Background(), testCandidate(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !email.Fallback {
		t.Fatal("expected fallback when no model is configured")
	}
}

func TestGenerateEmailRequiresCandidate(t *testing.T) {
	if _, err := NewGenerator(nil, zap.NewNop(), 0).GenerateEmail(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for nil candidate")
	}
}
