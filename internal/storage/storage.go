// Package storage defines the persistence boundary for candidates and their
// signals. Rows are owned by the fusion engine: the resolver and scorer only
// ever operate on transient in-memory structures.
package storage

import (
	"context"
	"time"
)

// Candidate is a persisted executive profile. It is created on first
// resolution, updated on every later fusion run that re-identifies the same
// identity, and never deleted by this tool.
type Candidate struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	LinkedInURL    string
	CurrentTitle   string
	CurrentCompany string
	Location       string

	OpennessScore   float64
	LastScoreUpdate time.Time

	// Status lifecycle: identified -> contacted -> responded -> ...
	// Fusion only ever creates candidates as "identified"; outreach
	// advances them.
	Status string
	Notes  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Signal is a persisted piece of evidence attached to a candidate. Signals
// are append-only per fusion run: re-running fusion stores already-seen
// signals again, keeping a full audit trail.
type Signal struct {
	ID          int64
	CandidateID string
	Source      string
	SignalType  string
	Content     string
	// SignalData is the opaque source-defined payload, stored as JSON.
	SignalData map[string]any

	SignalScore float64
	Confidence  float64

	DetectedAt time.Time
	CreatedAt  time.Time
}

// Tx is one fusion run's unit of work. Writes are staged and become durable
// only at Commit; nothing staged is visible to reads through the Store until
// then.
type Tx interface {
	// FindCandidateByLinkedIn returns nil without error when no candidate
	// matches.
	FindCandidateByLinkedIn(ctx context.Context, url string) (*Candidate, error)
	FindCandidateByEmail(ctx context.Context, email string) (*Candidate, error)

	// CreateCandidate assigns an ID and timestamps when unset.
	CreateCandidate(ctx context.Context, c *Candidate) error
	// UpdateCandidate persists score, score timestamp, title, company,
	// status, notes and the updated_at timestamp for an existing
	// candidate. Field policy (non-empty-wins) is decided by the caller.
	UpdateCandidate(ctx context.Context, c *Candidate) error
	AddSignal(ctx context.Context, s *Signal) error

	Commit() error
	Rollback() error
}

// Store is the candidate/signal storage backend.
type Store interface {
	Begin(ctx context.Context) (Tx, error)

	GetCandidate(ctx context.Context, id string) (*Candidate, error)
	ListCandidates(ctx context.Context, minScore float64, limit int) ([]*Candidate, error)
	GetSignalsByCandidate(ctx context.Context, candidateID string) ([]*Signal, error)

	Close() error
}
