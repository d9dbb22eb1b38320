// Package sqlite implements the storage.Store interface on a local SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spigell/signal-fusion/internal/storage"
)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and initializes the schema.
// WAL mode keeps concurrent readers working while a fusion run writes.
func New(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// An in-memory database exists per connection; pin the pool to one so
	// every query and transaction sees the same schema.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Begin starts one fusion run's unit of work. The transaction uses BEGIN
// IMMEDIATE on a dedicated connection so a write lock is acquired up front:
// two runs against the same database file serialize instead of racing on
// the same identity.
func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("begin immediate transaction: %w", err)
	}

	return &tx{conn: conn}, nil
}

const candidateColumns = `id, first_name, last_name, email, linkedin_url,
	current_title, current_company, location, openness_score,
	last_score_update, status, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (*storage.Candidate, error) {
	var c storage.Candidate
	var lastScoreUpdate sql.NullTime
	err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.LinkedInURL,
		&c.CurrentTitle, &c.CurrentCompany, &c.Location, &c.OpennessScore,
		&lastScoreUpdate, &c.Status, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastScoreUpdate.Valid {
		c.LastScoreUpdate = lastScoreUpdate.Time
	}
	return &c, nil
}

func (s *Store) GetCandidate(ctx context.Context, id string) (*storage.Candidate, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+candidateColumns+" FROM candidates WHERE id = ?", id)

	c, err := scanCandidate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	return c, nil
}

func (s *Store) ListCandidates(ctx context.Context, minScore float64, limit int) ([]*storage.Candidate, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+candidateColumns+` FROM candidates
		WHERE openness_score >= ?
		ORDER BY openness_score DESC, created_at ASC
		LIMIT ?`, minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*storage.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (s *Store) GetSignalsByCandidate(ctx context.Context, candidateID string) ([]*storage.Signal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, candidate_id, source, signal_type, content, signal_data,
			signal_score, confidence, detected_at, created_at
		FROM signals WHERE candidate_id = ? ORDER BY id ASC`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("get signals: %w", err)
	}
	defer rows.Close()

	var signals []*storage.Signal
	for rows.Next() {
		var sig storage.Signal
		var data string
		if err := rows.Scan(&sig.ID, &sig.CandidateID, &sig.Source, &sig.SignalType,
			&sig.Content, &data, &sig.SignalScore, &sig.Confidence,
			&sig.DetectedAt, &sig.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		if data != "" {
			if err := json.Unmarshal([]byte(data), &sig.SignalData); err != nil {
				return nil, fmt.Errorf("decode signal data: %w", err)
			}
		}
		signals = append(signals, &sig)
	}
	return signals, rows.Err()
}

// tx stages writes on a dedicated connection until Commit.
type tx struct {
	conn *sql.Conn
	done bool
}

func (t *tx) FindCandidateByLinkedIn(ctx context.Context, url string) (*storage.Candidate, error) {
	return t.findCandidate(ctx, "linkedin_url", url)
}

func (t *tx) FindCandidateByEmail(ctx context.Context, email string) (*storage.Candidate, error) {
	return t.findCandidate(ctx, "email", email)
}

func (t *tx) findCandidate(ctx context.Context, column, value string) (*storage.Candidate, error) {
	row := t.conn.QueryRowContext(ctx,
		"SELECT "+candidateColumns+" FROM candidates WHERE "+column+" = ? LIMIT 1", value)

	c, err := scanCandidate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find candidate by %s: %w", column, err)
	}
	return c, nil
}

func (t *tx) CreateCandidate(ctx context.Context, c *storage.Candidate) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = "identified"
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := t.conn.ExecContext(ctx,
		`INSERT INTO candidates (id, first_name, last_name, email, linkedin_url,
			current_title, current_company, location, openness_score,
			last_score_update, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.FirstName, c.LastName, c.Email, c.LinkedInURL,
		c.CurrentTitle, c.CurrentCompany, c.Location, c.OpennessScore,
		c.LastScoreUpdate, c.Status, c.Notes, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create candidate: %w", err)
	}
	return nil
}

func (t *tx) UpdateCandidate(ctx context.Context, c *storage.Candidate) error {
	c.UpdatedAt = time.Now().UTC()

	res, err := t.conn.ExecContext(ctx,
		`UPDATE candidates SET openness_score = ?, last_score_update = ?,
			current_title = ?, current_company = ?, status = ?, notes = ?,
			updated_at = ?
		WHERE id = ?`,
		c.OpennessScore, c.LastScoreUpdate, c.CurrentTitle, c.CurrentCompany,
		c.Status, c.Notes, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update candidate: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update candidate: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update candidate: no candidate with id %s", c.ID)
	}
	return nil
}

func (t *tx) AddSignal(ctx context.Context, sig *storage.Signal) error {
	data := "{}"
	if sig.SignalData != nil {
		encoded, err := json.Marshal(sig.SignalData)
		if err != nil {
			return fmt.Errorf("encode signal data: %w", err)
		}
		data = string(encoded)
	}

	now := time.Now().UTC()
	if sig.DetectedAt.IsZero() {
		sig.DetectedAt = now
	}
	sig.CreatedAt = now

	res, err := t.conn.ExecContext(ctx,
		`INSERT INTO signals (candidate_id, source, signal_type, content,
			signal_data, signal_score, confidence, detected_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.CandidateID, sig.Source, sig.SignalType, sig.Content,
		data, sig.SignalScore, sig.Confidence, sig.DetectedAt, sig.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add signal: %w", err)
	}

	sig.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("add signal: %w", err)
	}
	return nil
}

func (t *tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.conn.Close()

	if _, err := t.conn.ExecContext(context.Background(), "COMMIT"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.conn.Close()

	if _, err := t.conn.ExecContext(context.Background(), "ROLLBACK"); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
