package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS candidates (
    id TEXT PRIMARY KEY,
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    linkedin_url TEXT NOT NULL DEFAULT '',
    current_title TEXT NOT NULL DEFAULT '',
    current_company TEXT NOT NULL DEFAULT '',
    location TEXT NOT NULL DEFAULT '',
    openness_score REAL NOT NULL DEFAULT 0,
    last_score_update DATETIME,
    status TEXT NOT NULL DEFAULT 'identified',
    notes TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_candidates_email ON candidates(email);
CREATE INDEX IF NOT EXISTS idx_candidates_linkedin_url ON candidates(linkedin_url);
CREATE INDEX IF NOT EXISTS idx_candidates_openness_score ON candidates(openness_score);

-- Signals are append-only: repeated fusion runs insert already-seen signals
-- again, keeping the full audit trail per candidate.
CREATE TABLE IF NOT EXISTS signals (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    candidate_id TEXT NOT NULL,
    source TEXT NOT NULL,
    signal_type TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    signal_data TEXT NOT NULL DEFAULT '{}',
    signal_score REAL NOT NULL DEFAULT 0,
    confidence REAL NOT NULL DEFAULT 0,
    detected_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (candidate_id) REFERENCES candidates(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_signals_candidate ON signals(candidate_id);
CREATE INDEX IF NOT EXISTS idx_signals_detected_at ON signals(detected_at);
`
