package signal

import "strings"

// RawSignal is a single piece of passively observed evidence produced by a
// collector. It is transient: raw signals are grouped per candidate and only
// the grouped form reaches scoring and persistence.
type RawSignal struct {
	Source     string         `json:"source,omitempty"`
	SignalType string         `json:"signal_type,omitempty"`
	Content    string         `json:"content,omitempty"`
	// SignalData is an opaque, source-defined payload. Collectors own its
	// schema; the core only carries it through to storage.
	SignalData map[string]any `json:"signal_data,omitempty"`

	// Identity hints. A signal without LinkedInURL, ProfileURL and Email
	// cannot be attributed to anyone and is dropped during resolution.
	LinkedInURL string `json:"linkedin_url,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty"`
	Email       string `json:"email,omitempty"`

	Name           string `json:"name,omitempty"`
	CurrentTitle   string `json:"current_title,omitempty"`
	CurrentCompany string `json:"current_company,omitempty"`
	Location       string `json:"location,omitempty"`
}

// IdentityKey returns the deduplication key for the signal: the professional
// network URL when present, the email otherwise. An empty string means the
// signal is unresolvable.
func (s *RawSignal) IdentityKey() string {
	if url := s.linkedinURL(); url != "" {
		return url
	}
	return strings.TrimSpace(s.Email)
}

func (s *RawSignal) linkedinURL() string {
	if url := strings.TrimSpace(s.LinkedInURL); url != "" {
		return url
	}
	return strings.TrimSpace(s.ProfileURL)
}

// Profile holds the candidate fields extracted from signals during
// resolution.
type Profile struct {
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	Email          string `json:"email,omitempty"`
	LinkedInURL    string `json:"linkedin_url,omitempty"`
	CurrentTitle   string `json:"current_title,omitempty"`
	CurrentCompany string `json:"current_company,omitempty"`
	Location       string `json:"location,omitempty"`
}

// FullName joins the first and last name, tolerating either being empty.
func (p *Profile) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// GroupedCandidate is one distinct candidate identity with every signal that
// was attributed to it.
type GroupedCandidate struct {
	Key     string
	Profile Profile
	Signals []RawSignal
}
