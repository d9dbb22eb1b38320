package signal

import "strings"

// Resolve deduplicates raw signals into one GroupedCandidate per distinct
// identity key, preserving the insertion order of first appearance. Signals
// without any identity hint are dropped silently: they cannot be attributed.
//
// The first signal seen for a key seeds the profile. Later signals only fill
// profile fields that are still empty, so a sparse record never erases a
// known value. Resolve is pure and deterministic over its input.
func Resolve(raw []RawSignal) []GroupedCandidate {
	byKey := make(map[string]int, len(raw))
	grouped := make([]GroupedCandidate, 0, len(raw))

	for _, s := range raw {
		key := s.IdentityKey()
		if key == "" {
			continue
		}

		idx, ok := byKey[key]
		if !ok {
			idx = len(grouped)
			byKey[key] = idx
			grouped = append(grouped, GroupedCandidate{
				Key:     key,
				Profile: profileFromSignal(&s),
			})
		} else {
			fillProfile(&grouped[idx].Profile, &s)
		}

		grouped[idx].Signals = append(grouped[idx].Signals, s)
	}

	return grouped
}

func profileFromSignal(s *RawSignal) Profile {
	first, last := splitName(s.Name)
	return Profile{
		FirstName:      first,
		LastName:       last,
		Email:          strings.TrimSpace(s.Email),
		LinkedInURL:    s.linkedinURL(),
		CurrentTitle:   strings.TrimSpace(s.CurrentTitle),
		CurrentCompany: strings.TrimSpace(s.CurrentCompany),
		Location:       strings.TrimSpace(s.Location),
	}
}

// fillProfile copies values from the signal into profile fields that are
// still empty. Existing values always win.
func fillProfile(p *Profile, s *RawSignal) {
	if p.FirstName == "" && p.LastName == "" {
		p.FirstName, p.LastName = splitName(s.Name)
	}
	if p.Email == "" {
		p.Email = strings.TrimSpace(s.Email)
	}
	if p.LinkedInURL == "" {
		p.LinkedInURL = s.linkedinURL()
	}
	if p.CurrentTitle == "" {
		p.CurrentTitle = strings.TrimSpace(s.CurrentTitle)
	}
	if p.CurrentCompany == "" {
		p.CurrentCompany = strings.TrimSpace(s.CurrentCompany)
	}
	if p.Location == "" {
		p.Location = strings.TrimSpace(s.Location)
	}
}

// splitName splits a display name on whitespace: the first token becomes the
// first name, the remainder the last name.
func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
