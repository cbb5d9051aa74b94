// Package stoplist holds the stopword set the tokenizer filters against.
package stoplist

import "strings"

// Manager is the single stopword set shared by every tokenizer of a run.
// It is read-only after construction and safe for concurrent use.
type Manager struct {
	stops map[string]struct{}
}

// NewManager creates a manager from terms. Terms are lowercased.
func NewManager(terms []string) *Manager {
	stops := make(map[string]struct{}, len(terms))
	for _, s := range terms {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			stops[s] = struct{}{}
		}
	}
	return &Manager{stops: stops}
}

// IsStop checks if a lowercase token is a stopword. A nil Manager has none.
func (m *Manager) IsStop(token string) bool {
	if m == nil {
		return false
	}
	_, ok := m.stops[token]
	return ok
}

// Len returns the number of stopwords.
func (m *Manager) Len() int {
	if m == nil {
		return 0
	}
	return len(m.stops)
}

