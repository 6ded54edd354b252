// Package authority manages the store of downloaded opinion texts and
// resolves citations to exactly one of them.
package authority

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/markwbennett/brief-analyzer/internal/cite"
	"github.com/markwbennett/brief-analyzer/internal/model"
)

// Authority binds a normalized citation to one source text file. Companion
// cases reported back-to-back can produce multiple Authority records with
// the same key; the store keeps all of them and Resolve picks at lookup
// time.
type Authority struct {
	Key        model.CitationKey
	CaseName   string
	Keywords   []string // Lowercase party keywords for disambiguation
	File       string   // Filename within the store directory
	Text       string
	IngestedAt time.Time // Source file modification time
}

// Label identifies the authority in logs and reports
func (a *Authority) Label() string {
	if a.CaseName != "" {
		return fmt.Sprintf("%s, %s", a.CaseName, a.Key)
	}
	return a.Key.String()
}

// Store is a read-only collection of authorities loaded from a directory
// of .txt opinion files. Verification never mutates it, so lookups need no
// locking.
type Store struct {
	byKey map[model.CitationKey][]*Authority
	all   []*Authority
}

// NewStore builds a store from already-constructed authorities, for callers
// that do not load from a directory.
func NewStore(auths []*Authority) *Store {
	store := &Store{byKey: make(map[model.CitationKey][]*Authority)}
	for _, auth := range auths {
		store.all = append(store.all, auth)
		if !auth.Key.IsZero() {
			store.byKey[auth.Key] = append(store.byKey[auth.Key], auth)
		}
	}
	return store
}

// headerBytes is how much of a file is scanned for its own citation
const headerBytes = 3000

// LoadDir reads every .txt file in dir into a Store. Citation keys come
// from the filename when possible, falling back to the opinion header.
func LoadDir(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read authorities dir: %w", err)
	}

	store := &Store{byKey: make(map[model.CitationKey][]*Authority)}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read authority %s: %w", entry.Name(), err)
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat authority %s: %w", entry.Name(), err)
		}

		auth := buildAuthority(entry.Name(), string(data), info.ModTime())
		store.all = append(store.all, auth)
		if !auth.Key.IsZero() {
			store.byKey[auth.Key] = append(store.byKey[auth.Key], auth)
		}
	}

	return store, nil
}

// buildAuthority parses citation identity from the filename, then from the
// opinion header when the filename carries none.
func buildAuthority(filename, text string, modTime time.Time) *Authority {
	auth := &Authority{
		File:       filename,
		Text:       text,
		IngestedAt: modTime,
	}

	base := strings.TrimSuffix(filename, ".txt")
	if cites := cite.ParseAll(base); len(cites) > 0 {
		auth.Key = cites[0].Key
		auth.CaseName = cites[0].CaseName
	}

	if auth.Key.IsZero() {
		header := text
		if len(header) > headerBytes {
			header = header[:headerBytes]
		}
		if cites := cite.ParseAll(header); len(cites) > 0 {
			auth.Key = cites[0].Key
			if auth.CaseName == "" {
				auth.CaseName = cites[0].CaseName
			}
		}
	}

	if auth.CaseName == "" {
		// Fall back to the filename up to the first comma, the usual
		// "Name v. Name, cite" naming convention.
		if idx := strings.Index(base, ","); idx > 0 {
			auth.CaseName = strings.TrimSpace(base[:idx])
		}
	}

	auth.Keywords = cite.Keywords(auth.CaseName)
	return auth
}

// Candidates returns every authority stored under key, in a stable order
func (s *Store) Candidates(key model.CitationKey) []*Authority {
	cands := s.byKey[key]
	sorted := make([]*Authority, len(cands))
	copy(sorted, cands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].File < sorted[j].File })
	return sorted
}

// ByContent finds an authority whose full text contains the citation key,
// for opinions whose parallel cite appears only in the body.
func (s *Store) ByContent(key model.CitationKey) *Authority {
	if key.IsZero() {
		return nil
	}
	needle := key.String()
	for _, auth := range s.all {
		if strings.Contains(auth.Text, needle) {
			return auth
		}
	}
	return nil
}

// ByKeyword returns authorities whose filename contains the keyword
func (s *Store) ByKeyword(keyword string) []*Authority {
	if keyword == "" {
		return nil
	}
	var matches []*Authority
	for _, auth := range s.all {
		if strings.Contains(strings.ToLower(auth.File), keyword) {
			matches = append(matches, auth)
		}
	}
	return matches
}

// Len reports the number of loaded authorities
func (s *Store) Len() int {
	return len(s.all)
}

// All returns every loaded authority
func (s *Store) All() []*Authority {
	return s.all
}
