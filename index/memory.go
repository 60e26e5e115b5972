package index

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// MemoryIndex is an in-process Index: an inverted token index with a
// substring fallback for partial-word queries.
type MemoryIndex struct {
	mu     sync.RWMutex
	docs   map[string]Document
	tokens map[string]map[string]struct{} // token -> doc IDs
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty in-process index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		docs:   make(map[string]Document),
		tokens: make(map[string]map[string]struct{}),
	}
}

// Upsert implements Index
func (m *MemoryIndex) Upsert(_ context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.docs[doc.ID]; ok {
		m.removeTokensLocked(old)
	}

	m.docs[doc.ID] = doc
	for _, token := range tokenize(doc.Content) {
		ids, ok := m.tokens[token]
		if !ok {
			ids = make(map[string]struct{})
			m.tokens[token] = ids
		}
		ids[doc.ID] = struct{}{}
	}
	return nil
}

// RemoveByPrefix implements Index
func (m *MemoryIndex) RemoveByPrefix(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, doc := range m.docs {
		if strings.HasPrefix(id, prefix) {
			m.removeTokensLocked(doc)
			delete(m.docs, id)
			removed++
		}
	}
	return removed, nil
}

// Search implements Index. Whole-token matches score higher than substring
// matches; ties break on document ID for determinism.
func (m *MemoryIndex) Search(_ context.Context, query string, opts Options) ([]Hit, error) {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	scores := make(map[string]float64)
	for _, token := range queryTokens {
		if ids, ok := m.tokens[token]; ok {
			for id := range ids {
				scores[id] += 1.0
			}
			continue
		}
		// Substring fallback for partial words.
		for indexed, ids := range m.tokens {
			if strings.Contains(indexed, token) {
				for id := range ids {
					scores[id] += 0.5
				}
			}
		}
	}

	hits := make([]Hit, 0, len(scores))
	for id, score := range scores {
		doc := m.docs[id]
		if opts.ResourceType != "" && doc.ResourceType != opts.ResourceType {
			continue
		}
		hits = append(hits, Hit{Document: doc, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Document.ID < hits[j].Document.ID
	})

	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits, nil
}

// Size returns the number of indexed documents.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) removeTokensLocked(doc Document) {
	for _, token := range tokenize(doc.Content) {
		if ids, ok := m.tokens[token]; ok {
			delete(ids, doc.ID)
			if len(ids) == 0 {
				delete(m.tokens, token)
			}
		}
	}
}

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]struct{}, len(raw))
	tokens := raw[:0]
	for _, token := range raw {
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}
	return tokens
}
