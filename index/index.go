package index

import "context"

// Document is one indexed unit of extracted content.
type Document struct {
	ID           string `json:"id"` // resourceType + ":" + path
	Content      string `json:"content"`
	Path         string `json:"path"`
	ResourceType string `json:"resource_type"`
	SourceKey    string `json:"source_key"` // object-store key the content came from
}

// DocumentID derives the deterministic document ID. Two writes for the same
// resource type and path always address the same document.
func DocumentID(resourceType, path string) string {
	return resourceType + ":" + path
}

// Options controls a search.
type Options struct {
	Limit        int    // 0 = no limit
	ResourceType string // restrict to one resource type
}

// Hit is one search result.
type Hit struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// Index is the search-index adapter the pipeline writes through.
// Implementations must be safe for concurrent use.
type Index interface {
	// Upsert writes doc, replacing any document with the same ID.
	Upsert(ctx context.Context, doc Document) error

	// RemoveByPrefix deletes every document whose ID starts with prefix
	// and returns the number removed.
	RemoveByPrefix(ctx context.Context, prefix string) (int, error)

	// Search returns matching documents, best first.
	Search(ctx context.Context, query string, opts Options) ([]Hit, error)
}
