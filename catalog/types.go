package catalog

import "strings"

// ResourceLocator identifies one resource the platform can serve.
type ResourceLocator struct {
	Language     string `json:"language"`
	Organization string `json:"organization"`
	ResourceType string `json:"resource_type"`
	BookID       string `json:"book_id,omitempty"`
}

// RepoName returns the catalog repository name the locator maps to,
// e.g. "en" + "ult" -> "en_ult".
func (l ResourceLocator) RepoName() string {
	return strings.ToLower(l.Language) + "_" + strings.ToLower(l.ResourceType)
}

// Ingredient is one file within a resource repository.
type Ingredient struct {
	Identifier string `json:"identifier"`
	Path       string `json:"path"`
	Title      string `json:"title,omitempty"`
}

// CatalogEntry describes a resolved resource repository.
type CatalogEntry struct {
	Owner       string       `json:"owner"`
	RepoName    string       `json:"repo_name"`
	ResourceID  string       `json:"resource_id"`
	Release     string       `json:"release"`
	Ingredients []Ingredient `json:"ingredients"`
}

// FindIngredient locates the ingredient for a book. Matching is
// case-insensitive against the ingredient identifier, accepting either the
// identifier itself or the book's 3-letter code ("Genesis" and "gen" both
// match). The first match wins.
func (e *CatalogEntry) FindIngredient(bookID string) (*Ingredient, bool) {
	if bookID == "" {
		return nil, false
	}

	want := strings.ToLower(bookID)
	code := BookCode(bookID)

	for i := range e.Ingredients {
		id := strings.ToLower(e.Ingredients[i].Identifier)
		if id == want || (code != "" && id == code) {
			return &e.Ingredients[i], true
		}
	}
	return nil, false
}
