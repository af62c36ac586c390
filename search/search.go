package search

import (
	"context"
	"errors"
	"fmt"
)

type SearchRequest struct {
	Query              string   `json:"query"`
	NumResults         int      `json:"numResults,omitempty"`
	IncludeDomains     []string `json:"includeDomains,omitempty"`
	ExcludeDomains     []string `json:"excludeDomains,omitempty"`
	StartPublishedDate string   `json:"startPublishedDate,omitempty"`
	EndPublishedDate   string   `json:"endPublishedDate,omitempty"`
	IncludeText        bool     `json:"includeText,omitempty"`
}

type SearchResult struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Author        string   `json:"author,omitempty"`
	Text          string   `json:"text,omitempty"`
	Highlights    []string `json:"highlights,omitempty"`
}

// SearchResultSet keeps results in provider order together with the query
// that produced them. An empty set is a valid outcome.
type SearchResultSet struct {
	Query   string
	Results []SearchResult
}

type SearchEngine interface {
	Search(ctx context.Context, req *SearchRequest) (*SearchResultSet, error)
}

// ErrUnavailable means no search credential is configured. Callers decide
// whether that is fatal or a reason to skip searching.
var ErrUnavailable = errors.New("search unavailable: no API key configured")

// ProviderError carries the upstream status so the HTTP layer can map
// 401/429 through instead of flattening everything to 500.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("search provider returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("search provider error: %s", e.Message)
}
