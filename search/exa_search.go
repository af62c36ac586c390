package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	exaEndpoint       = "https://api.exa.ai/search"
	defaultNumResults = 5
	maxSnippetChars   = 1000
	requestTimeout    = 10 * time.Second
)

type ExaSearchEngine struct {
	client   *http.Client
	apiKey   string
	endpoint string
}

type exaTextOptions struct {
	MaxCharacters int `json:"maxCharacters,omitempty"`
}

type exaContents struct {
	Text exaTextOptions `json:"text"`
}

type exaRequest struct {
	Query              string       `json:"query"`
	NumResults         int          `json:"numResults"`
	IncludeDomains     []string     `json:"includeDomains,omitempty"`
	ExcludeDomains     []string     `json:"excludeDomains,omitempty"`
	StartPublishedDate string       `json:"startPublishedDate,omitempty"`
	EndPublishedDate   string       `json:"endPublishedDate,omitempty"`
	Contents           *exaContents `json:"contents,omitempty"`
}

type exaResponse struct {
	Results []struct {
		Title         string   `json:"title"`
		URL           string   `json:"url"`
		PublishedDate string   `json:"publishedDate"`
		Author        string   `json:"author"`
		Text          string   `json:"text"`
		Highlights    []string `json:"highlights"`
	} `json:"results"`
}

func NewExaSearchEngine(apiKey string, client *http.Client) *ExaSearchEngine {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &ExaSearchEngine{
		client:   client,
		apiKey:   apiKey,
		endpoint: exaEndpoint,
	}
}

// Search performs exactly one upstream call. Failures surface immediately,
// retrying is the caller's decision.
func (s *ExaSearchEngine) Search(ctx context.Context, req *SearchRequest) (*SearchResultSet, error) {
	if s.apiKey == "" {
		return nil, ErrUnavailable
	}

	numResults := req.NumResults
	if numResults <= 0 {
		numResults = defaultNumResults
	}

	payload := exaRequest{
		Query:              req.Query,
		NumResults:         numResults,
		IncludeDomains:     req.IncludeDomains,
		ExcludeDomains:     req.ExcludeDomains,
		StartPublishedDate: req.StartPublishedDate,
		EndPublishedDate:   req.EndPublishedDate,
	}
	if req.IncludeText {
		payload.Contents = &exaContents{Text: exaTextOptions{MaxCharacters: maxSnippetChars}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
		}
	}

	var searchResp exaResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("failed to decode response: %v", err)}
	}

	set := &SearchResultSet{Query: req.Query}
	for _, item := range searchResp.Results {
		set.Results = append(set.Results, SearchResult{
			Title:         item.Title,
			URL:           item.URL,
			PublishedDate: item.PublishedDate,
			Author:        item.Author,
			Text:          item.Text,
			Highlights:    item.Highlights,
		})
	}
	return set, nil
}
