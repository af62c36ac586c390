package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"researchchat/chat"
	"researchchat/llm"
	"researchchat/search"

	"go.uber.org/zap"
)

type ChatRequest struct {
	Messages []llm.Message `json:"messages"`
	Stream   *bool         `json:"stream,omitempty"`
}

type ChatResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatHandler handles a full orchestration pass over the posted
// conversation. Search problems never surface here: the orchestrator folds
// them into the answer.
func (s *Server) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.cfg.DeepSeekAPIKey == "" {
		http.Error(w, "DEEPSEEK_API_KEY is not configured", http.StatusInternalServerError)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if len(req.Messages) == 0 {
		http.Error(w, "messages must be a non-empty array", http.StatusBadRequest)
		return
	}
	for i, m := range req.Messages {
		if !llm.ValidRole(m.Role) {
			http.Error(w, fmt.Sprintf("message %d has unknown role %q", i, m.Role), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(m.Content) == "" {
			http.Error(w, fmt.Sprintf("message %d has empty content", i), http.StatusBadRequest)
			return
		}
	}

	if req.Stream != nil && !*req.Stream {
		s.chatBuffered(w, r, req.Messages)
		return
	}
	s.chatStreaming(w, r, req.Messages)
}

func (s *Server) chatStreaming(w http.ResponseWriter, r *http.Request, messages []llm.Message) {
	emitter, err := newStreamEmitter(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	outcome, err := s.orchestrator.Run(r.Context(), messages, emitter.Emit)
	if err != nil {
		if !emitter.started {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		// Too late for a status code, the stream is already open.
		s.logger.Error("chat turn aborted mid-stream", zap.Error(err))
		return
	}

	emitter.Close()
	s.logOutcome(outcome)
}

func (s *Server) chatBuffered(w http.ResponseWriter, r *http.Request, messages []llm.Message) {
	var emitter bufferEmitter
	outcome, err := s.orchestrator.Run(r.Context(), messages, emitter.Emit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Role: llm.RoleAssistant, Content: emitter.String()})
	s.logOutcome(outcome)
}

func (s *Server) logOutcome(outcome *chat.Outcome) {
	s.logger.Info("chat turn completed",
		zap.Bool("search_performed", outcome.SearchPerformed),
		zap.Bool("search_failed", outcome.SearchFailed),
		zap.String("search_query", outcome.Query),
		zap.Int("result_count", outcome.ResultCount))
}

type SearchAPIRequest struct {
	Query              string   `json:"query"`
	NumResults         int      `json:"numResults"`
	IncludeDomains     []string `json:"includeDomains"`
	ExcludeDomains     []string `json:"excludeDomains"`
	StartPublishedDate string   `json:"startPublishedDate"`
	EndPublishedDate   string   `json:"endPublishedDate"`
	IncludeText        *bool    `json:"includeText"`
}

type searchResponseItem struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	PublishedDate *string `json:"publishedDate"`
	Author        *string `json:"author"`
	Text          string  `json:"text,omitempty"`
}

type SearchAPIResponse struct {
	Query   string               `json:"query"`
	Count   int                  `json:"count"`
	Results []searchResponseItem `json:"results"`
}

// SearchHandler proxies a single search call. Unlike /chat it surfaces
// upstream failures directly, passing 401 and 429 through.
func (s *Server) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.cfg.ExaAPIKey == "" {
		http.Error(w, "EXA_API_KEY is not configured", http.StatusInternalServerError)
		return
	}

	var req SearchAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, "missing query parameter", http.StatusBadRequest)
		return
	}

	includeText := req.IncludeText == nil || *req.IncludeText
	set, err := s.engine.Search(r.Context(), &search.SearchRequest{
		Query:              req.Query,
		NumResults:         req.NumResults,
		IncludeDomains:     req.IncludeDomains,
		ExcludeDomains:     req.ExcludeDomains,
		StartPublishedDate: req.StartPublishedDate,
		EndPublishedDate:   req.EndPublishedDate,
		IncludeText:        includeText,
	})
	if err != nil {
		http.Error(w, err.Error(), searchStatusCode(err))
		return
	}

	resp := SearchAPIResponse{
		Query:   set.Query,
		Count:   len(set.Results),
		Results: make([]searchResponseItem, 0, len(set.Results)),
	}
	for _, result := range set.Results {
		item := searchResponseItem{
			Title:         result.Title,
			URL:           result.URL,
			PublishedDate: optional(result.PublishedDate),
			Author:        optional(result.Author),
		}
		if item.Title == "" {
			item.Title = "Untitled"
		}
		if includeText {
			item.Text = result.Text
			if item.Text == "" {
				item.Text = "No content available"
			}
		}
		resp.Results = append(resp.Results, item)
	}

	writeJSON(w, http.StatusOK, resp)
}

func searchStatusCode(err error) int {
	var providerErr *search.ProviderError
	if errors.As(err, &providerErr) {
		switch providerErr.StatusCode {
		case http.StatusUnauthorized:
			return http.StatusUnauthorized
		case http.StatusTooManyRequests:
			return http.StatusTooManyRequests
		}
	}
	return http.StatusInternalServerError
}

// EnvHandler reports which credentials are configured, never their values.
func (s *Server) EnvHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := make(map[string]string)
	for key, present := range s.cfg.KeyPresence() {
		if present {
			status[key] = "configured"
		} else {
			status[key] = "not configured"
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
