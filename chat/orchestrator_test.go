package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"researchchat/directive"
	"researchchat/llm"
	"researchchat/search"
)

type fakeLLM struct {
	completeText  string
	completeErr   error
	streamText    string
	streamErr     error
	completeCalls int
	streamCalls   int
	lastStreamed  []llm.Message
	lastCompleted []llm.Message
}

func (f *fakeLLM) CompleteText(_ context.Context, messages []llm.Message) (string, error) {
	f.completeCalls++
	f.lastCompleted = messages
	return f.completeText, f.completeErr
}

func (f *fakeLLM) StreamText(ctx context.Context, messages []llm.Message, fn llm.StreamFunc) error {
	f.streamCalls++
	f.lastStreamed = messages
	if f.streamErr != nil {
		return f.streamErr
	}
	for _, word := range strings.SplitAfter(f.streamText, " ") {
		if err := fn(ctx, []byte(word)); err != nil {
			return err
		}
	}
	return nil
}

type fakeEngine struct {
	set         *search.SearchResultSet
	err         error
	calls       int
	lastRequest *search.SearchRequest
}

func (f *fakeEngine) Search(_ context.Context, req *search.SearchRequest) (*search.SearchResultSet, error) {
	f.calls++
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return f.set, nil
}

func collectEmitter(out *strings.Builder) llm.StreamFunc {
	return func(_ context.Context, chunk []byte) error {
		out.Write(chunk)
		return nil
	}
}

func userMessages(content string) []llm.Message {
	return []llm.Message{{Role: llm.RoleUser, Content: content}}
}

func TestRunWithoutDirective(t *testing.T) {
	client := &fakeLLM{completeText: "The capital of France is Paris."}
	engine := &fakeEngine{}
	o := NewOrchestrator(client, engine, directive.SentinelExtractor{}, nil, Options{SearchEnabled: true})

	var out strings.Builder
	outcome, err := o.Run(context.Background(), userMessages("What is the capital of France?"), collectEmitter(&out))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.String() != "The capital of France is Paris." {
		t.Errorf("expected the raw initial answer, got %q", out.String())
	}
	if client.completeCalls != 1 || client.streamCalls != 0 {
		t.Errorf("expected exactly one LLM call, got complete=%d stream=%d", client.completeCalls, client.streamCalls)
	}
	if engine.calls != 0 {
		t.Errorf("expected no search call, got %d", engine.calls)
	}
	if outcome.SearchPerformed {
		t.Error("expected outcome without a search round")
	}
}

func TestRunWithDirectiveAndResults(t *testing.T) {
	client := &fakeLLM{
		completeText: "Let me check. [SEARCH: current population of Tokyo]",
		streamText:   "Tokyo has about 37 million residents.",
	}
	engine := &fakeEngine{set: &search.SearchResultSet{
		Query: "current population of Tokyo",
		Results: []search.SearchResult{
			{Title: "One", URL: "https://a.example"},
			{Title: "Two", URL: "https://b.example"},
			{Title: "Three", URL: "https://c.example"},
		},
	}}
	o := NewOrchestrator(client, engine, directive.SentinelExtractor{}, nil, Options{SearchEnabled: true})

	var out strings.Builder
	outcome, err := o.Run(context.Background(), userMessages("How many people live in Tokyo?"), collectEmitter(&out))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.completeCalls != 1 || client.streamCalls != 1 {
		t.Errorf("expected two LLM calls, got complete=%d stream=%d", client.completeCalls, client.streamCalls)
	}
	if engine.calls != 1 {
		t.Fatalf("expected one search call, got %d", engine.calls)
	}
	if engine.lastRequest.Query != "current population of Tokyo" {
		t.Errorf("expected the extracted query, got %q", engine.lastRequest.Query)
	}
	if !engine.lastRequest.IncludeText {
		t.Error("expected snippet text to be requested for prompt injection")
	}
	if out.String() != "Tokyo has about 37 million residents." {
		t.Errorf("expected the streamed final answer, got %q", out.String())
	}
	if !outcome.SearchPerformed || outcome.ResultCount != 3 {
		t.Errorf("unexpected outcome: %+v", outcome)
	}

	// The second conversation carries the initial analysis and all three
	// sources in order.
	final := client.lastStreamed
	if len(final) != 4 {
		t.Fatalf("expected system + user + assistant + results messages, got %d", len(final))
	}
	if final[0].Role != llm.RoleSystem {
		t.Errorf("expected system entry first, got %q", final[0].Role)
	}
	if final[2].Role != llm.RoleAssistant || final[2].Content != client.completeText {
		t.Errorf("expected the initial analysis as an assistant turn, got %+v", final[2])
	}
	resultsTurn := final[3].Content
	for _, want := range []string{"One", "Two", "Three", "https://a.example", "https://b.example", "https://c.example"} {
		if !strings.Contains(resultsTurn, want) {
			t.Errorf("expected results turn to contain %q", want)
		}
	}
	if strings.Index(resultsTurn, "https://a.example") > strings.Index(resultsTurn, "https://c.example") {
		t.Error("expected sources in original order")
	}
}

func TestRunWithDirectiveSearchDisabled(t *testing.T) {
	client := &fakeLLM{completeText: "Initial analysis. [SEARCH: something]"}
	engine := &fakeEngine{}
	o := NewOrchestrator(client, engine, directive.SentinelExtractor{}, nil, Options{SearchEnabled: false})

	var out strings.Builder
	_, err := o.Run(context.Background(), userMessages("question"), collectEmitter(&out))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.String() != "Initial analysis. [SEARCH: something]" {
		t.Errorf("expected the initial analysis verbatim, got %q", out.String())
	}
	if engine.calls != 0 {
		t.Errorf("expected no gateway call, got %d", engine.calls)
	}
	if client.completeCalls != 1 || client.streamCalls != 0 {
		t.Errorf("expected exactly one LLM call, got complete=%d stream=%d", client.completeCalls, client.streamCalls)
	}
}

func TestRunSearchFailureFallsBack(t *testing.T) {
	testCases := []struct {
		name string
		err  error
	}{
		{"Unavailable", search.ErrUnavailable},
		{"ProviderError", &search.ProviderError{StatusCode: 503, Message: "down"}},
		{"Timeout", &search.ProviderError{Message: "context deadline exceeded"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeLLM{completeText: "Partial analysis. [SEARCH: flaky topic]"}
			engine := &fakeEngine{err: tc.err}
			o := NewOrchestrator(client, engine, directive.SentinelExtractor{}, nil, Options{SearchEnabled: true})

			var out strings.Builder
			outcome, err := o.Run(context.Background(), userMessages("question"), collectEmitter(&out))
			if err != nil {
				t.Fatalf("search failure must not abort the turn: %v", err)
			}

			if !strings.Contains(out.String(), "Partial analysis.") {
				t.Errorf("expected the initial analysis in the answer, got %q", out.String())
			}
			if !strings.Contains(out.String(), "could not retrieve online search results") {
				t.Errorf("expected a fallback note, got %q", out.String())
			}
			if !strings.Contains(out.String(), "flaky topic") {
				t.Errorf("expected the fallback note to name the query, got %q", out.String())
			}
			if client.streamCalls != 0 {
				t.Errorf("expected no additional LLM call after failure, got %d", client.streamCalls)
			}
			if !outcome.SearchPerformed || !outcome.SearchFailed {
				t.Errorf("unexpected outcome: %+v", outcome)
			}
		})
	}
}

func TestRunEmptyDirectiveQuerySkipsSearch(t *testing.T) {
	client := &fakeLLM{completeText: "Odd output [SEARCH: ]"}
	engine := &fakeEngine{}
	o := NewOrchestrator(client, engine, directive.SentinelExtractor{}, nil, Options{SearchEnabled: true})

	var out strings.Builder
	if _, err := o.Run(context.Background(), userMessages("question"), collectEmitter(&out)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.calls != 0 {
		t.Errorf("expected empty directive to skip the gateway, got %d calls", engine.calls)
	}
}

func TestRunInitialCallFailure(t *testing.T) {
	client := &fakeLLM{completeErr: errors.New("upstream exploded")}
	o := NewOrchestrator(client, &fakeEngine{}, directive.SentinelExtractor{}, nil, Options{SearchEnabled: true})

	var out strings.Builder
	if _, err := o.Run(context.Background(), userMessages("question"), collectEmitter(&out)); err == nil {
		t.Fatal("expected an error when the initial LLM call fails")
	}
	if out.Len() != 0 {
		t.Errorf("expected nothing emitted, got %q", out.String())
	}
}

func TestRunPrependsSystemPrompt(t *testing.T) {
	client := &fakeLLM{completeText: "answer"}
	o := NewOrchestrator(client, &fakeEngine{}, directive.SentinelExtractor{}, nil, Options{
		SystemPrompt:  "custom system prompt",
		SearchEnabled: true,
	})

	var out strings.Builder
	if _, err := o.Run(context.Background(), userMessages("hi"), collectEmitter(&out)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	conv := client.lastCompleted
	if len(conv) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(conv))
	}
	if conv[0].Role != llm.RoleSystem || conv[0].Content != "custom system prompt" {
		t.Errorf("expected the configured system prompt first, got %+v", conv[0])
	}
}
