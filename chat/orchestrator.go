package chat

import (
	"context"
	"fmt"

	"researchchat/directive"
	"researchchat/llm"
	"researchchat/search"

	"go.uber.org/zap"
)

const defaultSystemPrompt = `You are a professional research assistant. You help users analyze research topics in depth, ask clarifying questions, generate effective search queries, and synthesize information into research reports.

When a user asks about a research topic you should:
1. Analyze the topic and determine the scope of the research.
2. Ask clarifying questions when they would improve your understanding of the user's needs.
3. When external, up-to-date information is needed, request it explicitly using the format [SEARCH: your search query].
4. Provide an initial analysis based on your existing knowledge.
5. Once search results are provided, integrate them into a comprehensive answer and cite sources where appropriate.

Stay professional, objective, and helpful. Organize research reports with clear headings, subheadings, and lists.`

// Orchestrator runs one chat turn: an initial drained LLM call, at most one
// search round trip, and a final streamed LLM call when search results came
// back.
type Orchestrator struct {
	llm           llm.Client
	engine        search.SearchEngine
	extractor     directive.Extractor
	logger        *zap.Logger
	systemPrompt  string
	searchEnabled bool
	numResults    int
}

type Options struct {
	SystemPrompt  string
	SearchEnabled bool
	NumResults    int
}

// Outcome describes how a turn resolved, for logging.
type Outcome struct {
	SearchPerformed bool
	SearchFailed    bool
	Query           string
	ResultCount     int
}

func NewOrchestrator(client llm.Client, engine search.SearchEngine, extractor directive.Extractor, logger *zap.Logger, opts Options) *Orchestrator {
	if extractor == nil {
		extractor = directive.SentinelExtractor{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = defaultSystemPrompt
	}
	if opts.NumResults <= 0 {
		opts.NumResults = 5
	}
	return &Orchestrator{
		llm:           client,
		engine:        engine,
		extractor:     extractor,
		logger:        logger,
		systemPrompt:  opts.SystemPrompt,
		searchEnabled: opts.SearchEnabled,
		numResults:    opts.NumResults,
	}
}

// Run executes one orchestration pass and emits the answer through fn.
// Search failures degrade into a fallback note, never into an error; only a
// failed LLM call or a broken emitter aborts the turn.
func (o *Orchestrator) Run(ctx context.Context, messages []llm.Message, fn llm.StreamFunc) (*Outcome, error) {
	conv := make([]llm.Message, 0, len(messages)+1)
	conv = append(conv, llm.Message{Role: llm.RoleSystem, Content: o.systemPrompt})
	conv = append(conv, messages...)

	initial, err := o.llm.CompleteText(ctx, conv)
	if err != nil {
		return nil, fmt.Errorf("initial analysis failed: %w", err)
	}

	d := o.extractor.Extract(initial)
	if !d.Found || d.Query == "" || !o.searchEnabled {
		o.logger.Info("skipping search round",
			zap.Bool("directive_found", d.Found),
			zap.Bool("search_enabled", o.searchEnabled))
		if err := fn(ctx, []byte(initial)); err != nil {
			return nil, err
		}
		return &Outcome{}, nil
	}

	o.logger.Info("executing search", zap.String("query", d.Query))
	set, err := o.engine.Search(ctx, &search.SearchRequest{
		Query:       d.Query,
		NumResults:  o.numResults,
		IncludeText: true,
	})
	if err != nil {
		o.logger.Warn("search failed, answering from initial analysis",
			zap.String("query", d.Query),
			zap.Error(err))
		if err := fn(ctx, []byte(initial+fallbackNote(d.Query))); err != nil {
			return nil, err
		}
		return &Outcome{SearchPerformed: true, SearchFailed: true, Query: d.Query}, nil
	}

	final := append(conv,
		llm.Message{Role: llm.RoleAssistant, Content: initial},
		llm.Message{Role: llm.RoleUser, Content: resultsPreamble(d.Query) + search.FormatResults(set)},
	)
	if err := o.llm.StreamText(ctx, final, fn); err != nil {
		return nil, fmt.Errorf("final analysis failed: %w", err)
	}
	return &Outcome{SearchPerformed: true, Query: d.Query, ResultCount: len(set.Results)}, nil
}

func fallbackNote(query string) string {
	return fmt.Sprintf("\n\n**Note:** I could not retrieve online search results for %q, so the analysis above relies on my existing knowledge only.", query)
}

func resultsPreamble(query string) string {
	return fmt.Sprintf("I found the following up-to-date information about %q. Based on these results and your earlier analysis, provide a comprehensive research report:\n\n", query)
}
