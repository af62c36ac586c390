package main

import (
	"log"
	"net/http"
	"net/url"
	"time"

	"researchchat/api"
	"researchchat/chat"
	"researchchat/config"
	"researchchat/directive"
	"researchchat/llm"
	"researchchat/search"

	"go.uber.org/zap"
	"golang.org/x/net/proxy"
)

func main() {
	// =========
	// Config
	// =========
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// =========
	// Logging
	// =========
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	if cfg.DeepSeekAPIKey == "" {
		logger.Warn("DEEPSEEK_API_KEY is not set, /chat will refuse requests")
	}
	if cfg.ExaAPIKey == "" {
		logger.Warn("EXA_API_KEY is not set, search is disabled")
	}

	// =========
	// HTTP
	// =========
	transport, err := NewHttpTransport(cfg.ProxyURL)
	if err != nil {
		log.Fatalf("Failed to build HTTP transport: %v", err)
	}
	llmHTTPClient := &http.Client{Transport: transport, Timeout: 5 * time.Minute}
	searchHTTPClient := &http.Client{Transport: transport, Timeout: 10 * time.Second}

	// =========
	// LLM client
	// =========
	var llmClient llm.Client
	if cfg.DeepSeekAPIKey != "" {
		llmClient, err = llm.NewDeepSeek(llm.DeepSeekOptions{
			APIKey:      cfg.DeepSeekAPIKey,
			Model:       cfg.Model.Model,
			Temperature: cfg.Model.Temperature,
			MaxTokens:   cfg.Model.MaxTokens,
			HTTPClient:  llmHTTPClient,
		})
		if err != nil {
			log.Fatalf("Failed to create LLM client: %v", err)
		}
	}

	// =========
	// Search engine
	// =========
	engine := search.NewExaSearchEngine(cfg.ExaAPIKey, searchHTTPClient)

	// =========
	// Orchestrator
	// =========
	orchestrator := chat.NewOrchestrator(llmClient, engine, directive.SentinelExtractor{}, logger, chat.Options{
		SystemPrompt:  cfg.Model.SystemPrompt,
		SearchEnabled: cfg.ExaAPIKey != "",
	})

	// =========
	// API server
	// =========
	server := api.NewServer(cfg, orchestrator, engine, logger)
	if err := server.Start(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func NewHttpTransport(proxyUrl string) (*http.Transport, error) {
	transport := &http.Transport{
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
	}
	if proxyUrl == "" {
		return transport, nil
	}

	parsed, err := url.Parse(proxyUrl)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme == "socks5" {
		dialer, err := proxy.SOCKS5("tcp", parsed.Host, nil, proxy.Direct)
		if err != nil {
			return nil, err
		}
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = contextDialer.DialContext
		}
		return transport, nil
	}

	transport.Proxy = http.ProxyURL(parsed)
	return transport, nil
}
