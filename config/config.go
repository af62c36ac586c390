package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppPort        int
	DeepSeekAPIKey string
	ExaAPIKey      string
	ProxyURL       string
	Model          ModelConfig
}

// ModelConfig holds the LLM call settings, overridable from a YAML file
// pointed at by MODEL_CONFIG_PATH.
type ModelConfig struct {
	Model        string  `yaml:"model"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	SystemPrompt string  `yaml:"system_prompt"`
}

func Load() (*Config, error) {
	appPort, err := strconv.Atoi(getEnv("APP_PORT"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	model, err := loadModelConfig(os.Getenv("MODEL_CONFIG_PATH"))
	if err != nil {
		return nil, err
	}

	return &Config{
		AppPort:        appPort,
		DeepSeekAPIKey: os.Getenv("DEEPSEEK_API_KEY"),
		ExaAPIKey:      os.Getenv("EXA_API_KEY"),
		ProxyURL:       os.Getenv("PROXY_URL"),
		Model:          model,
	}, nil
}

// KeyPresence reports which credentials are set without exposing values.
func (c *Config) KeyPresence() map[string]bool {
	return map[string]bool{
		"DEEPSEEK_API_KEY": c.DeepSeekAPIKey != "",
		"EXA_API_KEY":      c.ExaAPIKey != "",
		"PROXY_URL":        c.ProxyURL != "",
	}
}

func loadModelConfig(path string) (ModelConfig, error) {
	model := ModelConfig{
		Model:       "deepseek-chat",
		Temperature: 0.7,
		MaxTokens:   2000,
	}
	if path == "" {
		return model, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return model, nil
	}
	if err != nil {
		return model, fmt.Errorf("failed to read model config: %w", err)
	}
	if err := yaml.Unmarshal(data, &model); err != nil {
		return model, fmt.Errorf("failed to parse model config: %w", err)
	}
	return model, nil
}

func getEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("Environment variable %s is required but not set", key)
	}
	return value
}
