package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// ChatConfig represents the configuration for the chat-completion proxy.
type ChatConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
}

// ChatEngine is a thin chat-completion proxy: one system+user exchange in,
// generated text out. No retries, no state.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

func NewChatWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	client, err := newOpenAIClient(config.Model, config.APIKey, config.BaseURL, "")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat model: %w", err)
	}

	return &ChatEngine{config: config, llm: client}, nil
}

// Chat generates a response to the user message under the given system
// message. A non-positive temperature falls back to the configured default.
func (ce *ChatEngine) Chat(ctx context.Context, system, user string, temperature float64) (string, error) {
	if temperature <= 0 {
		temperature = ce.config.Temperature
	}

	var content []llms.MessageContent
	if system != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	if user != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, user))
	}

	ctx, cancel := context.WithTimeout(ctx, ce.config.Timeout)
	defer cancel()

	resp, err := ce.llm.GenerateContent(ctx, content, llms.WithTemperature(temperature))
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat error: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
