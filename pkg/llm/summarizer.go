package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/quarry-search/quarry/pkg/tokens"
)

const summaryPromptFormat = "Summarize the following document:\n\n%s\n\nSummary:"

// SummarizerConfig represents the configuration for the document summarizer.
type SummarizerConfig struct {
	Model            string
	APIKey           string
	BaseURL          string
	MaxOutputTokens  int // budget for the generated summary
	MaxContextTokens int // budget for the whole prompt, document included
	Temperature      float64
	Timeout          time.Duration
}

// Summarizer generates short document-level summaries used as shared context
// for chunk embeddings.
type Summarizer struct {
	config SummarizerConfig
	llm    llms.Model
	tok    *tokens.Accountant
	logger *zap.Logger
}

func NewSummarizerWithConfig(config SummarizerConfig, tok *tokens.Accountant, logger *zap.Logger) (*Summarizer, error) {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.MaxOutputTokens == 0 {
		config.MaxOutputTokens = 300
	}
	if config.MaxContextTokens == 0 {
		config.MaxContextTokens = 2048
	}
	if config.Temperature == 0 {
		config.Temperature = 0.5
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if tok == nil {
		tok = tokens.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := newOpenAIClient(config.Model, config.APIKey, config.BaseURL, "")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize summary model: %w", err)
	}

	return &Summarizer{
		config: config,
		llm:    client,
		tok:    tok,
		logger: logger,
	}, nil
}

// Summarize returns a short summary of text, or an empty string when the
// generation call fails. An empty summary is legitimate downstream: chunks
// are then embedded without document context. The whole prompt, not just the
// document, is truncated to the input token budget.
func (s *Summarizer) Summarize(ctx context.Context, text string) string {
	prompt := fmt.Sprintf(summaryPromptFormat, text)
	prompt = s.tok.Truncate(prompt, s.config.MaxContextTokens, s.config.Model)

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	out, err := llms.GenerateFromSinglePrompt(ctx, s.llm, prompt,
		llms.WithMaxTokens(s.config.MaxOutputTokens),
		llms.WithTemperature(s.config.Temperature),
		llms.WithN(1),
	)
	if err != nil {
		s.logger.Warn("summary generation failed", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(out)
}

// newOpenAIClient builds a langchaingo OpenAI client, leaving unset options
// to the library's environment handling.
func newOpenAIClient(model, apiKey, baseURL, embeddingModel string) (*openai.LLM, error) {
	var opts []openai.Option
	if model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	if apiKey != "" {
		opts = append(opts, openai.WithToken(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	if embeddingModel != "" {
		opts = append(opts, openai.WithEmbeddingModel(embeddingModel))
	}
	return openai.New(opts...)
}
