package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.OpenAI.SummaryMaxTokens < 1 {
		errors = append(errors, ValidationError{
			Field:   "openai.summary_max_tokens",
			Message: "summary_max_tokens must be positive",
		})
	}

	if c.OpenAI.ContextMaxTokens < 1 {
		errors = append(errors, ValidationError{
			Field:   "openai.context_max_tokens",
			Message: "context_max_tokens must be positive",
		})
	}

	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "openai.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if len(c.Index.Addresses) == 0 {
		errors = append(errors, ValidationError{
			Field:   "index.addresses",
			Message: "at least one index address is required",
		})
	}

	for _, addr := range c.Index.Addresses {
		if u, err := url.Parse(addr); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "index.addresses",
				Message: fmt.Sprintf("invalid index address: %s", addr),
			})
		}
	}

	if c.Index.Name == "" {
		errors = append(errors, ValidationError{
			Field:   "index.name",
			Message: "index name is required",
		})
	}

	if c.Index.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "index.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Chunker.WindowSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "chunker.window_size",
			Message: "window_size must be positive",
		})
	}

	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.WindowSize {
		errors = append(errors, ValidationError{
			Field:   "chunker.overlap",
			Message: "overlap must be non-negative and less than window_size",
		})
	}

	if c.Ingest.Workers < 1 {
		errors = append(errors, ValidationError{
			Field:   "ingest.workers",
			Message: "workers must be positive",
		})
	}

	if c.Ingest.EmbedConcurrency < 1 {
		errors = append(errors, ValidationError{
			Field:   "ingest.embed_concurrency",
			Message: "embed_concurrency must be positive",
		})
	}

	if c.WebSearch.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "websearch.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	return errors
}
