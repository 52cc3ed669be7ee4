package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Models unknown to tiktoken tokenize like the current OpenAI default.
const fallbackEncoding = "cl100k_base"

// Accountant counts and truncates text against model-specific token budgets.
// Encoders are loaded once per model and cached; safe for concurrent use.
type Accountant struct {
	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
}

func New() *Accountant {
	return &Accountant{encoders: make(map[string]*tiktoken.Tiktoken)}
}

func (a *Accountant) encoderFor(model string) *tiktoken.Tiktoken {
	a.mu.Lock()
	defer a.mu.Unlock()
	if enc, ok := a.encoders[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, _ = tiktoken.GetEncoding(fallbackEncoding)
	}
	a.encoders[model] = enc
	return enc
}

// Count returns the number of tokens text occupies under model's encoding.
func (a *Accountant) Count(text, model string) int {
	return len(a.encoderFor(model).Encode(text, nil, nil))
}

// Truncate returns text unchanged when its token count is at most maxTokens,
// otherwise the decoded prefix of exactly maxTokens tokens under model's
// encoding. Truncation points are model-specific: two models may cut the
// same text at different places.
func (a *Accountant) Truncate(text string, maxTokens int, model string) string {
	enc := a.encoderFor(model)
	toks := enc.Encode(text, nil, nil)
	if len(toks) <= maxTokens {
		return text
	}
	return enc.Decode(toks[:maxTokens])
}
