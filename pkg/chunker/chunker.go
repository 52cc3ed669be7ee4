package chunker

import (
	"strings"

	"go.uber.org/zap"

	"github.com/quarry-search/quarry/internal/models"
)

const (
	// StrategyParagraph splits on blank-line boundaries.
	StrategyParagraph = "paragraph"
	// StrategySemantic splits into fixed character windows with overlap, so
	// every boundary region appears in two adjacent chunks.
	StrategySemantic = "semantic"
)

type Config struct {
	Strategy   string
	WindowSize int // characters per semantic window
	Overlap    int // characters shared between adjacent windows
}

type Chunker struct {
	config Config
	logger *zap.Logger
}

func NewWithConfig(config Config, logger *zap.Logger) *Chunker {
	if config.Strategy == "" {
		config.Strategy = StrategyParagraph
	}
	if config.WindowSize <= 0 {
		config.WindowSize = 1000
	}
	if config.Overlap < 0 {
		config.Overlap = 0
	}
	if config.Overlap >= config.WindowSize {
		config.Overlap = config.WindowSize / 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chunker{config: config, logger: logger}
}

// Chunk splits text under the configured strategy. Empty text yields no
// chunks; the caller decides whether such a document is skipped. An unknown
// strategy falls back to paragraph splitting with a warning.
func (c *Chunker) Chunk(text string) []models.Chunk {
	switch strings.ToLower(c.config.Strategy) {
	case StrategyParagraph:
		return c.paragraphs(text)
	case StrategySemantic:
		return c.windows(text)
	default:
		c.logger.Warn("unknown chunk strategy, falling back to paragraph",
			zap.String("strategy", c.config.Strategy))
		return c.paragraphs(text)
	}
}

func (c *Chunker) paragraphs(text string) []models.Chunk {
	var out []models.Chunk
	for _, para := range strings.Split(text, "\n\n") {
		p := strings.TrimSpace(para)
		if p == "" {
			continue
		}
		out = append(out, models.Chunk{Index: len(out), Text: p})
	}
	return out
}

// windows emits chunks of WindowSize runes, each starting WindowSize-Overlap
// runes after the previous one. The chunk text is kept verbatim so the union
// of all chunks covers the original string.
func (c *Chunker) windows(text string) []models.Chunk {
	runes := []rune(text)
	stride := c.config.WindowSize - c.config.Overlap
	var out []models.Chunk
	for start := 0; start < len(runes); start += stride {
		end := start + c.config.WindowSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := string(runes[start:end])
		if strings.TrimSpace(piece) != "" {
			out = append(out, models.Chunk{Index: len(out), Text: piece})
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
