package chunker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-search/quarry/pkg/chunker"
)

func TestChunker_Paragraph(t *testing.T) {
	c := chunker.NewWithConfig(chunker.Config{Strategy: chunker.StrategyParagraph}, nil)

	chunks := c.Chunk("A\n\nB\n\n\nC")
	require.Len(t, chunks, 3)
	assert.Equal(t, "A", chunks[0].Text)
	assert.Equal(t, "B", chunks[1].Text)
	assert.Equal(t, "C", chunks[2].Text)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
	}
}

func TestChunker_EmptyText(t *testing.T) {
	c := chunker.NewWithConfig(chunker.Config{Strategy: chunker.StrategyParagraph}, nil)

	assert.Empty(t, c.Chunk(""))
	assert.Empty(t, c.Chunk("\n\n  \n\n"))
}

func TestChunker_UnknownStrategyFallsBack(t *testing.T) {
	c := chunker.NewWithConfig(chunker.Config{Strategy: "recursive"}, nil)

	chunks := c.Chunk("first\n\nsecond")
	require.Len(t, chunks, 2)
	assert.Equal(t, "first", chunks[0].Text)
	assert.Equal(t, "second", chunks[1].Text)
}

func TestChunker_SemanticWindows(t *testing.T) {
	c := chunker.NewWithConfig(chunker.Config{
		Strategy:   chunker.StrategySemantic,
		WindowSize: 10,
		Overlap:    3,
	}, nil)

	text := "abcdefghijklmnopqrstuvwxy" // 25 characters
	chunks := c.Chunk(text)
	require.Len(t, chunks, 4)

	// Each window starts stride (= 10-3 = 7) characters after the previous.
	for i, chunk := range chunks {
		start := i * 7
		end := start + 10
		if end > len(text) {
			end = len(text)
		}
		assert.Equal(t, text[start:end], chunk.Text)
	}

	// Adjacent chunks share the overlap region.
	assert.Equal(t, chunks[0].Text[7:], chunks[1].Text[:3])

	// The union of all chunks covers the original string.
	var covered strings.Builder
	covered.WriteString(chunks[0].Text)
	for i := 1; i < len(chunks); i++ {
		covered.WriteString(chunks[i].Text[3:])
	}
	assert.Equal(t, text, covered.String())
}

func TestChunker_SemanticShortText(t *testing.T) {
	c := chunker.NewWithConfig(chunker.Config{
		Strategy:   chunker.StrategySemantic,
		WindowSize: 1000,
		Overlap:    200,
	}, nil)

	chunks := c.Chunk("short text")
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0].Text)
}
