package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/quarry-search/quarry/pkg/papers"
)

type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

type PaperSearcher interface {
	Search(ctx context.Context, query string) ([]papers.Paper, error)
}

type Chatter interface {
	Chat(ctx context.Context, system, user string, temperature float64) (string, error)
}

const researchSystem = "You are a helpful research assistant. Combine the following web search results and database papers to answer the user's query."

// Researcher answers a query by gathering web results and local papers and
// handing both to the chat model. Each source is best effort: a failed
// lookup is logged and the answer is produced from whatever remains.
type Researcher struct {
	web      WebSearcher
	papers   PaperSearcher
	chat     Chatter
	webLimit int
	logger   *zap.Logger
}

func New(web WebSearcher, paperDB PaperSearcher, chat Chatter, webLimit int, logger *zap.Logger) *Researcher {
	if webLimit <= 0 {
		webLimit = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Researcher{web: web, papers: paperDB, chat: chat, webLimit: webLimit, logger: logger}
}

func (r *Researcher) Research(ctx context.Context, query string) (string, error) {
	var b strings.Builder

	b.WriteString("=== Web Results ===\n")
	if r.web != nil {
		results, err := r.web.Search(ctx, query, r.webLimit)
		if err != nil {
			r.logger.Warn("web search unavailable", zap.Error(err))
		}
		for _, res := range results {
			b.WriteString(res)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("=== DB Papers ===\n")
	if r.papers != nil {
		hits, err := r.papers.Search(ctx, query)
		if err != nil {
			r.logger.Warn("paper lookup failed", zap.Error(err))
		}
		for _, p := range hits {
			fmt.Fprintf(&b, "Title: %s\nAuthors: %s\nAbstract: %s\n\n", p.Title, p.Authors, p.Abstract)
		}
	}

	user := fmt.Sprintf("User query: %s\n\nSearch context:\n%s\n", query, b.String())
	return r.chat.Chat(ctx, researchSystem, user, 0.4)
}
