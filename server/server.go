package server

import (
	"context"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/quarry-search/quarry/internal/models"
	"github.com/quarry-search/quarry/pkg/papers"
)

const version = "0.1.0"

// QueryEngine answers retrieval queries against the document index.
type QueryEngine interface {
	Query(ctx context.Context, text string) ([]models.ParentHit, error)
}

// PaperSearcher looks up entries in the local papers database.
type PaperSearcher interface {
	Search(ctx context.Context, query string) ([]papers.Paper, error)
}

// WebSearcher runs an external web search.
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Server exposes the retrieval stack as MCP tools so that agent clients can
// search the index, the papers database and the web.
type Server struct {
	engine QueryEngine
	papers PaperSearcher
	web    WebSearcher
	server *mcp.Server
	logger *zap.Logger
}

func New(engine QueryEngine, paperDB PaperSearcher, web WebSearcher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		engine: engine,
		papers: paperDB,
		web:    web,
		logger: logger,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "quarry",
			Version: version,
		}, nil),
	}

	s.registerTools()
	s.registerPrompts()

	return s
}

// Run serves MCP over stdio until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves MCP over streamable HTTP on addr until the context is
// cancelled, then shuts down gracefully.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	s.logger.Info("serving over http", zap.String("addr", addr))
	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
