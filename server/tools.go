package server

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the query to run against the document index"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []DocumentResult `json:"results"`
	Count   int              `json:"count"`
}

// DocumentResult is one ranked document from the index.
type DocumentResult struct {
	DocID     string  `json:"doc_id"`
	FileName  string  `json:"file_name"`
	FilePath  string  `json:"file_path"`
	Summary   string  `json:"summary"`
	Timestamp string  `json:"timestamp"`
	Score     float64 `json:"score"`
}

// PapersInput is the input schema for the searchPapers tool.
type PapersInput struct {
	Query string `json:"query" jsonschema:"text matched against paper titles, abstracts and authors"`
}

// PapersOutput is the output schema for the searchPapers tool.
type PapersOutput struct {
	Papers []PaperResult `json:"papers"`
	Count  int           `json:"count"`
}

// PaperResult is one paper from the local database.
type PaperResult struct {
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Authors  string `json:"authors"`
}

// WebInput is the input schema for the searchWeb tool.
type WebInput struct {
	Query string `json:"query" jsonschema:"the web search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default 5)"`
}

// WebOutput is the output schema for the searchWeb tool.
type WebOutput struct {
	Results []string `json:"results"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the ingested document index with hybrid lexical and vector retrieval",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "searchPapers",
		Description: "Search the local research papers database",
	}, s.handleSearchPapers)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "searchWeb",
		Description: "Search the web for current information",
	}, s.handleSearchWeb)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	hits, err := s.engine.Query(ctx, input.Query)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	out := SearchOutput{Results: make([]DocumentResult, len(hits)), Count: len(hits)}
	for i, h := range hits {
		out.Results[i] = DocumentResult{
			DocID:     h.DocID,
			FileName:  h.FileName,
			FilePath:  h.FilePath,
			Summary:   h.Summary,
			Timestamp: h.Timestamp,
			Score:     h.Score,
		}
	}
	return nil, out, nil
}

func (s *Server) handleSearchPapers(ctx context.Context, _ *mcp.CallToolRequest, input PapersInput) (*mcp.CallToolResult, PapersOutput, error) {
	if s.papers == nil {
		return nil, PapersOutput{}, fmt.Errorf("papers database is not configured")
	}

	hits, err := s.papers.Search(ctx, input.Query)
	if err != nil {
		return nil, PapersOutput{}, err
	}

	out := PapersOutput{Papers: make([]PaperResult, len(hits)), Count: len(hits)}
	for i, p := range hits {
		out.Papers[i] = PaperResult{Title: p.Title, Abstract: p.Abstract, Authors: p.Authors}
	}
	return nil, out, nil
}

func (s *Server) handleSearchWeb(ctx context.Context, _ *mcp.CallToolRequest, input WebInput) (*mcp.CallToolResult, WebOutput, error) {
	if s.web == nil {
		return nil, WebOutput{}, fmt.Errorf("web search is not configured")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 5
	}
	results, err := s.web.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, WebOutput{}, err
	}
	return nil, WebOutput{Results: results}, nil
}

func (s *Server) registerPrompts() {
	s.server.AddPrompt(&mcp.Prompt{
		Name:        "researchPrompt",
		Description: "Template for answering a research question from search results and papers",
		Arguments: []*mcp.PromptArgument{
			{Name: "query", Description: "the research question", Required: true},
		},
	}, s.handleResearchPrompt)
}

func (s *Server) handleResearchPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	query := req.Params.Arguments["query"]
	text := fmt.Sprintf("You are a helpful research assistant. Use the search, searchPapers and searchWeb tools to gather context, then answer the question.\n\nQuestion: %s", query)
	return &mcp.GetPromptResult{
		Description: "research assistant prompt",
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: text}},
		},
	}, nil
}
