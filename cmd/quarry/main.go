package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/quarry-search/quarry/pkg/agent"
	"github.com/quarry-search/quarry/pkg/chunker"
	"github.com/quarry-search/quarry/pkg/config"
	"github.com/quarry-search/quarry/pkg/llm"
	"github.com/quarry-search/quarry/pkg/loader"
	"github.com/quarry-search/quarry/pkg/papers"
	"github.com/quarry-search/quarry/pkg/pipeline"
	"github.com/quarry-search/quarry/pkg/search"
	"github.com/quarry-search/quarry/pkg/store"
	"github.com/quarry-search/quarry/pkg/tokens"
	"github.com/quarry-search/quarry/pkg/websearch"
	"github.com/quarry-search/quarry/server"
)

const usage = `Usage: quarry <command> [flags]

Commands:
  ingest    chunk, summarize, embed and index documents
  query     run a hybrid search against the index
  research  answer a question from web search and the papers database
  serve     expose search as an MCP server

Run 'quarry <command> -h' for command flags.`

func main() {
	godotenv.Load() //nolint:errcheck

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string) error {
	switch command {
	case "ingest":
		return runIngest(ctx, args)
	case "query":
		return runQuery(ctx, args)
	case "research":
		return runResearch(ctx, args)
	case "serve":
		return runServe(ctx, args)
	case "-h", "--help", "help":
		fmt.Println(usage)
		return nil
	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// newLogger writes structured logs to stderr so stdout stays clean for
// results and for the stdio MCP transport.
func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %s", e.Error())
		}
		return nil, fmt.Errorf("invalid configuration")
	}
	return cfg, nil
}

type stack struct {
	cfg      *config.Config
	store    *store.Store
	embedder *llm.Embedder
	logger   *zap.Logger
}

func buildStack(configPath string, verbose bool) (*stack, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := newLogger(verbose)

	st, err := store.NewWithConfig(store.Config{
		Addresses: cfg.Index.Addresses,
		Username:  cfg.Index.Username,
		Password:  cfg.Index.Password,
		Index:     cfg.Index.Name,
		VectorDim: cfg.Index.VectorDim,
		Timeout:   cfg.Index.Timeout(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize index store: %w", err)
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.EmbeddingModel,
		Timeout: cfg.OpenAI.Timeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &stack{cfg: cfg, store: st, embedder: embedder, logger: logger}, nil
}

func runIngest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	docsDir := fs.String("dir", "", "Directory of documents to ingest")
	verbose := fs.Bool("v", false, "Enable debug logging")
	fs.Parse(args) //nolint:errcheck

	s, err := buildStack(*configPath, *verbose)
	if err != nil {
		return err
	}
	defer s.logger.Sync() //nolint:errcheck

	dir := *docsDir
	if dir == "" {
		dir = s.cfg.Ingest.DocsDir
	}
	if dir == "" {
		return fmt.Errorf("no documents directory: pass -dir or set ingest.docs_dir")
	}

	// The index must exist with a matching schema before anything is
	// written.
	if err := s.store.EnsureIndex(ctx); err != nil {
		return err
	}

	accountant := tokens.New()
	summarizer, err := llm.NewSummarizerWithConfig(llm.SummarizerConfig{
		APIKey:           s.cfg.OpenAI.APIKey,
		BaseURL:          s.cfg.OpenAI.BaseURL,
		Model:            s.cfg.OpenAI.SummaryModel,
		MaxOutputTokens:  s.cfg.OpenAI.SummaryMaxTokens,
		MaxContextTokens: s.cfg.OpenAI.ContextMaxTokens,
		Temperature:      s.cfg.OpenAI.Temperature,
		Timeout:          s.cfg.OpenAI.Timeout(),
	}, accountant, s.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize summarizer: %w", err)
	}

	ch := chunker.NewWithConfig(chunker.Config{
		Strategy:   s.cfg.Chunker.Strategy,
		WindowSize: s.cfg.Chunker.WindowSize,
		Overlap:    s.cfg.Chunker.Overlap,
	}, s.logger)

	color.Blue("\nLoading documents from %s\n", dir)
	loadSpinner := getSpinner(" Reading files...")
	docs, err := loader.NewWithConfig(loader.Config{}, s.logger).LoadDir(ctx, dir)
	loadSpinner.Finish() //nolint:errcheck
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}
	if len(docs) == 0 {
		color.Yellow("No documents found under %s", dir)
		return nil
	}
	color.Green("✓ Loaded %d documents\n", len(docs))

	p := pipeline.NewWithConfig(pipeline.Config{
		Workers:          s.cfg.Ingest.Workers,
		EmbedConcurrency: s.cfg.Ingest.EmbedConcurrency,
	}, ch, summarizer, s.embedder, s.store, s.logger)

	bar := getProgressBar(len(docs), " Ingesting documents...")
	var written, failed, skipped int32
	results := p.IngestAll(ctx, docs, func(r pipeline.Result) {
		bar.Add(1) //nolint:errcheck
		switch {
		case r.Err != nil:
			atomic.AddInt32(&failed, 1)
		case r.Skipped:
			atomic.AddInt32(&skipped, 1)
		default:
			atomic.AddInt32(&written, 1)
		}
	})
	bar.Finish() //nolint:errcheck

	color.Green("\n✓ Ingested %d documents (%d skipped, %d failed)\n", written, skipped, failed)
	for _, r := range results {
		if r.Err != nil {
			color.Red("  %s: %v", r.Path, r.Err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d documents failed", failed)
	}
	return nil
}

func runQuery(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	limit := fs.Int("limit", 10, "Maximum number of results")
	verbose := fs.Bool("v", false, "Enable debug logging")
	fs.Parse(args) //nolint:errcheck

	if fs.NArg() == 0 {
		return fmt.Errorf("usage: quarry query [flags] <query text>")
	}
	text := fs.Arg(0)

	s, err := buildStack(*configPath, *verbose)
	if err != nil {
		return err
	}
	defer s.logger.Sync() //nolint:errcheck

	engine := search.New(s.embedder, s.store, *limit, s.logger)

	spinner := getSpinner(" Searching...")
	hits, err := engine.Query(ctx, text)
	spinner.Finish() //nolint:errcheck
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		color.Yellow("\nNo matching documents.")
		return nil
	}

	fmt.Println()
	for i, h := range hits {
		color.Cyan("%d. %s (score %.3f)", i+1, h.FileName, h.Score)
		fmt.Printf("   %s\n", h.FilePath)
		if h.Summary != "" {
			fmt.Printf("   %s\n", h.Summary)
		}
	}
	return nil
}

func runResearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("research", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	verbose := fs.Bool("v", false, "Enable debug logging")
	fs.Parse(args) //nolint:errcheck

	if fs.NArg() == 0 {
		return fmt.Errorf("usage: quarry research [flags] <question>")
	}
	question := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := newLogger(*verbose)
	defer logger.Sync() //nolint:errcheck

	chat, err := llm.NewChatWithConfig(llm.ChatConfig{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.SummaryModel,
		Temperature: cfg.OpenAI.Temperature,
		Timeout:     cfg.OpenAI.Timeout(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	paperDB, err := papers.Open(cfg.Papers.DBPath)
	if err != nil {
		return err
	}
	defer paperDB.Close()

	web := websearch.NewWithConfig(websearch.Config{
		Endpoint:  cfg.WebSearch.Endpoint,
		APIKey:    cfg.WebSearch.APIKey,
		RateLimit: cfg.WebSearch.RateLimit,
	})

	spinner := getSpinner(" Researching...")
	answer, err := agent.New(web, paperDB, chat, cfg.WebSearch.ResultLimit, logger).Research(ctx, question)
	spinner.Finish() //nolint:errcheck
	if err != nil {
		return err
	}

	assistant := color.New(color.FgCyan).PrintfFunc()
	assistant("\n%s\n", answer)
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	addr := fs.String("addr", "", "Serve MCP over HTTP on this address instead of stdio")
	verbose := fs.Bool("v", false, "Enable debug logging")
	fs.Parse(args) //nolint:errcheck

	s, err := buildStack(*configPath, *verbose)
	if err != nil {
		return err
	}
	defer s.logger.Sync() //nolint:errcheck

	engine := search.New(s.embedder, s.store, 10, s.logger)

	var paperDB server.PaperSearcher
	if db, err := papers.Open(s.cfg.Papers.DBPath); err != nil {
		s.logger.Warn("papers database unavailable", zap.Error(err))
	} else {
		defer db.Close()
		paperDB = db
	}

	var web server.WebSearcher
	if s.cfg.WebSearch.APIKey != "" {
		web = websearch.NewWithConfig(websearch.Config{
			Endpoint:  s.cfg.WebSearch.Endpoint,
			APIKey:    s.cfg.WebSearch.APIKey,
			RateLimit: s.cfg.WebSearch.RateLimit,
		})
	}

	srv := server.New(engine, paperDB, web, s.logger)

	listen := *addr
	if listen == "" {
		listen = s.cfg.Server.Addr
	}
	if listen != "" {
		return srv.RunHTTP(ctx, listen)
	}
	return srv.Run(ctx)
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
