package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"go.uber.org/zap"

	"github.com/quarry-search/quarry/internal/models"
)

type Config struct {
	// Extensions limits which files are picked up. Lowercase, with the
	// leading dot. Defaults to .txt, .md and .pdf.
	Extensions []string
	// OnProgress, if set, is called with each file path as it is read.
	OnProgress func(path string)
}

// Loader turns files on disk into in-memory documents ready for ingestion.
type Loader struct {
	config Config
	logger *zap.Logger
}

func NewWithConfig(config Config, logger *zap.Logger) *Loader {
	if len(config.Extensions) == 0 {
		config.Extensions = []string{".txt", ".md", ".pdf"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{config: config, logger: logger}
}

// LoadDir walks root recursively and loads every file with a configured
// extension. A file that cannot be read is logged and skipped; it never
// aborts the batch.
func (l *Loader) LoadDir(ctx context.Context, root string) ([]models.Document, error) {
	var docs []models.Document
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !l.wants(path) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		doc, err := l.LoadFile(ctx, path)
		if err != nil {
			l.logger.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
			return nil
		}
		if l.config.OnProgress != nil {
			l.config.OnProgress(path)
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return docs, nil
}

// LoadFile reads a single file into a document. PDFs are extracted page by
// page and joined with blank lines so the paragraph chunker sees page
// boundaries; everything else is read as plain text.
func (l *Loader) LoadFile(ctx context.Context, path string) (models.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return models.Document{}, err
	}

	var text string
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err = l.loadPDF(ctx, abs)
	} else {
		var raw []byte
		raw, err = os.ReadFile(abs)
		text = string(raw)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("loading %s: %w", path, err)
	}

	return models.Document{
		Name: filepath.Base(abs),
		Path: abs,
		Text: text,
	}, nil
}

func (l *Loader) loadPDF(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	pages, err := documentloaders.NewPDF(f, info.Size()).Load(ctx)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(pages))
	for _, page := range pages {
		parts = append(parts, page.PageContent)
	}
	return strings.Join(parts, "\n\n"), nil
}

func (l *Loader) wants(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range l.config.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}
