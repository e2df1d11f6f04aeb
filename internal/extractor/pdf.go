package extractor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"docintel/internal/config"
	"docintel/internal/domain"
)

// PDFExtractor reads per-page text from PDF files. It tries the Go library
// first, then falls back to pdftotext if enabled and available.
type PDFExtractor struct {
	fallbackPdftotext bool
	normalize         bool
	logger            *zap.Logger
	readPDF           func(path string) ([]string, error)
}

// NewPDFExtractor creates an extractor from its configuration section.
func NewPDFExtractor(cfg config.ExtractorConfig, logger *zap.Logger) *PDFExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFExtractor{
		fallbackPdftotext: cfg.FallbackPdftotext,
		normalize:         cfg.Normalize,
		logger:            logger,
		readPDF:           extractPDFText,
	}
}

// Extract returns the non-blank pages of the PDF at path, in page order.
func (e *PDFExtractor) Extract(ctx context.Context, path string) ([]domain.Page, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrDocumentNotFound)
	}

	texts, err := e.readPDF(path)
	if err != nil && e.fallbackPdftotext {
		e.logger.Debug("pdf library failed, trying pdftotext", zap.String("path", path), zap.Error(err))
		texts, err = extractPdftotext(ctx, path)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text %s: %w", path, err)
	}
	return e.collectPages(texts), nil
}

// collectPages numbers page texts from 1 and drops blank pages.
func (e *PDFExtractor) collectPages(texts []string) []domain.Page {
	pages := make([]domain.Page, 0, len(texts))
	for i, text := range texts {
		if e.normalize {
			text = norm.NFKC.String(text)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i + 1, Text: text})
	}
	return pages
}

// extractPDFText returns one entry per page; unreadable pages are empty.
func extractPDFText(path string) ([]string, error) {
	return recoverParser(func() ([]string, error) {
		return readPages(path)
	})
}

// recoverParser turns a parser panic into an error. The parser panics on
// some malformed inputs.
func recoverParser(read func() ([]string, error)) (texts []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			texts, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	return read()
}

func readPages(path string) ([]string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := reader.NumPage()
	texts := make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		texts[i-1] = text
	}
	return texts, nil
}

func extractPdftotext(ctx context.Context, path string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return splitPages(string(out)), nil
}

// splitPages splits pdftotext output on form feeds.
func splitPages(text string) []string {
	return strings.Split(text, "\f")
}
