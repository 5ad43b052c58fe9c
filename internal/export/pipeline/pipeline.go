// Package pipeline runs the export stages in order: validate, extract,
// normalize, then either return the conversation or synthesize, render
// and finalize a PDF.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/chatexport/internal/common/config"
	"github.com/edgecomet/chatexport/internal/common/urlutil"
	"github.com/edgecomet/chatexport/internal/export/artifact"
	"github.com/edgecomet/chatexport/internal/export/chrome"
	"github.com/edgecomet/chatexport/internal/export/conversation"
	"github.com/edgecomet/chatexport/internal/export/document"
	"github.com/edgecomet/chatexport/internal/export/exporterr"
	"github.com/edgecomet/chatexport/internal/export/extractor"
)

// Printer turns a synthesized document into PDF bytes
type Printer interface {
	PrintPDF(ctx context.Context, html string, opts chrome.PrintOptions) ([]byte, error)
}

// Recorder receives stage timings and outcomes
type Recorder interface {
	RecordStage(stage string, duration time.Duration)
	RecordFailure(err error)
	RecordConversation(messages int)
	RecordPDF(size int)
}

// RenderRequest is one PDF export request
type RenderRequest struct {
	URL         string
	FileName    string
	PaperFormat string
	DarkMode    bool
}

// Conversation is the normalized result of an extraction
type Conversation struct {
	Title    string
	Messages []conversation.Message
}

// Pipeline wires the stages for both endpoints. It holds no per-request state.
type Pipeline struct {
	listExtractor   extractor.Extractor
	renderExtractor extractor.Extractor
	printer         Printer
	export          config.ExportConfig
	recorder        Recorder
	logger          *zap.Logger

	synthesize func(messages []conversation.Message, title string, darkMode bool) (string, error)
}

// New creates a pipeline. listExtractor serves the JSON endpoints and
// renderExtractor the PDF endpoint.
func New(listExtractor, renderExtractor extractor.Extractor, printer Printer, export config.ExportConfig, recorder Recorder, logger *zap.Logger) *Pipeline {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Pipeline{
		listExtractor:   listExtractor,
		renderExtractor: renderExtractor,
		printer:         printer,
		export:          export,
		recorder:        recorder,
		logger:          logger,
		synthesize:      document.Synthesize,
	}
}

// ValidateURL rejects missing or non-absolute URLs before any I/O
func ValidateURL(raw string) error {
	if raw == "" {
		return exporterr.InvalidInput("URL is required")
	}
	if err := urlutil.ValidateAbsoluteURL(raw); err != nil {
		return exporterr.InvalidInput("Invalid URL format")
	}
	return nil
}

// ValidateRenderRequest checks req and fills in the default paper format
func (p *Pipeline) ValidateRenderRequest(req *RenderRequest) error {
	if err := ValidateURL(req.URL); err != nil {
		return err
	}
	if req.PaperFormat == "" {
		req.PaperFormat = p.export.DefaultPaperFormat
	}
	if !p.export.IsAllowedPaperFormat(req.PaperFormat) {
		return exporterr.InvalidInput("Invalid paper format")
	}
	return nil
}

// Extract returns the normalized conversation behind url
func (p *Pipeline) Extract(ctx context.Context, url string) (*Conversation, error) {
	if err := ValidateURL(url); err != nil {
		return nil, p.fail(err)
	}
	return p.extract(ctx, p.listExtractor, url)
}

func (p *Pipeline) extract(ctx context.Context, ex extractor.Extractor, url string) (*Conversation, error) {
	start := time.Now()
	result, err := ex.Extract(ctx, url)
	p.recorder.RecordStage(exporterr.StageExtract, time.Since(start))
	if err != nil {
		return nil, p.fail(err)
	}

	messages, err := conversation.Normalize(result.Items)
	if err != nil {
		return nil, p.fail(err)
	}
	p.recorder.RecordConversation(len(messages))

	p.logger.Debug("Conversation extracted",
		zap.String("url", url),
		zap.String("title", result.Title),
		zap.Int("raw_items", len(result.Items)),
		zap.Int("messages", len(messages)))

	return &Conversation{Title: result.Title, Messages: messages}, nil
}

// Export runs the full chain and returns the finished PDF artifact.
// Validation happens before any network or browser work.
func (p *Pipeline) Export(ctx context.Context, req RenderRequest) (*artifact.Artifact, error) {
	if err := p.ValidateRenderRequest(&req); err != nil {
		return nil, p.fail(err)
	}

	conv, err := p.extract(ctx, p.renderExtractor, req.URL)
	if err != nil {
		return nil, err
	}

	title := conv.Title
	if title == "" {
		title = p.export.DefaultTitle
	}

	start := time.Now()
	html, err := p.synthesize(conv.Messages, title, req.DarkMode)
	p.recorder.RecordStage(exporterr.StageSynthesize, time.Since(start))
	if err != nil {
		return nil, p.fail(exporterr.Synthesis("Failed to render PDF", err))
	}

	start = time.Now()
	pdf, err := p.printer.PrintPDF(ctx, html, chrome.PrintOptions{
		PaperFormat: req.PaperFormat,
		MarginPx:    p.export.MarginPx,
	})
	p.recorder.RecordStage(exporterr.StageRender, time.Since(start))
	if err != nil {
		return nil, p.fail(err)
	}
	p.recorder.RecordPDF(len(pdf))

	return artifact.Finalize(pdf, req.FileName, title, p.export), nil
}

func (p *Pipeline) fail(err error) error {
	p.recorder.RecordFailure(err)
	return err
}

type nopRecorder struct{}

func (nopRecorder) RecordStage(string, time.Duration) {}
func (nopRecorder) RecordFailure(error)               {}
func (nopRecorder) RecordConversation(int)            {}
func (nopRecorder) RecordPDF(int)                     {}
