// Package service exposes the export pipeline over fasthttp.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/chatexport/internal/common/httputil"
	"github.com/edgecomet/chatexport/internal/common/requestid"
	"github.com/edgecomet/chatexport/internal/export/artifact"
	"github.com/edgecomet/chatexport/internal/export/conversation"
	"github.com/edgecomet/chatexport/internal/export/exporterr"
	"github.com/edgecomet/chatexport/internal/export/pipeline"
)

// Routes
const (
	PathFetchData     = "/api/fetchData"
	PathConversations = "/api/conversations"
	PathScrape        = "/api/scrape"
	PathHealth        = "/health"
)

// Exporter is the pipeline as seen by the HTTP layer
type Exporter interface {
	Extract(ctx context.Context, url string) (*pipeline.Conversation, error)
	Export(ctx context.Context, req pipeline.RenderRequest) (*artifact.Artifact, error)
}

// HTTPMetrics records per-request outcomes
type HTTPMetrics interface {
	RecordHTTPRequest(endpoint string, status int, duration time.Duration)
}

type extractRequest struct {
	URL string `json:"url"`
}

type scrapeRequest struct {
	URL         string `json:"url"`
	FileName    string `json:"fileName,omitempty"`
	PaperFormat string `json:"paperFormat,omitempty"`
	DarkMode    bool   `json:"darkMode,omitempty"`
}

// ConversationsResponse is the paired response shape
type ConversationsResponse struct {
	Conversations []conversation.Turn `json:"conversations"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// Handler routes and serves API requests
type Handler struct {
	exporter Exporter
	metrics  HTTPMetrics
	logger   *zap.Logger
}

func NewHandler(exporter Exporter, metrics HTTPMetrics, logger *zap.Logger) *Handler {
	return &Handler{exporter: exporter, metrics: metrics, logger: logger}
}

// ServeHTTP is the fasthttp entry point
func (h *Handler) ServeHTTP(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	path := string(ctx.Path())
	method := string(ctx.Method())

	reqID := requestid.GenerateRequestID(string(ctx.Request.Header.Peek(requestid.HeaderName)))
	ctx.Response.Header.Set(requestid.HeaderName, reqID)
	logger := h.logger.With(zap.String("request_id", reqID))

	switch {
	case method == fasthttp.MethodPost && path == PathFetchData:
		h.handleFetchData(ctx, logger)
	case method == fasthttp.MethodPost && path == PathConversations:
		h.handleConversations(ctx, logger)
	case method == fasthttp.MethodPost && path == PathScrape:
		h.handleScrape(ctx, logger)
	case method == fasthttp.MethodGet && path == PathHealth:
		httputil.JSON(ctx, HealthResponse{Status: "ok"}, fasthttp.StatusOK)
	default:
		httputil.JSONError(ctx, "Not Found", fasthttp.StatusNotFound)
		path = "other"
	}

	if h.metrics != nil {
		h.metrics.RecordHTTPRequest(path, ctx.Response.StatusCode(), time.Since(start))
	}
}

// Browser and fetch work is not tied to the client connection; each stage
// carries its own timeout.
func detachedContext() context.Context {
	return context.Background()
}

func (h *Handler) handleFetchData(ctx *fasthttp.RequestCtx, logger *zap.Logger) {
	conv, ok := h.extract(ctx, logger)
	if !ok {
		return
	}
	httputil.JSON(ctx, conv.Messages, fasthttp.StatusOK)
}

func (h *Handler) handleConversations(ctx *fasthttp.RequestCtx, logger *zap.Logger) {
	conv, ok := h.extract(ctx, logger)
	if !ok {
		return
	}
	httputil.JSON(ctx, ConversationsResponse{Conversations: conversation.Pair(conv.Messages)}, fasthttp.StatusOK)
}

func (h *Handler) extract(ctx *fasthttp.RequestCtx, logger *zap.Logger) (*pipeline.Conversation, bool) {
	var req extractRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		logger.Debug("Invalid JSON body", zap.Error(err))
		httputil.JSONError(ctx, "Invalid JSON body", fasthttp.StatusBadRequest)
		return nil, false
	}

	conv, err := h.exporter.Extract(detachedContext(), req.URL)
	if err != nil {
		h.writeError(ctx, logger, req.URL, err, exporterr.HTTPStatus(err), "Failed to fetch content")
		return nil, false
	}

	logger.Info("Conversation extracted",
		zap.String("url", req.URL),
		zap.Int("messages", len(conv.Messages)))
	return conv, true
}

func (h *Handler) handleScrape(ctx *fasthttp.RequestCtx, logger *zap.Logger) {
	var req scrapeRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		logger.Debug("Invalid JSON body", zap.Error(err))
		httputil.JSONError(ctx, "Invalid JSON body", fasthttp.StatusBadRequest)
		return
	}

	art, err := h.exporter.Export(detachedContext(), pipeline.RenderRequest{
		URL:         req.URL,
		FileName:    req.FileName,
		PaperFormat: req.PaperFormat,
		DarkMode:    req.DarkMode,
	})
	if err != nil {
		// extraction failures are not split into 404 here
		status := fasthttp.StatusInternalServerError
		if exporterr.IsKind(err, exporterr.KindInvalidInput) {
			status = fasthttp.StatusBadRequest
		}
		h.writeError(ctx, logger, req.URL, err, status, "Failed to generate PDF")
		return
	}

	for _, header := range art.Headers() {
		ctx.Response.Header.Set(header[0], header[1])
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(art.Body)

	logger.Info("PDF exported",
		zap.String("url", req.URL),
		zap.String("file_name", art.FileName),
		zap.Int("pdf_size", len(art.Body)))
}

// writeError logs the full cause and returns only the public message
func (h *Handler) writeError(ctx *fasthttp.RequestCtx, logger *zap.Logger, url string, err error, status int, fallback string) {
	fields := []zap.Field{
		zap.String("stage", exporterr.StageOf(err)),
		zap.String("url", url),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= fasthttp.StatusInternalServerError {
		logger.Error("Export request failed", fields...)
	} else {
		logger.Warn("Export request rejected", fields...)
	}

	httputil.JSONError(ctx, exporterr.PublicMessage(err, fallback), status)
}
