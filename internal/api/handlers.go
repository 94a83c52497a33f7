// handlers.go - HTTP handlers for dispatch, probing and analysis

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/secdoc/ocr-gateway/configs"
	"github.com/secdoc/ocr-gateway/internal/analysis"
	"github.com/secdoc/ocr-gateway/internal/apperr"
	"github.com/secdoc/ocr-gateway/internal/common"
	"github.com/secdoc/ocr-gateway/internal/provider"
	"github.com/secdoc/ocr-gateway/internal/storage"
)

// Handlers bundles the dispatcher, prober and analyzer behind the HTTP
// surface.
type Handlers struct {
	cfg      *configs.Config
	registry *provider.Registry
	prober   *provider.Prober
	analyzer *analysis.Analyzer
}

// NewHandlers wires the full stack from resolved configuration
func NewHandlers(cfg *configs.Config) *Handlers {
	return &Handlers{
		cfg:      cfg,
		registry: provider.NewRegistry(cfg),
		prober:   provider.NewProber(cfg),
		analyzer: analysis.NewAnalyzer(cfg),
	}
}

// NewHandlersWith builds handlers from explicit components. Used by tests.
func NewHandlersWith(cfg *configs.Config, registry *provider.Registry, prober *provider.Prober, analyzer *analysis.Analyzer) *Handlers {
	return &Handlers{cfg: cfg, registry: registry, prober: prober, analyzer: analyzer}
}

type ocrRequest struct {
	Provider    string                 `json:"provider"`
	ImageBase64 string                 `json:"imageBase64"`
	Language    string                 `json:"language"`
	Options     map[string]interface{} `json:"options"`
}

type probeRequest struct {
	Provider  string `json:"provider"`
	APIKey    string `json:"apiKey"`
	SecretKey string `json:"secretKey"`
}

type analyzeRequest struct {
	ImageBase64   string                      `json:"imageBase64"`
	MIMEType      string                      `json:"mimeType"`
	Terminology   []analysis.TerminologyEntry `json:"terminology"`
	TerminologyID string                      `json:"terminologyId"`
	Text          string                      `json:"text"` // pre-extracted OCR text, auxiliary only
}

type parseTerminologyRequest struct {
	Text string `json:"text"`
}

// Recognize handles POST /ocr: validates, dispatches to the matching
// provider adapter and wraps the normalized result in a success envelope.
func (h *Handlers) Recognize(c *gin.Context) {
	var req ocrRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, nil, apperr.Validationf("invalid request body: %v", err))
		return
	}

	reqCtx := common.NewRequestContext(req.Provider)
	result, err := h.registry.Dispatch(c.Request.Context(), &provider.Request{
		Provider:    req.Provider,
		ImageBase64: req.ImageBase64,
		Language:    req.Language,
		Options:     req.Options,
	}, reqCtx)

	if err != nil {
		h.auditLog(reqCtx, "ocr", "failed", err, 0)
		h.writeError(c, reqCtx, err)
		return
	}

	h.auditLog(reqCtx, "ocr", "success", nil, len(result.Text))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// Probe handles POST /ocr/test: reports per-field credential completeness
// and, for Baidu, a live token handshake.
func (h *Handlers) Probe(c *gin.Context) {
	var req probeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, nil, apperr.Validationf("invalid request body: %v", err))
		return
	}
	if req.Provider == "" {
		h.writeError(c, nil, apperr.Validationf("provider is required"))
		return
	}

	reqCtx := common.NewRequestContext(req.Provider)
	result, err := h.prober.Probe(c.Request.Context(), req.Provider, req.APIKey, req.SecretKey)
	if err != nil {
		h.writeError(c, reqCtx, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// Analyze handles POST /analyze: terminology-aware proofreading of a
// document image with a schema-constrained detection report.
func (h *Handlers) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, nil, apperr.Validationf("invalid request body: %v", err))
		return
	}
	if req.ImageBase64 == "" {
		h.writeError(c, nil, apperr.Validationf("imageBase64 is required"))
		return
	}
	if len(req.ImageBase64) > provider.MaxEncodedImageBytes {
		h.writeError(c, nil, apperr.Validationf("image payload exceeds %d bytes encoded (~5MB decoded)", provider.MaxEncodedImageBytes))
		return
	}

	imageData, err := provider.DecodeImage(req.ImageBase64)
	if err != nil {
		h.writeError(c, nil, apperr.Validationf("%v", err))
		return
	}

	reqCtx := common.NewRequestContext(configs.ProviderGemini)

	terms := req.Terminology
	if req.TerminologyID != "" {
		list, err := storage.GetTerminologyList(req.TerminologyID)
		if err != nil {
			h.writeError(c, reqCtx, apperr.Validationf("%v", err))
			return
		}
		terms = list.Entries
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), imageData, req.MIMEType, terms, req.Text, reqCtx)
	if err != nil {
		h.auditLog(reqCtx, "analyze", "failed", err, 0)
		h.writeError(c, reqCtx, err)
		return
	}

	h.auditLog(reqCtx, "analyze", "success", nil, len(result.Text))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"text":      result.Text,
			"detection": result,
		},
	})
}

// ParseTerminology handles POST /terminology/parse: lifts term definitions
// out of free-form text. Empty input yields an empty list.
func (h *Handlers) ParseTerminology(c *gin.Context) {
	var req parseTerminologyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, nil, apperr.Validationf("invalid request body: %v", err))
		return
	}

	reqCtx := common.NewRequestContext(configs.ProviderGemini)
	terms, err := h.analyzer.ParseTerminology(c.Request.Context(), req.Text, reqCtx)
	if err != nil {
		h.auditLog(reqCtx, "terminology_parse", "failed", err, 0)
		h.writeError(c, reqCtx, err)
		return
	}

	h.auditLog(reqCtx, "terminology_parse", "success", nil, 0)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"terms": terms,
		},
	})
}

// writeError converts a typed failure into the uniform failure envelope.
// The original message is always preserved; internal diagnostics ride
// along only in development deployments.
func (h *Handlers) writeError(c *gin.Context, reqCtx *common.RequestContext, err error) {
	status := http.StatusInternalServerError

	var validationErr *apperr.ValidationError
	if errors.As(err, &validationErr) {
		status = http.StatusBadRequest
	}

	if reqCtx != nil {
		reqCtx.LogError("request failed: %v", err)
	}

	body := gin.H{
		"success": false,
		"error":   err.Error(),
	}
	if h.cfg.IsDevelopment() {
		body["details"] = fmt.Sprintf("%+v", err)
	}

	c.JSON(status, body)
}

// auditLog records request metadata when the optional store is connected.
func (h *Handlers) auditLog(reqCtx *common.RequestContext, operation, status string, err error, textLength int) {
	if !storage.Enabled() {
		return
	}

	entry := storage.RequestLog{
		RequestID:  reqCtx.RequestID,
		Provider:   reqCtx.Provider,
		Operation:  operation,
		Status:     status,
		DurationMs: reqCtx.DurationMs(),
		TextLength: textLength,
		CreatedAt:  time.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	storage.SaveRequestLog(entry)
}
