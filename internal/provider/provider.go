// provider.go - Normalized request/result types and the dispatch layer

package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/secdoc/ocr-gateway/configs"
	"github.com/secdoc/ocr-gateway/internal/apperr"
	"github.com/secdoc/ocr-gateway/internal/common"
)

// MaxEncodedImageBytes guards the encoded payload size before any vendor
// call is attempted. ~7MB of base64 is roughly 5MB decoded, which is the
// strictest limit across the supported vendors.
const MaxEncodedImageBytes = 7 * 1024 * 1024

// Request is the normalized OCR request. Constructed per call, never
// persisted.
type Request struct {
	Provider    string
	ImageBase64 string
	Language    string
	Options     map[string]interface{}
}

// Result is the normalized OCR output. Text is always present: adapters
// yield "" when the vendor reports no recognizable content, never a null.
type Result struct {
	Text      string          `json:"text"`
	Provider  string          `json:"provider"`
	RawResult json.RawMessage `json:"rawResult"`
}

// Adapter turns a normalized request into one vendor's wire call and that
// vendor's wire response back into a Result. Each adapter owns its own
// request building and response parsing; vendor shape differences never
// leak past this interface.
type Adapter interface {
	Name() string
	Recognize(ctx context.Context, req *Request, reqCtx *common.RequestContext) (*Result, error)
}

// Registry holds one adapter per supported provider identifier.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry wires every adapter from the resolved configuration.
func NewRegistry(cfg *configs.Config) *Registry {
	return &Registry{
		adapters: map[string]Adapter{
			configs.ProviderBaidu:  NewBaiduAdapter(cfg),
			configs.ProviderAliyun: NewAliyunAdapter(cfg),
			configs.ProviderWechat: NewWechatAdapter(cfg),
			configs.ProviderGemini: NewGeminiAdapter(cfg),
		},
	}
}

// NewRegistryWith builds a registry from explicit adapters. Used by tests
// to substitute transports.
func NewRegistryWith(adapters ...Adapter) *Registry {
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Registry{adapters: m}
}

// Dispatch validates the request, applies the payload-size guard and
// invokes the matching adapter. Unknown providers and malformed requests
// are client errors; no adapter is invoked for them.
func (r *Registry) Dispatch(ctx context.Context, req *Request, reqCtx *common.RequestContext) (*Result, error) {
	if req.Provider == "" {
		return nil, apperr.Validationf("provider is required")
	}
	if req.ImageBase64 == "" {
		return nil, apperr.Validationf("imageBase64 is required")
	}
	if len(req.ImageBase64) > MaxEncodedImageBytes {
		return nil, apperr.Validationf("image payload exceeds %d bytes encoded (~5MB decoded)", MaxEncodedImageBytes)
	}

	adapter, ok := r.adapters[req.Provider]
	if !ok {
		return nil, apperr.Validationf("unsupported provider: %q (supported: %s)",
			req.Provider, strings.Join(configs.Providers, ", "))
	}

	return adapter.Recognize(ctx, req, reqCtx)
}

// DecodeImage decodes a base64 image payload, tolerating an optional
// data-URI prefix sent by browser callers.
func DecodeImage(imageBase64 string) ([]byte, error) {
	if idx := strings.Index(imageBase64, ";base64,"); idx >= 0 && strings.HasPrefix(imageBase64, "data:") {
		imageBase64 = imageBase64[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image payload: %w", err)
	}
	return data, nil
}
