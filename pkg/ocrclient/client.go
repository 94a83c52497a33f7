// client.go - Go client facade mirroring the gateway's dispatch contract

package ocrclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Engine is the caller-side provider enumeration. It is wider than the
// gateway's wire vocabulary: LOCAL and ESEARCH name on-device recognition
// engines that the gateway cannot proxy.
type Engine string

const (
	EngineBaidu   Engine = "BAIDU"
	EngineAliyun  Engine = "ALIYUN"
	EngineWechat  Engine = "WECHAT"
	EngineGemini  Engine = "GEMINI"
	EngineLocal   Engine = "LOCAL"
	EngineESearch Engine = "ESEARCH"
)

// engineProviders remaps the internal enumeration onto the wire-level
// provider identifiers the gateway dispatcher expects. LOCAL and ESEARCH
// are deliberately absent: they must never reach the network.
var engineProviders = map[Engine]string{
	EngineBaidu:  "baidu",
	EngineAliyun: "aliyun",
	EngineWechat: "wechat",
	EngineGemini: "gemini",
}

// Result mirrors the gateway's normalized OCR output.
type Result struct {
	Text      string          `json:"text"`
	Provider  string          `json:"provider"`
	RawResult json.RawMessage `json:"rawResult"`
}

// LocalEngineError signals that the caller picked an on-device engine.
// Its message is deliberately different from transport failures: the fix
// is to invoke the local recognition service directly, not to retry the
// network.
type LocalEngineError struct {
	Engine Engine
}

func (e *LocalEngineError) Error() string {
	return fmt.Sprintf("engine %s is an on-device recognition engine: invoke the local service directly, the OCR gateway does not proxy it", e.Engine)
}

// GatewayError carries a failure envelope returned by the gateway with
// the original server-side message preserved.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("ocr gateway returned %d: %s", e.StatusCode, e.Message)
}

// Client calls the OCR gateway over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a gateway client
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// NewWithHTTPClient creates a gateway client with a custom transport.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type recognizeRequest struct {
	Provider    string                 `json:"provider"`
	ImageBase64 string                 `json:"imageBase64"`
	Language    string                 `json:"language,omitempty"`
	Options     map[string]interface{} `json:"options,omitempty"`
}

type recognizeEnvelope struct {
	Success bool    `json:"success"`
	Data    *Result `json:"data"`
	Error   string  `json:"error"`
}

// Recognize forwards an image to the gateway under the remapped provider
// identifier and returns the normalized result.
func (c *Client) Recognize(ctx context.Context, engine Engine, imageBase64, language string, options map[string]interface{}) (*Result, error) {
	if engine == EngineLocal || engine == EngineESearch {
		return nil, &LocalEngineError{Engine: engine}
	}

	wireProvider, ok := engineProviders[engine]
	if !ok {
		return nil, fmt.Errorf("unknown engine: %q", engine)
	}

	payload, err := json.Marshal(recognizeRequest{
		Provider:    wireProvider,
		ImageBase64: imageBase64,
		Language:    language,
		Options:     options,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recognize request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create recognize request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("no network connection to the OCR gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	var envelope recognizeEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse gateway response: %w", err)
	}

	if !envelope.Success || resp.StatusCode != http.StatusOK {
		msg := envelope.Error
		if msg == "" {
			msg = string(body)
		}
		return nil, &GatewayError{StatusCode: resp.StatusCode, Message: msg}
	}
	if envelope.Data == nil {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Message: "success envelope carried no data"}
	}

	return envelope.Data, nil
}
