// aliyun.go - Aliyun OCR adapter (market API, APPCODE bearer, single call)

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/secdoc/ocr-gateway/configs"
	"github.com/secdoc/ocr-gateway/internal/apperr"
	"github.com/secdoc/ocr-gateway/internal/common"
)

const aliyunOCRURL = "https://gjbsb.market.alicloudapi.com/ocrservice/advanced"

// AliyunAdapter calls the Aliyun market OCR API. Unlike Baidu and WeChat
// there is no token exchange; the APPCODE header authenticates directly.
type AliyunAdapter struct {
	appCode string
	ocrURL  string
	client  *http.Client
}

// NewAliyunAdapter creates an Aliyun adapter from resolved configuration
func NewAliyunAdapter(cfg *configs.Config) *AliyunAdapter {
	return &AliyunAdapter{
		appCode: cfg.AliyunAppCode,
		ocrURL:  aliyunOCRURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Name returns "aliyun"
func (a *AliyunAdapter) Name() string {
	return configs.ProviderAliyun
}

type aliyunOCRRequest struct {
	Img  string `json:"img"`
	Prob bool   `json:"prob"`
}

type aliyunOCRResponse struct {
	PrismWordsInfo []struct {
		Word string `json:"word"`
	} `json:"prism_wordsInfo"`
	PrismWnum int    `json:"prism_wnum"`
	ErrorCode int    `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Recognize performs the single signed call and joins prism_wordsInfo
// words with newlines. An absent or empty word list yields "".
func (a *AliyunAdapter) Recognize(ctx context.Context, req *Request, reqCtx *common.RequestContext) (*Result, error) {
	if a.appCode == "" {
		return nil, &apperr.ConfigurationError{Provider: a.Name(), Missing: []string{"ALIYUN_APPCODE"}}
	}

	payload, err := json.Marshal(aliyunOCRRequest{Img: req.ImageBase64, Prob: false})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal aliyun request: %w", err)
	}

	reqCtx.StartStep("aliyun_ocr_request")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.ocrURL, bytes.NewReader(payload))
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, fmt.Errorf("failed to create aliyun request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "APPCODE "+a.appCode)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, fmt.Errorf("aliyun OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, fmt.Errorf("failed to read aliyun response: %w", err)
	}

	// Market-API errors arrive as non-200 statuses with the diagnostic in
	// the X-Ca-Error-Message header or the body.
	if resp.StatusCode != http.StatusOK {
		msg := resp.Header.Get("X-Ca-Error-Message")
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		upErr := &apperr.UpstreamRequestError{
			Provider: a.Name(),
			Code:     strconv.Itoa(resp.StatusCode),
			Message:  msg,
		}
		reqCtx.EndStep("failed", nil, upErr)
		return nil, upErr
	}

	var ocr aliyunOCRResponse
	if err := json.Unmarshal(body, &ocr); err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, fmt.Errorf("failed to parse aliyun response: %w", err)
	}

	if ocr.ErrorCode != 0 {
		upErr := &apperr.UpstreamRequestError{
			Provider: a.Name(),
			Code:     strconv.Itoa(ocr.ErrorCode),
			Message:  ocr.ErrorMsg,
		}
		reqCtx.EndStep("failed", nil, upErr)
		return nil, upErr
	}
	reqCtx.EndStep("success", nil, nil)

	lines := make([]string, 0, len(ocr.PrismWordsInfo))
	for _, w := range ocr.PrismWordsInfo {
		lines = append(lines, w.Word)
	}

	return &Result{
		Text:      strings.Join(lines, "\n"),
		Provider:  a.Name(),
		RawResult: json.RawMessage(body),
	}, nil
}
