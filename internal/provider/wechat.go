// wechat.go - WeChat OCR adapter (access-token exchange + cv/ocr/comm)

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/secdoc/ocr-gateway/configs"
	"github.com/secdoc/ocr-gateway/internal/apperr"
	"github.com/secdoc/ocr-gateway/internal/common"
)

const (
	wechatTokenURL = "https://api.weixin.qq.com/cgi-bin/token"
	wechatOCRURL   = "https://api.weixin.qq.com/cv/ocr/comm"
)

// WechatAdapter implements the two-step WeChat flow: client-credential
// token exchange, then a multipart upload of the decoded image.
type WechatAdapter struct {
	appID    string
	secret   string
	tokenURL string
	ocrURL   string
	client   *http.Client
}

// NewWechatAdapter creates a WeChat adapter from resolved configuration
func NewWechatAdapter(cfg *configs.Config) *WechatAdapter {
	return &WechatAdapter{
		appID:    cfg.WechatAppID,
		secret:   cfg.WechatSecret,
		tokenURL: wechatTokenURL,
		ocrURL:   wechatOCRURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Name returns "wechat"
func (a *WechatAdapter) Name() string {
	return configs.ProviderWechat
}

type wechatTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
}

type wechatOCRResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
	Items   []struct {
		Text string `json:"text"`
	} `json:"items"`
	ImgSize struct {
		W int `json:"w"`
		H int `json:"h"`
	} `json:"img_size"`
}

// Recognize runs the token exchange and the recognition upload. WeChat
// reports errors through errcode/errmsg at both stages.
func (a *WechatAdapter) Recognize(ctx context.Context, req *Request, reqCtx *common.RequestContext) (*Result, error) {
	var missing []string
	if a.appID == "" {
		missing = append(missing, "WECHAT_APPID")
	}
	if a.secret == "" {
		missing = append(missing, "WECHAT_SECRET")
	}
	if len(missing) > 0 {
		return nil, &apperr.ConfigurationError{Provider: a.Name(), Missing: missing}
	}

	imageData, err := DecodeImage(req.ImageBase64)
	if err != nil {
		return nil, apperr.Validationf("%v", err)
	}

	reqCtx.StartStep("wechat_token_exchange")
	token, err := a.fetchToken(ctx)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, err
	}
	reqCtx.EndStep("success", nil, nil)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("img", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	reqCtx.StartStep("wechat_ocr_request")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.ocrURL+"?access_token="+url.QueryEscape(token.AccessToken), &buf)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, fmt.Errorf("failed to create wechat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := a.client.Do(httpReq)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, fmt.Errorf("wechat OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, fmt.Errorf("failed to read wechat response: %w", err)
	}

	var ocr wechatOCRResponse
	if err := json.Unmarshal(body, &ocr); err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, fmt.Errorf("failed to parse wechat response: %w", err)
	}

	if ocr.ErrCode != 0 {
		upErr := &apperr.UpstreamRequestError{
			Provider: a.Name(),
			Code:     strconv.Itoa(ocr.ErrCode),
			Message:  ocr.ErrMsg,
		}
		reqCtx.EndStep("failed", nil, upErr)
		return nil, upErr
	}
	reqCtx.EndStep("success", nil, nil)

	lines := make([]string, 0, len(ocr.Items))
	for _, item := range ocr.Items {
		lines = append(lines, item.Text)
	}

	return &Result{
		Text:      strings.Join(lines, "\n"),
		Provider:  a.Name(),
		RawResult: json.RawMessage(body),
	}, nil
}

// fetchToken performs WeChat's client-credential exchange. A nonzero
// errcode in the token body fails fast; the OCR call is never attempted.
func (a *WechatAdapter) fetchToken(ctx context.Context) (*wechatTokenResponse, error) {
	params := url.Values{}
	params.Set("grant_type", "client_credential")
	params.Set("appid", a.appID)
	params.Set("secret", a.secret)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.tokenURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create wechat token request: %w", err)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("wechat token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read wechat token response: %w", err)
	}

	var token wechatTokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to parse wechat token response: %w", err)
	}

	if token.ErrCode != 0 {
		return nil, &apperr.UpstreamAuthError{
			Provider: configs.ProviderWechat,
			Code:     strconv.Itoa(token.ErrCode),
			Message:  token.ErrMsg,
		}
	}
	if token.AccessToken == "" {
		return nil, &apperr.UpstreamAuthError{
			Provider: configs.ProviderWechat,
			Code:     "empty_token",
			Message:  "token response carried no access_token",
		}
	}

	return &token, nil
}
