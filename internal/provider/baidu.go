// baidu.go - Baidu OCR adapter (OAuth-style token exchange + general_basic)

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
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
	baiduTokenURL   = "https://aip.baidubce.com/oauth/2.0/token"
	baiduGeneralURL = "https://aip.baidubce.com/rest/2.0/ocr/v1/general_basic"
	baiduAccurate   = "https://aip.baidubce.com/rest/2.0/ocr/v1/accurate_basic"
)

// BaiduAdapter implements the two-step Baidu flow: client-credentials
// token exchange, then the recognition call with the token appended.
type BaiduAdapter struct {
	apiKey    string
	secretKey string
	tokenURL  string
	ocrURL    string
	client    *http.Client
}

// NewBaiduAdapter creates a Baidu adapter from resolved configuration
func NewBaiduAdapter(cfg *configs.Config) *BaiduAdapter {
	return &BaiduAdapter{
		apiKey:    cfg.BaiduAPIKey,
		secretKey: cfg.BaiduSecretKey,
		tokenURL:  baiduTokenURL,
		ocrURL:    baiduGeneralURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Name returns "baidu"
func (a *BaiduAdapter) Name() string {
	return configs.ProviderBaidu
}

type baiduTokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type baiduOCRResponse struct {
	WordsResult []struct {
		Words string `json:"words"`
	} `json:"words_result"`
	WordsResultNum int    `json:"words_result_num"`
	ErrorCode      int64  `json:"error_code"`
	ErrorMsg       string `json:"error_msg"`
}

// Recognize runs the token exchange and then the OCR call. Any failure at
// either stage is terminal; there is no second attempt.
func (a *BaiduAdapter) Recognize(ctx context.Context, req *Request, reqCtx *common.RequestContext) (*Result, error) {
	var missing []string
	if a.apiKey == "" {
		missing = append(missing, "BAIDU_API_KEY")
	}
	if a.secretKey == "" {
		missing = append(missing, "BAIDU_SECRET_KEY")
	}
	if len(missing) > 0 {
		return nil, &apperr.ConfigurationError{Provider: a.Name(), Missing: missing}
	}

	reqCtx.StartStep("baidu_token_exchange")
	token, err := fetchBaiduToken(ctx, a.client, a.tokenURL, a.apiKey, a.secretKey)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, err
	}
	reqCtx.EndStep("success", nil, nil)

	endpoint := a.ocrURL
	if accurate, _ := req.Options["accurate"].(bool); accurate {
		endpoint = baiduAccurate
	}

	form := url.Values{}
	form.Set("image", req.ImageBase64)
	form.Set("language_type", baiduLanguageType(req.Language))

	reqCtx.StartStep("baidu_ocr_request")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		endpoint+"?access_token="+url.QueryEscape(token.AccessToken),
		strings.NewReader(form.Encode()))
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, fmt.Errorf("failed to create baidu request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, fmt.Errorf("baidu OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, fmt.Errorf("failed to read baidu response: %w", err)
	}

	var ocr baiduOCRResponse
	if err := json.Unmarshal(body, &ocr); err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, fmt.Errorf("failed to parse baidu response: %w", err)
	}

	// Baidu signals errors through error_code/error_msg in a 200 body.
	if ocr.ErrorCode != 0 {
		upErr := &apperr.UpstreamRequestError{
			Provider: a.Name(),
			Code:     strconv.FormatInt(ocr.ErrorCode, 10),
			Message:  ocr.ErrorMsg,
		}
		reqCtx.EndStep("failed", nil, upErr)
		return nil, upErr
	}
	reqCtx.EndStep("success", nil, nil)

	lines := make([]string, 0, len(ocr.WordsResult))
	for _, w := range ocr.WordsResult {
		lines = append(lines, w.Words)
	}

	return &Result{
		Text:      strings.Join(lines, "\n"),
		Provider:  a.Name(),
		RawResult: json.RawMessage(body),
	}, nil
}

// fetchBaiduToken performs the client-credentials exchange. Shared with
// the connectivity prober, which uses it as a cheap live handshake.
func fetchBaiduToken(ctx context.Context, client *http.Client, tokenURL, apiKey, secretKey string) (*baiduTokenResponse, error) {
	params := url.Values{}
	params.Set("grant_type", "client_credentials")
	params.Set("client_id", apiKey)
	params.Set("client_secret", secretKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create baidu token request: %w", err)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("baidu token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read baidu token response: %w", err)
	}

	var token baiduTokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to parse baidu token response: %w", err)
	}

	if token.Error != "" {
		return nil, &apperr.UpstreamAuthError{
			Provider: configs.ProviderBaidu,
			Code:     token.Error,
			Message:  token.ErrorDescription,
		}
	}
	if token.AccessToken == "" {
		return nil, &apperr.UpstreamAuthError{
			Provider: configs.ProviderBaidu,
			Code:     "empty_token",
			Message:  "token response carried no access_token",
		}
	}

	return &token, nil
}

// baiduLanguageType maps the normalized language hint onto Baidu's
// language_type vocabulary. Unknown hints pass through unchanged.
func baiduLanguageType(language string) string {
	switch strings.ToLower(language) {
	case "":
		return "CHN_ENG"
	case "zh", "zh-cn", "chn_eng":
		return "CHN_ENG"
	case "en", "eng":
		return "ENG"
	case "jp", "ja":
		return "JAP"
	case "kr", "ko":
		return "KOR"
	default:
		return strings.ToUpper(language)
	}
}
