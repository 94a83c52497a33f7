package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/secdoc/ocr-gateway/internal/apperr"
	"github.com/secdoc/ocr-gateway/internal/common"
)

func newTestBaiduAdapter(rt roundTripFunc) *BaiduAdapter {
	return &BaiduAdapter{
		apiKey:    "ak",
		secretKey: "sk",
		tokenURL:  "https://token.test/oauth/2.0/token",
		ocrURL:    "https://ocr.test/rest/2.0/ocr/v1/general_basic",
		client:    &http.Client{Transport: rt},
	}
}

func TestBaiduRecognizeSuccessMakesExactlyTwoCalls(t *testing.T) {
	var calls []string
	adapter := newTestBaiduAdapter(func(req *http.Request) (*http.Response, error) {
		calls = append(calls, req.URL.Host)
		if req.URL.Host == "token.test" {
			return jsonResponse(200, `{"access_token":"tok-123","expires_in":2592000}`), nil
		}
		if got := req.URL.Query().Get("access_token"); got != "tok-123" {
			t.Errorf("OCR call should carry the exchanged token, got %q", got)
		}
		return jsonResponse(200, `{"words_result":[{"words":"第一行"},{"words":"second line"}],"words_result_num":2}`), nil
	})

	result, err := adapter.Recognize(context.Background(), &Request{
		Provider:    "baidu",
		ImageBase64: tinyPNG,
	}, common.NewRequestContext("baidu"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}

	if len(calls) != 2 {
		t.Fatalf("want exactly 2 outbound calls (token, ocr), got %d: %v", len(calls), calls)
	}
	if result.Text != "第一行\nsecond line" {
		t.Errorf("lines should join with newline, got %q", result.Text)
	}
	if result.Provider != "baidu" {
		t.Errorf("provider = %q, want baidu", result.Provider)
	}
	if len(result.RawResult) == 0 {
		t.Error("raw vendor payload should be preserved")
	}
}

func TestBaiduTokenFailureSkipsOCRCall(t *testing.T) {
	calls := 0
	adapter := newTestBaiduAdapter(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(200, `{"error":"invalid_client","error_description":"unknown client id"}`), nil
	})

	_, err := adapter.Recognize(context.Background(), &Request{
		Provider:    "baidu",
		ImageBase64: tinyPNG,
	}, common.NewRequestContext("baidu"))

	var authErr *apperr.UpstreamAuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("want UpstreamAuthError, got %v", err)
	}
	if authErr.Code != "invalid_client" {
		t.Errorf("code = %q, want invalid_client", authErr.Code)
	}
	if calls != 1 {
		t.Errorf("token failure must be terminal, saw %d calls", calls)
	}
}

func TestBaiduVendorErrorCodeSurfacesAsUpstreamError(t *testing.T) {
	adapter := newTestBaiduAdapter(func(req *http.Request) (*http.Response, error) {
		if req.URL.Host == "token.test" {
			return jsonResponse(200, `{"access_token":"tok"}`), nil
		}
		return jsonResponse(200, `{"error_code":17,"error_msg":"Open api daily request limit reached"}`), nil
	})

	_, err := adapter.Recognize(context.Background(), &Request{
		Provider:    "baidu",
		ImageBase64: tinyPNG,
	}, common.NewRequestContext("baidu"))

	var upErr *apperr.UpstreamRequestError
	if !errors.As(err, &upErr) {
		t.Fatalf("want UpstreamRequestError, got %v", err)
	}
	if upErr.Code != "17" {
		t.Errorf("code = %q, want 17", upErr.Code)
	}
	if !strings.Contains(upErr.Error(), "baidu") {
		t.Errorf("error should name the provider, got %q", upErr.Error())
	}
}

func TestBaiduEmptyWordsResultYieldsEmptyText(t *testing.T) {
	adapter := newTestBaiduAdapter(func(req *http.Request) (*http.Response, error) {
		if req.URL.Host == "token.test" {
			return jsonResponse(200, `{"access_token":"tok"}`), nil
		}
		return jsonResponse(200, `{"words_result":[],"words_result_num":0}`), nil
	})

	result, err := adapter.Recognize(context.Background(), &Request{
		Provider:    "baidu",
		ImageBase64: tinyPNG,
	}, common.NewRequestContext("baidu"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if result.Text != "" {
		t.Errorf("empty recognition should be text \"\", got %q", result.Text)
	}
}

func TestBaiduMissingCredentialsFailBeforeAnyCall(t *testing.T) {
	calls := 0
	adapter := newTestBaiduAdapter(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(200, `{}`), nil
	})
	adapter.secretKey = ""

	_, err := adapter.Recognize(context.Background(), &Request{
		Provider:    "baidu",
		ImageBase64: tinyPNG,
	}, common.NewRequestContext("baidu"))

	var cfgErr *apperr.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want ConfigurationError, got %v", err)
	}
	if len(cfgErr.Missing) != 1 || cfgErr.Missing[0] != "BAIDU_SECRET_KEY" {
		t.Errorf("missing = %v, want [BAIDU_SECRET_KEY]", cfgErr.Missing)
	}
	if calls != 0 {
		t.Errorf("credential check must precede network IO, saw %d calls", calls)
	}
}

func TestBaiduLanguageTypeMapping(t *testing.T) {
	cases := map[string]string{
		"":      "CHN_ENG",
		"zh-CN": "CHN_ENG",
		"en":    "ENG",
		"ja":    "JAP",
		"ko":    "KOR",
		"fre":   "FRE",
	}
	for in, want := range cases {
		if got := baiduLanguageType(in); got != want {
			t.Errorf("baiduLanguageType(%q) = %q, want %q", in, got, want)
		}
	}
}
