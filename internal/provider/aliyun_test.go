package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/secdoc/ocr-gateway/internal/apperr"
	"github.com/secdoc/ocr-gateway/internal/common"
)

func newTestAliyunAdapter(rt roundTripFunc) *AliyunAdapter {
	return &AliyunAdapter{
		appCode: "code-abc",
		ocrURL:  "https://ocr.test/ocrservice/advanced",
		client:  &http.Client{Transport: rt},
	}
}

func TestAliyunRecognizeSingleCallWithAppCodeHeader(t *testing.T) {
	calls := 0
	adapter := newTestAliyunAdapter(func(req *http.Request) (*http.Response, error) {
		calls++
		if got := req.Header.Get("Authorization"); got != "APPCODE code-abc" {
			t.Errorf("Authorization = %q, want APPCODE code-abc", got)
		}
		return jsonResponse(200, `{"prism_wordsInfo":[{"word":"Network"},{"word":"Video Recorder"}],"prism_wnum":2}`), nil
	})

	result, err := adapter.Recognize(context.Background(), &Request{
		Provider:    "aliyun",
		ImageBase64: tinyPNG,
	}, common.NewRequestContext("aliyun"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}

	if calls != 1 {
		t.Errorf("aliyun has no token exchange, want 1 call, got %d", calls)
	}
	if result.Text != "Network\nVideo Recorder" {
		t.Errorf("words should join with newline, got %q", result.Text)
	}
}

func TestAliyunNon200UsesCaErrorHeader(t *testing.T) {
	adapter := newTestAliyunAdapter(func(req *http.Request) (*http.Response, error) {
		resp := jsonResponse(403, `{}`)
		resp.Header.Set("X-Ca-Error-Message", "Unauthorized")
		return resp, nil
	})

	_, err := adapter.Recognize(context.Background(), &Request{
		Provider:    "aliyun",
		ImageBase64: tinyPNG,
	}, common.NewRequestContext("aliyun"))

	var upErr *apperr.UpstreamRequestError
	if !errors.As(err, &upErr) {
		t.Fatalf("want UpstreamRequestError, got %v", err)
	}
	if upErr.Code != "403" || upErr.Message != "Unauthorized" {
		t.Errorf("got code=%q message=%q", upErr.Code, upErr.Message)
	}
}

func TestAliyunBodyErrorCode(t *testing.T) {
	adapter := newTestAliyunAdapter(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"error_code":101,"error_msg":"image blurred"}`), nil
	})

	_, err := adapter.Recognize(context.Background(), &Request{
		Provider:    "aliyun",
		ImageBase64: tinyPNG,
	}, common.NewRequestContext("aliyun"))

	var upErr *apperr.UpstreamRequestError
	if !errors.As(err, &upErr) {
		t.Fatalf("want UpstreamRequestError, got %v", err)
	}
	if upErr.Code != "101" {
		t.Errorf("code = %q, want 101", upErr.Code)
	}
}

func TestAliyunMissingAppCode(t *testing.T) {
	adapter := newTestAliyunAdapter(func(req *http.Request) (*http.Response, error) {
		t.Fatal("no outbound call expected")
		return nil, nil
	})
	adapter.appCode = ""

	_, err := adapter.Recognize(context.Background(), &Request{
		Provider:    "aliyun",
		ImageBase64: tinyPNG,
	}, common.NewRequestContext("aliyun"))

	var cfgErr *apperr.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want ConfigurationError, got %v", err)
	}
	if len(cfgErr.Missing) != 1 || cfgErr.Missing[0] != "ALIYUN_APPCODE" {
		t.Errorf("missing = %v, want [ALIYUN_APPCODE]", cfgErr.Missing)
	}
}
