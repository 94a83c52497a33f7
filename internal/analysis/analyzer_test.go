package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/secdoc/ocr-gateway/configs"
	"github.com/secdoc/ocr-gateway/internal/apperr"
	"github.com/secdoc/ocr-gateway/internal/common"
)

func TestParseTerminologyEmptyInputYieldsEmptyList(t *testing.T) {
	analyzer := NewAnalyzer(&configs.Config{})
	reqCtx := common.NewRequestContext(configs.ProviderGemini)

	for _, input := range []string{"", "   ", "\n\t"} {
		terms, err := analyzer.ParseTerminology(context.Background(), input, reqCtx)
		if err != nil {
			t.Fatalf("ParseTerminology(%q): %v", input, err)
		}
		if terms == nil {
			t.Fatalf("ParseTerminology(%q) returned nil, want empty list", input)
		}
		if len(terms) != 0 {
			t.Errorf("ParseTerminology(%q) = %v, want empty list", input, terms)
		}
	}
}

func TestAnalyzeMissingAPIKey(t *testing.T) {
	analyzer := NewAnalyzer(&configs.Config{AnalysisModelName: "gemini-2.5-flash"})
	reqCtx := common.NewRequestContext(configs.ProviderGemini)

	_, err := analyzer.Analyze(context.Background(), []byte{0x89}, "image/png", nil, "", reqCtx)

	var cfgErr *apperr.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want ConfigurationError, got %v", err)
	}
	if len(cfgErr.Missing) != 1 || cfgErr.Missing[0] != "GEMINI_API_KEY" {
		t.Errorf("missing = %v, want [GEMINI_API_KEY]", cfgErr.Missing)
	}
}

func TestParseDetectionJSON(t *testing.T) {
	body := `{
		"text": "The NVR records all camera feeds.",
		"isProfessional": false,
		"score": 72,
		"errors": [
			{
				"text": "NVR",
				"category": "terminology",
				"suggestion": "Network Video Recorder",
				"alternatives": ["network video recorder"],
				"explanation": "The reference list prefers the expanded form on first use.",
				"position": {"x1": 0.12, "y1": 0.30, "x2": 0.21, "y2": 0.34}
			}
		]
	}`

	result, err := parseDetectionJSON(body)
	if err != nil {
		t.Fatalf("parseDetectionJSON: %v", err)
	}
	if result.IsProfessional {
		t.Error("isProfessional should be false")
	}
	if result.Score != 72 {
		t.Errorf("score = %v, want 72", result.Score)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("want 1 error, got %d", len(result.Errors))
	}
	detected := result.Errors[0]
	if detected.Category != CategoryTerminology {
		t.Errorf("category = %q, want %q", detected.Category, CategoryTerminology)
	}
	if detected.Suggestion != "Network Video Recorder" {
		t.Errorf("suggestion = %q", detected.Suggestion)
	}
	if detected.Position.X1 != 0.12 || detected.Position.Y2 != 0.34 {
		t.Errorf("position = %+v", detected.Position)
	}
}

func TestParseDetectionJSONEmptyBody(t *testing.T) {
	for _, body := range []string{"", "  \n "} {
		_, err := parseDetectionJSON(body)
		var emptyErr *apperr.AnalysisEmptyResponseError
		if !errors.As(err, &emptyErr) {
			t.Errorf("parseDetectionJSON(%q): want AnalysisEmptyResponseError, got %v", body, err)
		}
	}
}

func TestParseDetectionJSONNilErrorsBecomesEmptySlice(t *testing.T) {
	result, err := parseDetectionJSON(`{"text":"fine","isProfessional":true,"score":95}`)
	if err != nil {
		t.Fatalf("parseDetectionJSON: %v", err)
	}
	if result.Errors == nil {
		t.Error("errors should be an empty slice, not nil")
	}
}

func TestParseDetectionJSONRepairsLiteralNewlines(t *testing.T) {
	// A literal newline inside a JSON string is invalid; the repair pass
	// must escape it before unmarshalling.
	body := "{\"text\": \"line one\nline two\", \"isProfessional\": true, \"score\": 90, \"errors\": []}"

	result, err := parseDetectionJSON(body)
	if err != nil {
		t.Fatalf("parseDetectionJSON: %v", err)
	}
	if result.Text != "line one\nline two" {
		t.Errorf("text = %q", result.Text)
	}
}

func TestFixJSONEscaping(t *testing.T) {
	in := "{\"a\": \"x\ty\"}"
	out := fixJSONEscaping(in)

	var decoded map[string]string
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("repaired JSON still invalid: %v\n%s", err, out)
	}
	if decoded["a"] != "x\ty" {
		t.Errorf("a = %q", decoded["a"])
	}

	// Already-valid JSON must pass through unchanged in meaning.
	valid := `{"b": "plain \n escaped"}`
	if err := json.Unmarshal([]byte(fixJSONEscaping(valid)), &decoded); err != nil {
		t.Errorf("valid JSON broken by repair: %v", err)
	}
}

func TestTranslateModelError(t *testing.T) {
	var authErr *apperr.UpstreamAuthError
	if !errors.As(translateModelError(errors.New("googleapi: Error 400: API_KEY_INVALID")), &authErr) {
		t.Error("API_KEY_INVALID should map to UpstreamAuthError")
	}

	var upErr *apperr.UpstreamRequestError
	if !errors.As(translateModelError(errors.New("googleapi: Error 429: Quota exceeded for metric")), &upErr) {
		t.Error("quota messages should map to UpstreamRequestError")
	}

	var netErr *apperr.NetworkError
	if !errors.As(translateModelError(errors.New("dial tcp: connection refused")), &netErr) {
		t.Error("connection failures should map to NetworkError")
	}

	passthrough := errors.New("something else entirely")
	if got := translateModelError(passthrough); got != passthrough {
		t.Errorf("unknown errors should pass through, got %v", got)
	}
}

func TestBuildDetectionPromptEmbedsTerminology(t *testing.T) {
	terms := []TerminologyEntry{
		{Term: "NVR", Category: "hardware", Definition: "Network Video Recorder", Preferred: "Network Video Recorder"},
	}

	prompt := BuildDetectionPrompt(terms, "pre-extracted body")

	for _, want := range []string{"NVR", "Network Video Recorder", "AUTHORITATIVE", "pre-extracted body", "auxiliary context"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt should contain %q", want)
		}
	}
}

func TestBuildDetectionPromptWithoutTerms(t *testing.T) {
	prompt := BuildDetectionPrompt(nil, "")

	if !strings.Contains(prompt, "No terminology reference list") {
		t.Error("prompt should state that no terminology was supplied")
	}
	if strings.Contains(prompt, "auxiliary context") {
		t.Error("prompt should not mention pre-extracted text when none was given")
	}
}
