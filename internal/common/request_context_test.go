package common

import (
	"errors"
	"testing"
)

func TestRequestContextStepTracking(t *testing.T) {
	rc := NewRequestContext("baidu")

	if rc.RequestID == "" {
		t.Fatal("request ID should be assigned")
	}
	if rc.Provider != "baidu" {
		t.Errorf("provider = %q", rc.Provider)
	}

	rc.StartStep("token_exchange")
	rc.EndStep("success", nil, nil)

	rc.StartStep("ocr_request")
	rc.EndStep("failed", nil, errors.New("boom"))

	if len(rc.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(rc.Steps))
	}
	if rc.Steps[0].Name != "token_exchange" || rc.Steps[0].Status != "success" {
		t.Errorf("step[0] = %+v", rc.Steps[0])
	}
	if rc.Steps[1].Status != "failed" || rc.Steps[1].Error != "boom" {
		t.Errorf("step[1] = %+v", rc.Steps[1])
	}
}

func TestRequestContextAccumulatesTokens(t *testing.T) {
	rc := NewRequestContext("gemini")

	rc.StartStep("generate")
	rc.EndStep("success", &TokenUsage{InputTokens: 100, OutputTokens: 20, TotalTokens: 120}, nil)
	rc.StartStep("generate_again")
	rc.EndStep("success", &TokenUsage{InputTokens: 50, OutputTokens: 10, TotalTokens: 60}, nil)

	if rc.TotalTokens.TotalTokens != 180 {
		t.Errorf("total tokens = %d, want 180", rc.TotalTokens.TotalTokens)
	}
	if rc.TotalTokens.InputTokens != 150 || rc.TotalTokens.OutputTokens != 30 {
		t.Errorf("totals = %+v", rc.TotalTokens)
	}
}

func TestRequestContextsGetDistinctIDs(t *testing.T) {
	a := NewRequestContext("baidu")
	b := NewRequestContext("baidu")
	if a.RequestID == b.RequestID {
		t.Error("request IDs must be unique per request")
	}
}
