// gemini.go - Gemini adapter: inline image + textual instruction

package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/secdoc/ocr-gateway/configs"
	"github.com/secdoc/ocr-gateway/internal/apperr"
	"github.com/secdoc/ocr-gateway/internal/common"
	"github.com/secdoc/ocr-gateway/internal/processor"
)

// defaultOCRPrompt is sent when the caller supplies no override.
const defaultOCRPrompt = `Extract ALL visible text from this image.
Read everything from top to bottom, left to right.
Include headers, content, footers, notes, and any other text.
Return ONLY the extracted text, nothing else.`

// GeminiAdapter sends the image inline with a textual instruction to the
// generative-content endpoint instead of a classic OCR call.
type GeminiAdapter struct {
	apiKey       string
	modelName    string
	preprocess   bool
	maxDimension int
}

// NewGeminiAdapter creates a Gemini adapter from resolved configuration
func NewGeminiAdapter(cfg *configs.Config) *GeminiAdapter {
	return &GeminiAdapter{
		apiKey:       cfg.GeminiAPIKey,
		modelName:    cfg.GeminiModel,
		preprocess:   cfg.EnableImagePreprocessing,
		maxDimension: cfg.MaxImageDimension,
	}
}

// Name returns "gemini"
func (a *GeminiAdapter) Name() string {
	return configs.ProviderGemini
}

// Recognize sends the decoded image plus the OCR instruction and extracts
// text from the first candidate. An empty candidate list is an explicit
// failure: "model refused or errored" must stay distinguishable from
// "model read no text".
func (a *GeminiAdapter) Recognize(ctx context.Context, req *Request, reqCtx *common.RequestContext) (*Result, error) {
	if a.apiKey == "" {
		return nil, &apperr.ConfigurationError{Provider: a.Name(), Missing: []string{"GEMINI_API_KEY"}}
	}

	imageData, err := DecodeImage(req.ImageBase64)
	if err != nil {
		return nil, apperr.Validationf("%v", err)
	}

	mimeType := processor.DetectMIMEType(imageData)
	if a.preprocess {
		reqCtx.StartStep("image_preprocessing")
		processed, processedMime, err := processor.EnhanceForOCR(imageData, a.maxDimension)
		if err != nil {
			// Preprocessing is best effort; the original payload still works.
			reqCtx.EndStep("skipped", nil, nil)
			reqCtx.LogWarning("image preprocessing failed, using original: %v", err)
		} else {
			imageData = processed
			mimeType = processedMime
			reqCtx.EndStep("success", nil, nil)
		}
	}

	prompt := defaultOCRPrompt
	if override, _ := req.Options["prompt"].(string); override != "" {
		prompt = override
	}

	reqCtx.StartStep("gemini_generate_content")
	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(a.modelName)

	resp, err := model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.Blob{
			MIMEType: mimeType,
			Data:     imageData,
		},
	)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, fmt.Errorf("gemini generate content failed: %w", err)
	}

	text, err := geminiCandidateText(resp)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, err
	}

	var tokens *common.TokenUsage
	if resp.UsageMetadata != nil {
		tokens = &common.TokenUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	reqCtx.EndStep("success", tokens, nil)

	raw, err := json.Marshal(resp)
	if err != nil {
		raw = nil
	}

	return &Result{
		Text:      text,
		Provider:  a.Name(),
		RawResult: json.RawMessage(raw),
	}, nil
}

// geminiCandidateText extracts the text of the first candidate's first
// content part. Empty candidates fail explicitly rather than yielding "".
func geminiCandidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		msg := "model returned no candidates"
		if resp != nil && resp.PromptFeedback != nil {
			msg = fmt.Sprintf("model returned no candidates (block reason: %v)", resp.PromptFeedback.BlockReason)
		}
		return "", &apperr.UpstreamRequestError{
			Provider: configs.ProviderGemini,
			Code:     "no_candidates",
			Message:  msg,
		}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", &apperr.UpstreamRequestError{
			Provider: configs.ProviderGemini,
			Code:     "no_content_parts",
			Message:  fmt.Sprintf("candidate carried no content parts (finish reason: %v)", candidate.FinishReason),
		}
	}

	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			return string(text), nil
		}
	}
	return "", nil
}
