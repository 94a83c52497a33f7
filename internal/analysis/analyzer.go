// analyzer.go - Gemini-backed document analysis with a schema-constrained response

package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/secdoc/ocr-gateway/configs"
	"github.com/secdoc/ocr-gateway/internal/apperr"
	"github.com/secdoc/ocr-gateway/internal/common"
)

// Analyzer sends an image plus a terminology-aware instruction to the
// generative model and parses a strictly-typed JSON detection report.
type Analyzer struct {
	apiKey    string
	modelName string
}

// NewAnalyzer creates an analyzer from resolved configuration
func NewAnalyzer(cfg *configs.Config) *Analyzer {
	return &Analyzer{
		apiKey:    cfg.GeminiAPIKey,
		modelName: cfg.AnalysisModelName,
	}
}

// Analyze runs the detection call. The image is always sent, even when
// preExtractedText is supplied, so that bounding boxes stay visually
// grounded. The response is schema-constrained; a malformed or empty body
// fails with AnalysisEmptyResponseError.
func (a *Analyzer) Analyze(ctx context.Context, imageData []byte, mimeType string, terms []TerminologyEntry, preExtractedText string, reqCtx *common.RequestContext) (*DetectionResult, error) {
	if a.apiKey == "" {
		return nil, &apperr.ConfigurationError{Provider: configs.ProviderGemini, Missing: []string{"GEMINI_API_KEY"}}
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	reqCtx.StartStep("analysis_generate_content")
	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(a.modelName)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = detectionSchema()

	prompt := BuildDetectionPrompt(terms, preExtractedText)

	resp, err := model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.Blob{
			MIMEType: mimeType,
			Data:     imageData,
		},
	)
	if err != nil {
		translated := translateModelError(err)
		reqCtx.EndStep("failed", nil, translated)
		return nil, translated
	}

	body, err := responseText(resp)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, err
	}

	result, err := parseDetectionJSON(body)
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

	return result, nil
}

// ParseTerminology extracts term definitions from free-form text with the
// same model. Empty input and an empty model result both yield an empty
// list, never an error.
func (a *Analyzer) ParseTerminology(ctx context.Context, text string, reqCtx *common.RequestContext) ([]TerminologyEntry, error) {
	if strings.TrimSpace(text) == "" {
		return []TerminologyEntry{}, nil
	}
	if a.apiKey == "" {
		return nil, &apperr.ConfigurationError{Provider: configs.ProviderGemini, Missing: []string{"GEMINI_API_KEY"}}
	}

	reqCtx.StartStep("terminology_parse")
	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(a.modelName)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = terminologySchema()

	resp, err := model.GenerateContent(ctx, genai.Text(BuildTerminologyParsePrompt(text)))
	if err != nil {
		translated := translateModelError(err)
		reqCtx.EndStep("failed", nil, translated)
		return nil, translated
	}

	body, err := responseText(resp)
	if err != nil {
		// The model producing nothing means no terms, not a failure.
		reqCtx.EndStep("success", nil, nil)
		return []TerminologyEntry{}, nil
	}

	body = fixJSONEscaping(body)
	var terms []TerminologyEntry
	if err := json.Unmarshal([]byte(body), &terms); err != nil {
		parseErr := &apperr.AnalysisEmptyResponseError{Reason: fmt.Sprintf("terminology list violated the response schema: %v", err)}
		reqCtx.EndStep("failed", nil, parseErr)
		return nil, parseErr
	}
	reqCtx.EndStep("success", nil, nil)

	if terms == nil {
		terms = []TerminologyEntry{}
	}
	return terms, nil
}

// parseDetectionJSON repairs common model escaping mistakes and
// unmarshals the schema-constrained report.
func parseDetectionJSON(body string) (*DetectionResult, error) {
	if strings.TrimSpace(body) == "" {
		return nil, &apperr.AnalysisEmptyResponseError{Reason: "empty response body"}
	}

	body = fixJSONEscaping(body)

	var result DetectionResult
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return nil, &apperr.AnalysisEmptyResponseError{Reason: fmt.Sprintf("response violated the detection schema: %v", err)}
	}
	if result.Errors == nil {
		result.Errors = []DetectionError{}
	}
	return &result, nil
}

// responseText extracts the text of the first candidate's first part.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", &apperr.AnalysisEmptyResponseError{Reason: "model returned no candidates"}
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", &apperr.AnalysisEmptyResponseError{Reason: fmt.Sprintf("candidate carried no content parts (finish reason: %v)", candidate.FinishReason)}
	}
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok && string(text) != "" {
			return string(text), nil
		}
	}
	return "", &apperr.AnalysisEmptyResponseError{Reason: "candidate carried no text part"}
}

// translateModelError maps known provider failure substrings onto the
// gateway's error taxonomy. Unrecognized errors pass through with their
// original message.
func translateModelError(err error) error {
	msg := err.Error()

	if strings.Contains(msg, "API_KEY_INVALID") {
		return &apperr.UpstreamAuthError{
			Provider: configs.ProviderGemini,
			Code:     "API_KEY_INVALID",
			Message:  "the configured Gemini API key was rejected",
		}
	}
	if strings.Contains(strings.ToLower(msg), "quota") {
		return &apperr.UpstreamRequestError{
			Provider: configs.ProviderGemini,
			Code:     "quota_exceeded",
			Message:  msg,
		}
	}
	if apperr.LooksLikeNetworkError(err) {
		return &apperr.NetworkError{Message: msg}
	}
	return err
}

// detectionSchema constrains the analysis response so downstream parsing
// cannot receive malformed shapes.
func detectionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"text": {
				Type:        genai.TypeString,
				Description: "The corrected full text of the document.",
			},
			"isProfessional": {
				Type:        genai.TypeBoolean,
				Description: "Whether the document reads professionally.",
			},
			"score": {
				Type:        genai.TypeNumber,
				Description: "Overall quality score, 0-100.",
			},
			"errors": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"text": {
							Type:        genai.TypeString,
							Description: "The flagged text exactly as it appears.",
						},
						"category": {
							Type:        genai.TypeString,
							Enum:        []string{CategorySpelling, CategoryGrammar, CategoryTerminology, CategoryStyle},
							Description: "Error category.",
						},
						"suggestion": {
							Type:        genai.TypeString,
							Description: "The recommended replacement.",
						},
						"alternatives": {
							Type:  genai.TypeArray,
							Items: &genai.Schema{Type: genai.TypeString},
						},
						"explanation": {
							Type:        genai.TypeString,
							Description: "Why the span was flagged.",
						},
						"position": {
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"x1": {Type: genai.TypeNumber},
								"y1": {Type: genai.TypeNumber},
								"x2": {Type: genai.TypeNumber},
								"y2": {Type: genai.TypeNumber},
							},
							Required: []string{"x1", "y1", "x2", "y2"},
						},
					},
					Required: []string{"text", "category", "suggestion", "position"},
				},
			},
		},
		Required: []string{"text", "isProfessional", "score", "errors"},
	}
}

// terminologySchema constrains the term-extraction response to an array
// of term objects.
func terminologySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"term":       {Type: genai.TypeString},
				"category":   {Type: genai.TypeString},
				"definition": {Type: genai.TypeString},
				"preferred":  {Type: genai.TypeString},
			},
			Required: []string{"term"},
		},
	}
}
