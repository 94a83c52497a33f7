// prompt.go - Instruction builders for the analysis model

package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildDetectionPrompt assembles the proofreading instruction. The full
// terminology list is embedded as authoritative reference data, and any
// pre-extracted text is supplied as auxiliary context only: the image is
// always attached alongside, since bounding boxes must be grounded
// visually, not inferred from text offsets.
func BuildDetectionPrompt(terms []TerminologyEntry, preExtractedText string) string {
	var sb strings.Builder

	sb.WriteString(`You are a professional technical-document proofreader.
Examine the attached document image and report every writing problem you find.

Rules:
1. Read the text directly from the image. Report the corrected full text.
2. Classify each problem as exactly one of: spelling, grammar, terminology, style.
3. The terminology list below is AUTHORITATIVE reference data. When the document
   uses a listed term, check it against the definition. When an entry specifies a
   preferred alternative, flag any use of the raw term as a "terminology" error and
   suggest the preferred alternative.
4. For every error report the bounding box of the flagged text in the image as
   normalized coordinates between 0 and 1: x1,y1 = top-left, x2,y2 = bottom-right.
5. Judge whether the document reads professionally and give a 0-100 quality score.
`)

	if len(terms) > 0 {
		sb.WriteString("\nTerminology reference list (JSON):\n")
		if encoded, err := json.MarshalIndent(terms, "", "  "); err == nil {
			sb.Write(encoded)
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("\nNo terminology reference list was supplied; check spelling, grammar and style only.\n")
	}

	if preExtractedText != "" {
		sb.WriteString("\nA prior OCR pass extracted the following text. Use it as auxiliary context only and verify every finding against the image itself:\n")
		sb.WriteString(preExtractedText)
		sb.WriteString("\n")
	}

	return sb.String()
}

// BuildTerminologyParsePrompt asks the model to lift term definitions out
// of free-form reference text.
func BuildTerminologyParsePrompt(text string) string {
	return fmt.Sprintf(`Extract every technical term defined or explained in the text below.
For each term report: the term itself, a short category, its definition as given in
the text, and the preferred alternative wording if the text names one.
Return an empty list if the text defines no terms.

Text:
%s`, text)
}
