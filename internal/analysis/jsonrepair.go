// jsonrepair.go - Repairs escaping mistakes in model-produced JSON

package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

var jsonStringPattern = regexp.MustCompile(`"([^"]*(?:\\.[^"]*)*)"`)

// fixJSONEscaping escapes literal control characters inside JSON string
// values. The model sometimes emits real newlines or tabs inside strings,
// which Go's JSON parser rejects.
func fixJSONEscaping(jsonStr string) string {
	return jsonStringPattern.ReplaceAllStringFunc(jsonStr, func(match string) string {
		if len(match) < 2 {
			return match
		}
		content := match[1 : len(match)-1]

		// Backslash-space is an invalid escape the model produces now and
		// then; fix it before touching anything else.
		content = strings.ReplaceAll(content, "\\ ", "\\\\ ")

		content = strings.ReplaceAll(content, "\n", "\\n")
		content = strings.ReplaceAll(content, "\r", "\\r")
		content = strings.ReplaceAll(content, "\t", "\\t")
		content = strings.ReplaceAll(content, "\f", "\\f")
		content = strings.ReplaceAll(content, "\b", "\\b")

		var builder strings.Builder
		for _, ch := range content {
			if ch < 0x20 {
				builder.WriteString(fmt.Sprintf("\\u%04x", ch))
			} else {
				builder.WriteRune(ch)
			}
		}

		return `"` + builder.String() + `"`
	})
}
