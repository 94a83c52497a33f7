// errors.go - Typed failures shared by adapters, dispatcher and handlers

package apperr

import (
	"fmt"
	"strings"
)

// ConfigurationError reports missing provider credentials. The message
// always names the provider so operators know which keys to set.
type ConfigurationError struct {
	Provider string
	Missing  []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("provider %s is not configured", e.Provider)
	}
	return fmt.Sprintf("provider %s is not configured: missing %s", e.Provider, strings.Join(e.Missing, ", "))
}

// UpstreamAuthError reports a rejected token exchange (Baidu and WeChat
// perform one before the OCR call proper).
type UpstreamAuthError struct {
	Provider string
	Code     string
	Message  string
}

func (e *UpstreamAuthError) Error() string {
	return fmt.Sprintf("%s token exchange failed (%s): %s", e.Provider, e.Code, e.Message)
}

// UpstreamRequestError reports a vendor-specific error code from the OCR
// call itself. Each vendor uses its own error-field vocabulary; adapters
// fold the vendor diagnostic text in here untouched.
type UpstreamRequestError struct {
	Provider string
	Code     string
	Message  string
}

func (e *UpstreamRequestError) Error() string {
	return fmt.Sprintf("%s OCR request failed (%s): %s", e.Provider, e.Code, e.Message)
}

// ValidationError reports a malformed or oversized client request. These
// surface as 400-class responses and never reach an adapter.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AnalysisEmptyResponseError reports that the analysis model returned no
// usable content (empty candidate list, empty body, or a schema violation).
type AnalysisEmptyResponseError struct {
	Reason string
}

func (e *AnalysisEmptyResponseError) Error() string {
	if e.Reason == "" {
		return "analysis model returned no usable content"
	}
	return "analysis model returned no usable content: " + e.Reason
}

// NetworkError reports a transport-level failure.
type NetworkError struct {
	Message string
}

func (e *NetworkError) Error() string {
	return e.Message
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// LooksLikeNetworkError reports whether an error message describes a
// transport-level failure. Detection is by substring since vendor SDKs
// and net/http wrap transport errors in free-form text.
func LooksLikeNetworkError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"network", "connection refused", "connection reset", "no such host", "timeout", "deadline exceeded"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
