// probe.go - Connectivity prober: credential completeness + cheap handshake

package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/secdoc/ocr-gateway/configs"
	"github.com/secdoc/ocr-gateway/internal/apperr"
)

// HandshakeInfo reports the outcome of a lightweight live call.
type HandshakeInfo struct {
	OK        bool   `json:"ok"`
	ExpiresIn int    `json:"expires_in,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ProbeResult reports per-field credential completeness for one provider
// and, where a cheap handshake exists, its outcome.
type ProbeResult struct {
	Provider      string         `json:"provider"`
	Configured    bool           `json:"configured"`
	MissingFields []string       `json:"missingFields,omitempty"`
	Handshake     *HandshakeInfo `json:"handshake,omitempty"`
	Note          string         `json:"note,omitempty"`
}

// Prober validates credentials without running a full recognition call.
//
// Only Baidu has a defined lightweight probe (its token exchange); for
// the other providers a complete credential set is reported as
// "configuration valid" without exercising the network path. That
// asymmetry is intentional and preserved: no cheap handshake is defined
// for Aliyun, WeChat or Gemini here, and inventing one would change
// observable behavior.
type Prober struct {
	cfg      *configs.Config
	tokenURL string
	client   *http.Client
}

// credentialFieldOrder fixes the reporting order of per-provider fields.
var credentialFieldOrder = map[string][]string{
	configs.ProviderBaidu:  {"BAIDU_API_KEY", "BAIDU_SECRET_KEY"},
	configs.ProviderAliyun: {"ALIYUN_APPCODE"},
	configs.ProviderWechat: {"WECHAT_APPID", "WECHAT_SECRET"},
	configs.ProviderGemini: {"GEMINI_API_KEY"},
}

// NewProber creates a prober backed by the resolved configuration
func NewProber(cfg *configs.Config) *Prober {
	return &Prober{
		cfg:      cfg,
		tokenURL: baiduTokenURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Probe checks credential completeness for a provider. apiKey/secretKey
// optionally override the configured values so operators can test keys
// before committing them to the environment.
func (p *Prober) Probe(ctx context.Context, provider, apiKey, secretKey string) (*ProbeResult, error) {
	fields, missing := p.cfg.Credentials(provider)
	if fields == nil {
		return nil, apperr.Validationf("unsupported provider: %q", provider)
	}

	// Apply overrides onto a copy of the configured values.
	switch provider {
	case configs.ProviderBaidu:
		if apiKey != "" {
			fields["BAIDU_API_KEY"] = apiKey
		}
		if secretKey != "" {
			fields["BAIDU_SECRET_KEY"] = secretKey
		}
	case configs.ProviderAliyun:
		if apiKey != "" {
			fields["ALIYUN_APPCODE"] = apiKey
		}
	case configs.ProviderWechat:
		if apiKey != "" {
			fields["WECHAT_APPID"] = apiKey
		}
		if secretKey != "" {
			fields["WECHAT_SECRET"] = secretKey
		}
	case configs.ProviderGemini:
		if apiKey != "" {
			fields["GEMINI_API_KEY"] = apiKey
		}
	}

	missing = missing[:0]
	for _, name := range credentialFieldOrder[provider] {
		if fields[name] == "" {
			missing = append(missing, name)
		}
	}

	result := &ProbeResult{
		Provider:      provider,
		Configured:    len(missing) == 0,
		MissingFields: missing,
	}
	if !result.Configured {
		return result, nil
	}

	if provider == configs.ProviderBaidu {
		token, err := fetchBaiduToken(ctx, p.client, p.tokenURL,
			fields["BAIDU_API_KEY"], fields["BAIDU_SECRET_KEY"])
		if err != nil {
			result.Handshake = &HandshakeInfo{OK: false, Error: err.Error()}
		} else {
			result.Handshake = &HandshakeInfo{OK: true, ExpiresIn: token.ExpiresIn}
		}
		return result, nil
	}

	result.Note = "configuration valid; no lightweight handshake is defined for this provider"
	return result, nil
}
