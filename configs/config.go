// config.go - Configuration loaded from environment variables

package configs

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Provider identifiers accepted on the wire. The set is closed; the
// dispatcher rejects anything else before an adapter is touched.
const (
	ProviderBaidu  = "baidu"
	ProviderAliyun = "aliyun"
	ProviderWechat = "wechat"
	ProviderGemini = "gemini"
)

// Providers lists every supported provider identifier.
var Providers = []string{ProviderBaidu, ProviderAliyun, ProviderWechat, ProviderGemini}

// Config holds all process configuration. It is resolved once at startup
// and passed explicitly to adapters, so credential presence is testable
// without mutating the environment.
type Config struct {
	// Server
	Port           string
	AllowedOrigins string
	Env            string // "development" or "production"

	// Baidu OCR
	BaiduAPIKey    string
	BaiduSecretKey string

	// Aliyun OCR (market API, APPCODE auth)
	AliyunAppCode string

	// WeChat OCR
	WechatAppID  string
	WechatSecret string

	// Gemini
	GeminiAPIKey      string
	GeminiModel       string
	AnalysisModelName string

	// MongoDB (optional request log + terminology store)
	MongoURI    string
	MongoDBName string

	// Image preprocessing
	EnableImagePreprocessing bool
	MaxImageDimension        int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
		Env:            getEnv("APP_ENV", "production"),

		BaiduAPIKey:    getEnv("BAIDU_API_KEY", ""),
		BaiduSecretKey: getEnv("BAIDU_SECRET_KEY", ""),

		AliyunAppCode: getEnv("ALIYUN_APPCODE", ""),

		WechatAppID:  getEnv("WECHAT_APPID", ""),
		WechatSecret: getEnv("WECHAT_SECRET", ""),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("MODEL_NAME", "gemini-2.5-flash"),
		AnalysisModelName: getEnv("ANALYSIS_MODEL_NAME", "gemini-2.5-flash"),

		MongoURI:    getEnv("MONGO_URI", ""),
		MongoDBName: getEnv("MONGO_DB_NAME", "ocrgateway"),

		EnableImagePreprocessing: getEnvBool("ENABLE_IMAGE_PREPROCESSING", false),
		MaxImageDimension:        getEnvInt("MAX_IMAGE_DIMENSION", 2000),
	}

	log.Println("✓ Configuration loaded successfully")
	return cfg
}

// IsDevelopment reports whether failure envelopes may carry diagnostic details.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// MongoEnabled reports whether the optional request log / terminology
// store should be connected.
func (c *Config) MongoEnabled() bool {
	return c.MongoURI != ""
}

// Credentials returns the configured credential fields for a provider and
// the names of any that are missing. It never fails on absence by itself;
// callers decide whether a missing credential is fatal.
func (c *Config) Credentials(provider string) (map[string]string, []string) {
	type field struct {
		name  string
		value string
	}
	var ordered []field

	switch provider {
	case ProviderBaidu:
		ordered = []field{
			{"BAIDU_API_KEY", c.BaiduAPIKey},
			{"BAIDU_SECRET_KEY", c.BaiduSecretKey},
		}
	case ProviderAliyun:
		ordered = []field{
			{"ALIYUN_APPCODE", c.AliyunAppCode},
		}
	case ProviderWechat:
		ordered = []field{
			{"WECHAT_APPID", c.WechatAppID},
			{"WECHAT_SECRET", c.WechatSecret},
		}
	case ProviderGemini:
		ordered = []field{
			{"GEMINI_API_KEY", c.GeminiAPIKey},
		}
	default:
		return nil, nil
	}

	fields := make(map[string]string, len(ordered))
	var missing []string
	for _, f := range ordered {
		fields[f.name] = f.value
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return fields, missing
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
