package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Provider names accepted by AI_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderArk    = "ark"
)

// DefaultFile is read when present; every key can be overridden by the environment.
const DefaultFile = "config.yaml"

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Widget WidgetConfig
	Log    LogConfig
	Meds   MedsConfig
}

// Load reads the optional YAML file at path, then overlays environment
// variables. Keys are the lower-cased environment names (ai_provider, port, ...).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	// 空值的环境变量不覆盖配置文件。
	overlay := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		return strings.ToLower(key), value
	})
	if err := k.Load(overlay, nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	src := source{k: k}

	server, err := loadServerConfig(src)
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig(src)
	if err != nil {
		return nil, err
	}

	widget, err := loadWidgetConfig(src)
	if err != nil {
		return nil, err
	}

	meds, err := loadMedsConfig(src)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		AI:     ai,
		Widget: widget,
		Log:    loadLogConfig(src),
		Meds:   meds,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

func loadServerConfig(src source) (ServerConfig, error) {
	port := src.get("PORT")
	if port == "" {
		port = "8080"
	}

	origins := splitList(src.get("CORS_ALLOWED_ORIGINS"))
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider       string
	Model          string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	GeminiAPIKey   string
	ArkAPIKey      string
	ArkAccessKey   string
	ArkSecretKey   string
	ArkBaseURL     string
	ArkRegion      string
	Temperature    *float64
	MaxTokens      *int
	RequestTimeout time.Duration
	ClinicContext  bool
}

// Enabled reports whether the selected provider has the credentials it needs.
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey != ""
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	case ProviderArk:
		return c.Model != "" && (c.ArkAPIKey != "" || (c.ArkAccessKey != "" && c.ArkSecretKey != ""))
	default:
		return false
	}
}

// ModelOrDefault returns the configured model or the provider's default.
func (c AIConfig) ModelOrDefault() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.Provider {
	case ProviderOpenAI:
		return "gpt-3.5-turbo"
	case ProviderGemini:
		return "gemini-2.0-flash"
	default:
		return ""
	}
}

// NewChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if c.Provider != ProviderArk || !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + AI_MODEL 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.ArkBaseURL,
		Region:      c.ArkRegion,
		APIKey:      c.ArkAPIKey,
		AccessKey:   c.ArkAccessKey,
		SecretKey:   c.ArkSecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig(src source) (AIConfig, error) {
	provider := strings.ToLower(src.get("AI_PROVIDER"))
	if provider == "" {
		provider = ProviderGemini
	}
	switch provider {
	case ProviderOpenAI, ProviderGemini, ProviderArk:
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q: must be one of openai, gemini, ark", provider)
	}

	temperature, err := src.optionalFloat("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := src.optionalInt("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := src.duration("AI_REQUEST_TIMEOUT", 0)
	if err != nil {
		return AIConfig{}, err
	}

	clinicContext, err := src.boolean("AI_CLINIC_CONTEXT", false)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		Provider:       provider,
		Model:          src.get("AI_MODEL"),
		OpenAIAPIKey:   src.get("OPENAI_API_KEY"),
		OpenAIBaseURL:  src.get("OPENAI_BASE_URL"),
		GeminiAPIKey:   src.getAny("GEMINI_API_KEY", "GOOGLE_API_KEY"),
		ArkAPIKey:      src.get("ARK_API_KEY"),
		ArkAccessKey:   src.get("ARK_ACCESS_KEY"),
		ArkSecretKey:   src.get("ARK_SECRET_KEY"),
		ArkBaseURL:     src.getOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkRegion:      src.getOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:    temperature,
		MaxTokens:      maxTokens,
		RequestTimeout: timeout,
		ClinicContext:  clinicContext,
	}, nil
}

// WidgetConfig controls the lifetime of server-side widget sessions.
type WidgetConfig struct {
	IdleTTL time.Duration
}

func loadWidgetConfig(src source) (WidgetConfig, error) {
	ttl, err := src.duration("WIDGET_IDLE_TTL", 30*time.Minute)
	if err != nil {
		return WidgetConfig{}, err
	}
	if ttl < 0 {
		return WidgetConfig{}, fmt.Errorf("invalid WIDGET_IDLE_TTL value %q: must not be negative", ttl)
	}
	return WidgetConfig{IdleTTL: ttl}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string
	Format string
	File   string
}

func loadLogConfig(src source) LogConfig {
	return LogConfig{
		Level:  src.getOrDefault("LOG_LEVEL", "info"),
		Format: src.getOrDefault("LOG_FORMAT", "json"),
		File:   src.get("LOG_FILE"),
	}
}

// MedsConfig 描述药品查询（OpenFDA + 向量缓存）配置。
type MedsConfig struct {
	FDAAPIKey         string
	FDABaseURL        string
	EmbeddingProvider string
	EmbeddingModel    string
	DataDir           string
	Enabled           bool
}

func loadMedsConfig(src source) (MedsConfig, error) {
	provider := strings.ToLower(src.getOrDefault("EMBEDDING_PROVIDER", "hash"))
	switch provider {
	case "hash", ProviderOpenAI, ProviderGemini:
	default:
		return MedsConfig{}, fmt.Errorf("invalid EMBEDDING_PROVIDER value %q: must be one of hash, openai, gemini", provider)
	}

	enabled, err := src.boolean("MEDS_ENABLED", true)
	if err != nil {
		return MedsConfig{}, err
	}

	apiKey := src.get("FDA_API_KEY")

	return MedsConfig{
		FDAAPIKey:         apiKey,
		FDABaseURL:        src.getOrDefault("FDA_BASE_URL", "https://api.fda.gov/drug"),
		EmbeddingProvider: provider,
		EmbeddingModel:    src.get("EMBEDDING_MODEL"),
		DataDir:           src.getOrDefault("DATA_DIR", "data"),
		Enabled:           enabled && apiKey != "",
	}, nil
}

// source reads flat keys from the merged file + environment view.
type source struct {
	k *koanf.Koanf
}

func (s source) get(key string) string {
	return strings.TrimSpace(s.k.String(strings.ToLower(key)))
}

func (s source) getAny(keys ...string) string {
	for _, key := range keys {
		if value := s.get(key); value != "" {
			return value
		}
	}
	return ""
}

func (s source) getOrDefault(key, defaultValue string) string {
	if value := s.get(key); value != "" {
		return value
	}
	return defaultValue
}

func (s source) boolean(key string, defaultValue bool) (bool, error) {
	raw := s.get(key)
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func (s source) duration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := s.get(key)
	if raw == "" {
		return defaultValue, nil
	}

	// 纯数字按秒处理。
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func (s source) optionalFloat(key string) (*float64, error) {
	raw := s.get(key)
	if raw == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return &val, nil
}

func (s source) optionalInt(key string) (*int, error) {
	raw := s.get(key)
	if raw == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return &val, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
