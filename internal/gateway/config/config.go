package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pagecopy/internal/batch"
	"pagecopy/internal/detect"
	"pagecopy/internal/llm"
	llmclient "pagecopy/internal/llm/client"
)

type Config struct {
	Port        string
	Env         string
	LogMode     string
	CORSOrigins []string
	DatabaseURL string

	LLM       LLMConfig
	Batch     batch.Config
	Detect    DetectConfig
	Narrative NarrativeConfig
	Artifact  ArtifactConfig
}

type LLMConfig struct {
	Tiers       map[llmclient.Tier]llmclient.TierConfig
	Credentials llmclient.Credentials
	Timeout     time.Duration
	RateLimit   llm.RateLimitConfig
	// LogPrompts writes every prompt and completion to the debug log.
	LogPrompts bool
}

type DetectConfig struct {
	Classifier detect.Classifier
	CacheSize  int
}

type NarrativeConfig struct {
	TTL        time.Duration
	MaxEntries int
}

type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// CanUseS3 reports whether enough is configured to reach a bucket.
func (a ArtifactConfig) CanUseS3() bool {
	return a.Enabled && a.Endpoint != "" && a.AccessKey != "" && a.SecretKey != "" && a.Bucket != ""
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from getenv. Unset keys keep defaults;
// malformed values are reported together.
func FromEnv(getenv func(string) string) (*Config, error) {
	r := reader{get: getenv}

	env := firstNonEmpty(r.str("APP_ENV"), "local")
	cfg := &Config{
		Port:        NormalizePort(firstNonEmpty(r.str("PORT"), "8081")),
		Env:         env,
		LogMode:     firstNonEmpty(r.str("LOG_MODE"), defaultLogMode(env)),
		CORSOrigins: splitList(r.str("CORS_ALLOWED_ORIGINS")),
		DatabaseURL: r.str("DATABASE_URL"),
	}

	tiers := llmclient.DefaultTiers()
	if path := r.str("LLM_TIERS_FILE"); path != "" {
		if err := mergeTierFile(path, tiers); err != nil {
			r.errs = append(r.errs, err)
		}
	}
	for _, t := range []llmclient.Tier{llmclient.TierQuality, llmclient.TierFast} {
		tiers[t] = r.tier("LLM_"+strings.ToUpper(string(t))+"_", tiers[t])
	}

	rl := llm.DefaultRateLimitConfig()
	rl.MaxPerSecond = r.float("LLM_MAX_PER_SECOND", rl.MaxPerSecond)
	rl.MaxPerMinute = r.integer("LLM_MAX_PER_MINUTE", rl.MaxPerMinute)
	rl.BaseDelay = r.duration("LLM_BASE_RETRY_DELAY", rl.BaseDelay)
	rl.MaxDelay = r.duration("LLM_MAX_RETRY_DELAY", rl.MaxDelay)

	cfg.LLM = LLMConfig{
		Tiers: tiers,
		Credentials: llmclient.Credentials{
			GeminiAPIKey:  r.str("GEMINI_API_KEY"),
			OpenAIAPIKey:  r.str("OPENAI_API_KEY"),
			OpenAIBaseURL: r.str("OPENAI_BASE_URL"),
		},
		Timeout:    r.duration("LLM_TIMEOUT", llm.DefaultTimeout),
		RateLimit:  rl,
		LogPrompts: r.boolean("LLM_LOG_PROMPTS", false),
	}

	bc := batch.DefaultConfig()
	cfg.Batch = batch.Config{
		Threshold: r.integer("BATCH_THRESHOLD", bc.Threshold),
		Size:      r.integer("BATCH_SIZE", bc.Size),
		Delay:     r.duration("BATCH_DELAY", bc.Delay),
	}

	cls := detect.DefaultClassifier()
	cls.MinParagraph = r.integer("DETECT_MIN_PARAGRAPH", cls.MinParagraph)
	cls.MaxChildren = r.integer("DETECT_MAX_CHILDREN", cls.MaxChildren)
	cls.MinDirectText = r.integer("DETECT_MIN_DIRECT_TEXT", cls.MinDirectText)
	cfg.Detect = DetectConfig{
		Classifier: cls,
		CacheSize:  r.integer("DETECT_CACHE_SIZE", 512),
	}

	cfg.Narrative = NarrativeConfig{
		TTL:        r.duration("NARRATIVE_TTL", 24*time.Hour),
		MaxEntries: r.integer("NARRATIVE_CACHE_SIZE", 256),
	}

	cfg.Artifact = r.artifact(env)

	if len(r.errs) > 0 {
		return nil, fmt.Errorf("config: %w", errors.Join(r.errs...))
	}
	return cfg, nil
}

func (r *reader) artifact(env string) ArtifactConfig {
	endpoint := r.str("ARTIFACT_S3_ENDPOINT")
	local := isLocal(env)
	if local {
		endpoint = firstNonEmpty(endpoint, r.str("ARTIFACT_MINIO_ENDPOINT"))
	}
	useSSL := !local
	if raw := r.str("ARTIFACT_S3_USE_SSL"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			useSSL = v
		}
	}
	return ArtifactConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(r.str("ARTIFACT_S3_REGION"), "us-east-1"),
		AccessKey: firstNonEmpty(r.str("ARTIFACT_S3_ACCESS_KEY"), r.str("MINIO_ROOT_USER")),
		SecretKey: firstNonEmpty(r.str("ARTIFACT_S3_SECRET_KEY"), r.str("MINIO_ROOT_PASSWORD")),
		Bucket:    firstNonEmpty(r.str("ARTIFACT_S3_BUCKET"), "pagecopy-runs"),
		UseSSL:    useSSL,
	}
}

// tierFile is the LLM_TIERS_FILE layout, keyed by tier name.
type tierFile map[string]llmclient.TierConfig

func mergeTierFile(path string, tiers map[llmclient.Tier]llmclient.TierConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read tier file: %w", err)
	}
	var file tierFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse tier file %s: %w", path, err)
	}
	for name, tc := range file {
		t := llmclient.Tier(strings.ToLower(strings.TrimSpace(name)))
		if t != llmclient.TierQuality && t != llmclient.TierFast {
			return fmt.Errorf("tier file %s: unknown tier %q", path, name)
		}
		base := tiers[t]
		if tc.Provider != "" {
			base.Provider = tc.Provider
		}
		if tc.Model != "" {
			base.Model = tc.Model
		}
		if tc.Temperature != 0 {
			base.Temperature = tc.Temperature
		}
		if tc.MaxTokens != 0 {
			base.MaxTokens = tc.MaxTokens
		}
		tiers[t] = base
	}
	return nil
}

type reader struct {
	get  func(string) string
	errs []error
}

func (r *reader) str(key string) string {
	return strings.TrimSpace(r.get(key))
}

func (r *reader) integer(key string, def int) int {
	raw := r.str(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (r *reader) float(key string, def float64) float64 {
	raw := r.str(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (r *reader) boolean(key string, def bool) bool {
	raw := r.str(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

// duration accepts Go durations ("500ms") or a bare integer of milliseconds.
func (r *reader) duration(key string, def time.Duration) time.Duration {
	raw := r.str(key)
	if raw == "" {
		return def
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (r *reader) tier(prefix string, base llmclient.TierConfig) llmclient.TierConfig {
	base.Provider = firstNonEmpty(r.str(prefix+"PROVIDER"), base.Provider)
	base.Model = firstNonEmpty(r.str(prefix+"MODEL"), base.Model)
	base.Temperature = float32(r.float(prefix+"TEMPERATURE", float64(base.Temperature)))
	base.MaxTokens = r.integer(prefix+"MAX_TOKENS", base.MaxTokens)
	return base
}

// NormalizePort turns "8080" into ":8080"; host:port values pass through.
func NormalizePort(p string) string {
	if strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

func isLocal(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "local")
}

func defaultLogMode(env string) string {
	if isLocal(env) {
		return "development"
	}
	return "production"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
