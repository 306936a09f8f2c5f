package llm

import (
	"os"
	"strconv"
	"time"
)

// TaskType identifies the kind of LLM task being performed.
type TaskType string

const (
	TaskCompetitor  TaskType = "competitor"
	TaskTextStyle   TaskType = "text_style"
	TaskArticle     TaskType = "article"
	TaskContentPlan TaskType = "content_plan"
	TaskVisualStyle TaskType = "visual_style"
)

// Provider selects the text generation backend.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
)

// TaskConfig holds per-task LLM parameters.
type TaskConfig struct {
	Temperature float64
	MaxTokens   int
	TimeoutMs   int // overrides global if > 0
}

// LLMConfig holds all configuration for the LLM subsystem.
type LLMConfig struct {
	Enabled        bool
	LogCalls       bool
	Provider       Provider
	Endpoint       string
	APIKey         string
	Model          string
	TimeoutMs      int
	MaxRetries     int
	RetryBackoffMs int // before the first retry; the nth retry waits n times as long
	Tasks          map[TaskType]TaskConfig

	// Vision backend used for describing gallery images.
	VisionAPIKey string
	VisionModel  string
}

// DefaultConfig returns an LLMConfig with sensible defaults.
// LLM is disabled by default.
func DefaultConfig() LLMConfig {
	return LLMConfig{
		Enabled:        false,
		Provider:       ProviderOllama,
		Endpoint:       "http://localhost:11434",
		Model:          "llama3.2",
		TimeoutMs:      30000,
		MaxRetries:     1,
		RetryBackoffMs: 250,
		VisionModel:    "gemini-2.0-flash",
		Tasks: map[TaskType]TaskConfig{
			TaskCompetitor:  {Temperature: 0.3, MaxTokens: 1024, TimeoutMs: 30000},
			TaskTextStyle:   {Temperature: 0.4, MaxTokens: 1024, TimeoutMs: 30000},
			TaskArticle:     {Temperature: 0.7, MaxTokens: 4096, TimeoutMs: 120000},
			TaskContentPlan: {Temperature: 0.4, MaxTokens: 2048, TimeoutMs: 60000},
			TaskVisualStyle: {Temperature: 0.4, MaxTokens: 512, TimeoutMs: 60000},
		},
	}
}

// LoadConfig reads LLM configuration from environment variables,
// falling back to defaults for any unset values.
func LoadConfig() LLMConfig {
	return ApplyEnv(DefaultConfig())
}

// ApplyEnv overlays SITEPILOT_LLM_* and SITEPILOT_VISION_* variables on cfg.
func ApplyEnv(cfg LLMConfig) LLMConfig {
	tasks := make(map[TaskType]TaskConfig, len(cfg.Tasks))
	for k, v := range cfg.Tasks {
		tasks[k] = v
	}
	cfg.Tasks = tasks

	if v := os.Getenv("SITEPILOT_LLM_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("SITEPILOT_LLM_LOG_CALLS"); v != "" {
		cfg.LogCalls, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("SITEPILOT_LLM_PROVIDER"); v != "" {
		switch Provider(v) {
		case ProviderOllama, ProviderOpenAI:
			cfg.Provider = Provider(v)
		}
	}
	if v := os.Getenv("SITEPILOT_LLM_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("SITEPILOT_LLM_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("SITEPILOT_LLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("SITEPILOT_LLM_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutMs = n
		}
	}
	if v := os.Getenv("SITEPILOT_LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("SITEPILOT_LLM_RETRY_BACKOFF_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RetryBackoffMs = n
		}
	}
	if v := os.Getenv("SITEPILOT_VISION_API_KEY"); v != "" {
		cfg.VisionAPIKey = v
	}
	if v := os.Getenv("SITEPILOT_VISION_MODEL"); v != "" {
		cfg.VisionModel = v
	}

	applyTaskTimeoutEnv(&cfg, TaskCompetitor, "SITEPILOT_LLM_COMPETITOR_TIMEOUT_MS")
	applyTaskTimeoutEnv(&cfg, TaskTextStyle, "SITEPILOT_LLM_TEXT_STYLE_TIMEOUT_MS")
	applyTaskTimeoutEnv(&cfg, TaskArticle, "SITEPILOT_LLM_ARTICLE_TIMEOUT_MS")
	applyTaskTimeoutEnv(&cfg, TaskContentPlan, "SITEPILOT_LLM_CONTENT_PLAN_TIMEOUT_MS")
	applyTaskTimeoutEnv(&cfg, TaskVisualStyle, "SITEPILOT_LLM_VISUAL_STYLE_TIMEOUT_MS")

	return cfg
}

// TaskTimeout returns the effective timeout for a given task type.
// Uses the task-specific timeout if set, otherwise the global timeout.
func (c LLMConfig) TaskTimeout(task TaskType) int {
	if tc, ok := c.Tasks[task]; ok && tc.TimeoutMs > 0 {
		return tc.TimeoutMs
	}
	return c.TimeoutMs
}

// RetryBackoff is RetryBackoffMs as a duration.
func (c LLMConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}

func applyTaskTimeoutEnv(cfg *LLMConfig, task TaskType, envName string) {
	v := os.Getenv(envName)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return
	}
	tc := cfg.Tasks[task]
	tc.TimeoutMs = n
	cfg.Tasks[task] = tc
}
