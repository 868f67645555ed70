package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultAddr          = ":8080"
	DefaultModelsDir     = "~/models/llm"
	DefaultVRAMBudgetMB  = 8192
	DefaultVRAMMarginMB  = 512
	DefaultMaxBodyBytes  = 1 << 20
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultMaxQueueDepth = 32
	DefaultStatePrefix   = "llamachat:state:"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
// Durations are expressed in whole seconds (or milliseconds where named so)
// so the three file formats agree.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel     string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat    string `json:"log_format" yaml:"log_format" toml:"log_format"`
	RequestLog   string `json:"request_log" yaml:"request_log" toml:"request_log"`
	MaxBodyBytes int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	// RequestTimeoutSeconds bounds one completion request; 0 disables.
	RequestTimeoutSeconds int `json:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds"`

	DisableSwagger bool `json:"disable_swagger" yaml:"disable_swagger" toml:"disable_swagger"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	CORSAllowedMethods []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods"`
	CORSAllowedHeaders []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers"`

	ModelsDir      string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	VRAMBudgetMB   int    `json:"vram_budget_mb" yaml:"vram_budget_mb" toml:"vram_budget_mb"`
	VRAMMarginMB   int    `json:"vram_margin_mb" yaml:"vram_margin_mb" toml:"vram_margin_mb"`
	DefaultModel   string `json:"default_model" yaml:"default_model" toml:"default_model"`
	SingleResident bool   `json:"single_resident" yaml:"single_resident" toml:"single_resident"`
	// IdleTTLSeconds unloads models unused for this long; 0 keeps them resident.
	IdleTTLSeconds int `json:"idle_ttl_seconds" yaml:"idle_ttl_seconds" toml:"idle_ttl_seconds"`
	MaxQueueDepth  int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitMS      int `json:"max_wait_ms" yaml:"max_wait_ms" toml:"max_wait_ms"`
	DrainTimeoutMS int `json:"drain_timeout_ms" yaml:"drain_timeout_ms" toml:"drain_timeout_ms"`
	LlamaCtx       int `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads   int `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
	LlamaGPULayers int `json:"llama_gpu_layers" yaml:"llama_gpu_layers" toml:"llama_gpu_layers"`

	ProviderName        string   `json:"provider_name" yaml:"provider_name" toml:"provider_name"`
	MaxTokens           int      `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	CallbackMaxTokens   int      `json:"callback_max_tokens" yaml:"callback_max_tokens" toml:"callback_max_tokens"`
	StreamMaxTokens     int      `json:"stream_max_tokens" yaml:"stream_max_tokens" toml:"stream_max_tokens"`
	StopSequences       []string `json:"stop_sequences" yaml:"stop_sequences" toml:"stop_sequences"`
	StreamStopSequences []string `json:"stream_stop_sequences" yaml:"stream_stop_sequences" toml:"stream_stop_sequences"`
	Verbose             bool     `json:"verbose" yaml:"verbose" toml:"verbose"`

	// RedisAddr switches conversation state to Redis when set.
	RedisAddr       string `json:"redis_addr" yaml:"redis_addr" toml:"redis_addr"`
	StatePrefix     string `json:"state_prefix" yaml:"state_prefix" toml:"state_prefix"`
	StateTTLSeconds int    `json:"state_ttl_seconds" yaml:"state_ttl_seconds" toml:"state_ttl_seconds"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyDefaults fills unspecified fields. Provider name, token budgets and
// stop sequences stay zero so the completion package applies its own defaults.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.ModelsDir == "" {
		c.ModelsDir = DefaultModelsDir
	}
	if c.VRAMBudgetMB <= 0 {
		c.VRAMBudgetMB = DefaultVRAMBudgetMB
	}
	if c.VRAMMarginMB < 0 {
		c.VRAMMarginMB = 0
	}
	if c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = DefaultMaxQueueDepth
	}
	if c.StatePrefix == "" {
		c.StatePrefix = DefaultStatePrefix
	}
}

// Validate rejects combinations the service cannot run with.
func (c Config) Validate() error {
	if c.VRAMMarginMB >= c.VRAMBudgetMB {
		return fmt.Errorf("vram_margin_mb (%d) must be below vram_budget_mb (%d)", c.VRAMMarginMB, c.VRAMBudgetMB)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unsupported log_format %q", c.LogFormat)
	}
	for name, v := range map[string]int{
		"max_tokens":          c.MaxTokens,
		"callback_max_tokens": c.CallbackMaxTokens,
		"stream_max_tokens":   c.StreamMaxTokens,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) IdleTTL() time.Duration { return time.Duration(c.IdleTTLSeconds) * time.Second }

func (c Config) MaxWait() time.Duration { return time.Duration(c.MaxWaitMS) * time.Millisecond }

func (c Config) DrainTimeout() time.Duration {
	return time.Duration(c.DrainTimeoutMS) * time.Millisecond
}

func (c Config) StateTTL() time.Duration { return time.Duration(c.StateTTLSeconds) * time.Second }
