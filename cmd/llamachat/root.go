package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"llamachat/internal/common/fsutil"
	"llamachat/internal/config"
	"llamachat/internal/manager"
)

// defaultConfigPath is read when --config is not given and the file exists.
const defaultConfigPath = "~/.config/llamachat/config.yaml"

// newAdapter builds the model runtime; nil selects llama.cpp. Tests swap it.
var newAdapter func(cfg config.Config) manager.InferenceAdapter

type rootOptions struct {
	configPath string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "llamachat",
		Short:         "Chat completions over local llama.cpp models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to config file (.yaml|.yml|.json|.toml); defaults to "+defaultConfigPath+" if present")
	pf.String("log-level", "", "Log level: debug|info|warn|error")
	pf.String("log-format", "", "Log format: console|json")
	pf.String("models-dir", "", "Directory to scan for *.gguf model files")
	pf.String("default-model", "", "Default model id when neither request nor state selects one")
	pf.Int("vram-budget-mb", 0, "VRAM budget in MB for all instances")
	pf.Int("vram-margin-mb", 0, "Reserved VRAM margin in MB to keep free")
	pf.Bool("single-resident", false, "Keep at most one model loaded")
	pf.Int("llama-ctx", 0, "llama.cpp context size")
	pf.Int("llama-threads", 0, "llama.cpp threads")
	pf.Int("llama-gpu-layers", 0, "llama.cpp layers offloaded to the GPU")
	pf.String("redis-addr", "", "Redis address for conversation state (empty = in-memory)")
	pf.Bool("verbose", false, "Log the final prompt of every completion")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(opts.configPath, cmd.Flags())
		if err != nil {
			return err
		}
		opts.cfg = cfg
		return nil
	}

	root.AddCommand(newServeCmd(opts), newCompleteCmd(opts), newModelsCmd(opts))
	return root
}

// resolveConfig layers defaults, then the config file, then explicitly set flags.
func resolveConfig(path string, flags *pflag.FlagSet) (config.Config, error) {
	var cfg config.Config
	if path == "" {
		if p, err := fsutil.ExpandHome(defaultConfigPath); err == nil && fsutil.PathExists(p) {
			path = p
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if v := os.Getenv("LLAMACHAT_ADDR"); v != "" && cfg.Addr == "" {
		cfg.Addr = v
	}
	applyFlags(&cfg, flags)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config, flags *pflag.FlagSet) {
	str := func(name string, dst *string) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	num := func(name string, dst *int) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			if n, err := flags.GetInt(name); err == nil {
				*dst = n
			}
		}
	}
	flag := func(name string, dst *bool) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			if b, err := flags.GetBool(name); err == nil {
				*dst = b
			}
		}
	}
	str("log-level", &cfg.LogLevel)
	str("log-format", &cfg.LogFormat)
	str("models-dir", &cfg.ModelsDir)
	str("default-model", &cfg.DefaultModel)
	str("redis-addr", &cfg.RedisAddr)
	str("addr", &cfg.Addr)
	num("vram-budget-mb", &cfg.VRAMBudgetMB)
	num("vram-margin-mb", &cfg.VRAMMarginMB)
	num("llama-ctx", &cfg.LlamaCtx)
	num("llama-threads", &cfg.LlamaThreads)
	num("llama-gpu-layers", &cfg.LlamaGPULayers)
	num("request-timeout-seconds", &cfg.RequestTimeoutSeconds)
	// --max-tokens and --stop bound the reply of whichever call shape runs.
	if f := flags.Lookup("max-tokens"); f != nil && f.Changed {
		if n, err := flags.GetInt("max-tokens"); err == nil {
			cfg.MaxTokens, cfg.CallbackMaxTokens, cfg.StreamMaxTokens = n, n, n
		}
	}
	flag("single-resident", &cfg.SingleResident)
	flag("verbose", &cfg.Verbose)
	if f := flags.Lookup("cors-origins"); f != nil && f.Changed {
		cfg.CORSEnabled = true
		cfg.CORSAllowedOrigins = splitCSV(f.Value.String())
	}
	if f := flags.Lookup("stop"); f != nil && f.Changed {
		cfg.StopSequences = splitCSV(f.Value.String())
		cfg.StreamStopSequences = cfg.StopSequences
	}
}

// newLogger builds the process logger from the configured level and format.
func newLogger(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// splitCSV splits a comma-separated list, trimming blanks and dropping empties.
func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
