package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"llamachat/internal/state"
	"llamachat/pkg/types"
)

// historyFile is the on-disk conversation read by `complete`.
type historyFile struct {
	AgentID     string                   `json:"agent_id" yaml:"agent_id" toml:"agent_id"`
	Instruction string                   `json:"instruction" yaml:"instruction" toml:"instruction"`
	Model       string                   `json:"model" yaml:"model" toml:"model"`
	Turns       []types.ConversationTurn `json:"turns" yaml:"turns" toml:"turns"`
}

func readHistory(path string) (historyFile, error) {
	var h historyFile
	b, err := os.ReadFile(path)
	if err != nil {
		return h, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &h)
	case ".json":
		err = json.Unmarshal(b, &h)
	case ".toml":
		err = toml.Unmarshal(b, &h)
	default:
		return h, fmt.Errorf("unsupported history extension: %s", ext)
	}
	if err != nil {
		return h, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, t := range h.Turns {
		if !t.Role.Valid() {
			return h, fmt.Errorf("turn %d: unknown role %q", i, t.Role)
		}
	}
	return h, nil
}

type completeFlags struct {
	history     string
	instruction string
	agent       string
	model       string
	convID      string
	stream      bool
	callback    bool
	echo        bool
}

func newCompleteCmd(opts *rootOptions) *cobra.Command {
	var cf completeFlags
	cmd := &cobra.Command{
		Use:     "complete",
		Short:   "Generate one assistant reply for a conversation file",
		Example: "  llamachat complete --history chat.yaml\n  llamachat complete --history chat.yaml --callback\n  llamachat complete --instruction \"Write a haiku.\" --stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(cmd.Context(), opts, cf, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.StringVar(&cf.history, "history", "", "Conversation file (.yaml|.yml|.json|.toml)")
	f.StringVar(&cf.instruction, "instruction", "", "Agent instruction (overrides the file)")
	f.StringVar(&cf.agent, "agent", "cli", "Agent id")
	f.StringVar(&cf.model, "model", "", "Model id (overrides the file)")
	f.StringVar(&cf.convID, "conversation", "", "Conversation id for state lookups")
	f.BoolVar(&cf.stream, "stream", false, "Stream partial replies from the raw instruction")
	f.BoolVar(&cf.callback, "callback", false, "Deliver the reply through the callback path (no hooks)")
	f.BoolVar(&cf.echo, "echo", false, "Echo fragments to stdout as they are generated")
	f.Int("max-tokens", 0, "Token budget for the reply")
	f.String("stop", "", "Comma-separated stop sequences")
	cmd.MarkFlagsMutuallyExclusive("stream", "callback")
	return cmd
}

func runComplete(ctx context.Context, opts *rootOptions, cf completeFlags, stdout, stderr io.Writer) error {
	var h historyFile
	if cf.history != "" {
		var err error
		if h, err = readHistory(cf.history); err != nil {
			return err
		}
	}
	if cf.instruction != "" {
		h.Instruction = cf.instruction
	}
	if cf.model != "" {
		h.Model = cf.model
	}
	if h.AgentID == "" {
		h.AgentID = cf.agent
	}
	if strings.TrimSpace(h.Instruction) == "" {
		return fmt.Errorf("an instruction is required (--instruction or the history file)")
	}

	log := newLogger(stderr, opts.cfg.LogLevel, opts.cfg.LogFormat)
	o := appOptions{}
	if cf.echo {
		o.echo = stdout
	}
	a, err := buildApp(ctx, opts.cfg, log, o)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx = state.WithConversationID(ctx, cf.convID)
	agent := types.AgentContext{ID: h.AgentID, Instruction: h.Instruction, SelectedModel: h.Model}

	if cf.callback {
		var final string
		if _, err := a.provider.CompleteWithCallback(ctx, agent, h.Turns, func(m types.GeneratedMessage) error {
			final = m.Content
			return nil
		}, nil); err != nil {
			return err
		}
		if !cf.echo {
			fmt.Fprintln(stdout, final)
		}
		return nil
	}

	if cf.stream {
		var final string
		_, err := a.provider.CompleteStreaming(ctx, agent, h.Turns, func(m types.GeneratedMessage) error {
			if !m.Partial {
				final = m.Content
			}
			return nil
		})
		if err != nil {
			return err
		}
		if !cf.echo {
			fmt.Fprintln(stdout, final)
		}
		return nil
	}

	msg, err := a.provider.Complete(ctx, agent, h.Turns)
	if err != nil && msg == nil {
		return err
	}
	if err != nil {
		log.Warn().Err(err).Msg("after-generate hook failed")
	}
	if !cf.echo {
		fmt.Fprintln(stdout, msg.Content)
	}
	return nil
}
