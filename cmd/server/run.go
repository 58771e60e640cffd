package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rhuss/strom/pkg/agent"
	"github.com/rhuss/strom/pkg/api"
	"github.com/rhuss/strom/pkg/config"
	"github.com/rhuss/strom/pkg/debug"
	"github.com/rhuss/strom/pkg/engine"
)

type runOptions struct {
	Model        string
	Instructions string
	Stream       bool
	JSON         bool
}

func newRunCommand(global *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run one prompt against the configured agent and print the result",
		Long: "Run one prompt against the configured agent without starting the server.\n" +
			"With --stream the SSE frames are printed as a client would receive them.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(global.ConfigPath)
			if err != nil {
				return err
			}
			debug.Init(cfg.Logging.Debug, cfg.Logging.Level, cfg.Logging.Format)

			a, err := newAgent(cfg.Agent)
			if err != nil {
				return err
			}
			defer a.Close()

			return runPrompt(cmd.Context(), cmd.OutOrStdout(), a, cfg.Agent, strings.Join(args, " "), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "model, overrides agent.default_model")
	cmd.Flags().StringVar(&opts.Instructions, "instructions", "", "system instructions")
	cmd.Flags().BoolVar(&opts.Stream, "stream", false, "print SSE frames instead of the final text")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print the final response as JSON")
	return cmd
}

func runPrompt(ctx context.Context, w io.Writer, a agent.Agent, cfg config.AgentConfig, prompt string, opts *runOptions) error {
	model := opts.Model
	if model == "" {
		model = cfg.DefaultModel
	}
	if model == "" {
		return errors.New("no model: pass --model or set agent.default_model")
	}

	req := &agent.Request{Model: model, Stream: true, Temperature: cfg.Temperature}
	if opts.Instructions != "" {
		req.Messages = append(req.Messages, agent.TextMessage(agent.RoleSystem, opts.Instructions))
	}
	req.Messages = append(req.Messages, agent.TextMessage(agent.RoleUser, prompt))

	src, err := a.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("agent %s: %w", a.Name(), err)
	}

	if opts.Stream {
		tr := engine.NewTranslator(model, &printSink{w: w})
		return tr.Run(ctx, src)
	}

	resp, err := engine.Drain(ctx, model, src)
	if err != nil {
		return err
	}
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	_, err = fmt.Fprintln(w, outputText(resp))
	return err
}

// outputText joins the text of every output part.
func outputText(resp *api.Response) string {
	var b strings.Builder
	for _, item := range resp.Output {
		for _, part := range item.Content {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// printSink writes frames in SSE wire format.
type printSink struct {
	w io.Writer
}

func (s *printSink) WriteEvent(_ context.Context, ev api.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(s.w, "data: %s\n\n", data)
	return err
}

func (s *printSink) WriteDone(context.Context) error {
	_, err := fmt.Fprintf(s.w, "data: %s\n\n", api.DoneSentinel)
	return err
}
