// Command server runs the strom gateway, which serves the Responses API
// in front of an agent backend and streams its runs as SSE.
//
// Usage:
//
//	strom serve [--config path] [--port 8080]
//	strom config check [--config path]
//	strom run [--config path] [--stream] "prompt"
//
// Configuration is read from a YAML file and STROM_* environment
// variables; see pkg/config.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// globalOptions are shared by all subcommands.
type globalOptions struct {
	// ConfigPath overrides config file discovery.
	ConfigPath string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "strom",
		Short:         "Responses API gateway that streams agent runs as SSE",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to the YAML config file")

	root.AddCommand(
		newServeCommand(opts),
		newConfigCommand(opts),
		newRunCommand(opts),
	)
	return root
}
