package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cryptoquote/internal/app"
	"cryptoquote/internal/config"
	"cryptoquote/internal/logging"
)

type RootCommand struct {
	baseCmd *cobra.Command
	params  *rootParams
}

type rootParams struct {
	configPath string
	timeout    time.Duration
	verbose    bool
}

func NewRootCommand() *RootCommand {
	params := &rootParams{}
	rootCommand := &RootCommand{
		baseCmd: &cobra.Command{
			Use:           "fetch",
			Short:         "one-off cryptocurrency quote lookups",
			SilenceUsage:  true,
			SilenceErrors: true,
		},
		params: params,
	}

	flags := rootCommand.baseCmd.PersistentFlags()
	flags.StringVar(&params.configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.yaml (optional)")
	flags.DurationVar(&params.timeout, "timeout", 15*time.Second, "overall timeout for the lookup")
	flags.BoolVarP(&params.verbose, "verbose", "v", false, "log upstream diagnostics to stderr")

	rootCommand.registerSubCommands()

	return rootCommand
}

func (rc *RootCommand) registerSubCommands() {
	rc.baseCmd.AddCommand(
		getQuoteCommand(rc.params),
		getPriceCommand(rc.params),
		getRatesCommand(rc.params),
	)
}

func (rc *RootCommand) Execute() {
	if err := rc.baseCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}
}

// setup loads the config and builds the components for one command run.
func (p *rootParams) setup(cmd *cobra.Command) (context.Context, context.CancelFunc, *app.Components, error) {
	cfg, err := config.Load(p.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	logger := zap.NewNop()
	if p.verbose {
		if logger, err = logging.New("debug", logging.FormatConsole); err != nil {
			return nil, nil, nil, err
		}
	}

	comps, err := app.Build(cfg, logger, nil)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), p.timeout)
	return ctx, cancel, comps, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
