package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"promptbuddies/app"
	"promptbuddies/config"
	"promptbuddies/mcp"
	"promptbuddies/storage"
)

const Version = "v0.01.00"

var (
	configPath string
	debugFlag  bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "promptbuddies",
	Short:         "Adversarial conversation driver for a banking chatbot",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if debugFlag {
			cfg.Log.Debug = true
		}
		logger, err = config.NewLogger(cfg.Log, cfg.DataDir())
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run supervised sessions against the target chat",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		ctx := cmd.Context()
		a, err := app.New(ctx, cfg, logger, app.Options{})
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				logger.Warn("failed to stop tool server", zap.Error(err))
			}
		}()
		logger.Info("starting", zap.String("version", Version), zap.String("target", cfg.Target.URL))
		return a.Run(ctx)
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect or serve the banking tools",
}

var toolsServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcp.ServeStdio(app.NewBackend(cfg, logger), Version, logger)
	},
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, t := range app.NewBackend(cfg, logger).Schemas() {
			fmt.Fprintf(w, "%s\t%s\n", t.Name, t.Description)
		}
		return w.Flush()
	},
}

var toolsCallCmd = &cobra.Command{
	Use:   "call <name> [json-args]",
	Short: "Call one tool and print its payload",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		callArgs := map[string]any{}
		if len(args) == 2 {
			if err := json.Unmarshal([]byte(args[1]), &callArgs); err != nil {
				return fmt.Errorf("arguments must be a JSON object: %w", err)
			}
		}
		res := app.NewBackend(cfg, logger).Call(cmd.Context(), args[0], callArgs)
		fmt.Fprintln(cmd.OutOrStdout(), res.JSON())
		if res.Failed() {
			return errors.New(res.Error)
		}
		return nil
	},
}

var examplesFlag bool

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "Inspect the persona catalog",
}

var personasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persona categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := app.LoadCatalog(cfg, newRand())
		if err != nil {
			return err
		}
		for _, c := range catalog.Categories() {
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
		return nil
	},
}

var personasShowCmd = &cobra.Command{
	Use:   "show <category>",
	Short: "Render a persona system prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := app.LoadCatalog(cfg, newRand())
		if err != nil {
			return err
		}
		prompt, err := catalog.SystemPrompt(args[0], examplesFlag)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), prompt)
		return nil
	},
}

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run ledger",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewRunStore(cfg.DataDir())
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.List(runsLimit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tTURNS\tCONVERSATION\tREASON")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, r.Turns, r.ConversationID, r.Reason)
		}
		return w.Flush()
	},
}

func newRand() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>1))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (default ~/.config/promptbuddies/settings.toml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	personasShowCmd.Flags().BoolVar(&examplesFlag, "examples", true, "append sampled example prompts")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to show")

	toolsCmd.AddCommand(toolsServeCmd, toolsListCmd, toolsCallCmd)
	personasCmd.AddCommand(personasListCmd, personasShowCmd)
	runsCmd.AddCommand(runsListCmd)
	rootCmd.AddCommand(runCmd, toolsCmd, personasCmd, runsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
