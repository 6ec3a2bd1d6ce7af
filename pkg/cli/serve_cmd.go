package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"qfront/internal/app"
	"qfront/internal/config"
)

func newServeCmd() *cobra.Command {
	var (
		configFile string
		envFile    string
		relayAddr  string
		httpAddr   string
		historyDB  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the query relay, HTTP API and history pruner",
		Long: `Loads configuration from defaults, an optional YAML or TOML file and the environment
(flags win), then serves until SIGINT or SIGTERM.

The relay accepts queries terminated by four newlines and replies with one
"ok <canonical query>" or "error <message>" line per query.`,
		Example: `  qfront serve
  qfront serve --http-addr :8081 --history-db history.sqlite
  CONFIG_FILE=qfront.yaml qfront serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if envFile != "" {
				if err := config.LoadDotEnv(envFile); err != nil {
					fmt.Fprintf(os.Stderr, "warning: could not load %s: %v\n", envFile, err)
				}
			}
			if !cmd.Flags().Changed("config") {
				configFile = os.Getenv("CONFIG_FILE")
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("relay-addr") {
				cfg.RelayAddr = relayAddr
			}
			if cmd.Flags().Changed("http-addr") {
				cfg.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("history-db") {
				cfg.HistoryDBPath = historyDB
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logger := cfg.NewLogger(os.Stderr)
			for _, w := range cfg.Warnings {
				logger.Warn(w)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, app.Deps{Cfg: cfg, Logger: logger})
			if err != nil {
				return err
			}
			logger.Info("qfront starting", "version", version, "relay_addr", cfg.RelayAddr,
				"http_addr", cfg.HTTPAddr, "history", cfg.HistoryEnabled())
			return serve(ctx, a)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "YAML or TOML config file (env CONFIG_FILE)")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before the environment is read; empty to skip")
	cmd.Flags().StringVar(&relayAddr, "relay-addr", "", "Relay listen address (overrides RELAY_ADDR)")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP API listen address; empty disables (overrides HTTP_ADDR)")
	cmd.Flags().StringVar(&historyDB, "history-db", "", "History SQLite file; empty disables (overrides HISTORY_DB_PATH)")

	return cmd
}

// serve is a seam for tests.
var serve = func(ctx context.Context, a *app.App) error {
	return a.Run(ctx)
}
