package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/recipeflow/internal/config"
	"github.com/JonMunkholm/recipeflow/internal/core"
	_ "github.com/JonMunkholm/recipeflow/internal/core/tables" // Register all tables
	"github.com/JonMunkholm/recipeflow/internal/logging"
	"github.com/JonMunkholm/recipeflow/internal/web"
)

var (
	cfg     *config.Config
	dataDir string
	rules   string
	jsonOut bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "recipeflow",
		Short:             "Flatten recipe documents into tables and gate them with data-quality rules",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "table directory (overrides DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&rules, "rules", "", "rule plan file (overrides RULES_FILE)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")

	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(publishCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(tablesCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(serveCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads .env and the configuration before every command.
func setup(cmd *cobra.Command, args []string) error {
	// Overload lets .env win over the inherited environment
	if err := godotenv.Overload(); err == nil {
		slog.Debug("loaded .env file")
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.Data.Dir = dataDir
	}
	if rules != "" {
		cfg.Quality.RulesFile = rules
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())
	return nil
}

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Flatten source documents into table files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, needSource)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.service.Extract(ctx)
			if err != nil {
				return err
			}
			return printExtract(cmd.OutOrStdout(), res, jsonOut)
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Run the data-quality rules and overwrite tables with their clean rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, 0)
			if err != nil {
				return err
			}
			defer a.Close()

			res, runErr := a.service.Validate(ctx)
			if err := printValidate(cmd.OutOrStdout(), res, jsonOut); err != nil {
				return err
			}
			return runErr
		},
	}
}

func publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Send table files to the configured targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Publish.Timeout)
			defer cancel()

			a, err := newApp(ctx, cfg, needPublishers)
			if err != nil {
				return err
			}
			defer a.Close()

			res, runErr := a.service.Publish(ctx)
			if err := printPublish(cmd.OutOrStdout(), res, jsonOut); err != nil {
				return err
			}
			return runErr
		},
	}
}

func runCmd() *cobra.Command {
	var skipPublish bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract, validate and publish in one go",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			needs := needSource
			if !skipPublish {
				needs |= needPublishers
			}
			a, err := newApp(ctx, cfg, needs)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			extracted, err := a.service.Extract(ctx)
			if err != nil {
				return err
			}
			if err := printExtract(out, extracted, jsonOut); err != nil {
				return err
			}

			validated, err := a.service.Validate(ctx)
			if perr := printValidate(out, validated, jsonOut); perr != nil {
				return perr
			}
			if err != nil {
				return err
			}
			if skipPublish {
				return nil
			}

			pubCtx, cancel := context.WithTimeout(ctx, cfg.Publish.Timeout)
			defer cancel()
			published, err := a.service.Publish(pubCtx)
			if perr := printPublish(out, published, jsonOut); perr != nil {
				return perr
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&skipPublish, "no-publish", false, "stop after validation")
	return cmd
}

func tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List registered tables and whether their files exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg, 0)
			if err != nil {
				return err
			}
			defer a.Close()

			return printTables(cmd.OutOrStdout(), a.service.ListTables(), jsonOut)
		},
	}
}

func rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the rule plan in effect as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := loadPlan(cfg)
			if err != nil {
				return err
			}
			out, err := plan.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				cfg.Server.Port = port
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, 0)
			if err != nil {
				return err
			}
			defer a.Close()

			slog.Info("tables registered",
				"count", core.TableCount(),
				"groups", len(core.Groups()),
			)

			server := web.NewServer(a.service, cfg.Server, cfg.Security)

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			slog.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := a.service.WaitForRuns(shutdownCtx); err != nil {
				slog.Warn("run did not finish in time", "error", err)
			}
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown error", "error", err)
				return err
			}
			slog.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides SERVER_PORT)")
	return cmd
}
