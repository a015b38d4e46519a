package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/phrazzld/transcheck-api/internal/glossary"
	"github.com/spf13/cobra"
)

// newRootCommand builds the transcheck command tree. Running the root
// command without a subcommand starts the server.
func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "transcheck",
		Short:        "Spreadsheet translation review server",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to a YAML config file (default: ./config.yaml when present)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context(), configPath)
			},
		},
		newGlossaryCommand(&configPath),
	)
	return root
}

func newGlossaryCommand(configPath *string) *cobra.Command {
	glossaryCmd := &cobra.Command{
		Use:   "glossary",
		Short: "Glossary utilities",
	}

	var (
		url        string
		sourceLang string
	)
	check := &cobra.Command{
		Use:   "check",
		Short: "Load a glossary and report how many terms it holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAppConfig(*configPath)
			if err != nil {
				return err
			}
			logger, err := setupAppLogger(cfg)
			if err != nil {
				return err
			}

			if url == "" {
				url = cfg.Checker.DefaultGlossaryURL
			}
			loader, err := glossary.NewLoader(
				&http.Client{Timeout: time.Duration(cfg.Checker.HTTPTimeoutSeconds) * time.Second},
				1, 0, logger)
			if err != nil {
				return err
			}

			g, err := loader.Refresh(cmd.Context(), url, sourceLang)
			if err != nil {
				return fmt.Errorf("glossary load failed: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), glossary.Describe(g))
			return err
		},
	}
	check.Flags().StringVar(&url, "url", "", "glossary CSV url (default: checker.default_glossary_url)")
	check.Flags().StringVar(&sourceLang, "source-lang", "English", "header of the source language column")

	glossaryCmd.AddCommand(check)
	return glossaryCmd
}

// runServe loads configuration, builds the application and serves until
// SIGINT or SIGTERM.
func runServe(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadAppConfig(configPath)
	if err != nil {
		return err
	}
	logger, err := setupAppLogger(cfg)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
