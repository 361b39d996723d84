package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rareaward/formflow/internal/config"
	"github.com/rareaward/formflow/pkg/nomination"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "formflow",
	Short: "Multi-step nomination forms from the terminal or over HTTP",
	Long: `formflow drives the R.A.R.E. Award nomination flow: a validated
multi-step form with autosave, drafts and a submission endpoint.
It can serve the stub backend, render the form to HTML, validate
saved answers, or walk the whole flow interactively.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and reports the error after logging it.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".formflow.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// loadDefinition resolves the form definition: an explicit path or URL from
// configuration, falling back to the embedded default.
func loadDefinition(ctx context.Context, cfg *config.Config) (nomination.Definition, error) {
	if cfg.DefinitionPath == "" {
		return nomination.Default(), nil
	}
	options := nomination.LoaderOptions{}
	src := nomination.SourceFromFile(cfg.DefinitionPath)
	if u, err := url.Parse(cfg.DefinitionPath); err == nil && strings.HasPrefix(u.Scheme, "http") {
		src = nomination.SourceFromURL(cfg.DefinitionPath)
		options.HTTPClient = &http.Client{}
		options.RequestTimeout = cfg.SubmitTimeout
	}
	return nomination.NewLoader(options).Load(ctx, src)
}
