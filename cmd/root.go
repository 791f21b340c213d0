package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/artdocent/docent/internal/config"
	"github.com/artdocent/docent/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "docent",
		Short: "Photograph an artwork, identify it, and talk about it",
		Long: `Docent identifies artworks from a photo using a vision model and hands the
identification to a voice agent that can discuss the piece.

It serves the HTTP API used by the web front-end, runs one-off identifications
from the terminal, and measures identification accuracy on labeled datasets.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newIdentifyCmd(opts))
	cmd.AddCommand(newConverseCmd(opts))
	cmd.AddCommand(newEvalCmd(opts))

	return cmd
}

// load reads configuration and installs the logger. Flags override the
// file and the environment.
func (o *rootOptions) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}

	logger, err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
