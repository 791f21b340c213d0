package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/artdocent/docent/internal/artwork"
	"github.com/artdocent/docent/internal/camera"
	"github.com/artdocent/docent/internal/models"
	"github.com/artdocent/docent/internal/vision"
)

type identifyOutput struct {
	CaptureID      string                `json:"capture_id" yaml:"capture_id"`
	Provider       string                `json:"provider" yaml:"provider"`
	Model          string                `json:"model" yaml:"model"`
	Duration       string                `json:"duration" yaml:"duration"`
	Degraded       []string              `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	Identification models.Identification `json:"identification" yaml:"identification"`
	Artwork        models.Artwork        `json:"artwork" yaml:"artwork"`
}

func newIdentifyCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "identify <image-file-or-url>",
		Short: "Identify a single artwork image",
		Long: `Runs one image through the vision model and prints the parsed identification
and the conversation context built from it.`,
		Example: `  docent identify hidalgo.jpg
  docent identify --json https://example.org/nighthawks.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			client, err := vision.NewClient(cfg.Vision, logger)
			if err != nil {
				return err
			}

			var frame models.ImagePayload
			if src := args[0]; strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
				data, err := camera.Download(cmd.Context(), nil, src, int64(cfg.Vision.MaxImageBytes()))
				if err != nil {
					return err
				}
				frame = camera.Encode(data)
			} else {
				frame, err = camera.File{Path: src}.Frame(cmd.Context())
				if err != nil {
					return err
				}
			}

			res, err := client.Identify(cmd.Context(), frame)
			if err != nil {
				return err
			}

			out := identifyOutput{
				CaptureID:      res.CaptureID,
				Provider:       res.Provider,
				Model:          res.Model,
				Duration:       res.Duration.Round(time.Millisecond).String(),
				Degraded:       res.Degraded,
				Identification: res.Identification,
				Artwork:        artwork.FromIdentification(res.Identification),
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			data, err := yaml.Marshal(out)
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of YAML")

	return cmd
}
