package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/artdocent/docent/internal/artwork"
	"github.com/artdocent/docent/internal/camera"
	"github.com/artdocent/docent/internal/elevenlabs"
	"github.com/artdocent/docent/internal/session"
	"github.com/artdocent/docent/internal/vision"
)

func newConverseCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "converse <image-file>",
		Short: "Identify an artwork and open a voice conversation about it",
		Long: `Captures the image file as the current camera frame, identifies it, and starts
a voice agent session with the artwork tools registered. Transcripts are
printed as they arrive. Press Ctrl+C to end the session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			identifier, err := vision.NewClient(cfg.Vision, logger)
			if err != nil {
				return err
			}

			m := session.New(session.Options{
				Identifier:      identifier,
				Camera:          camera.File{Path: args[0]},
				Voice:           session.ElevenLabsAgent{Client: elevenlabs.NewClient(cfg.Voice.BaseURL, cfg.Voice.APIKey, logger)},
				AgentID:         cfg.Voice.AgentID,
				TeardownTimeout: cfg.Voice.Timeout,
				Transcript: func(role, text string) {
					fmt.Fprintf(os.Stdout, "%s: %s\n", role, text)
				},
				Logger: logger,
			})

			if _, err := m.Capture(cmd.Context()); err != nil {
				return err
			}
			if a := m.Store().Read(); a != nil {
				fmt.Fprintln(os.Stdout, artwork.Summary(*a))
			}

			if err := m.StartConversation(cmd.Context()); err != nil {
				_ = m.Reset(context.Background())
				return err
			}
			fmt.Fprintln(os.Stdout, m.Snapshot().Status)

			<-cmd.Context().Done()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return m.Reset(ctx)
		},
	}

	return cmd
}
