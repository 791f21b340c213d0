package cmd

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/artdocent/docent/internal/elevenlabs"
	"github.com/artdocent/docent/internal/handlers"
	"github.com/artdocent/docent/internal/session"
	"github.com/artdocent/docent/internal/storage"
	"github.com/artdocent/docent/internal/vision"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the artwork identification and session API",
		Long: `Starts the HTTP server.

POST /analyze identifies a single image. The /api/sessions endpoints host the
capture, analysis and conversation lifecycle for each visitor and expose the
agent tools over HTTP.`,
		Example: `  # Start server on default port 8080
  docent serve

  # Start server on custom port
  docent serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			identifier, err := vision.NewClient(cfg.Vision, logger)
			if err != nil {
				return err
			}
			voice := session.ElevenLabsAgent{Client: elevenlabs.NewClient(cfg.Voice.BaseURL, cfg.Voice.APIKey, logger)}

			sessions := storage.New(func() *session.Machine {
				return session.New(session.Options{
					Identifier:      identifier,
					Voice:           voice,
					AgentID:         cfg.Voice.AgentID,
					TeardownTimeout: cfg.Voice.Timeout,
					Logger:          logger,
				})
			})
			handler := handlers.New(identifier, sessions, cfg.Vision.MaxImageBytes())

			addr := ":" + strconv.Itoa(cfg.Server.Port)
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				logger.Info("Docent API available",
					"addr", addr,
					"url", "http://localhost"+addr,
					"provider", cfg.Vision.Provider,
					"model", cfg.Vision.Model())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-cmd.Context().Done():
				logger.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("Server shutdown failed", "err", err)
					return err
				}
				var g errgroup.Group
				g.SetLimit(8)
				for _, e := range sessions.List() {
					g.Go(func() error {
						if err := e.Machine.Reset(shutdownCtx); err != nil {
							logger.Warn("Session reset failed during shutdown", "session", e.ID, "err", err)
						}
						return nil
					})
				}
				_ = g.Wait()
				logger.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on (overrides config)")

	return cmd
}
