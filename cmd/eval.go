package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/artdocent/docent/internal/evaluation"
	"github.com/artdocent/docent/internal/vision"
)

func newEvalCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Artwork identification evaluation tools",
		Long: `Evaluation tools for measuring how accurately the vision model identifies
artworks against a labeled dataset.

Datasets are JSONL or Parquet files with one artwork per record: an image path
or URL plus the expected name, artist, year and medium.`,
	}

	cmd.AddCommand(newEvalRunCmd(opts))

	return cmd
}

func newEvalRunCmd(opts *rootOptions) *cobra.Command {
	var (
		datasetPath string
		provider    string
		model       string
		output      string
		sample      int
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run identification against a labeled dataset",
		Example: `  docent eval run --dataset artworks.jsonl
  docent eval run --dataset artworks.parquet --provider gemini --sample 25`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if provider != "" {
				cfg.Vision.Provider = provider
			}
			if model != "" {
				cfg.Vision.SetModel(model)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger.Info("Starting evaluation run", "dataset", datasetPath, "provider", cfg.Vision.Provider, "model", cfg.Vision.Model())

			loader := evaluation.NewLoader(datasetPath)
			records, err := loader.LoadSample(sample)
			if err != nil {
				return fmt.Errorf("failed to load dataset: %w", err)
			}
			logger.Info("Dataset loaded", "records", len(records))

			client, err := vision.NewClient(cfg.Vision, logger)
			if err != nil {
				return err
			}

			runner := &evaluation.Runner{
				Identifier:    client,
				Concurrency:   concurrency,
				BaseDir:       loader.Dir(),
				MaxImageBytes: int64(cfg.Vision.MaxImageBytes()),
				Logger:        logger,
			}
			results := runner.Run(cmd.Context(), records)

			report := evaluation.NewReport(evaluation.RunConfig{
				Provider:    cfg.Vision.Provider,
				Model:       cfg.Vision.Model(),
				Temperature: cfg.Vision.Temperature,
				DatasetPath: datasetPath,
				Concurrency: concurrency,
			}, results)

			if output == "" {
				output = evaluation.DefaultReportPath(cfg.Vision.Provider, time.Now())
			}
			if err := report.Save(output); err != nil {
				return err
			}

			report.Summary.Print(os.Stdout)
			fmt.Printf("\nResults saved to: %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to a JSONL or Parquet dataset (required)")
	cmd.Flags().StringVar(&provider, "provider", "", "Vision provider: openai, gemini, anthropic, ollama")
	cmd.Flags().StringVar(&model, "model", "", "Model name (defaults to the provider's configured model)")
	cmd.Flags().StringVar(&output, "output", "", "Report path (default evals/<provider>_<timestamp>.yaml)")
	cmd.Flags().IntVar(&sample, "sample", 0, "Evaluate only the first N records (0 for all)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Number of concurrent identifications")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}
