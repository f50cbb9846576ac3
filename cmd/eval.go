package cmd

import (
	"os"

	"github.com/lehigh-university-libraries/ocrserver/internal/eval/dataset"
	"github.com/lehigh-university-libraries/ocrserver/internal/eval/results"
	"github.com/lehigh-university-libraries/ocrserver/internal/evalcmd"
	"github.com/spf13/cobra"
)

func newEvalCmd(opts *rootOptions) *cobra.Command {
	var (
		datasetPath   string
		sampleSize    int
		concurrency   int
		outputDir     string
		cacheDir      string
		forceDownload bool
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Measure recognition accuracy against a labeled dataset",
		Long: `Runs every sample of a labeled dataset through the configured OCR engine
and reports exact-match accuracy, Levenshtein similarity and character error rate.

Datasets are JSONL or Parquet rows of {id, image, label}, where image is a base64
payload in any form POST /ocr accepts. A dataset may also be referenced as
hf://<owner>/<repo>/<file> to download it from HuggingFace (HF_TOKEN is used
when set).`,
		Example: `  # Evaluate the first 100 samples with the local model
  ocrserver eval --dataset samples.parquet --sample 100

  # Evaluate a HuggingFace dataset with a vision model, 4 at a time
  OCR_PROVIDER=ollama ocrserver eval --dataset hf://owner/captchas/test.jsonl --concurrency 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			service, err := buildService(cfg)
			if err != nil {
				return err
			}

			_, err = evalcmd.Run(cmd.Context(), service, evalcmd.Options{
				DatasetPath: datasetPath,
				SampleSize:  sampleSize,
				Concurrency: concurrency,
				OutputDir:   outputDir,
				Provider:    service.EngineName(),
				Model:       service.Model(),
				Download: dataset.DownloadConfig{
					CacheDir:      cacheDir,
					ForceDownload: forceDownload,
					Token:         os.Getenv("HF_TOKEN"),
				},
			}, cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "samples.parquet", "Path to a .parquet or .jsonl dataset, or hf://owner/repo/file")
	cmd.Flags().IntVar(&sampleSize, "sample", 10, "Number of samples to evaluate (-1 for all)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Samples recognized in parallel")
	cmd.Flags().StringVar(&outputDir, "output", results.DefaultDir, "Directory for the YAML report")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", dataset.DefaultCacheDir, "Download cache for hf:// datasets")
	cmd.Flags().BoolVar(&forceDownload, "force-download", false, "Re-download hf:// datasets even when cached")

	return cmd
}
