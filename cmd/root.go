package cmd

import (
	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/ocrserver/internal/cache"
	"github.com/lehigh-university-libraries/ocrserver/internal/config"
	"github.com/lehigh-university-libraries/ocrserver/internal/logging"
	"github.com/lehigh-university-libraries/ocrserver/internal/ocr"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ocrserver",
		Short: "HTTP OCR service for short text images",
		Long: `ocrserver accepts base64-encoded images over HTTP and returns the text
recognized by a pre-trained OCR model.

The default engine is a local Tesseract model restricted to a character set;
Ollama, OpenAI and Gemini vision models can be used instead.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if cmd.Flags().Changed("log-level") {
				level = opts.logLevel
			}
			logging.Init(level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newRecognizeCmd(opts))
	cmd.AddCommand(newEvalCmd(opts))

	return cmd
}

func (o *rootOptions) load() (config.Config, error) {
	return config.Load(o.configPath)
}

// buildService loads the engine and cache once. Errors here are startup
// failures and abort the command.
func buildService(cfg config.Config) (*ocr.Service, error) {
	store, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, err
	}
	return ocr.Load(cfg.OCR, ocr.WithCache(store))
}
