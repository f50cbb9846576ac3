package cmd

import (
	"fmt"
	"os"

	"github.com/lehigh-university-libraries/ocrserver/internal/payload"
	"github.com/spf13/cobra"
)

func newRecognizeCmd(opts *rootOptions) *cobra.Command {
	var encoded string

	cmd := &cobra.Command{
		Use:   "recognize [image-file]",
		Short: "Recognize a single image without starting the server",
		Example: `  # Recognize an image file
  ocrserver recognize captcha.png

  # Recognize a base64 payload, as POST /ocr would
  ocrserver recognize --base64 "data:image/png;base64,iVBORw0KGgo..."`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (encoded == "") {
				return fmt.Errorf("provide exactly one of an image file or --base64")
			}

			var data []byte
			var err error
			if encoded != "" {
				data, err = payload.Decode(encoded)
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			service, err := buildService(cfg)
			if err != nil {
				return err
			}

			text, err := service.Recognize(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVar(&encoded, "base64", "", "Base64 image payload (URL encoding and data URI prefix allowed)")

	return cmd
}
