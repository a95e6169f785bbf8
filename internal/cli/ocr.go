// README: ocr: parses a local screenshot (or its transcribed text) for checking the parser.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"dishbee/internal/modules/ocr"
)

func newOCRCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ocr [file]",
		Short: "Parse a screenshot, or transcribed text with --text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asText, _ := cmd.Flags().GetBool("text")
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var parsed *ocr.Parsed
			if asText {
				parsed, err = ocr.Parse(string(data))
			} else {
				parsed, err = parseImage(cmd.Context(), data)
			}
			return printParsed(cmd.OutOrStdout(), parsed, err)
		},
	}
	cmd.Flags().Bool("text", false, "Treat the file as already transcribed text")
	return cmd
}

func parseImage(ctx context.Context, image []byte) (*ocr.Parsed, error) {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}
	engine, err := ocr.NewGeminiEngine(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("ocr engine: %w", err)
	}
	defer engine.Close()
	return ocr.NewService(engine, cliLogger(), nil).Process(ctx, image)
}

func printParsed(out io.Writer, parsed *ocr.Parsed, err error) error {
	var perr *ocr.ParseError
	if errors.As(err, &perr) {
		fmt.Fprintf(out, "%s: %s\n%s\n", perr.Code, perr.Reason, ocr.Instruction(perr.Code))
		return err
	}
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(parsed)
}
