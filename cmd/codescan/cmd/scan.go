package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/codescan/internal/batch"
	"github.com/MeKo-Tech/codescan/internal/config"
	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/MeKo-Tech/codescan/internal/utils"
)

// scanCmd represents the scan command.
var scanCmd = &cobra.Command{
	Use:   "scan <photo>...",
	Short: "Extract identifier codes from photos",
	Long: `Decode barcodes (and, as a last resort, printed text) in one or more
photos and print the accepted codes in discovery order.

Pass "-" to read a single photo from stdin.

Examples:
  codescan scan label.jpg
  codescan scan label.jpg --pattern '^AZT\d+$'
  codescan scan tilted.jpg --sweep fine --fine-step 5 --details
  cat label.png | codescan scan - --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

var scanBindings = []flagBinding{
	{"scan.accept_pattern", "pattern"},
	{"scan.angle_sweep", "sweep"},
	{"scan.fine_step", "fine-step"},
	{"scan.formats", "formats"},
	{"scan.workers", "workers"},
	{"scan.max_symbols", "max-symbols"},
	{"output.format", "format"},
	{"output.file", "output"},
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, scanBindings); err != nil {
		return err
	}
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	applyOCRFlag(cmd, cfg)

	scanner, err := newScanner(cfg)
	if err != nil {
		return err
	}
	details, _ := cmd.Flags().GetBool("details")
	ctx := cmd.Context()

	if len(args) == 1 {
		data, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		res, err := scanner.Scan(ctx, data, nil)
		if err != nil {
			if errors.Is(err, pipeline.ErrInvalidImage) {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return err
		}
		body, err := pipeline.RenderResult(res, cfg.Output.Format, details)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), cfg.Output.File, body)
	}

	for _, a := range args {
		if a == "-" {
			return errors.New("stdin input accepts a single photo")
		}
	}
	res, err := batch.ScanFiles(ctx, scanner, args, batch.Config{Workers: cfg.Batch.Workers})
	if err != nil {
		return err
	}
	return res.SaveResults(cmd.OutOrStdout(), cfg.Output.Format, cfg.Output.File, details)
}

// applyOCRFlag lets --no-ocr override ocr.enabled.
func applyOCRFlag(cmd *cobra.Command, cfg *config.Config) {
	if f := cmd.Flags().Lookup("no-ocr"); f != nil && f.Changed {
		noOCR, _ := cmd.Flags().GetBool("no-ocr")
		cfg.OCR.Enabled = !noOCR
	}
}

func readInput(stdin io.Reader, arg string) ([]byte, error) {
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	return utils.ReadImageFile(arg)
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().String("pattern", "", "acceptance regular expression (default: accept all)")
	cmd.Flags().String("sweep", "coarse", "rotation sweep: coarse (quarter turns) or fine")
	cmd.Flags().Float64("fine-step", 10, "fine sweep step in degrees")
	cmd.Flags().StringSlice("formats", nil, "restrict symbologies, e.g. code128,qr (default: all)")
	cmd.Flags().Int("workers", 0, "concurrent decode attempts per photo (0 = GOMAXPROCS)")
	cmd.Flags().Int("max-symbols", 4, "maximum symbols decoded per attempt")
	cmd.Flags().Bool("no-ocr", false, "disable the OCR fallback")
	cmd.Flags().Bool("details", false, "include source, angle and region per code")
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", pipeline.FormatText, "output format ("+strings.Join(pipeline.OutputFormats, ", ")+")")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
}

func init() {
	rootCmd.AddCommand(scanCmd)
	addScanFlags(scanCmd)
	addOutputFlags(scanCmd)
}
