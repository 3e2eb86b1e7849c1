package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/codescan/internal/batch"
)

// batchCmd represents the batch command.
var batchCmd = &cobra.Command{
	Use:   "batch <dir|photo>...",
	Short: "Scan many photos in parallel",
	Long: `Scan every photo found in the given directories and files and print
per-file results.

Examples:
  codescan batch ./photos
  codescan batch ./photos --recursive --include 'label_*' --format csv -o codes.csv
  codescan batch a.jpg b.jpg --workers 8 --stats`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

var batchBindings = []flagBinding{
	{"scan.accept_pattern", "pattern"},
	{"scan.angle_sweep", "sweep"},
	{"scan.fine_step", "fine-step"},
	{"scan.formats", "formats"},
	{"scan.max_symbols", "max-symbols"},
	{"scan.workers", "workers"},
	{"batch.workers", "batch-workers"},
	{"batch.recursive", "recursive"},
	{"batch.include", "include"},
	{"batch.exclude", "exclude"},
	{"batch.continue_on_error", "continue-on-error"},
	{"output.format", "format"},
	{"output.file", "output"},
}

func runBatch(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, batchBindings); err != nil {
		return err
	}
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	applyOCRFlag(cmd, cfg)

	// Sequential attempts per photo unless configured.
	if cfg.Scan.Workers == 0 {
		cfg.Scan.Workers = 1
	}
	scanner, err := newScanner(cfg)
	if err != nil {
		return err
	}

	bc := batch.Config{
		Workers:         cfg.Batch.Workers,
		Recursive:       cfg.Batch.Recursive,
		IncludePatterns: cfg.Batch.Include,
		ExcludePatterns: cfg.Batch.Exclude,
		ContinueOnError: cfg.Batch.ContinueOnError,
	}
	quiet, _ := cmd.Flags().GetBool("quiet")
	if progress, _ := cmd.Flags().GetBool("progress"); progress && !quiet {
		bc.Progress = batch.NewConsoleProgress(cmd.ErrOrStderr(), "Scanning: ")
	} else if !quiet {
		bc.Progress = batch.NewLogProgress(slog.Default(), slog.LevelDebug)
	}

	res, err := batch.ProcessBatch(cmd.Context(), scanner, args, bc)
	if err != nil {
		return err
	}

	details, _ := cmd.Flags().GetBool("details")
	if err := res.SaveResults(cmd.OutOrStdout(), cfg.Output.Format, cfg.Output.File, details); err != nil {
		return err
	}
	if stats, _ := cmd.Flags().GetBool("stats"); stats && !quiet {
		res.PrintStats(cmd.ErrOrStderr())
	}
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addScanFlags(batchCmd)
	addOutputFlags(batchCmd)
	batchCmd.Flags().IntP("batch-workers", "w", 4, "photos scanned in parallel")
	batchCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	batchCmd.Flags().StringSlice("include", nil, "glob patterns on file names to include")
	batchCmd.Flags().StringSlice("exclude", nil, "glob patterns on file names to exclude")
	batchCmd.Flags().Bool("continue-on-error", true, "record per-file failures instead of aborting")
	batchCmd.Flags().Bool("progress", false, "show a progress bar on stderr")
	batchCmd.Flags().Bool("stats", false, "print summary statistics to stderr")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress progress and statistics")
}
