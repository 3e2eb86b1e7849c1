package cmd

import (
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/codescan/internal/pipeline"
)

// qualityCmd represents the quality command.
var qualityCmd = &cobra.Command{
	Use:   "quality <photo>",
	Short: "Report sharpness and brightness of a photo",
	Long: `Print diagnostic scores for a photo: sharpness (variance of the
Laplacian) and brightness (mean gray level, 0..255). No pass or fail
judgement is made.

Examples:
  codescan quality label.jpg
  codescan quality label.jpg --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd, []flagBinding{{"output.format", "format"}, {"output.file", "output"}}); err != nil {
			return err
		}
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		data, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		q, err := pipeline.Quality(data)
		if err != nil {
			return err
		}
		body, err := pipeline.RenderQuality(q, cfg.Output.Format)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), cfg.Output.File, body)
	},
}

func init() {
	rootCmd.AddCommand(qualityCmd)
	addOutputFlags(qualityCmd)
}
