package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/codescan/internal/pipeline"
)

// validateCmd checks a hand-typed code against the acceptance pattern.
var validateCmd = &cobra.Command{
	Use:   "validate <code>",
	Short: "Check a manually entered code against the acceptance pattern",
	Long: `Normalise a manually entered code (trimmed, upper-cased) and check it
against the acceptance pattern. Exits non-zero when the code is rejected.

Examples:
  codescan validate azt1001 --pattern '^AZT\d+$'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd, []flagBinding{{"scan.accept_pattern", "pattern"}}); err != nil {
			return err
		}
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		var pattern *regexp.Regexp
		if pattern, err = cfg.AcceptRegexp(); err != nil {
			return err
		}
		code, ok := pipeline.AcceptManual(args[0], pattern)
		if !ok {
			return fmt.Errorf("code %q rejected", code)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), code)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().String("pattern", "", "acceptance regular expression (default: accept all)")
}
