package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/codescan/internal/config"
	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/MeKo-Tech/codescan/internal/version"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "codescan",
	Short: "Read inventory identifiers from photos of labels",
	Long: `codescan extracts identifier codes from photos of inventory labels.

It locates barcode-like regions, decodes them at several rotations, falls back
to a whole-image decode and finally to OCR of printed text, and returns the
codes that match the acceptance pattern.

Examples:
  codescan scan label.jpg
  codescan scan label.jpg --pattern '^AZT\d+$' --format json
  codescan quality label.jpg
  codescan batch ./photos --recursive --format csv
  codescan serve --port 8080`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/codescan, /etc/codescan)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("version", false, "print version information and exit")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		setupLogging(cmd.ErrOrStderr(), cfg)
		return nil
	}
}

// loadConfig resets the global viper and reads the config file and
// environment into it.
func loadConfig() (*config.Config, error) {
	viper.Reset()
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	configLoader = config.NewLoader()
	if cfgFile != "" {
		return configLoader.LoadWithFile(cfgFile)
	}
	return configLoader.Load()
}

// setupLogging installs a JSON slog handler. Logs go to stderr so that
// stdout carries only results.
func setupLogging(w io.Writer, cfg *config.Config) {
	var logLevel slog.Level
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})))
}

// GetConfig returns the resolved configuration including bound command
// flags, validated.
func GetConfig() (*config.Config, error) {
	if configLoader == nil {
		if _, err := loadConfig(); err != nil {
			return nil, err
		}
	}
	var cfg config.Config
	if err := configLoader.GetViper().Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// flagBinding maps a config key to a command flag.
type flagBinding struct {
	key  string
	flag string
}

// bindFlags binds flags to config keys at run time. Several commands share
// keys such as output.format, so binding happens per invocation.
func bindFlags(cmd *cobra.Command, bindings []flagBinding) error {
	for _, b := range bindings {
		f := cmd.Flags().Lookup(b.flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q", b.flag)
		}
		if err := viper.BindPFlag(b.key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", b.flag, err)
		}
	}
	return nil
}

// newScanner builds the scanner described by cfg.
func newScanner(cfg *config.Config) (*pipeline.Scanner, error) {
	opts, err := cfg.ToScannerOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = slog.Default()
	return pipeline.NewDefaultScanner(opts), nil
}

// writeOutput writes body to file, or to w when file is empty.
func writeOutput(w io.Writer, file, body string) error {
	if file == "" {
		_, err := io.WriteString(w, body)
		return err
	}
	if err := os.WriteFile(file, []byte(body), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
