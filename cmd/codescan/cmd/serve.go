package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/codescan/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the scan API",
	Long: `Start an HTTP server that exposes the scanner.

The server provides the following endpoints:
  POST /scan     - multipart "image" upload; query or form: pattern, sweep, step, details, format
  POST /quality  - multipart "image" upload; returns sharpness and brightness
  GET  /ws/scan  - WebSocket: binary frames are photos, JSON results come back
  GET  /health   - health check with host statistics
  GET  /metrics  - Prometheus metrics

Examples:
  codescan serve
  codescan serve --port 8080
  codescan serve --host 0.0.0.0 --port 3000 --rate-limit 120`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd, []flagBinding{
			{"server.host", "host"},
			{"server.port", "port"},
			{"server.cors_origin", "cors-origin"},
			{"server.max_upload_mb", "max-upload-size"},
			{"server.timeout_sec", "timeout"},
			{"server.shutdown_timeout", "shutdown-timeout"},
			{"server.rate_limit_per_minute", "rate-limit"},
			{"scan.accept_pattern", "pattern"},
		}); err != nil {
			return err
		}
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if noOCR, _ := cmd.Flags().GetBool("no-ocr"); noOCR {
			cfg.OCR.Enabled = false
		}

		scanner, err := newScanner(cfg)
		if err != nil {
			return err
		}

		serverConfig := server.Config{
			Host:               cfg.Server.Host,
			Port:               cfg.Server.Port,
			CORSOrigin:         cfg.Server.CORSOrigin,
			MaxUploadMB:        int64(cfg.Server.MaxUploadMB),
			TimeoutSec:         cfg.Server.TimeoutSec,
			ShutdownTimeoutSec: cfg.Server.ShutdownTimeout,
			RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		}
		srv := server.NewServer(serverConfig, scanner)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		slog.Info("Scanner ready", "ocr_available", scanner.OCRAvailable(), "sweep", scanner.Options().Sweep.String())
		if err := srv.ListenAndServe(ctx, serverConfig); err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 20, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().Int("rate-limit", 0, "maximum requests per minute per client (0 = unlimited)")
	serveCmd.Flags().String("pattern", "", "default acceptance regular expression")
	serveCmd.Flags().Bool("no-ocr", false, "disable the OCR fallback")
}
