//nolint:lll
package config

// Config represents the complete configuration for codescan. It covers all
// commands (scan, quality, batch, serve) and is loaded from configuration
// files, environment variables and command-line flags.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Scan   ScanConfig   `mapstructure:"scan" yaml:"scan" json:"scan"`
	OCR    OCRConfig    `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
	Batch  BatchConfig  `mapstructure:"batch" yaml:"batch" json:"batch"`
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
}

// ScanConfig contains detection and decoding settings.
type ScanConfig struct {
	AcceptPattern string `mapstructure:"accept_pattern" yaml:"accept_pattern" json:"accept_pattern"`

	BrightnessThreshold float64 `mapstructure:"brightness_threshold" yaml:"brightness_threshold" json:"brightness_threshold"`
	BrightnessGain      float64 `mapstructure:"brightness_gain" yaml:"brightness_gain" json:"brightness_gain"`
	BrightnessBias      float64 `mapstructure:"brightness_bias" yaml:"brightness_bias" json:"brightness_bias"`
	BlurSigma           float64 `mapstructure:"blur_sigma" yaml:"blur_sigma" json:"blur_sigma"`

	MinRegionWidth    int  `mapstructure:"min_region_width" yaml:"min_region_width" json:"min_region_width"`
	MinRegionHeight   int  `mapstructure:"min_region_height" yaml:"min_region_height" json:"min_region_height"`
	CloseKernelWidth  int  `mapstructure:"close_kernel_width" yaml:"close_kernel_width" json:"close_kernel_width"`
	CloseKernelHeight int  `mapstructure:"close_kernel_height" yaml:"close_kernel_height" json:"close_kernel_height"`
	OpenPass          bool `mapstructure:"open_pass" yaml:"open_pass" json:"open_pass"`
	OpenKernelWidth   int  `mapstructure:"open_kernel_width" yaml:"open_kernel_width" json:"open_kernel_width"`
	OpenKernelHeight  int  `mapstructure:"open_kernel_height" yaml:"open_kernel_height" json:"open_kernel_height"`
	RegionPadding     int  `mapstructure:"region_padding" yaml:"region_padding" json:"region_padding"`

	AngleSweep string   `mapstructure:"angle_sweep" yaml:"angle_sweep" json:"angle_sweep"`
	FineStep   float64  `mapstructure:"fine_step" yaml:"fine_step" json:"fine_step"`
	Workers    int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Formats    []string `mapstructure:"formats" yaml:"formats" json:"formats"`
	MaxSymbols int      `mapstructure:"max_symbols" yaml:"max_symbols" json:"max_symbols"`
}

// OCRConfig contains the text fallback settings.
type OCRConfig struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Language    string  `mapstructure:"language" yaml:"language" json:"language"`
	TextPattern string  `mapstructure:"text_pattern" yaml:"text_pattern" json:"text_pattern"`
	Contrast    float64 `mapstructure:"contrast" yaml:"contrast" json:"contrast"`
	CloseKernel int     `mapstructure:"close_kernel" yaml:"close_kernel" json:"close_kernel"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host               string `mapstructure:"host" yaml:"host" json:"host"`
	Port               int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin         string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB        int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec         int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout    int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}
