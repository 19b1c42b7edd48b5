package config

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Config represents the complete fillin configuration
type Config struct {
	BaseDir    string             `yaml:"-"`       // Directory containing config file, for resolving relative paths
	Culture    string             `yaml:"culture"` // BCP 47 tag used for numbers and dates (empty = invariant)
	Delimiters DelimiterConfig    `yaml:"delimiters"`
	Logging    LoggingConfig      `yaml:"logging"`
	Server     ServerConfig       `yaml:"server"`
	Database   DatabaseConfig     `yaml:"database"`
	Notify     NotifyConfig       `yaml:"notify"`
	Watch      WatchConfig        `yaml:"watch"`
	Output     OutputConfig       `yaml:"output"`
	Data       map[string]any     `yaml:"data"` // Values available to every render; the data source overrides them
	Profiles   map[string]Profile `yaml:"profiles"`
}

// DelimiterConfig holds the eight term delimiters. Each must be a single character.
type DelimiterConfig struct {
	Positive    string `yaml:"positive"`
	Negative    string `yaml:"negative"`
	Format      string `yaml:"format"`
	Default     string `yaml:"default"`
	OpenOffset  string `yaml:"open_offset"`
	CloseOffset string `yaml:"close_offset"`
	StartTerm   string `yaml:"start_term"`
	EndTerm     string `yaml:"end_term"`
}

// named lists the delimiters with their YAML names in declaration order.
func (d DelimiterConfig) named() []struct{ Name, Value string } {
	return []struct{ Name, Value string }{
		{"positive", d.Positive},
		{"negative", d.Negative},
		{"format", d.Format},
		{"default", d.Default},
		{"open_offset", d.OpenOffset},
		{"close_offset", d.CloseOffset},
		{"start_term", d.StartTerm},
		{"end_term", d.EndTerm},
	}
}

// runes converts the delimiters to runes, reporting the first one that is not
// exactly one character.
func (d DelimiterConfig) runes() ([8]rune, error) {
	var out [8]rune
	for i, n := range d.named() {
		if utf8.RuneCountInString(n.Value) != 1 {
			return out, fmt.Errorf("delimiters.%s must be a single character, got %q", n.Name, n.Value)
		}
		out[i], _ = utf8.DecodeRuneInString(n.Value)
	}
	return out, nil
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // simple, text or json
	Output string `yaml:"output"` // stderr, stdout, or file path
	Quiet  bool   `yaml:"quiet"`  // suppress request logs
}

// ServerConfig holds settings for `fillin serve`
type ServerConfig struct {
	Host        string            `yaml:"host"`
	Port        int               `yaml:"port"`
	MaxBody     string            `yaml:"max_body"` // Maximum request body, e.g. "1MB"
	Timeout     time.Duration     `yaml:"timeout"`
	Compression CompressionConfig `yaml:"compression"`
}

// CompressionConfig holds HTTP response compression settings
type CompressionConfig struct {
	Enabled bool   `yaml:"enabled"`  // Enable zstd/gzip compression (default: true)
	Level   string `yaml:"level"`    // Compression level: "fastest", "default", "best", "none" (default: "default")
	MinSize int    `yaml:"min_size"` // Minimum response size to compress in bytes (default: 1024)
}

// DatabaseConfig selects the SQL source used by `fillin query`
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres or mysql
	DSN    string `yaml:"dsn"`    // Driver-specific connection string; a relative sqlite path is resolved against BaseDir
}

// NotifyConfig holds settings for `fillin notify`
type NotifyConfig struct {
	Provider string        `yaml:"provider"` // "mailgun", "resend" or "dryrun"
	From     string        `yaml:"from"`
	Subject  string        `yaml:"subject"`  // Subject pattern
	Markdown bool          `yaml:"markdown"` // Render the body pattern's output as Markdown to HTML
	Mailgun  MailgunConfig `yaml:"mailgun"`
	Resend   ResendConfig  `yaml:"resend"`
}

// MailgunConfig holds Mailgun-specific settings
type MailgunConfig struct {
	APIKey string `yaml:"api_key"`
	Domain string `yaml:"domain"`
	Region string `yaml:"region"` // "us" or "eu" (default: "us")
}

// ResendConfig holds Resend-specific settings
type ResendConfig struct {
	APIKey string `yaml:"api_key"`
}

// WatchConfig holds settings for `fillin watch`
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"` // Quiet period before re-rendering (default: 200ms)
}

// OutputConfig holds settings for rendered files
type OutputConfig struct {
	Markdown bool   `yaml:"markdown"` // Convert rendered Markdown to HTML
	Level    string `yaml:"level"`    // Compression level for .gz/.zst outputs: "fastest", "default", "best"
}

// Profile holds named overrides
// All fields are optional - only non-zero values override the base config
type Profile struct {
	Culture  string         `yaml:"culture"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	Notify   struct {
		Provider string `yaml:"provider"`
		From     string `yaml:"from"`
	} `yaml:"notify"`
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Delimiters: DelimiterConfig{
			Positive:    "+",
			Negative:    "-",
			Format:      "|",
			Default:     ":",
			OpenOffset:  "(",
			CloseOffset: ")",
			StartTerm:   "[",
			EndTerm:     "]",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "simple",
			Output: "stderr",
		},
		Server: ServerConfig{
			Host:    "localhost",
			Port:    8080,
			MaxBody: "1MB",
			Timeout: 30 * time.Second,
			Compression: CompressionConfig{
				Enabled: true,
				Level:   "default",
				MinSize: 1024,
			},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
		},
		Notify: NotifyConfig{
			Provider: "dryrun",
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
		Output: OutputConfig{
			Level: "default",
		},
	}
}
