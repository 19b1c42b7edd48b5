package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sambeau/fillin/pkg/fillin/locale"
	"github.com/sambeau/fillin/pkg/fillin/syntax"
	"github.com/sambeau/fillin/pkg/logger"
)

// errNoConfig is returned by resolveConfigPath when no file was requested and
// none was found in the default locations.
var errNoConfig = errors.New("no config file found (tried FILLIN_CONFIG, fillin.yaml, ~/.config/fillin/fillin.yaml)")

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations and falls back to
// Defaults() when none exists.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the resolved path.
// The path is empty when no file was found and the defaults are returned.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if errors.Is(err, errNoConfig) {
		cfg := Defaults()
		if wd, werr := os.Getwd(); werr == nil {
			cfg.BaseDir = wd
		}
		return cfg, "", nil
	}
	if err != nil {
		return nil, "", err
	}

	// Get absolute path and directory for resolving relative paths
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	baseDir := filepath.Dir(absPath)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.BaseDir = baseDir

	// Resolve relative sqlite path
	if cfg.Database.Driver == "sqlite" && cfg.Database.DSN != "" && cfg.Database.DSN != ":memory:" &&
		!strings.HasPrefix(cfg.Database.DSN, "file:") && !filepath.IsAbs(cfg.Database.DSN) {
		cfg.Database.DSN = filepath.Join(baseDir, cfg.Database.DSN)
	}

	if err := Validate(cfg); err != nil {
		return nil, "", err
	}

	return cfg, absPath, nil
}

// Validate checks the configuration and reports every problem at once.
func Validate(cfg *Config) error {
	var errs []string

	if _, err := cfg.EngineConfig(); err != nil {
		errs = append(errs, err.Error())
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port: %d (must be 1-65535)", cfg.Server.Port))
	}
	if _, err := ParseSize(cfg.Server.MaxBody); err != nil {
		errs = append(errs, fmt.Sprintf("server.max_body: %v", err))
	}
	if !validLevel(cfg.Server.Compression.Level, true) {
		errs = append(errs, fmt.Sprintf("invalid compression level: %s (must be fastest, default, best, or none)", cfg.Server.Compression.Level))
	}
	if !validLevel(cfg.Output.Level, false) {
		errs = append(errs, fmt.Sprintf("invalid output level: %s (must be fastest, default, or best)", cfg.Output.Level))
	}

	if _, err := logger.ParseLevel(cfg.Logging.Level); err != nil || cfg.Logging.Level == "" {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Logging.Level))
	}
	if cfg.Logging.Format == "" || !logger.ValidFormat(cfg.Logging.Format) {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be simple, text, or json)", cfg.Logging.Format))
	}

	switch cfg.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("invalid database driver: %s (must be sqlite, postgres, or mysql)", cfg.Database.Driver))
	}

	switch cfg.Notify.Provider {
	case "mailgun", "resend", "dryrun":
	default:
		errs = append(errs, fmt.Sprintf("invalid notify provider: %s (must be mailgun, resend, or dryrun)", cfg.Notify.Provider))
	}
	if r := cfg.Notify.Mailgun.Region; r != "" && r != "us" && r != "eu" {
		errs = append(errs, fmt.Sprintf("invalid mailgun region: %s (must be us or eu)", r))
	}

	if cfg.Watch.Debounce < 0 {
		errs = append(errs, "watch.debounce cannot be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validLevel(level string, allowNone bool) bool {
	switch level {
	case "fastest", "default", "best":
		return true
	case "none":
		return allowNone
	}
	return false
}

// Warnings returns non-fatal configuration issues that should be reported to the user.
func Warnings(cfg *Config) []string {
	var warnings []string

	switch cfg.Notify.Provider {
	case "mailgun":
		if cfg.Notify.Mailgun.APIKey == "" || cfg.Notify.Mailgun.Domain == "" {
			warnings = append(warnings, "notify: Mailgun selected but api_key or domain not configured")
		}
		if strings.Contains(cfg.Notify.Mailgun.Domain, "sandbox") {
			warnings = append(warnings, "notify: using Mailgun sandbox domain - emails will only be delivered to authorized recipients")
		}
	case "resend":
		if cfg.Notify.Resend.APIKey == "" {
			warnings = append(warnings, "notify: Resend selected but api_key not configured")
		}
		if strings.Contains(cfg.Notify.From, "onboarding@resend.dev") {
			warnings = append(warnings, "notify: using Resend test sender (onboarding@resend.dev)")
		}
	}
	if cfg.Notify.Provider != "dryrun" && cfg.Notify.From == "" {
		warnings = append(warnings, "notify: no from address configured")
	}

	if cfg.Database.DSN == "" {
		warnings = append(warnings, "database: no dsn configured - the query command needs --dsn")
	}

	return warnings
}

// EngineConfig converts the delimiter and culture settings into an engine
// configuration. Delimiters must be single, pairwise distinct characters.
func (c *Config) EngineConfig() (syntax.EngineConfig, error) {
	r, err := c.Delimiters.runes()
	if err != nil {
		return syntax.EngineConfig{}, err
	}

	var culture *locale.Culture
	if c.Culture != "" {
		culture, err = locale.Parse(c.Culture)
		if err != nil {
			return syntax.EngineConfig{}, fmt.Errorf("culture: %w", err)
		}
	}

	return syntax.NewEngineConfig(r[0], r[1], r[2], r[3], r[4], r[5], r[6], r[7], culture)
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > FILLIN_CONFIG env > ./fillin.yaml > ~/.config/fillin/fillin.yaml
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv("FILLIN_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("FILLIN_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	if _, err := os.Stat("fillin.yaml"); err == nil {
		return "fillin.yaml", nil
	}

	home, err := os.UserHomeDir()
	if err == nil {
		xdgPath := filepath.Join(home, ".config", "fillin", "fillin.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", errNoConfig
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		value := getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}

// ParseSize parses a size string like "10MB", "1GB", "500KB" to bytes.
// Supports: B, KB, MB, GB (case insensitive).
// Returns 0 for empty string.
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}

	s = strings.TrimSpace(strings.ToUpper(s))

	// Longest suffix first so "B" does not match "MB"
	suffixes := []struct {
		suffix string
		mult   int64
	}{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	}

	for _, sf := range suffixes {
		if strings.HasSuffix(s, sf.suffix) {
			numStr := strings.TrimSpace(strings.TrimSuffix(s, sf.suffix))
			var num int64
			if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
				return 0, fmt.Errorf("invalid size number: %s", numStr)
			}
			return num * sf.mult, nil
		}
	}

	var num int64
	if _, err := fmt.Sscanf(s, "%d", &num); err != nil {
		return 0, fmt.Errorf("invalid size format: %s (use B, KB, MB, or GB suffix)", s)
	}
	return num, nil
}

// ApplyProfile applies a named profile to the configuration.
// Only non-zero values in the profile override the base config.
func ApplyProfile(cfg *Config, name string) error {
	if len(cfg.Profiles) == 0 {
		return fmt.Errorf("no profiles defined in config")
	}

	p, ok := cfg.Profiles[name]
	if !ok {
		names := make([]string, 0, len(cfg.Profiles))
		for n := range cfg.Profiles {
			names = append(names, n)
		}
		sort.Strings(names)
		return fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(names, ", "))
	}

	if p.Culture != "" {
		cfg.Culture = p.Culture
	}
	if p.Logging.Level != "" {
		cfg.Logging.Level = p.Logging.Level
	}
	if p.Logging.Format != "" {
		cfg.Logging.Format = p.Logging.Format
	}
	if p.Logging.Output != "" {
		cfg.Logging.Output = p.Logging.Output
	}
	if p.Database.Driver != "" {
		cfg.Database.Driver = p.Database.Driver
	}
	if p.Database.DSN != "" {
		dsn := p.Database.DSN
		if cfg.Database.Driver == "sqlite" && cfg.BaseDir != "" && dsn != ":memory:" &&
			!strings.HasPrefix(dsn, "file:") && !filepath.IsAbs(dsn) {
			dsn = filepath.Join(cfg.BaseDir, dsn)
		}
		cfg.Database.DSN = dsn
	}
	if p.Notify.Provider != "" {
		cfg.Notify.Provider = p.Notify.Provider
	}
	if p.Notify.From != "" {
		cfg.Notify.From = p.Notify.From
	}

	return Validate(cfg)
}
