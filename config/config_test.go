package config

import (
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	ferrors "github.com/sambeau/fillin/pkg/fillin/errors"
)

func TestEngineConfig_Defaults(t *testing.T) {
	ec, err := Defaults().EngineConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ec.StartTerm() != '[' || ec.EndTerm() != ']' || ec.FormatDelimiter() != '|' || ec.DefaultDelimiter() != ':' {
		t.Errorf("unexpected delimiters %v", ec.Delimiters())
	}
	if ec.PositiveOffset() != '+' || ec.NegativeOffset() != '-' || ec.OpenOffset() != '(' || ec.CloseOffset() != ')' {
		t.Errorf("unexpected offset delimiters %v", ec.Delimiters())
	}
}

func TestEngineConfig_CustomDelimiters(t *testing.T) {
	yamlData := `
culture: de-DE
delimiters:
  start_term: "«"
  end_term: "»"
  format: "#"
`
	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(yamlData), cfg); err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}

	ec, err := cfg.EngineConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ec.StartTerm() != '«' || ec.EndTerm() != '»' || ec.FormatDelimiter() != '#' {
		t.Errorf("unexpected delimiters %v", ec.Delimiters())
	}
	// Unset delimiters keep their defaults
	if ec.DefaultDelimiter() != ':' {
		t.Errorf("expected default delimiter ':', got %q", ec.DefaultDelimiter())
	}
	if ec.Culture().Name() != "de-DE" {
		t.Errorf("expected culture de-DE, got %q", ec.Culture().Name())
	}
}

func TestEngineConfig_Errors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
		duplicate bool
	}{
		{
			name:      "empty delimiter",
			mutate:    func(c *Config) { c.Delimiters.Format = "" },
			errSubstr: "delimiters.format must be a single character",
		},
		{
			name:      "two character delimiter",
			mutate:    func(c *Config) { c.Delimiters.StartTerm = "{{" },
			errSubstr: "delimiters.start_term must be a single character",
		},
		{
			name:      "duplicate delimiter",
			mutate:    func(c *Config) { c.Delimiters.EndTerm = "|" },
			duplicate: true,
		},
		{
			name:      "unknown culture",
			mutate:    func(c *Config) { c.Culture = "not a tag" },
			errSubstr: "culture:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			_, err := cfg.EngineConfig()
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.duplicate && !errors.Is(err, ferrors.ErrDuplicateDelimiter) {
				t.Errorf("expected ErrDuplicateDelimiter, got %v", err)
			}
			if tt.errSubstr != "" && !strings.Contains(err.Error(), tt.errSubstr) {
				t.Errorf("expected error containing %q, got %v", tt.errSubstr, err)
			}
		})
	}
}

func TestProfileParse(t *testing.T) {
	yamlData := `
profiles:
  staging:
    culture: fr-FR
    database:
      driver: postgres
      dsn: postgres://localhost/fillin
    notify:
      provider: resend
`
	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(yamlData), cfg); err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}

	p, ok := cfg.Profiles["staging"]
	if !ok {
		t.Fatal("expected staging profile")
	}
	if p.Culture != "fr-FR" || p.Database.Driver != "postgres" || p.Notify.Provider != "resend" {
		t.Errorf("unexpected profile %+v", p)
	}
}
