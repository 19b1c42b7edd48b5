// Package notify renders message templates per record and sends them
// through a mail provider.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sambeau/fillin/config"
)

// Common errors
var (
	ErrProviderNotConfigured = errors.New("email provider not configured")
	ErrInvalidProvider       = errors.New("invalid email provider")
	ErrSendFailed            = errors.New("failed to send email")
)

// Provider sends transactional emails
type Provider interface {
	Send(ctx context.Context, msg *Message) (messageID string, err error)
	Name() string
}

// Message is a provider-agnostic email message
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`           // Plain text version
	HTML    string   `json:"html,omitempty"` // HTML version (optional)
}

// validate checks the fields every provider needs.
func (m *Message) validate() error {
	if m == nil {
		return fmt.Errorf("message cannot be nil")
	}
	if len(m.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	if m.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	if m.Text == "" && m.HTML == "" {
		return fmt.Errorf("text or HTML body is required")
	}
	return nil
}

// NewProvider builds the provider named in cfg. The dry-run provider writes
// to w.
func NewProvider(cfg config.NotifyConfig, w io.Writer) (Provider, error) {
	var (
		provider Provider
		err      error
	)

	switch cfg.Provider {
	case "mailgun":
		provider, err = NewMailgunProvider(cfg.Mailgun.APIKey, cfg.Mailgun.Domain, cfg.From, cfg.Mailgun.Region)
	case "resend":
		provider, err = NewResendProvider(cfg.Resend.APIKey, cfg.From)
	case "dryrun", "":
		provider = NewDryRunProvider(w)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidProvider, cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("initializing email provider: %w", err)
	}
	return provider, nil
}
