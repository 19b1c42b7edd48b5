package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

// MailgunProvider sends emails via Mailgun API
type MailgunProvider struct {
	client *mailgun.MailgunImpl
	from   string
}

// NewMailgunProvider creates a new Mailgun email provider
func NewMailgunProvider(apiKey, domain, from, region string) (*MailgunProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("mailgun API key is required: %w", ErrProviderNotConfigured)
	}
	if domain == "" {
		return nil, fmt.Errorf("mailgun domain is required: %w", ErrProviderNotConfigured)
	}
	if from == "" {
		return nil, fmt.Errorf("from address is required: %w", ErrProviderNotConfigured)
	}

	mg := mailgun.NewMailgun(domain, apiKey)
	if region == "eu" {
		mg.SetAPIBase("https://api.eu.mailgun.net/v3")
	}

	return &MailgunProvider{
		client: mg,
		from:   from,
	}, nil
}

// Send sends an email via Mailgun. An empty From uses the provider's
// address.
func (p *MailgunProvider) Send(ctx context.Context, msg *Message) (string, error) {
	if err := msg.validate(); err != nil {
		return "", err
	}

	from := msg.From
	if from == "" {
		from = p.from
	}
	m := p.client.NewMessage(from, msg.Subject, msg.Text, msg.To...)
	if msg.HTML != "" {
		m.SetHtml(msg.HTML)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, id, err := p.client.Send(ctx, m)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return id, nil
}

// Name returns the provider name
func (p *MailgunProvider) Name() string {
	return "mailgun"
}
