package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// DryRunProvider prints messages instead of sending them.
type DryRunProvider struct {
	mu sync.Mutex
	w  io.Writer
	n  int
}

// NewDryRunProvider creates a provider that writes each message to w.
func NewDryRunProvider(w io.Writer) *DryRunProvider {
	return &DryRunProvider{w: w}
}

// Send writes msg in a mail-like layout and returns a sequential id.
func (p *DryRunProvider) Send(_ context.Context, msg *Message) (string, error) {
	if err := msg.validate(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	id := fmt.Sprintf("dryrun-%d", p.n)

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n", id)
	if msg.From != "" {
		fmt.Fprintf(&b, "From: %s\n", msg.From)
	}
	fmt.Fprintf(&b, "To: %s\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\n\n", msg.Subject)
	b.WriteString(msg.Text)
	if !strings.HasSuffix(msg.Text, "\n") {
		b.WriteString("\n")
	}
	if msg.HTML != "" {
		b.WriteString("\n[html]\n")
		b.WriteString(msg.HTML)
	}

	if _, err := io.WriteString(p.w, b.String()); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return id, nil
}

// Name returns the provider name
func (p *DryRunProvider) Name() string {
	return "dryrun"
}
