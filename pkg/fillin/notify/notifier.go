package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sambeau/fillin/pkg/fillin"
	"github.com/sambeau/fillin/pkg/fillin/output"
	"github.com/sambeau/fillin/pkg/fillin/props"
)

// Template holds the patterns rendered for every record. To may render to
// several addresses separated by commas.
type Template struct {
	From     string
	To       string
	Subject  string
	Body     string
	Markdown bool // Also send the rendered body as HTML
}

// Notifier renders a Template per record and hands the message to a
// Provider.
type Notifier struct {
	provider Provider
	engine   *fillin.Engine
	tmpl     Template
	logger   *slog.Logger
}

// New creates a Notifier. A nil engine uses fillin.New() and a nil logger
// discards.
func New(provider Provider, engine *fillin.Engine, tmpl Template, logger *slog.Logger) *Notifier {
	if engine == nil {
		engine = fillin.New()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Notifier{provider: provider, engine: engine, tmpl: tmpl, logger: logger}
}

// Compose renders the message for one record without sending it.
func (n *Notifier) Compose(rec *props.Context) (*Message, error) {
	render := func(field, pattern string) (string, error) {
		out, err := n.engine.RenderContext(pattern, rec)
		if err != nil {
			return "", fmt.Errorf("%s: %w", field, err)
		}
		return out, nil
	}

	msg := &Message{}
	var err error
	if n.tmpl.From != "" {
		if msg.From, err = render("from", n.tmpl.From); err != nil {
			return nil, err
		}
	}
	to, err := render("to", n.tmpl.To)
	if err != nil {
		return nil, err
	}
	for _, addr := range strings.Split(to, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			msg.To = append(msg.To, addr)
		}
	}
	if msg.Subject, err = render("subject", n.tmpl.Subject); err != nil {
		return nil, err
	}
	if msg.Text, err = render("body", n.tmpl.Body); err != nil {
		return nil, err
	}
	if n.tmpl.Markdown {
		if msg.HTML, err = output.Markdown(msg.Text); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// Result is the outcome for one record.
type Result struct {
	Index     int    `json:"index"`
	To        string `json:"to,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Err       error  `json:"-"`
}

// Send composes and sends one message per record. A failed record does not
// stop the others; the returned error joins every failure.
func (n *Notifier) Send(ctx context.Context, records []*props.Context) ([]Result, error) {
	results := make([]Result, 0, len(records))
	var errs []error

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		res := Result{Index: i}
		msg, err := n.Compose(rec)
		if err == nil {
			res.To = strings.Join(msg.To, ", ")
			res.MessageID, err = n.provider.Send(ctx, msg)
		}
		if err != nil {
			res.Err = fmt.Errorf("record %d: %w", i, err)
			errs = append(errs, res.Err)
			n.logger.Warn("notification failed", "record", i, "provider", n.provider.Name(), "error", err)
		} else {
			n.logger.Info("notification sent", "record", i, "provider", n.provider.Name(), "to", res.To, "id", res.MessageID)
		}
		results = append(results, res)
	}

	return results, errors.Join(errs...)
}
