package mailer

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Sender delivers one rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string, tags ...string) error
}

type Mailgun struct {
	client *mg.MailgunImpl
	Sender string
}

// NewMailgun builds a Mailgun sender. apiBase selects the region endpoint; empty keeps the US default.
func NewMailgun(domain, apiKey, sender, apiBase string) *Mailgun {
	c := mg.NewMailgun(domain, apiKey)
	if apiBase != "" {
		c.SetAPIBase(apiBase)
	}
	return &Mailgun{client: c, Sender: sender}
}

func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string, tags ...string) error {
	msg := m.client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	for _, t := range tags {
		if t == "" {
			continue
		}
		if err := msg.AddTag(t); err != nil {
			return err
		}
	}
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return err
}

var _ Sender = (*Mailgun)(nil)
