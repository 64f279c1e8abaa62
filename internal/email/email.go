// Package email delivers outbound mail. Delivery is always best effort:
// callers log failures and never roll back domain writes over them.
package email

import "context"

type Sender interface {
	// SendWelcomeEmail greets a freshly converted client with their monthly
	// fee and due day.
	SendWelcomeEmail(ctx context.Context, toEmail, clientName, feeFormatted string, dueDay int) error
}

// NoopSender is used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendWelcomeEmail(ctx context.Context, toEmail, clientName, feeFormatted string, dueDay int) error {
	return nil
}
