// Package mailer delivers magic sign-in links.
//
// Production deployments plug a real provider in behind the Mailer
// interface; the Console implementation just logs the link, which is
// exactly what you want during development — click the link straight
// from the server output.
package mailer

import (
	"context"
	"log/slog"
)

// Mailer sends a sign-in link to an email address.
type Mailer interface {
	SendLoginLink(ctx context.Context, email, url string) error
}

// Console logs the login link instead of emailing it.
type Console struct {
	logger *slog.Logger
}

// NewConsole returns a Mailer that writes links to the log.
func NewConsole(logger *slog.Logger) *Console {
	return &Console{logger: logger}
}

// SendLoginLink logs the link. Never fails.
func (c *Console) SendLoginLink(_ context.Context, email, url string) error {
	c.logger.Info("magic sign-in link (console mailer)",
		slog.String("email", email),
		slog.String("url", url),
	)
	return nil
}
