package panel

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Mailer delivers account emails.
type Mailer interface {
	SendVerification(ctx context.Context, email, link string) error
	SendPasswordReset(ctx context.Context, email, link string) error
}

// LogMailer writes account emails to the log instead of sending them.
type LogMailer struct{}

// SendVerification implements Mailer.
func (LogMailer) SendVerification(_ context.Context, email, link string) error {
	log.WithFields(log.Fields{"to": email, "link": link}).Info("verification email")
	return nil
}

// SendPasswordReset implements Mailer.
func (LogMailer) SendPasswordReset(_ context.Context, email, link string) error {
	log.WithFields(log.Fields{"to": email, "link": link}).Info("password reset email")
	return nil
}
