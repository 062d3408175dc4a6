// Package email delivers notifications over SMTP.
package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	texttemplate "text/template"

	"gopkg.in/gomail.v2"

	"parish/internal/notification"
	"parish/internal/platform/config"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	textTemplates = texttemplate.Must(texttemplate.New("messages").Option("missingkey=zero").ParseFS(templateFS, "templates/*.txt.tmpl"))
	htmlTemplates = htmltemplate.Must(htmltemplate.New("messages").Option("missingkey=zero").ParseFS(templateFS, "templates/*.html.tmpl"))
)

// ErrNoRecipient is returned for notifications without an email address.
var ErrNoRecipient = errors.New("notification has no email address")

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// view is what the templates see. AppURL is linked from the footer when set.
type view struct {
	notification.Notification
	AppURL string
}

// Render builds the email for n from the embedded templates.
func Render(n notification.Notification, appURL string) (Message, error) {
	kind := string(n.Kind)
	v := view{Notification: n, AppURL: appURL}
	var text bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, kind, v); err != nil {
		return Message{}, fmt.Errorf("render text %s: %w", kind, err)
	}
	var html bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, kind, v); err != nil {
		return Message{}, fmt.Errorf("render html %s: %w", kind, err)
	}
	return Message{To: n.Email, Subject: n.Subject, Text: text.String(), HTML: html.String()}, nil
}

// dialer is the part of gomail.Dialer the sender needs.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender is the SMTP notification channel.
type Sender struct {
	dialer dialer
	from   string
	appURL string
}

// NewSender returns an SMTP sender, or a log-only sender when no SMTP host
// is configured.
func NewSender(cfg config.SMTP, logger *slog.Logger) notification.Channel {
	if cfg.Host == "" {
		return &LogSender{logger: logger, appURL: cfg.AppURL}
	}
	return &Sender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		appURL: cfg.AppURL,
	}
}

func (s *Sender) Name() string { return "email" }

func (s *Sender) Deliver(ctx context.Context, n notification.Notification) error {
	if n.Email == "" {
		return ErrNoRecipient
	}
	msg, err := Render(n, s.appURL)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetAddressHeader("To", msg.To, n.Name)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send %s to %s: %w", n.Kind, n.RecipientID, err)
	}
	return nil
}

// LogSender renders the email and logs it instead of sending.
type LogSender struct {
	logger *slog.Logger
	appURL string
}

func (s *LogSender) Name() string { return "email" }

func (s *LogSender) Deliver(ctx context.Context, n notification.Notification) error {
	msg, err := Render(n, s.appURL)
	if err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "email not sent, SMTP is not configured",
			"to", msg.To,
			"subject", msg.Subject,
			"kind", string(n.Kind),
		)
	}
	return nil
}
