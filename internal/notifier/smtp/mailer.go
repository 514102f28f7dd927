// Package smtp delivers intelligence reports by email.
package smtp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const subject = "Intelligence Alert: Competitor Changes Detected"

// Config holds SMTP submission settings. STARTTLS on the submission port is
// mandatory; there is no cleartext fallback.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer implements intel.Notifier over SMTP.
type Mailer struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// New builds a Mailer.
func New(cfg Config, logger *zap.Logger) *Mailer {
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{cfg: cfg, logger: logger, now: time.Now}
}

// Send formats and delivers a plain-text report to one recipient.
func (m *Mailer) Send(ctx context.Context, recipient, report string, urls []string) error {
	if m.cfg.Username == "" || m.cfg.Password == "" {
		return fmt.Errorf("smtp credentials not configured")
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("set sender %q: %w", m.cfg.From, err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("set recipient %q: %w", recipient, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, m.buildBody(report, urls))

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("build smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send report to %s: %w", recipient, err)
	}
	m.logger.Info("report emailed", zap.String("recipient", recipient))
	return nil
}

// buildBody renders the plain-text report email.
func (m *Mailer) buildBody(report string, urls []string) string {
	var b strings.Builder
	b.WriteString("Intelligence Report\n")
	b.WriteString("Generated: ")
	b.WriteString(m.now().UTC().Format("2006-01-02 15:04:05 UTC"))
	b.WriteString("\n\nMonitored URLs:\n")
	for _, u := range urls {
		if u == "" {
			continue
		}
		b.WriteString("  - ")
		b.WriteString(u)
		b.WriteString("\n")
	}
	b.WriteString("\n=== ANALYSIS ===\n\n")
	b.WriteString(report)
	b.WriteString("\n\n===================================\n\n")
	b.WriteString("This is an automated intelligence report from your competitor monitor.\n")
	return b.String()
}
