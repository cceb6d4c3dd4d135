package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/sahilchouksey/kpi-tracker-api/utils/logger"
)

var ErrSMTPNotConfigured = errors.New("SMTP not configured")

// OTPMailer delivers one-time login codes.
type OTPMailer interface {
	SendOTP(ctx context.Context, to, code string, ttl time.Duration) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailService handles sending emails via SMTP
type EmailService struct {
	cfg     SMTPConfig
	devMode bool
	log     *logger.Logger
}

// NewEmailService creates a new email service instance. In dev mode an
// unconfigured service logs codes instead of failing.
func NewEmailService(cfg SMTPConfig, devMode bool, log *logger.Logger) *EmailService {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &EmailService{cfg: cfg, devMode: devMode, log: log}
}

// IsConfigured checks if SMTP is properly configured
func (e *EmailService) IsConfigured() bool {
	return e.cfg.Host != "" && e.cfg.Username != "" && e.cfg.Password != ""
}

// SendOTP mails a login code.
func (e *EmailService) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	if !e.IsConfigured() {
		if e.devMode {
			e.log.Warn("SMTP not configured, login code not mailed", "email", to, "code", code)
			return nil
		}
		return ErrSMTPNotConfigured
	}

	subject := "Your KPI Tracker login code"
	body := buildOTPEmailBody(code, ttl)

	done := make(chan error, 1)
	go func() { done <- e.sendEmail(to, subject, body) }()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		e.log.Info("login code sent", "email", to)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildOTPEmailBody(code string, ttl time.Duration) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #333;">
    <h2>KPI Tracker sign in</h2>
    <p>Use this code to sign in:</p>
    <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">%s</p>
    <p>The code expires in %d minutes. If you did not request it you can ignore this email.</p>
</body>
</html>`, code, int(ttl.Minutes()))
}

// sendEmail sends an HTML email over STARTTLS
func (e *EmailService) sendEmail(to, subject, htmlBody string) error {
	headers := []string{
		"From: KPI Tracker <" + e.cfg.From + ">",
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	var message strings.Builder
	for _, h := range headers {
		message.WriteString(h + "\r\n")
	}
	message.WriteString("\r\n")
	message.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)

	conn, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	if err := conn.StartTLS(&tls.Config{ServerName: e.cfg.Host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if err := conn.Auth(smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := conn.Mail(e.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := conn.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := conn.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := w.Write([]byte(message.String())); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return conn.Quit()
}
