package notify

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"flagpost/internal/report"
)

// SMTPConfig holds SMTP configuration for sending email.
type SMTPConfig struct {
	Host       string
	Port       int
	User       string
	Pass       string
	From       string
	AdminEmail string

	// PublicURL is the site base URL used to build moderation links.
	PublicURL string
}

// EmailNotifier emails moderators about new reports via SMTP.
type EmailNotifier struct {
	cfg SMTPConfig
}

var _ report.Notifier = (*EmailNotifier)(nil)

// NewEmailNotifier creates a new EmailNotifier.
func NewEmailNotifier(cfg SMTPConfig) *EmailNotifier {
	return &EmailNotifier{cfg: cfg}
}

// Enabled returns true if SMTP is configured.
func (e *EmailNotifier) Enabled() bool {
	return e.cfg.Host != "" && e.cfg.AdminEmail != ""
}

// NewReport sends the new-report email to the configured admin address.
func (e *EmailNotifier) NewReport(ctx context.Context, n report.Notification) error {
	if !e.Enabled() {
		return nil
	}

	title := n.ContentTitle
	if title == "" {
		title = n.ContentID
	}

	subject := fmt.Sprintf("New content report: %s", title)
	body := fmt.Sprintf(
		"A new report has been submitted.\r\n\r\n"+
			"Content: %s\r\n"+
			"Report ID: %s\r\n"+
			"Reason: %s\r\n\r\n"+
			"Review it here: %s/admin/reports\r\n",
		title, n.ReportID, n.Reason, strings.TrimRight(e.cfg.PublicURL, "/"))

	return e.send(e.cfg.AdminEmail, subject, body)
}

// send delivers one message over SMTP.
func (e *EmailNotifier) send(to, subject, body string) error {
	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))

	// Extract domain from From address for Message-ID
	domain := e.cfg.Host
	if parts := strings.SplitN(e.cfg.From, "@", 2); len(parts) == 2 {
		domain = parts[1]
	}

	// Generate a random Message-ID
	randBytes := make([]byte, 16)
	rand.Read(randBytes)
	messageID := fmt.Sprintf("<%x.%d@%s>", randBytes, time.Now().UnixNano(), domain)

	msg := fmt.Sprintf("From: Flagpost <%s>\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\nMessage-ID: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		e.cfg.From, to, subject, time.Now().UTC().Format(time.RFC1123Z), messageID, body)

	var auth smtp.Auth
	if e.cfg.User != "" {
		auth = smtp.PlainAuth("", e.cfg.User, e.cfg.Pass, e.cfg.Host)
	}

	if e.cfg.Port == 465 {
		return e.sendImplicitTLS(addr, auth, msg, to)
	}
	return e.sendSTARTTLS(addr, auth, msg, to)
}

// sendImplicitTLS connects over TLS directly (port 465).
func (e *EmailNotifier) sendImplicitTLS(addr string, auth smtp.Auth, msg, to string) error {
	tlsConfig := &tls.Config{ServerName: e.cfg.Host}
	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("tls dial: %w", err)
	}

	client, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp new client: %w", err)
	}
	defer client.Close()

	return e.sendWithClient(client, auth, msg, to)
}

// sendSTARTTLS connects in plaintext then upgrades via STARTTLS.
func (e *EmailNotifier) sendSTARTTLS(addr string, auth smtp.Auth, msg, to string) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{ServerName: e.cfg.Host}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	return e.sendWithClient(client, auth, msg, to)
}

// sendWithClient performs the SMTP conversation on an established client.
func (e *EmailNotifier) sendWithClient(client *smtp.Client, auth smtp.Auth, msg, to string) error {
	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(e.cfg.From); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return client.Quit()
}
