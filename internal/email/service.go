// Package email sends quota notices over SMTP.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service provides email sending
type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   sendFunc
}

// NewService creates a new email service
func NewService(config Config) *Service {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendHTMLEmail sends a multipart email with a plain-text fallback.
func (s *Service) SendHTMLEmail(to []string, subject, textBody, htmlBody string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	boundary := "boundary-colabwize"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", textBody)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return s.send(s.server, s.auth, s.config.From, to, msg.Bytes())
}

// QuotaNotice describes a resource that reached its warning threshold or ran
// out.
type QuotaNotice struct {
	UserName  string
	Resource  string
	Used      int
	Limit     int
	Percent   int
	Exhausted bool
	ResetDate string
}

func (n QuotaNotice) subject() string {
	if n.Exhausted {
		return fmt.Sprintf("Your ColabWize %s quota is used up", n.Resource)
	}
	return fmt.Sprintf("You have used %d%% of your ColabWize %s quota", n.Percent, n.Resource)
}

func (n QuotaNotice) text() string {
	return fmt.Sprintf("%d/%d %s used. Your quota resets on %s.", n.Used, n.Limit, n.Resource, n.ResetDate)
}

// SendQuotaNotice emails a quota warning or exhaustion notice to one user.
func (s *Service) SendQuotaNotice(to string, notice QuotaNotice) error {
	html, err := renderTemplate(quotaNoticeTemplate, notice)
	if err != nil {
		return fmt.Errorf("render quota notice template: %w", err)
	}
	return s.SendHTMLEmail([]string{to}, notice.subject(), notice.text(), html)
}

func renderTemplate(tmpl string, data any) (string, error) {
	t := template.Must(template.New("email").Parse(tmpl))
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const quotaNoticeTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>ColabWize quota</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #0066cc; padding-bottom: 10px; margin-bottom: 20px; }
        .meter { background: #eee; border-radius: 4px; height: 12px; overflow: hidden; }
        .meter span { display: block; height: 12px; background: {{if .Exhausted}}#c0392b{{else}}#e67e22{{end}}; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>ColabWize</h1>
    </div>

    <p>Hi {{if .UserName}}{{.UserName}}{{else}}there{{end}},</p>

    {{if .Exhausted}}
    <p>You have used all {{.Limit}} of your {{.Resource}} for this billing period.</p>
    {{else}}
    <p>You have used {{.Used}} of your {{.Limit}} {{.Resource}} ({{.Percent}}%).</p>
    {{end}}

    <div class="meter"><span style="width: {{.Percent}}%"></span></div>

    <p>Your quota resets on {{.ResetDate}}. Upgrade your plan to keep auditing citations without interruption.</p>

    <div class="footer">
        <p>You are receiving this because you have a ColabWize account.</p>
    </div>
</body>
</html>`
