package email

import (
	"net/smtp"
	"strings"
	"testing"
)

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name:     "empty config",
			config:   Config{},
			expected: false,
		},
		{
			name: "missing host",
			config: Config{
				Port: "587",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing port",
			config: Config{
				Host: "smtp.example.com",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing from",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
			},
			expected: false,
		},
		{
			name: "fully configured",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
				From: "test@example.com",
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config)
			if svc.IsConfigured() != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", svc.IsConfigured(), tt.expected)
			}
		})
	}
}

func TestRenderQuotaNoticeTemplate(t *testing.T) {
	html, err := renderTemplate(quotaNoticeTemplate, QuotaNotice{
		UserName:  "Test User",
		Resource:  "citationChecks",
		Used:      40,
		Limit:     50,
		Percent:   80,
		ResetDate: "Nov 1, 2026",
	})
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	if !strings.Contains(html, "Test User") {
		t.Error("template should contain user name")
	}
	if !strings.Contains(html, "40 of your 50 citationChecks (80%)") {
		t.Error("template should contain usage")
	}
	if !strings.Contains(html, "Nov 1, 2026") {
		t.Error("template should contain reset date")
	}
}

func TestSendQuotaNotice(t *testing.T) {
	svc := NewService(Config{Host: "smtp.example.com", Port: "587", From: "quota@colabwize.test", FromName: "ColabWize"})
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	svc.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	err := svc.SendQuotaNotice("avery@example.com", QuotaNotice{Resource: "citationChecks", Used: 50, Limit: 50, Percent: 100, Exhausted: true, ResetDate: "Nov 1, 2026"})
	if err != nil {
		t.Fatalf("SendQuotaNotice() error = %v", err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if len(gotTo) != 1 || gotTo[0] != "avery@example.com" {
		t.Errorf("to = %v", gotTo)
	}
	if !strings.Contains(gotMsg, "Subject: Your ColabWize citationChecks quota is used up") {
		t.Errorf("missing subject in %q", gotMsg)
	}
	if !strings.Contains(gotMsg, "From: ColabWize <quota@colabwize.test>") {
		t.Errorf("missing from header in %q", gotMsg)
	}
	if !strings.Contains(gotMsg, "Hi there,") {
		t.Error("anonymous greeting missing")
	}
}

func TestSendRequiresConfiguration(t *testing.T) {
	if err := NewService(Config{}).SendQuotaNotice("a@example.com", QuotaNotice{}); err == nil {
		t.Fatal("expected error for unconfigured service")
	}
}
