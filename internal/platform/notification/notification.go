// Package notification dispatches admission/discharge emails to physicians.
// Delivery is best-effort: a failed send is logged and never propagated to
// the mutation that triggered it, and the messages deliberately carry no
// patient information.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventKind identifies which lifecycle transition a notification reports.
type EventKind string

const (
	KindAdmission EventKind = "ADMISSION"
	KindDischarge EventKind = "DISCHARGE"
)

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

// ---------------------------------------------------------------------------
// Resend sender
// ---------------------------------------------------------------------------

const resendEndpoint = "https://api.resend.com/emails"

// ResendSender delivers email through the Resend HTTP API.
type ResendSender struct {
	apiKey   string
	from     string
	endpoint string
	client   *http.Client
}

// NewResendSender creates a sender for the Resend API. from is the
// display-name-and-address envelope sender.
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		apiKey:   apiKey,
		from:     from,
		endpoint: resendEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (s *ResendSender) SendEmail(ctx context.Context, to, subject, html string) error {
	if s.apiKey == "" {
		return errors.New("resend api key is not configured")
	}

	body, err := json.Marshal(resendRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("resend returned status %d", resp.StatusCode)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Log sender
// ---------------------------------------------------------------------------

// LogSender writes the email to the log instead of delivering it. Used in
// development when no Resend API key is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendEmail(_ context.Context, to, subject, _ string) error {
	s.logger.Info().Str("to", to).Str("subject", subject).Msg("email delivery skipped (no api key)")
	return nil
}

// ---------------------------------------------------------------------------
// Mock sender (test double)
// ---------------------------------------------------------------------------

// EmailCall records a single call to SendEmail.
type EmailCall struct {
	To      string
	Subject string
	HTML    string
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
	FailError  string
}

// SendEmail records the call and optionally returns an error.
func (m *MockEmailSender) SendEmail(_ context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{To: to, Subject: subject, HTML: html})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded email calls.
func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// ---------------------------------------------------------------------------
// Notifier
// ---------------------------------------------------------------------------

// Notifier renders and dispatches the portal's event notifications.
type Notifier struct {
	sender    EmailSender
	signInURL string
	logger    zerolog.Logger
}

func NewNotifier(sender EmailSender, signInURL string, logger zerolog.Logger) *Notifier {
	return &Notifier{sender: sender, signInURL: signInURL, logger: logger}
}

// Dispatch sends an event notification to the doctor's email. Failures are
// logged and swallowed; the triggering mutation must never roll back or
// fail because delivery did.
func (n *Notifier) Dispatch(ctx context.Context, recipient string, kind EventKind) {
	if recipient == "" {
		return
	}

	subject, html := n.render(kind)
	if err := n.sender.SendEmail(ctx, recipient, subject, html); err != nil {
		n.logger.Error().
			Err(err).
			Str("recipient", recipient).
			Str("kind", string(kind)).
			Msg("notification delivery failed")
		return
	}

	n.logger.Info().
		Str("recipient", recipient).
		Str("kind", string(kind)).
		Msg("notification sent")
}

func (n *Notifier) render(kind EventKind) (subject, html string) {
	var heading, body string
	if kind == KindAdmission {
		subject = "New patient admission in TOCdoc"
		heading = "New Patient Admission"
		body = "You have a new patient admission assigned to you. Log in to view details and manage the patient."
	} else {
		subject = "Patient discharge notification from TOCdoc"
		heading = "Patient Discharge"
		body = "You have a patient discharge. Log in to view your discharge history."
	}

	html = fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #0369a1;">%s</h2>
  <p>%s</p>
  <div style="margin: 20px 0;">
    <a href="%s" style="background-color: #0369a1; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">View Dashboard</a>
  </div>
  <p style="color: #666; font-size: 12px;">This is an automated notification. No patient information is included for privacy.</p>
</div>`, heading, body, n.signInURL)

	return subject, html
}
