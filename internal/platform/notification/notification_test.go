package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDispatchAdmission(t *testing.T) {
	sender := &MockEmailSender{}
	n := NewNotifier(sender, "http://localhost:3000/sign-in", zerolog.Nop())

	n.Dispatch(context.Background(), "dr.house@hospital.org", KindAdmission)

	calls := sender.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 email, got %d", len(calls))
	}
	if calls[0].To != "dr.house@hospital.org" {
		t.Errorf("unexpected recipient: %s", calls[0].To)
	}
	if !strings.Contains(calls[0].Subject, "admission") {
		t.Errorf("unexpected subject: %s", calls[0].Subject)
	}
	if !strings.Contains(calls[0].HTML, "http://localhost:3000/sign-in") {
		t.Error("expected sign-in link in body")
	}
}

func TestDispatchDischarge(t *testing.T) {
	sender := &MockEmailSender{}
	n := NewNotifier(sender, "http://localhost:3000/sign-in", zerolog.Nop())

	n.Dispatch(context.Background(), "dr.house@hospital.org", KindDischarge)

	calls := sender.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 email, got %d", len(calls))
	}
	if !strings.Contains(calls[0].Subject, "discharge") {
		t.Errorf("unexpected subject: %s", calls[0].Subject)
	}
}

func TestDispatchSwallowsFailures(t *testing.T) {
	sender := &MockEmailSender{ShouldFail: true, FailError: "smtp unreachable"}
	n := NewNotifier(sender, "http://localhost:3000/sign-in", zerolog.Nop())

	// Must not panic or propagate anything.
	n.Dispatch(context.Background(), "dr.house@hospital.org", KindAdmission)

	if len(sender.Calls()) != 1 {
		t.Fatal("expected the send to have been attempted")
	}
}

func TestDispatchSkipsEmptyRecipient(t *testing.T) {
	sender := &MockEmailSender{}
	n := NewNotifier(sender, "http://localhost:3000/sign-in", zerolog.Nop())

	n.Dispatch(context.Background(), "", KindAdmission)

	if len(sender.Calls()) != 0 {
		t.Errorf("expected no send for empty recipient, got %d", len(sender.Calls()))
	}
}

func TestResendSenderPostsPayload(t *testing.T) {
	var got resendRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewResendSender("rk_test", "TOCdoc <noreply@tocdoc.com>")
	s.endpoint = srv.URL

	err := s.SendEmail(context.Background(), "dr@h.org", "subject", "<p>hi</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer rk_test" {
		t.Errorf("unexpected auth header: %s", gotAuth)
	}
	if len(got.To) != 1 || got.To[0] != "dr@h.org" {
		t.Errorf("unexpected recipients: %v", got.To)
	}
	if got.From != "TOCdoc <noreply@tocdoc.com>" {
		t.Errorf("unexpected from: %s", got.From)
	}
}

func TestResendSenderRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := NewResendSender("rk_test", "noreply@tocdoc.com")
	s.endpoint = srv.URL

	if err := s.SendEmail(context.Background(), "dr@h.org", "s", "b"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestResendSenderRequiresAPIKey(t *testing.T) {
	s := NewResendSender("", "noreply@tocdoc.com")
	if err := s.SendEmail(context.Background(), "dr@h.org", "s", "b"); err == nil {
		t.Fatal("expected error when api key missing")
	}
}
