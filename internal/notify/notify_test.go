package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"sync"
	"testing"

	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/gomail.v2"
)

var testMessage = booking.Message{
	To:      "rina@example.com",
	Subject: "Reservation received",
	Text:    "See you soon",
	HTML:    "<p>See you soon</p>",
}

type recordingDialer struct {
	mu       sync.Mutex
	err      error
	calls    int
	messages []*gomail.Message
}

func (dialer *recordingDialer) DialAndSend(messages ...*gomail.Message) error {
	dialer.mu.Lock()
	defer dialer.mu.Unlock()
	dialer.calls++
	dialer.messages = append(dialer.messages, messages...)
	return dialer.err
}

func TestSMTPNotifierSendsBothParts(test *testing.T) {
	test.Parallel()
	dialer := &recordingDialer{}
	notifier := NewSMTPNotifier(dialer, mail.Address{Name: "Hotelbook", Address: "noreply@hotelbook.test"}, zap.NewNop())
	if err := notifier.Notify(context.Background(), testMessage); err != nil {
		test.Fatalf("notify: %v", err)
	}
	if len(dialer.messages) != 1 {
		test.Fatalf("expected one message, got %d", len(dialer.messages))
	}
	sent := dialer.messages[0]
	if got := sent.GetHeader("To"); len(got) != 1 || got[0] != testMessage.To {
		test.Fatalf("unexpected To header %v", got)
	}
	var rendered strings.Builder
	if _, err := sent.WriteTo(&rendered); err != nil {
		test.Fatalf("render: %v", err)
	}
	for _, fragment := range []string{"text/plain", "text/html", "Hotelbook", "See you soon"} {
		if !strings.Contains(rendered.String(), fragment) {
			test.Fatalf("expected %q in rendered message", fragment)
		}
	}
}

func TestSMTPNotifierOpensCircuit(test *testing.T) {
	test.Parallel()
	core, logs := observer.New(zap.WarnLevel)
	dialer := &recordingDialer{err: errors.New("connection refused")}
	notifier := NewSMTPNotifier(dialer, mail.Address{Address: "noreply@hotelbook.test"}, zap.New(core))
	ctx := context.Background()
	for attempt := 0; attempt < defaultBreakerFailures; attempt++ {
		if err := notifier.Notify(ctx, testMessage); err == nil || errors.Is(err, ErrCircuitOpen) {
			test.Fatalf("attempt %d: expected relay error, got %v", attempt, err)
		}
	}
	if err := notifier.Notify(ctx, testMessage); !errors.Is(err, ErrCircuitOpen) {
		test.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if dialer.calls != defaultBreakerFailures {
		test.Fatalf("open circuit must not dial, got %d calls", dialer.calls)
	}
	if logs.FilterMessage("circuit breaker state changed").Len() != 1 {
		test.Fatalf("expected one state change log entry, got %d", logs.Len())
	}
}

func TestSMTPNotifierHonoursCancelledContext(test *testing.T) {
	test.Parallel()
	dialer := &recordingDialer{}
	notifier := NewSMTPNotifier(dialer, mail.Address{Address: "noreply@hotelbook.test"}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := notifier.Notify(ctx, testMessage); !errors.Is(err, context.Canceled) {
		test.Fatalf("expected context.Canceled, got %v", err)
	}
	if dialer.calls != 0 {
		test.Fatalf("expected no dial")
	}
}

func TestSendGridNotifier(test *testing.T) {
	test.Parallel()
	var (
		mu      sync.Mutex
		payload map[string]any
		auth    string
		path    string
	)
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		auth = request.Header.Get("Authorization")
		path = request.URL.Path
		body, _ := io.ReadAll(request.Body)
		_ = json.Unmarshal(body, &payload)
		if strings.Contains(string(body), "reject@example.com") {
			writer.WriteHeader(http.StatusBadRequest)
			_, _ = writer.Write([]byte(`{"errors":[{"message":"bad recipient"}]}`))
			return
		}
		writer.WriteHeader(http.StatusAccepted)
	}))
	test.Cleanup(server.Close)

	notifier := NewSendGridNotifier("sg-key", server.URL, mail.Address{Name: "Hotelbook", Address: "noreply@hotelbook.test"})
	if err := notifier.Notify(context.Background(), testMessage); err != nil {
		test.Fatalf("notify: %v", err)
	}
	mu.Lock()
	if auth != "Bearer sg-key" || path != sendGridEndpoint || payload["subject"] != testMessage.Subject {
		test.Fatalf("unexpected request auth=%q path=%q payload=%v", auth, path, payload)
	}
	mu.Unlock()

	rejected := testMessage
	rejected.To = "reject@example.com"
	if err := notifier.Notify(context.Background(), rejected); err == nil || !strings.Contains(err.Error(), "status 400") {
		test.Fatalf("expected status error, got %v", err)
	}
}

func TestNewSelectsBackend(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name    string
		cfg     Config
		wantErr bool
		check   func(booking.Notifier) bool
	}{
		{name: "default log", cfg: Config{}, check: func(notifier booking.Notifier) bool { _, ok := notifier.(*LogNotifier); return ok }},
		{name: "smtp", cfg: Config{Backend: "smtp", From: "noreply@hotelbook.test", SMTPHost: "localhost", SMTPPort: 2525}, check: func(notifier booking.Notifier) bool { _, ok := notifier.(*SMTPNotifier); return ok }},
		{name: "sendgrid", cfg: Config{Backend: "SendGrid", From: "Hotelbook <noreply@hotelbook.test>", SendGridAPIKey: "k"}, check: func(notifier booking.Notifier) bool { _, ok := notifier.(*SendGridNotifier); return ok }},
		{name: "smtp without host", cfg: Config{Backend: "smtp", From: "noreply@hotelbook.test"}, wantErr: true},
		{name: "sendgrid without key", cfg: Config{Backend: "sendgrid", From: "noreply@hotelbook.test"}, wantErr: true},
		{name: "bad from", cfg: Config{Backend: "smtp", From: "not an address", SMTPHost: "localhost", SMTPPort: 25}, wantErr: true},
		{name: "unknown", cfg: Config{Backend: "pigeon", From: "noreply@hotelbook.test"}, wantErr: true},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			notifier, err := New(testCase.cfg, zap.NewNop())
			if testCase.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					test.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				test.Fatalf("new: %v", err)
			}
			if !testCase.check(notifier) {
				test.Fatalf("unexpected notifier type %T", notifier)
			}
		})
	}
}

func TestLogNotifierRecordsMessage(test *testing.T) {
	test.Parallel()
	core, logs := observer.New(zap.InfoLevel)
	if err := NewLogNotifier(zap.New(core)).Notify(context.Background(), testMessage); err != nil {
		test.Fatalf("notify: %v", err)
	}
	entries := logs.FilterField(zap.String("to", testMessage.To)).All()
	if len(entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(entries))
	}
}
