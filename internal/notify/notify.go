// Package notify delivers booking email through SMTP, SendGrid, or the log.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

const (
	BackendLog      = "log"
	BackendSMTP     = "smtp"
	BackendSendGrid = "sendgrid"

	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second
)

var (
	ErrInvalidConfig = errors.New("invalid notifier config")
	ErrCircuitOpen   = errors.New("mail relay circuit open")
)

// Config selects and configures the mail backend.
type Config struct {
	Backend        string
	From           string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string
	SendGridAPIKey string
	SendGridHost   string
}

// New builds the notifier named by cfg.Backend.
func New(cfg Config, logger *zap.Logger) (booking.Notifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" || backend == BackendLog {
		return NewLogNotifier(logger), nil
	}
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("%w: mail from %q", ErrInvalidConfig, cfg.From)
	}
	switch backend {
	case BackendSMTP:
		if strings.TrimSpace(cfg.SMTPHost) == "" || cfg.SMTPPort <= 0 {
			return nil, fmt.Errorf("%w: smtp host and port are required", ErrInvalidConfig)
		}
		dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
		return NewSMTPNotifier(dialer, *from, logger), nil
	case BackendSendGrid:
		if strings.TrimSpace(cfg.SendGridAPIKey) == "" {
			return nil, fmt.Errorf("%w: sendgrid api key is required", ErrInvalidConfig)
		}
		return NewSendGridNotifier(cfg.SendGridAPIKey, cfg.SendGridHost, *from), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, cfg.Backend)
	}
}

// LogNotifier writes messages to the log instead of sending them.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (notifier *LogNotifier) Notify(_ context.Context, message booking.Message) error {
	notifier.logger.Info("email",
		zap.String("to", message.To),
		zap.String("subject", message.Subject),
		zap.Int("text_bytes", len(message.Text)),
	)
	return nil
}

// Dialer is the subset of *gomail.Dialer the SMTP notifier needs.
type Dialer interface {
	DialAndSend(messages ...*gomail.Message) error
}

// SMTPNotifier sends through an SMTP relay behind a circuit breaker, so a dead relay
// costs one fast failure per request instead of a dial timeout.
type SMTPNotifier struct {
	dialer  Dialer
	from    mail.Address
	breaker *gobreaker.CircuitBreaker
}

func NewSMTPNotifier(dialer Dialer, from mail.Address, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		dialer: dialer,
		from:   from,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "smtp",
			Timeout: defaultBreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= defaultBreakerFailures
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

func (notifier *SMTPNotifier) Notify(ctx context.Context, message booking.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	envelope := gomail.NewMessage()
	envelope.SetHeader("From", envelope.FormatAddress(notifier.from.Address, notifier.from.Name))
	envelope.SetHeader("To", message.To)
	envelope.SetHeader("Subject", message.Subject)
	envelope.SetBody("text/plain", message.Text)
	if message.HTML != "" {
		envelope.AddAlternative("text/html", message.HTML)
	}
	_, err := notifier.breaker.Execute(func() (interface{}, error) {
		return nil, notifier.dialer.DialAndSend(envelope)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	if err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
