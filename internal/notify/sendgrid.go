package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/MarkoPoloResearchLab/hotelbook/pkg/booking"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridEndpoint = "/v3/mail/send"

// SendGridNotifier sends through the SendGrid v3 API.
type SendGridNotifier struct {
	client *sendgrid.Client
	from   mail.Address
}

// NewSendGridNotifier targets host, or the public API when host is empty.
func NewSendGridNotifier(apiKey string, host string, from mail.Address) *SendGridNotifier {
	client := sendgrid.NewSendClient(apiKey)
	if trimmed := strings.TrimRight(strings.TrimSpace(host), "/"); trimmed != "" {
		client.BaseURL = trimmed + sendGridEndpoint
	}
	return &SendGridNotifier{client: client, from: from}
}

func (notifier *SendGridNotifier) Notify(ctx context.Context, message booking.Message) error {
	envelope := sgmail.NewV3Mail()
	envelope.SetFrom(sgmail.NewEmail(notifier.from.Name, notifier.from.Address))
	envelope.Subject = message.Subject
	recipients := sgmail.NewPersonalization()
	recipients.AddTos(sgmail.NewEmail("", message.To))
	envelope.AddPersonalizations(recipients)
	envelope.AddContent(sgmail.NewContent("text/plain", message.Text))
	if message.HTML != "" {
		envelope.AddContent(sgmail.NewContent("text/html", message.HTML))
	}
	response, err := notifier.client.SendWithContext(ctx, envelope)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if response.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}
