package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Deliverer hands a rendered email to a transport.
type Deliverer interface {
	Deliver(ctx context.Context, to string, r *Rendered) error
}

// SendGridDeliverer sends through the SendGrid v3 API.
type SendGridDeliverer struct {
	key  string
	from *sgmail.Email
}

// NewSendGridDeliverer creates a SendGrid deliverer.
func NewSendGridDeliverer(apiKey, fromName, fromAddress string) *SendGridDeliverer {
	return &SendGridDeliverer{key: apiKey, from: sgmail.NewEmail(fromName, fromAddress)}
}

func (d *SendGridDeliverer) Deliver(_ context.Context, to string, r *Rendered) error {
	p := sgmail.NewPersonalization()
	p.Subject = r.Subject
	p.AddTos(sgmail.NewEmail("", to))

	m := sgmail.NewV3Mail()
	m.SetFrom(d.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", r.Text))
	if r.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", r.HTML))
	}

	req := sendgrid.GetRequest(d.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid error (HTTP %d): %s", res.StatusCode, res.Body)
	}
	return nil
}

// LogDeliverer writes emails to the log instead of sending them. Used when no API key is set.
type LogDeliverer struct {
	logger *zap.Logger
}

// NewLogDeliverer creates a log-only deliverer.
func NewLogDeliverer(logger *zap.Logger) *LogDeliverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDeliverer{logger: logger}
}

func (d *LogDeliverer) Deliver(_ context.Context, to string, r *Rendered) error {
	d.logger.Info("email (not sent)",
		zap.String("to", to),
		zap.String("subject", r.Subject),
		zap.String("body", r.Text),
	)
	return nil
}
