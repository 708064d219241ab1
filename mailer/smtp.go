package mailer

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/wneessen/go-mail"
)

// Options configures the SMTP sender.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers HTML mail over SMTP.
type SMTPSender struct {
	client *mail.Client
	from   string
}

// New connects the sender to an SMTP relay. Credentials are optional; local
// development relays usually run unauthenticated.
func New(opts Options) (*SMTPSender, error) {
	clientOpts := []mail.Option{
		mail.WithPort(opts.Port),
	}
	if opts.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(opts.Username),
			mail.WithPassword(opts.Password),
		)
	}

	client, err := mail.NewClient(opts.Host, clientOpts...)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create mail client")
	}

	return &SMTPSender{client: client, from: opts.From}, nil
}

// Send delivers one HTML message.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "invalid mail sender")
	}
	if err := msg.To(to); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid mail recipient")
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send mail")
	}
	return nil
}
