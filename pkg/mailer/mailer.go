// Package mailer delivers email copies of workflow notices over SMTP.
package mailer

import (
	"gopkg.in/gomail.v2"

	"github.com/caredesk/caredesk/pkg/config"
)

// SMTPMailer satisfies the fan-out's Mailer interface. Delivery is
// synchronous; callers treat failures as best-effort.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// New returns nil when SMTP is disabled in the config, which turns email
// fan-out off entirely.
func New() *SMTPMailer {
	conf := config.GetConfig().SMTP
	if !conf.Enable {
		return nil
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(conf.Host, conf.Port, conf.User, conf.Password),
		from:   conf.From,
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}
