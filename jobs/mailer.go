package jobs

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer delivers transactional email over SMTP.
type Mailer struct {
	addr string
	from string
	send func(addr, from string, to []string, msg []byte) error
}

// NewMailer constructs a Mailer for the given SMTP endpoint.
func NewMailer(host string, port int, from string) *Mailer {
	return &Mailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// SendWelcome delivers the welcome email for a new account.
func (m *Mailer) SendWelcome(to, name string) error {
	if name == "" {
		name = to
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Welcome to Gatehouse\r\n")
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "Hi %s,\r\n\r\nYour account is ready. You can sign in with this email address.\r\n", name)
	return m.send(m.addr, m.from, []string{to}, []byte(b.String()))
}
