package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/smtp"
	"strings"
)

type SMTPConf struct {
	Host     string // e.g. smtp.gmail.com
	Port     string // e.g. 587
	Username string
	Password string
	From     string // falls back to Username
	AppName  string
}

// SMTPNotifier mails the requester. With no host configured it only logs (dev mode).
type SMTPNotifier struct {
	conf SMTPConf
	log  *slog.Logger
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(conf SMTPConf, log *slog.Logger) *SMTPNotifier {
	if conf.AppName == "" {
		conf.AppName = "PTE Borrow & Return"
	}
	if log == nil {
		log = slog.Default()
	}
	return &SMTPNotifier{conf: conf, log: log, send: smtp.SendMail}
}

func (n *SMTPNotifier) Send(_ context.Context, ev Event) error {
	if ev.Mail.UserEmail == "" {
		return fmt.Errorf("send %s: requester has no email", ev.Kind)
	}
	subject, body := Render(n.conf.AppName, ev)

	if n.conf.Host == "" || (n.conf.Username == "" && n.conf.From == "") {
		n.log.Info("[DEV] mail not sent, SMTP not configured",
			"kind", ev.Kind, "to", ev.Mail.UserEmail, "subject", subject)
		return nil
	}

	if err := n.mail(ev.Mail.UserEmail, subject, body); err != nil {
		return fmt.Errorf("send %s mail: %w", ev.Kind, err)
	}
	return nil
}

func (n *SMTPNotifier) mail(to, subject, body string) error {
	fromAddr := n.conf.From
	if fromAddr == "" {
		fromAddr = n.conf.Username
	}
	msg := buildMIMEWithFromName(n.conf.AppName, fromAddr, to, subject, body)
	auth := smtp.PlainAuth("", n.conf.Username, n.conf.Password, n.conf.Host)
	addr := n.conf.Host + ":" + n.conf.Port
	return n.send(addr, auth, fromAddr, []string{to}, []byte(msg))
}

// Render builds subject and HTML body for an event.
func Render(appName string, ev Event) (string, string) {
	m := ev.Mail
	esc := html.EscapeString

	var subject, lead string
	switch ev.Kind {
	case RKBorrowCreated:
		subject = fmt.Sprintf("%s: borrow request received", appName)
		lead = "We have received your borrow request. Please collect the equipment at the scheduled time."
	case RKBorrowConfirmed:
		subject = fmt.Sprintf("%s: equipment handed over", appName)
		lead = "The equipment below has been handed over to you."
	case RKBorrowCancelled:
		subject = fmt.Sprintf("%s: borrow request cancelled", appName)
		lead = "Your borrow request has been cancelled."
		if ev.Reason != "" {
			lead += " Reason: " + esc(ev.Reason)
		}
	case RKBorrowReturned:
		subject = fmt.Sprintf("%s: return recorded", appName)
		lead = "Your return has been recorded. Thank you."
	default:
		subject = fmt.Sprintf("%s: borrow %s", appName, ev.Status)
		lead = "Your borrow request was updated."
	}

	var items strings.Builder
	for _, name := range m.EquipmentNames {
		items.WriteString("<li>" + esc(name) + "</li>")
	}
	due := m.ExpectedReturnDate
	if m.ExpectedReturnTime != "" {
		due += " " + m.ExpectedReturnTime
	}

	body := fmt.Sprintf(`
<div style="font-family:Arial,sans-serif; font-size:14px; color:#222">
  <p>Hello %s,</p>
  <p>%s</p>
  <ul>%s</ul>
  <p>Borrow type: %s<br/>Borrowed: %s %s<br/>Expected return: %s</p>
  <p style="color:#666">Reference: %s</p>
</div>
`, esc(m.UserName), lead, items.String(), esc(m.BorrowType), esc(m.BorrowDate), esc(m.BorrowTime), esc(due), esc(ev.TransactionID))
	return subject, body
}

func buildMIMEWithFromName(fromName, fromAddr, to, subject, html string) string {
	headers := []string{
		fmt.Sprintf("From: %s <%s>", fromName, fromAddr),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}
	return strings.Join(headers, "\r\n") + "\r\n\r\n" + html
}
