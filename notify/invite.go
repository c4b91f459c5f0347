package notify

import (
	"context"
	"fmt"
	"html"
)

// InviteMail is the registration invite sent to a new (usually admin) user.
type InviteMail struct {
	To          string
	Link        string
	ExpiresAt   string
	GrantsAdmin bool
}

// SendInvite mails the invite link. In dev mode the link is logged so a local setup can
// still register.
func (n *SMTPNotifier) SendInvite(_ context.Context, m InviteMail) error {
	if m.To == "" || m.Link == "" {
		return fmt.Errorf("send invite: missing recipient or link")
	}
	subject, body := RenderInvite(n.conf.AppName, m)

	if n.conf.Host == "" || (n.conf.Username == "" && n.conf.From == "") {
		n.log.Info("[DEV] invite not mailed, SMTP not configured", "to", m.To, "link", m.Link)
		return nil
	}
	if err := n.mail(m.To, subject, body); err != nil {
		return fmt.Errorf("send invite mail: %w", err)
	}
	return nil
}

func RenderInvite(appName string, m InviteMail) (string, string) {
	esc := html.EscapeString
	subject := fmt.Sprintf("%s: you are invited", appName)
	role := "an account"
	if m.GrantsAdmin {
		subject = fmt.Sprintf("%s: administrator invitation", appName)
		role = "an administrator account"
	}
	body := fmt.Sprintf(`
<div style="font-family:Arial,sans-serif; font-size:14px; color:#222">
  <p>You have been invited to register %s on %s.</p>
  <p><a href="%s">Register with a passkey</a></p>
  <p style="color:#666">The link works once and expires %s.</p>
</div>
`, role, esc(appName), esc(m.Link), esc(m.ExpiresAt))
	return subject, body
}
