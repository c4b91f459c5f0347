package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInvite() InviteMail {
	return InviteMail{
		To:          "head@uni.ac.th",
		Link:        "https://pte.uni.ac.th/register?inviteToken=abc&x=<1>",
		ExpiresAt:   "02/01/2025 10:00",
		GrantsAdmin: true,
	}
}

func Test_RenderInvite_AdminAndRegular(t *testing.T) {
	subject, body := RenderInvite("PTE", sampleInvite())
	assert.Equal(t, "PTE: administrator invitation", subject)
	assert.Contains(t, body, "an administrator account")
	assert.Contains(t, body, "inviteToken=abc&amp;x=&lt;1&gt;")
	assert.Contains(t, body, "expires 02/01/2025 10:00")

	m := sampleInvite()
	m.GrantsAdmin = false
	subject, body = RenderInvite("PTE", m)
	assert.Equal(t, "PTE: you are invited", subject)
	assert.NotContains(t, body, "administrator")
}

func Test_SMTPNotifier_SendInvite_MailsInvitee(t *testing.T) {
	// arrange
	n, sent := captureSMTP(SMTPConf{Host: "smtp.uni.ac.th", Port: "587", Username: "noreply@uni.ac.th", AppName: "PTE"}, nil)

	// act
	err := n.SendInvite(context.Background(), sampleInvite())

	// assert
	require.NoError(t, err)
	require.Len(t, *sent, 1)
	assert.Equal(t, []string{"head@uni.ac.th"}, (*sent)[0].to)
	assert.Contains(t, (*sent)[0].msg, "Subject: PTE: administrator invitation\r\n")
}

func Test_SMTPNotifier_SendInvite_Errors(t *testing.T) {
	conf := SMTPConf{Host: "smtp.uni.ac.th", Port: "587", Username: "noreply@uni.ac.th"}

	t.Run("missing link", func(t *testing.T) {
		n, sent := captureSMTP(conf, nil)
		m := sampleInvite()
		m.Link = ""

		assert.Error(t, n.SendInvite(context.Background(), m))
		assert.Empty(t, *sent)
	})

	t.Run("dev mode", func(t *testing.T) {
		n, sent := captureSMTP(SMTPConf{}, nil)

		assert.NoError(t, n.SendInvite(context.Background(), sampleInvite()))
		assert.Empty(t, *sent)
	})

	t.Run("transport failure", func(t *testing.T) {
		n, _ := captureSMTP(conf, errors.New("550 mailbox unavailable"))

		assert.ErrorContains(t, n.SendInvite(context.Background(), sampleInvite()), "550")
	})
}
