package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"Gin_postgres_redis_borrow_return/models"
	"Gin_postgres_redis_borrow_return/notify"
)

type inviteStore interface {
	CreateInvite(ctx context.Context, email, token string, grantsAdmin bool, expiresAt time.Time, createdBy string) (*models.Invite, error)
}

type inviteMailer interface {
	SendInvite(ctx context.Context, m notify.InviteMail) error
}

// Inviter issues single-use registration tokens and mails the sign-up link.
type Inviter struct {
	store     inviteStore
	mailer    inviteMailer
	webOrigin string
	ttl       time.Duration
	loc       *time.Location
	now       func() time.Time
}

func NewInviter(store inviteStore, mailer inviteMailer, webOrigin string, ttl time.Duration, loc *time.Location) *Inviter {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Inviter{store: store, mailer: mailer, webOrigin: strings.TrimRight(webOrigin, "/"), ttl: ttl, loc: loc, now: time.Now}
}

// Issue stores the invite and mails it. A mail failure still returns the stored invite.
func (iv *Inviter) Issue(ctx context.Context, email string, grantsAdmin bool, createdBy string) (*models.Invite, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("invite token: %w", err)
	}
	token := hex.EncodeToString(buf)

	inv, err := iv.store.CreateInvite(ctx, email, token, grantsAdmin, iv.now().Add(iv.ttl), createdBy)
	if err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}
	err = iv.mailer.SendInvite(ctx, notify.InviteMail{
		To:          inv.Email,
		Link:        iv.Link(token),
		ExpiresAt:   inv.ExpiresAt.In(iv.loc).Format("02/01/2006 15:04"),
		GrantsAdmin: grantsAdmin,
	})
	if err != nil {
		return inv, err
	}
	return inv, nil
}

func (iv *Inviter) Link(token string) string {
	return iv.webOrigin + "/register?inviteToken=" + url.QueryEscape(token)
}
