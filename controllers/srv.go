// controllers/srv.go
package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"Gin_postgres_redis_borrow_return/app"
	"Gin_postgres_redis_borrow_return/db"
	"Gin_postgres_redis_borrow_return/lifecycle"
	"Gin_postgres_redis_borrow_return/models"
	"Gin_postgres_redis_borrow_return/session"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

// Srv carries the identity side: passkeys and app sessions.
type Srv struct {
	WA        *webauthn.WebAuthn
	Repo      *db.Repo
	Sess      *session.Store
	AppSess   *session.AppSessionStore
	WebOrigin string
	Cfg       app.Config
	Log       *slog.Logger
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		WA:        a.WA,
		Repo:      a.Repo,
		Sess:      a.Ceremonies(),
		AppSess:   a.AppSessions(),
		WebOrigin: a.Config.WebOrigin,
		Cfg:       a.Config,
		Log:       a.Log,
	}
}

// --- helpers ---

func (s *Srv) secureCookie() bool { return strings.HasPrefix(s.WebOrigin, "https://") }

func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secureCookie(),
		MaxAge:   int(maxAge / time.Second),
	})
}

// issueSession creates the app session and records the login snapshot.
func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, userID string, ip, ua string) error {
	if err := s.Repo.TouchUserLogin(ctx, userID, ip, ua); err != nil {
		s.Log.Warn("[auth] login snapshot", "userId", userID, "err", err) // not fatal
	}
	id := uuid.NewString()
	if err := s.AppSess.Create(ctx, id, userID); err != nil {
		return err
	}
	s.setAppCookie(w, id, s.AppSess.TTL())
	return nil
}

// actor builds the lifecycle identity from what AuthRequired put in the context.
func actor(c *gin.Context) lifecycle.Actor {
	return lifecycle.Actor{
		ID:    c.GetString(app.CtxUserID),
		Name:  c.GetString(app.CtxDisplayName),
		Email: c.GetString(app.CtxEmail),
	}
}

// WebAuthn: DB user -> waUser
type waUser struct {
	user  models.User
	creds []webauthn.Credential
}

func (u *waUser) WebAuthnID() []byte                         { id, _ := uuid.Parse(u.user.ID); return id[:] }
func (u *waUser) WebAuthnName() string                       { return u.user.Email }
func (u *waUser) WebAuthnDisplayName() string                { return u.user.DisplayName }
func (u *waUser) WebAuthnIcon() string                       { return "" }
func (u *waUser) WebAuthnCredentials() []webauthn.Credential { return u.creds }

func toWaCred(c models.Credential) webauthn.Credential {
	return webauthn.Credential{
		ID:              c.CredentialID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Authenticator: webauthn.Authenticator{
			AAGUID:       c.AAGUID,
			SignCount:    c.SignCount,
			CloneWarning: c.CloneWarning,
		},
		Flags: webauthn.CredentialFlags{
			BackupEligible: c.BackupEligible,
			BackupState:    c.BackupState,
		},
	}
}

func fromWaCred(userID string, cred *webauthn.Credential) *models.Credential {
	return &models.Credential{
		UserID:          userID,
		CredentialID:    cred.ID,
		PublicKey:       cred.PublicKey,
		AttestationType: cred.AttestationType,
		AAGUID:          cred.Authenticator.AAGUID,
		SignCount:       cred.Authenticator.SignCount,
		CloneWarning:    cred.Authenticator.CloneWarning,
		BackupEligible:  cred.Flags.BackupEligible,
		BackupState:     cred.Flags.BackupState,
	}
}

func (s *Srv) withCredentials(ctx context.Context, u *models.User) *waUser {
	cs, _ := s.Repo.LoadUserCredentials(ctx, u.ID)
	ws := make([]webauthn.Credential, 0, len(cs))
	for _, c := range cs {
		ws = append(ws, toWaCred(c))
	}
	return &waUser{user: *u, creds: ws}
}

func (s *Srv) loadWAUserByID(ctx context.Context, id string) (*waUser, error) {
	u, err := s.Repo.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withCredentials(ctx, u), nil
}

func (s *Srv) loadWAUserByEmail(ctx context.Context, email string) (*waUser, error) {
	u, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.withCredentials(ctx, u), nil
}
