// controllers/webauthn_controller.go
package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"Gin_postgres_redis_borrow_return/app"
	"Gin_postgres_redis_borrow_return/db"
	"Gin_postgres_redis_borrow_return/models"
	"Gin_postgres_redis_borrow_return/session"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Srv) WhoAmI(c *app.Ctx) {
	uid := c.GetString(app.CtxUserID)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	u, err := s.Repo.FindUserByID(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	credCount, _ := s.Repo.CountCredentials(c.Request.Context(), uid)

	c.JSON(http.StatusOK, app.H{
		"userID":          u.ID,
		"email":           u.Email,
		"displayName":     u.DisplayName,
		"idNumber":        u.IDNumber,
		"isAdmin":         c.GetBool(app.CtxIsAdmin),
		"credentialCount": credCount,
		"lastLoginAt":     u.LastLoginAt,
	})
}

func (s *Srv) Logout(c *app.Ctx) {
	if ck, err := c.Request.Cookie(app.AppSessionCookie); err == nil && ck.Value != "" {
		_ = s.AppSess.Delete(c.Request.Context(), ck.Value)
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secureCookie(),
	})
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// ===== Registration (self sign-up) =====

type registerBeginReq struct {
	Email       string `json:"email" binding:"required"`
	DisplayName string `json:"displayName" binding:"required"`
	IDNumber    string `json:"idNumber"`
	InviteToken string `json:"inviteToken"`
}

// admitRegistration: ADMIN_EMAILS addresses register only with an invite (inv != nil);
// a presented invite must be unused, unexpired and issued for email.
func admitRegistration(cfg app.Config, email string, inv *models.Invite, now time.Time) error {
	if inv == nil {
		if cfg.IsAdminEmail(email) {
			return db.ErrInviteRequired
		}
		return nil
	}
	return db.CheckInvite(inv, email, now)
}

func registrationOptions() []webauthn.RegistrationOption {
	return []webauthn.RegistrationOption{
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			UserVerification: protocol.VerificationRequired,
		}),
	}
}

func (s *Srv) BeginRegistration(c *gin.Context) {
	var in registerBeginReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid email"})
		return
	}
	email := strings.ToLower(addr.Address)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	inviteToken := strings.TrimSpace(in.InviteToken)
	var inv *models.Invite
	if inviteToken != "" {
		if inv, err = s.Repo.GetInviteByToken(ctx, inviteToken); err != nil {
			writeError(c, err)
			return
		}
	}
	if err := admitRegistration(s.Cfg, email, inv, time.Now()); err != nil {
		writeError(c, err)
		return
	}

	// an email that already owns a passkey must log in (or add one from a session) instead
	userID := app.NewUserID()
	existing, err := s.Repo.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		n, err := s.Repo.CountCredentials(ctx, existing.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
			return
		}
		if n > 0 {
			c.JSON(http.StatusConflict, app.H{"error": "email already registered"})
			return
		}
		userID = existing.ID
	case !errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}

	pending := &session.PendingRegistration{
		UserID:      userID,
		Email:       email,
		DisplayName: strings.TrimSpace(in.DisplayName),
		IDNumber:    strings.TrimSpace(in.IDNumber),
		InviteToken: inviteToken,
	}
	wUser := &waUser{user: models.User{ID: userID, Email: email, DisplayName: pending.DisplayName}}
	opts, sd, err := s.WA.BeginRegistration(wUser, registrationOptions()...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	pending.Session = *sd

	token := uuid.NewString()
	if err := s.Sess.SavePending(ctx, token, pending); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"opts": opts, "registrationToken": token})
}

func (s *Srv) FinishRegistration(c *gin.Context) {
	token := c.Query("registrationToken")
	if token == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "missing registrationToken"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	pending, err := s.Sess.LoadPending(ctx, token)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "session expired or invalid"})
		return
	}
	wUser := &waUser{user: models.User{ID: pending.UserID, Email: pending.Email, DisplayName: pending.DisplayName}}

	cred, err := s.WA.FinishRegistration(wUser, pending.Session, c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	var u *models.User
	if pending.InviteToken != "" {
		// redeems the token and applies its admin grant with the user row
		u, err = s.Repo.RegisterWithInvite(ctx, pending.InviteToken, pending.Email,
			pending.DisplayName, pending.IDNumber, pending.UserID, time.Now())
	} else if err = admitRegistration(s.Cfg, pending.Email, nil, time.Now()); err == nil {
		u, err = s.Repo.FindOrCreateUser(ctx, pending.Email, pending.DisplayName, pending.IDNumber, pending.UserID)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	if u.ID != pending.UserID {
		// someone else finished a registration for this email first
		c.JSON(http.StatusConflict, app.H{"error": "email already registered"})
		return
	}
	if err := s.Repo.AddCredential(ctx, fromWaCred(u.ID, cred)); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	s.Sess.DelPending(ctx, token)

	// registering also signs in
	if err := s.issueSession(ctx, c.Writer, u.ID, c.ClientIP(), c.Request.UserAgent()); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": "create app session failed"})
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "email": u.Email, "displayName": u.DisplayName, "isAdmin": u.IsAdmin})
}

// ===== Add credential (signed in) =====

func (s *Srv) BeginAddCredential(c *gin.Context) {
	uid := c.GetString(app.CtxUserID)
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	wUser, err := s.loadWAUserByID(ctx, uid)
	if err != nil {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}

	exclude := make([]protocol.CredentialDescriptor, 0, len(wUser.creds))
	for _, cr := range wUser.creds {
		exclude = append(exclude, cr.Descriptor())
	}
	opts, sd, err := s.WA.BeginRegistration(wUser, append(registrationOptions(), webauthn.WithExclusions(exclude))...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}

	if err := s.Sess.SaveReg(ctx, wUser.user.ID, sd); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"opts": opts})
}

func (s *Srv) FinishAddCredential(c *gin.Context) {
	uid := c.GetString(app.CtxUserID)
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	wUser, err := s.loadWAUserByID(ctx, uid)
	if err != nil {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}

	sd, err := s.Sess.LoadReg(ctx, wUser.user.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "session expired or invalid"})
		return
	}

	cred, err := s.WA.FinishRegistration(wUser, *sd, c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	if err := s.Repo.AddCredential(ctx, fromWaCred(wUser.user.ID, cred)); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	s.Sess.DelReg(ctx, wUser.user.ID)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// ===== Login =====

type loginBeginReq struct {
	Email        string `json:"email"`
	Discoverable bool   `json:"discoverable"`
}
type loginBeginResp struct {
	Options   *protocol.CredentialAssertion `json:"options"`
	SessionID string                        `json:"sessionId"`
}

func (s *Srv) BeginLogin(c *gin.Context) {
	var req loginBeginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "bad request"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	var (
		opts *protocol.CredentialAssertion
		sd   *webauthn.SessionData
		err  error
	)
	if req.Discoverable || strings.TrimSpace(req.Email) == "" {
		opts, sd, err = s.WA.BeginDiscoverableLogin(webauthn.WithUserVerification(protocol.VerificationRequired))
	} else {
		wUser, err2 := s.loadWAUserByEmail(ctx, req.Email)
		if err2 != nil {
			c.JSON(http.StatusNotFound, app.H{"error": "user not found"})
			return
		}
		opts, sd, err = s.WA.BeginLogin(wUser, webauthn.WithUserVerification(protocol.VerificationRequired))
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}

	sid := uuid.NewString()
	if err := s.Sess.SaveAuth(ctx, sid, sd); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, loginBeginResp{Options: opts, SessionID: sid})
}

func (s *Srv) FinishLogin(c *gin.Context) {
	sid := c.Query("sessionId")
	if sid == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "missing sessionId"})
		return
	}
	ip, ua := c.ClientIP(), c.Request.UserAgent()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	sd, err := s.Sess.LoadAuth(ctx, sid)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "session expired or invalid"})
		return
	}

	var (
		userID string
		cred   *webauthn.Credential
	)
	if email := c.Query("email"); email != "" {
		wUser, err := s.loadWAUserByEmail(ctx, email)
		if err != nil {
			c.JSON(http.StatusNotFound, app.H{"error": "user not found"})
			return
		}
		cred, err = s.WA.FinishLogin(wUser, *sd, c.Request)
		if err != nil {
			c.JSON(http.StatusUnauthorized, app.H{"error": err.Error()})
			return
		}
		userID = wUser.user.ID
	} else {
		handler := func(rawID, _ []byte) (webauthn.User, error) {
			u, _, err := s.Repo.FindUserByCredentialID(ctx, rawID)
			if err != nil {
				return nil, protocol.ErrBadRequest.WithDetails("credential not found")
			}
			return s.withCredentials(ctx, u), nil
		}
		user, passkey, err := s.WA.FinishPasskeyLogin(handler, *sd, c.Request)
		if err != nil {
			c.JSON(http.StatusUnauthorized, app.H{"error": err.Error()})
			return
		}
		userID = user.(*waUser).user.ID
		cred = passkey
	}
	_ = s.Repo.UpdateCredentialCounter(ctx, cred.ID, cred.Authenticator.SignCount, cred.Authenticator.CloneWarning)
	_ = s.Repo.TouchCredentialUsed(ctx, cred.ID)
	s.Sess.DelAuth(ctx, sid)

	if err := s.issueSession(ctx, c.Writer, userID, ip, ua); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": "create app session failed"})
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "redirect": "/dashboard"})
}
