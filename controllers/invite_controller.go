package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"Gin_postgres_redis_borrow_return/app"
	"Gin_postgres_redis_borrow_return/models"

	"github.com/gin-gonic/gin"
)

type inviteIssuer interface {
	Issue(ctx context.Context, email string, grantsAdmin bool, createdBy string) (*models.Invite, error)
}

type InviteController struct {
	inviter inviteIssuer
	log     *slog.Logger
}

func NewInviteController(inviter inviteIssuer, log *slog.Logger) *InviteController {
	if log == nil {
		log = slog.Default()
	}
	return &InviteController{inviter: inviter, log: log}
}

// POST /api/invites {"email": "...", "grantsAdmin": true} (admin)
// The token only travels by mail; the response never carries it.
func (ic *InviteController) Create(c *gin.Context) {
	var in struct {
		Email       string `json:"email" binding:"required"`
		GrantsAdmin bool   `json:"grantsAdmin"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid email"})
		return
	}

	inv, err := ic.inviter.Issue(c.Request.Context(), strings.ToLower(addr.Address), in.GrantsAdmin, c.GetString(app.CtxEmail))
	if inv == nil {
		writeError(c, err)
		return
	}
	mailed := err == nil
	if !mailed {
		ic.log.Warn("[invite] mail failed", "email", inv.Email, "err", err)
	}
	c.JSON(http.StatusCreated, app.H{"invite": inv, "mailed": mailed})
}
