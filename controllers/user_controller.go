package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"Gin_postgres_redis_borrow_return/app"
	"Gin_postgres_redis_borrow_return/db"
	"Gin_postgres_redis_borrow_return/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserController struct {
	repo    *db.Repo
	appSess *session.AppSessionStore
	cfg     app.Config
}

func GetUserController(repo *db.Repo, appSess *session.AppSessionStore, cfg app.Config) *UserController {
	return &UserController{repo: repo, appSess: appSess, cfg: cfg}
}

// GET /api/users?q=alice&page=1&size=20
func (uc *UserController) ListUsers(c *gin.Context) {
	q := c.Query("q")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := uc.repo.ListUsers(c.Request.Context(), q, page, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{
		"total": res.Total,
		"users": res.Users,
	})
}

// GET /api/users/:id
func (uc *UserController) GetUser(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid uuid"})
		return
	}
	user, err := uc.repo.FindUserByID(c.Request.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, app.H{"error": "user not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"user": user})
}

// DELETE /api/users/:id
func (uc *UserController) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "missing id"})
		return
	}
	// no self-delete, avoids locking the last admin out
	if c.GetString(app.CtxUserID) == id {
		c.JSON(http.StatusBadRequest, app.H{"error": "cannot delete yourself"})
		return
	}

	target, err := uc.repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, app.H{"error": "user not found"})
		return
	}
	if target.IsAdmin || uc.cfg.IsAdminEmail(target.Email) {
		c.JSON(http.StatusForbidden, app.H{"error": "cannot delete an admin"})
		return
	}

	if err := uc.repo.DeleteUserByID(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	_ = uc.appSess.RevokeAllForUser(c.Request.Context(), id)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// PUT /api/users/:id/admin {"isAdmin": true}
func (uc *UserController) SetAdmin(c *gin.Context) {
	id := c.Param("id")
	var in struct {
		IsAdmin *bool `json:"isAdmin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if !*in.IsAdmin && c.GetString(app.CtxUserID) == id {
		c.JSON(http.StatusBadRequest, app.H{"error": "cannot demote yourself"})
		return
	}

	ctx := c.Request.Context()
	target, err := uc.repo.FindUserByID(ctx, id)
	if err != nil {
		c.JSON(http.StatusNotFound, app.H{"error": "user not found"})
		return
	}
	if !*in.IsAdmin && uc.cfg.IsAdminEmail(target.Email) {
		c.JSON(http.StatusForbidden, app.H{"error": "admin is pinned by ADMIN_EMAILS"})
		return
	}
	if err := uc.repo.SetUserAdmin(ctx, id, *in.IsAdmin); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	// a demoted admin signs in again to drop the role
	if !*in.IsAdmin {
		_ = uc.appSess.RevokeAllForUser(ctx, id)
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "isAdmin": *in.IsAdmin})
}
