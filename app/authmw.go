package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_borrow_return/db"
	"Gin_postgres_redis_borrow_return/session"
)

const AppSessionCookie = "app_session"

// Context keys set by AuthRequired.
const (
	CtxUserID      = "userID"
	CtxEmail       = "email"
	CtxDisplayName = "displayName"
	CtxIsAdmin     = "isAdmin"
)

// AuthRequired resolves the app session cookie. Admin comes only from the stored flag,
// which is set by an admin invite or by another admin.
func AuthRequired(appSess *session.AppSessionStore, repo *db.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		ck, err := c.Request.Cookie(AppSessionCookie)
		if err != nil || ck.Value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		as, err := appSess.Get(c.Request.Context(), ck.Value)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid session"})
			return
		}

		// the user must still exist; a deleted user's cookie is dropped here
		u, err := repo.FindUserByID(c.Request.Context(), as.UserID)
		if err != nil {
			_ = appSess.Delete(c.Request.Context(), ck.Value)
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		c.Set(CtxUserID, u.ID)
		c.Set(CtxEmail, u.Email)
		c.Set(CtxDisplayName, u.DisplayName)
		c.Set(CtxIsAdmin, u.IsAdmin)

		c.Next()
	}
}

// AdminOnly runs after AuthRequired.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(CtxUserID); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		if !c.GetBool(CtxIsAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
