// app/seenmw.go
package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"Gin_postgres_redis_borrow_return/db"
)

// TouchLastSeen writes last_seen_at at most once per throttle window per user.
func TouchLastSeen(repo *db.Repo, rdb *redis.Client, throttle time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString(CtxUserID)
		if uid == "" {
			c.Next()
			return
		}

		key := "user:lastseen:" + uid
		if ok, _ := rdb.SetNX(c.Request.Context(), key, "1", throttle).Result(); ok {
			_ = repo.TouchUserSeen(c.Request.Context(), uid) // best effort
		}
		c.Next()
	}
}
