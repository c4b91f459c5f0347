// db/repo_users_admin.go
package db

import (
	"context"

	"Gin_postgres_redis_borrow_return/models"

	"gorm.io/gorm"
)

// SetUserAdmin returns gorm.ErrRecordNotFound when no user has userID.
func (r *Repo) SetUserAdmin(ctx context.Context, userID string, isAdmin bool) error {
	res := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("is_admin", isAdmin)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("is_admin = TRUE").
		Count(&n).Error
	return n, err
}
