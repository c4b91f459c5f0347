package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Gin_postgres_redis_borrow_return/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrInviteRequired: the address may only register through a mailed invite.
	ErrInviteRequired = errors.New("an invite is required to register this email")
	ErrInviteInvalid  = errors.New("invite invalid")

	ErrInviteNotFound      = fmt.Errorf("%w: not found", ErrInviteInvalid)
	ErrInviteUsed          = fmt.Errorf("%w: already used", ErrInviteInvalid)
	ErrInviteExpired       = fmt.Errorf("%w: expired", ErrInviteInvalid)
	ErrInviteEmailMismatch = fmt.Errorf("%w: issued for another email", ErrInviteInvalid)
)

// CheckInvite reports whether inv can still register email at now.
func CheckInvite(inv *models.Invite, email string, now time.Time) error {
	switch {
	case inv == nil:
		return ErrInviteNotFound
	case inv.UsedAt != nil:
		return ErrInviteUsed
	case !now.Before(inv.ExpiresAt):
		return ErrInviteExpired
	case !strings.EqualFold(inv.Email, strings.TrimSpace(email)):
		return ErrInviteEmailMismatch
	}
	return nil
}

func (r *Repo) CreateInvite(ctx context.Context, email, token string, grantsAdmin bool, expiresAt time.Time, createdBy string) (*models.Invite, error) {
	inv := &models.Invite{
		Email:       strings.ToLower(strings.TrimSpace(email)),
		Token:       token,
		GrantsAdmin: grantsAdmin,
		ExpiresAt:   expiresAt,
		CreatedBy:   createdBy,
	}
	return inv, r.DB.WithContext(ctx).Create(inv).Error
}

// GetInviteByToken returns ErrInviteNotFound for an unknown token.
func (r *Repo) GetInviteByToken(ctx context.Context, token string) (*models.Invite, error) {
	var inv models.Invite
	err := r.DB.WithContext(ctx).Where("token = ?", token).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// HasOpenInvite is true when email holds an unused, unexpired invite.
func (r *Repo) HasOpenInvite(ctx context.Context, email string, now time.Time) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Invite{}).
		Where("email = ? AND used_at IS NULL AND expires_at > ?", strings.ToLower(strings.TrimSpace(email)), now).
		Count(&n).Error
	return n > 0, err
}

// RegisterWithInvite redeems token and creates (or completes) the user for its email in one
// transaction. The invite row is locked, so a token registers at most one user; an admin
// invite sets IsAdmin on that user.
func (r *Repo) RegisterWithInvite(ctx context.Context, token, email, displayName, idNumber, newID string, now time.Time) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var out models.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invite
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("token = ?", token).First(&inv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInviteNotFound
		}
		if err != nil {
			return err
		}
		if err := CheckInvite(&inv, email, now); err != nil {
			return err
		}

		err = tx.Where("email = ?", email).First(&out).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if strings.TrimSpace(displayName) == "" {
				displayName = email
			}
			out = models.User{
				ID:          newID,
				Email:       email,
				DisplayName: displayName,
				IDNumber:    strings.TrimSpace(idNumber),
				IsAdmin:     inv.GrantsAdmin,
			}
			if err := tx.Create(&out).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		case inv.GrantsAdmin && !out.IsAdmin:
			if err := tx.Model(&out).Update("is_admin", true).Error; err != nil {
				return err
			}
			out.IsAdmin = true
		}

		return tx.Model(&inv).Updates(map[string]any{"used_at": now, "used_by": out.ID}).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
