// app/bootstrap.go
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"Gin_postgres_redis_borrow_return/catalog"
	"Gin_postgres_redis_borrow_return/db"
	"Gin_postgres_redis_borrow_return/models"
)

// Bootstrap seeds an empty catalog and invites ADMIN_EMAILS addresses that have no account.
// Failures are logged; the server still starts.
func Bootstrap(ctx context.Context, cfg Config, repo *db.Repo, inviter *Inviter, log *slog.Logger) {
	if cfg.SeedCatalog {
		seedCatalog(ctx, repo, log)
	}
	bootstrapAdmins(ctx, cfg, repo, inviter, log)
}

func seedCatalog(ctx context.Context, repo *db.Repo, log *slog.Logger) {
	if n, err := repo.CountEquipment(ctx); err != nil {
		log.Error("[BOOTSTRAP] count equipment", "err", err)
	} else if n == 0 {
		if err := repo.CreateEquipment(ctx, catalog.SeedEquipment()); err != nil {
			log.Error("[BOOTSTRAP] seed equipment", "err", err)
		} else {
			log.Info("[BOOTSTRAP] seeded equipment catalog")
		}
	}

	if n, err := repo.CountRooms(ctx); err != nil {
		log.Error("[BOOTSTRAP] count rooms", "err", err)
	} else if n == 0 {
		for _, room := range catalog.SeedRooms() {
			if err := repo.CreateRoom(ctx, &room); err != nil {
				log.Error("[BOOTSTRAP] seed room", "code", room.Code, "err", err)
			}
		}
		log.Info("[BOOTSTRAP] seeded rooms")
	}
}

type adminStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	HasOpenInvite(ctx context.Context, email string, now time.Time) (bool, error)
	CountAdmins(ctx context.Context) (int64, error)
}

type adminInviter interface {
	Issue(ctx context.Context, email string, grantsAdmin bool, createdBy string) (*models.Invite, error)
}

// bootstrapAdmins mails an admin invite to each ADMIN_EMAILS address that has no account and
// no open invite. An existing non-admin account is never promoted here: its owner never proved
// the address.
func bootstrapAdmins(ctx context.Context, cfg Config, repo adminStore, inviter adminInviter, log *slog.Logger) {
	for _, email := range cfg.AdminEmails {
		u, err := repo.FindUserByEmail(ctx, email)
		switch {
		case err == nil:
			if !u.IsAdmin {
				log.Warn("[BOOTSTRAP] ADMIN_EMAILS address registered without an invite; promote it from an admin account",
					"email", email, "userId", u.ID)
			}
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			log.Error("[BOOTSTRAP] find admin", "email", email, "err", err)
			continue
		}

		open, err := repo.HasOpenInvite(ctx, email, time.Now())
		if err != nil {
			log.Error("[BOOTSTRAP] check invite", "email", email, "err", err)
			continue
		}
		if open {
			continue
		}
		if _, err := inviter.Issue(ctx, email, true, "bootstrap"); err != nil {
			log.Error("[BOOTSTRAP] admin invite", "email", email, "err", err)
			continue
		}
		log.Info("[BOOTSTRAP] mailed admin invite", "email", email)
	}

	n, err := repo.CountAdmins(ctx)
	if err != nil {
		log.Error("[BOOTSTRAP] count admins", "err", err)
		return
	}
	if n == 0 && len(cfg.AdminEmails) == 0 {
		log.Warn("[BOOTSTRAP] no admin exists; set ADMIN_EMAILS and register through the mailed invite")
	}
}
