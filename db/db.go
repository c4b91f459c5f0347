package db

import (
	"fmt"
	"log"

	"Gin_postgres_redis_borrow_return/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// BuildDSN assembles a key/value DSN from the DB_* settings.
func BuildDSN(host, user, password, name, port string) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		host, user, password, name, port,
	)
}

func ConnectDB(dsn string) *gorm.DB {
	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	if err = Migrate(DB); err != nil {
		log.Fatal("Failed to migrate models: ", err)
	}
	log.Println("Database connected")
	return DB
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{}, &models.Credential{}, &models.Invite{},
		&models.Equipment{}, &models.Room{}, &models.RoomBooking{},
		&models.BorrowTransaction{}, &models.TransitionLog{},
	); err != nil {
		return err
	}

	// admin history and "my borrows" both read newest first
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_user_created_desc
	  ON %s (user_id, created_at DESC);
	`, models.BorrowTable, models.BorrowTable)).Error; err != nil {
		return err
	}

	// outstanding loans feed the equipment overview
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_open
	  ON %s (status)
	  WHERE status = 'borrowed';
	`, models.BorrowTable, models.BorrowTable)).Error; err != nil {
		return err
	}

	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_active_room_start
	  ON %s (room_id, start_at)
	  WHERE cancelled_at IS NULL;
	`, models.RoomBookingTable, models.RoomBookingTable)).Error; err != nil {
		return err
	}

	return nil
}
