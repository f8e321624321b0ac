package database

import (
	"fmt"
	"os"

	"valet-backend/models"
)

// AutoMigrate applies (idempotent) schema migrations:
// - AutoMigrate (tables/columns/index tags)
// - composite index on the request event log
func AutoMigrate() error {
	if err := DB.AutoMigrate(
		&models.User{},
		&models.ParkingRequest{},
		&models.RequestEvent{},
		&models.DriverApplication{},
		&models.UserVehicle{},
		&models.IdempotencyKey{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_parking_requests_user_status ON parking_requests (user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_driver_applications_status ON driver_applications (status)`,
	}
	for _, stmt := range indexes {
		if err := DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
		}
	}
	return nil
}

// Seed creates the demo admin account when it does not exist yet.
// Credentials follow the long-standing demo fallback (admin@test.com/admin)
// and can be overridden via ADMIN_EMAIL / ADMIN_PASSWORD.
func Seed() error {
	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@test.com"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin"
	}

	var count int64
	if err := DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	admin := models.User{
		Name:  "Admin",
		Email: email,
		Role:  models.RoleAdmin,
	}
	admin.SetPassword(password)
	return DB.Create(&admin).Error
}
