package storage

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"coolwatch-server-go/internal/models"
	"coolwatch-server-go/internal/platform/errors"
	"coolwatch-server-go/internal/platform/logging"
)

// Open connects to the sqlite database and runs schema migration.
func Open(path string, logger *logging.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "db.open", "failed to open database", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Device{},
		&models.SensorData{},
		&models.Alert{},
		&models.Activity{},
	); err != nil {
		return nil, errors.Wrap(errors.KindStorage, "db.migrate", "schema migration failed", err)
	}

	if logger != nil {
		logger.InfoTag("Storage", "database ready at %s", path)
	}
	return db, nil
}

// SeedAdminUser creates the initial admin account when no admin exists yet.
// The password must be rotated after first login.
func SeedAdminUser(db *gorm.DB, logger *logging.Logger) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "seed.admin", "admin lookup failed", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(errors.KindStorage, "seed.admin", "password hash failed", err)
	}

	admin := &models.User{
		Username:  "admin",
		Email:     "admin@coolwatch.local",
		Password:  string(hash),
		Role:      models.RoleAdmin,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(admin).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "seed.admin", "admin create failed", err)
	}

	if logger != nil {
		logger.WarnTag("Storage", "seeded default admin account (admin/admin123), change the password")
	}
	return nil
}
