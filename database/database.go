// File: /database/database.go
package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"inkpost-api/models"
	"inkpost-api/utils"
)

// Initialize opens the relational store for driver ("mysql", "postgres" or "sqlite").
func Initialize(driver, databaseURL, logLevel string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(databaseURL)
	case "postgres":
		dialector = postgres.Open(databaseURL)
	case "sqlite":
		dialector = sqlite.Open(databaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(logLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite" {
		// A sqlite :memory: database lives inside a single connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sqlite pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)

		// sqlite ignores foreign keys, and with them ON DELETE CASCADE, unless asked per connection.
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("failed to enable sqlite foreign keys: %w", err)
		}
	}

	return db, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// RegisterJoinTables tells gorm to use the timestamped post_tag model for both sides of the
// post/tag relation. Migrate calls it; callers that skip migration must call it themselves.
func RegisterJoinTables(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Post{}, "Tags", &models.PostTag{}); err != nil {
		return fmt.Errorf("failed to set up post_tag join table: %w", err)
	}
	if err := db.SetupJoinTable(&models.Tag{}, "Posts", &models.PostTag{}); err != nil {
		return fmt.Errorf("failed to set up post_tag join table: %w", err)
	}
	return nil
}

func Migrate(db *gorm.DB) error {
	if err := RegisterJoinTables(db); err != nil {
		return err
	}

	// Auto migrate all models
	err := db.AutoMigrate(
		&models.User{},
		&models.PersonalAccessToken{},
		&models.Tag{},
		&models.Post{},
		&models.PostTag{},
		&models.PostLike{},
		&models.PostSave{},
		&models.Comment{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	addCustomIndexes(db)
	return nil
}

func addCustomIndexes(db *gorm.DB) {
	// Feed and per-user listings
	indexes := []struct {
		name, table, columns string
	}{
		{"idx_posts_created", "posts", "created_at"},
		{"idx_comments_post_created", "comments", "post_id, created_at"},
		{"idx_post_user_user_created", "post_user", "user_id, created_at"},
		{"idx_post_user_likes_user_created", "post_user_likes", "user_id, created_at"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			continue
		}
		stmt := fmt.Sprintf("CREATE INDEX %s ON %s(%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(stmt).Error; err != nil {
			utils.Logger.Warn("could not create index", "index", idx.name, "error", err)
		}
	}
}
