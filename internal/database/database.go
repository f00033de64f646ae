package database

import (
	"fmt"
	"log/slog"
	"time"

	"filmrate/backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the PostgreSQL connection. gorm logs through the given slog logger.
func Connect(dsn string, log *slog.Logger) (*gorm.DB, error) {
	const op = "database/Connect"

	gormLogger := logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond, // Slow SQL threshold
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("database connection established")
	return db, nil
}

// Migrate creates or updates every table of the schema.
func Migrate(db *gorm.DB) error {
	const op = "database/Migrate"

	// Join tables carry their own models so that their foreign keys cascade.
	if err := db.SetupJoinTable(&models.Film{}, "Genres", &models.FilmGenre{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := db.SetupJoinTable(&models.Film{}, "Directors", &models.FilmDirector{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := db.AutoMigrate(
		&models.User{},
		&models.UserRelation{},
		&models.Genre{},
		&models.Mpa{},
		&models.Director{},
		&models.Film{},
		&models.FilmGenre{},
		&models.FilmDirector{},
		&models.FilmLike{},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
