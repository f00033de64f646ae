// Package gormstore is the relational storage backend on PostgreSQL via gorm.
//
// Every mutation runs in one transaction so check-then-write sequences (uniqueness,
// existence, relationship transitions) are atomic against concurrent requests.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"filmrate/backend/internal/models"
	"filmrate/backend/internal/storage"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Storage is the gorm implementation of storage.Storage.
type Storage struct {
	db        *gorm.DB
	users     *userStore
	films     *filmStore
	genres    *refStore[models.Genre, *models.Genre]
	mpa       *refStore[models.Mpa, *models.Mpa]
	directors *refStore[models.Director, *models.Director]
}

var _ storage.Storage = (*Storage)(nil)

// New wraps an already migrated database.
func New(db *gorm.DB) *Storage {
	return &Storage{
		db:        db,
		users:     &userStore{db: db},
		films:     &filmStore{db: db},
		genres:    &refStore[models.Genre, *models.Genre]{db: db, entity: "genre", table: "genres"},
		mpa:       &refStore[models.Mpa, *models.Mpa]{db: db, entity: "mpa", table: "mpa"},
		directors: &refStore[models.Director, *models.Director]{db: db, entity: "director", table: "directors"},
	}
}

func (s *Storage) Users() storage.Users                            { return s.users }
func (s *Storage) Films() storage.Films                            { return s.films }
func (s *Storage) Genres() storage.References[models.Genre]        { return s.genres }
func (s *Storage) Mpa() storage.References[models.Mpa]             { return s.mpa }
func (s *Storage) Directors() storage.References[models.Director] { return s.directors }

// Close closes the underlying connection pool.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps database errors onto the storage taxonomy. entity/key describe
// what a constraint violation is about.
func translate(err error, entity string, key any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.NotFound(entity, key)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return storage.Exists(entity, key)
		case "23503": // foreign_key_violation
			return &storage.EntityError{Entity: entity, Key: key, Err: fmt.Errorf("%w: %s", storage.ErrNotFound, pgErr.ConstraintName)}
		}
	}
	return err
}

// taken reports whether column=value is used by a row other than excluding.
func taken(tx *gorm.DB, model any, column string, value any, excluding uint) (bool, error) {
	var n int64
	err := tx.Model(model).Where(column+" = ? AND id <> ?", value, excluding).Count(&n).Error
	return n > 0, err
}

// mustExist returns storage.ErrNotFound unless a row with id exists.
func mustExist(tx *gorm.DB, model any, entity string, id uint) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return storage.NotFound(entity, id)
	}
	return nil
}

// resetSequence restarts the id sequence of table so the next insert gets id 1.
func resetSequence(tx *gorm.DB, table string) error {
	return tx.Exec("SELECT setval(pg_get_serial_sequence(?, 'id'), 1, false)", table).Error
}

// clearTable deletes every row of table and restarts its id sequence.
func clearTable(ctx context.Context, db *gorm.DB, table string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
		return resetSequence(tx, table)
	})
}
