// Package storage defines the persistence contracts of the filmrate backend.
//
// Every entity family has one interface. Two implementations exist:
// memory (maps guarded by a lock per family) and gormstore (PostgreSQL via gorm).
package storage

import (
	"context"

	"filmrate/backend/internal/models"
	"filmrate/backend/internal/relation"
)

// Users is the contract of the user family, including the relationship edges users own.
type Users interface {
	// CreateUser assigns the next id. Login and email must be unused.
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	// UpdateUser replaces every field of an existing user.
	UpdateUser(ctx context.Context, user *models.User) (*models.User, error)
	UserByID(ctx context.Context, id uint) (*models.User, error)
	// Users returns all users ordered by id.
	Users(ctx context.Context) ([]models.User, error)
	// DeleteUser removes the user, its relationship edges in both directions and its likes.
	DeleteUser(ctx context.Context, id uint) error
	// DeleteUsers clears the family and resets its sequence.
	DeleteUsers(ctx context.Context) error

	// RequestFriendship applies relation.Request to the (from, to) pair atomically
	// and returns the new pair seen from "from".
	RequestFriendship(ctx context.Context, from, to uint) (relation.Pair, error)
	// RemoveFriendship applies relation.Remove to the (from, to) pair atomically.
	RemoveFriendship(ctx context.Context, from, to uint) (relation.Pair, error)
	// Relations returns the outgoing edges of a user ordered by target id.
	Relations(ctx context.Context, id uint) ([]models.UserRelation, error)
	// Friends returns users the given user holds a FRIENDSHIP edge to, ordered by id.
	Friends(ctx context.Context, id uint) ([]models.User, error)
}

// PopularFilter narrows the popular films query.
type PopularFilter struct {
	Count   int
	GenreID uint
	Year    int
}

// Films is the contract of the film family and its likes.
type Films interface {
	// CreateFilm assigns the next id. Referenced mpa, genres and directors must exist.
	CreateFilm(ctx context.Context, film *models.Film) (*models.Film, error)
	// UpdateFilm replaces fields and references of an existing film. Likes are kept.
	UpdateFilm(ctx context.Context, film *models.Film) (*models.Film, error)
	FilmByID(ctx context.Context, id uint) (*models.Film, error)
	// Films returns all films ordered by id with likes and references loaded.
	Films(ctx context.Context) ([]models.Film, error)
	DeleteFilm(ctx context.Context, id uint) error
	// DeleteFilms clears the family and resets its sequence.
	DeleteFilms(ctx context.Context) error

	// AddLike records a like; an existing like is a conflict.
	AddLike(ctx context.Context, filmID, userID uint, mark int) error
	RemoveLike(ctx context.Context, filmID, userID uint) error
	// Popular ranks films by like count desc, id asc.
	Popular(ctx context.Context, filter PopularFilter) ([]models.Film, error)
}

// References is the contract of the simple catalog families (genres, mpa, directors).
type References[T any] interface {
	Create(ctx context.Context, ref *T) (*T, error)
	Update(ctx context.Context, ref *T) (*T, error)
	ByID(ctx context.Context, id uint) (*T, error)
	List(ctx context.Context) ([]T, error)
	// Delete removes the entity and detaches it from films.
	Delete(ctx context.Context, id uint) error
	// DeleteAll clears the family and resets its sequence.
	DeleteAll(ctx context.Context) error
}

// Storage bundles every family of one backend.
type Storage interface {
	Users() Users
	Films() Films
	Genres() References[models.Genre]
	Mpa() References[models.Mpa]
	Directors() References[models.Director]
	Close() error
}
