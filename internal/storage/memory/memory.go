// Package memory is the in-process storage backend.
//
// Each entity family is guarded by its own RWMutex covering the primary map, the
// uniqueness indexes and the sequence. Operations spanning families take locks in
// the fixed order users → films → genres → mpa → directors.
package memory

import (
	"filmrate/backend/internal/models"
	"filmrate/backend/internal/storage"
)

// Storage is the in-memory implementation of storage.Storage.
type Storage struct {
	users     *userStore
	films     *filmStore
	genres    *refStore[models.Genre, *models.Genre]
	mpa       *refStore[models.Mpa, *models.Mpa]
	directors *refStore[models.Director, *models.Director]
}

var _ storage.Storage = (*Storage)(nil)

// New creates an empty in-memory storage.
func New() *Storage {
	s := &Storage{}

	s.films = &filmStore{films: make(map[uint]*models.Film), keys: uniqueIndex{}}
	s.users = &userStore{
		users:     make(map[uint]models.User),
		logins:    uniqueIndex{},
		emails:    uniqueIndex{},
		relations: make(map[uint]map[uint]models.FriendshipStatus),
		films:     s.films,
	}

	s.genres = newRefStore[models.Genre]("genre", s.films, func(f *models.Film, id uint) {
		f.Genres = withoutRef(f.Genres, id)
	})
	s.mpa = newRefStore[models.Mpa]("mpa", s.films, func(f *models.Film, id uint) {
		if f.MpaID != nil && *f.MpaID == id {
			f.MpaID = nil
		}
	})
	s.directors = newRefStore[models.Director]("director", s.films, func(f *models.Film, id uint) {
		f.Directors = withoutRef(f.Directors, id)
	})

	s.films.users = s.users
	s.films.genres = s.genres
	s.films.mpa = s.mpa
	s.films.directors = s.directors

	return s
}

func (s *Storage) Users() storage.Users                            { return s.users }
func (s *Storage) Films() storage.Films                            { return s.films }
func (s *Storage) Genres() storage.References[models.Genre]        { return s.genres }
func (s *Storage) Mpa() storage.References[models.Mpa]             { return s.mpa }
func (s *Storage) Directors() storage.References[models.Director] { return s.directors }

// Close is a no-op for the in-memory backend.
func (s *Storage) Close() error { return nil }

// sequence hands out ids of one family. It is guarded by the family lock.
type sequence struct {
	last uint
}

func (s *sequence) next() uint {
	s.last++
	return s.last
}

func (s *sequence) reset() {
	s.last = 0
}

// uniqueIndex maps a unique value to the id that owns it.
type uniqueIndex map[string]uint

// free reports whether value is unused or owned by excluding.
func (ix uniqueIndex) free(value string, excluding uint) bool {
	owner, ok := ix[value]
	return !ok || owner == excluding
}

func (ix uniqueIndex) put(value string, id uint) {
	ix[value] = id
}

// drop removes value only if id still owns it.
func (ix uniqueIndex) drop(value string, id uint) {
	if ix[value] == id {
		delete(ix, value)
	}
}

func (ix uniqueIndex) clear() {
	for k := range ix {
		delete(ix, k)
	}
}
