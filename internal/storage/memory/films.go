package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"filmrate/backend/internal/models"
	"filmrate/backend/internal/ranking"
	"filmrate/backend/internal/storage"
)

// filmStore keeps films with references reduced to ids; names are resolved on read
// so that renaming a genre, rating or director is visible on every film.
type filmStore struct {
	mu    sync.RWMutex
	seq   sequence
	films map[uint]*models.Film
	keys  uniqueIndex

	users     *userStore
	genres    *refStore[models.Genre, *models.Genre]
	mpa       *refStore[models.Mpa, *models.Mpa]
	directors *refStore[models.Director, *models.Director]
}

func naturalKey(f *models.Film) string {
	return fmt.Sprintf("%s|%s|%d", f.Name, f.ReleaseDate, f.Duration)
}

// rlockRefs read-locks the reference families in lock order. Callers hold s.mu.
func (s *filmStore) rlockRefs() (unlock func()) {
	s.genres.mu.RLock()
	s.mpa.mu.RLock()
	s.directors.mu.RLock()
	return func() {
		s.directors.mu.RUnlock()
		s.mpa.mu.RUnlock()
		s.genres.mu.RUnlock()
	}
}

// normalize validates references and strips them down to sorted unique ids.
// Callers hold s.mu and the reference read locks.
func (s *filmStore) normalize(f *models.Film) (*models.Film, error) {
	out := f.Clone()
	out.Mpa = nil
	if f.Mpa != nil && out.MpaID == nil {
		id := f.Mpa.ID
		out.MpaID = &id
	}
	if out.MpaID != nil {
		if _, ok := s.mpa.items[*out.MpaID]; !ok {
			return nil, storage.NotFound("mpa", *out.MpaID)
		}
	}

	genres, err := refIDs(s.genres, f.Genres)
	if err != nil {
		return nil, err
	}
	out.Genres = genres

	directors, err := refIDs(s.directors, f.Directors)
	if err != nil {
		return nil, err
	}
	out.Directors = directors

	return out, nil
}

func refIDs[T any, PT models.RefPtr[T]](store *refStore[T, PT], refs []*T) ([]*T, error) {
	seen := make(map[uint]bool, len(refs))
	out := make([]*T, 0, len(refs))
	for _, r := range refs {
		id := PT(r).Ref().ID
		if seen[id] {
			continue
		}
		if _, ok := store.items[id]; !ok {
			return nil, storage.NotFound(store.entity, id)
		}
		seen[id] = true
		var ref T
		PT(&ref).Ref().ID = id
		out = append(out, &ref)
	}
	slices.SortFunc(out, func(a, b *T) int { return cmp.Compare(PT(a).Ref().ID, PT(b).Ref().ID) })
	return out, nil
}

// hydrate returns a detached copy of f with reference names filled in.
// Callers hold s.mu and the reference read locks.
func (s *filmStore) hydrate(f *models.Film) models.Film {
	out := f.Clone()
	if out.MpaID != nil {
		m := s.mpa.items[*out.MpaID]
		out.Mpa = &m
	}
	for _, g := range out.Genres {
		*g = s.genres.items[g.ID]
	}
	for _, d := range out.Directors {
		*d = s.directors.items[d.ID]
	}
	return *out
}

func (s *filmStore) CreateFilm(_ context.Context, film *models.Film) (*models.Film, error) {
	const op = "storage/memory/films/CreateFilm"

	s.mu.Lock()
	defer s.mu.Unlock()
	unlock := s.rlockRefs()
	defer unlock()

	f, err := s.normalize(film)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	f.ID = 0
	key := naturalKey(f)
	if !s.keys.free(key, 0) {
		return nil, fmt.Errorf("%s: %w", op, storage.Exists("film", key))
	}

	f.ID = s.seq.next()
	f.Likes = make(map[uint]int)
	s.films[f.ID] = f
	s.keys.put(key, f.ID)

	created := s.hydrate(f)
	return &created, nil
}

func (s *filmStore) UpdateFilm(_ context.Context, film *models.Film) (*models.Film, error) {
	const op = "storage/memory/films/UpdateFilm"

	s.mu.Lock()
	defer s.mu.Unlock()
	unlock := s.rlockRefs()
	defer unlock()

	old, ok := s.films[film.ID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.NotFound("film", film.ID))
	}

	f, err := s.normalize(film)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	key := naturalKey(f)
	if !s.keys.free(key, f.ID) {
		return nil, fmt.Errorf("%s: %w", op, storage.Exists("film", key))
	}

	f.Likes = old.Likes
	s.keys.drop(naturalKey(old), old.ID)
	s.films[f.ID] = f
	s.keys.put(key, f.ID)

	updated := s.hydrate(f)
	return &updated, nil
}

func (s *filmStore) FilmByID(_ context.Context, id uint) (*models.Film, error) {
	const op = "storage/memory/films/FilmByID"

	s.mu.RLock()
	defer s.mu.RUnlock()
	unlock := s.rlockRefs()
	defer unlock()

	f, ok := s.films[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.NotFound("film", id))
	}
	film := s.hydrate(f)
	return &film, nil
}

func (s *filmStore) Films(_ context.Context) ([]models.Film, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unlock := s.rlockRefs()
	defer unlock()

	return s.collect(func(*models.Film) bool { return true }), nil
}

// collect hydrates the films accepted by keep, ordered by id.
func (s *filmStore) collect(keep func(*models.Film) bool) []models.Film {
	films := make([]models.Film, 0, len(s.films))
	for _, f := range s.films {
		if keep(f) {
			films = append(films, s.hydrate(f))
		}
	}
	slices.SortFunc(films, func(a, b models.Film) int { return cmp.Compare(a.ID, b.ID) })
	return films
}

func (s *filmStore) DeleteFilm(_ context.Context, id uint) error {
	const op = "storage/memory/films/DeleteFilm"

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.films[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.NotFound("film", id))
	}
	delete(s.films, id)
	s.keys.drop(naturalKey(f), id)

	return nil
}

func (s *filmStore) DeleteFilms(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.films)
	s.keys.clear()
	s.seq.reset()

	return nil
}

// lockForLike takes the user read lock and the film write lock in lock order.
func (s *filmStore) lockForLike(op string, filmID, userID uint) (*models.Film, func(), error) {
	s.users.mu.RLock()
	s.mu.Lock()
	unlock := func() {
		s.mu.Unlock()
		s.users.mu.RUnlock()
	}

	f, ok := s.films[filmID]
	if !ok {
		unlock()
		return nil, nil, fmt.Errorf("%s: %w", op, storage.NotFound("film", filmID))
	}
	if _, ok := s.users.users[userID]; !ok {
		unlock()
		return nil, nil, fmt.Errorf("%s: %w", op, storage.NotFound("user", userID))
	}
	return f, unlock, nil
}

func (s *filmStore) AddLike(_ context.Context, filmID, userID uint, mark int) error {
	const op = "storage/memory/films/AddLike"

	f, unlock, err := s.lockForLike(op, filmID, userID)
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := f.Likes[userID]; ok {
		return fmt.Errorf("%s: %w", op, storage.Exists("like", fmt.Sprintf("film %d user %d", filmID, userID)))
	}
	f.Likes[userID] = mark

	return nil
}

func (s *filmStore) RemoveLike(_ context.Context, filmID, userID uint) error {
	const op = "storage/memory/films/RemoveLike"

	f, unlock, err := s.lockForLike(op, filmID, userID)
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := f.Likes[userID]; !ok {
		return fmt.Errorf("%s: %w", op, storage.NotFound("like", fmt.Sprintf("film %d user %d", filmID, userID)))
	}
	delete(f.Likes, userID)

	return nil
}

func (s *filmStore) Popular(_ context.Context, filter storage.PopularFilter) ([]models.Film, error) {
	const op = "storage/memory/films/Popular"

	s.mu.RLock()
	defer s.mu.RUnlock()
	unlock := s.rlockRefs()
	defer unlock()

	films := s.collect(func(f *models.Film) bool {
		if filter.Year != 0 && f.ReleaseDate.Year() != filter.Year {
			return false
		}
		if filter.GenreID != 0 && !slices.ContainsFunc(f.Genres, func(g *models.Genre) bool { return g.ID == filter.GenreID }) {
			return false
		}
		return true
	})

	top, err := ranking.Top(films, filter.Count)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return top, nil
}
