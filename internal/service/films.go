package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"

	"filmrate/backend/internal/hub"
	"filmrate/backend/internal/models"
	"filmrate/backend/internal/ranking"
	"filmrate/backend/internal/storage"
	"filmrate/backend/pkg/logctx"
)

// Mark bounds. 0 is a plain like without a mark.
const (
	MinMark = 1
	MaxMark = 10
)

// Director film orderings.
const (
	SortByYear  = "year"
	SortByLikes = "likes"
)

// Search targets.
const (
	SearchByTitle    = "title"
	SearchByDirector = "director"
)

func (s *Service) CreateFilm(ctx context.Context, f *models.Film) (*models.Film, error) {
	const op = "service.CreateFilm"

	if f.ID != 0 {
		return nil, fail(ctx, op, conflictf("id must not be set when creating a film"))
	}
	if err := s.check(f); err != nil {
		return nil, fail(ctx, op, err)
	}

	created, err := s.storage.Films().CreateFilm(ctx, f)
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	s.invalidatePopular(ctx)
	return created, nil
}

func (s *Service) UpdateFilm(ctx context.Context, f *models.Film) (*models.Film, error) {
	const op = "service.UpdateFilm"

	if err := s.check(f); err != nil {
		return nil, fail(ctx, op, err)
	}

	updated, err := s.storage.Films().UpdateFilm(ctx, f)
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	s.invalidatePopular(ctx)
	return updated, nil
}

func (s *Service) Film(ctx context.Context, id uint) (*models.Film, error) {
	const op = "service.Film"

	film, err := s.storage.Films().FilmByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	return film, nil
}

func (s *Service) Films(ctx context.Context) ([]models.Film, error) {
	const op = "service.Films"

	films, err := s.storage.Films().Films(ctx)
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	return films, nil
}

func (s *Service) DeleteFilm(ctx context.Context, id uint) error {
	const op = "service.DeleteFilm"

	if err := s.storage.Films().DeleteFilm(ctx, id); err != nil {
		return fail(ctx, op, err)
	}
	s.invalidatePopular(ctx)
	return nil
}

func (s *Service) DeleteFilms(ctx context.Context) error {
	const op = "service.DeleteFilms"

	if err := s.storage.Films().DeleteFilms(ctx); err != nil {
		return fail(ctx, op, err)
	}
	s.invalidatePopular(ctx)
	return nil
}

// likeAudience is the user plus their friends; the friends lookup is best effort.
func (s *Service) likeAudience(ctx context.Context, userID uint) []uint {
	ids := []uint{userID}
	friends, err := s.storage.Users().Friends(ctx, userID)
	if err != nil {
		logctx.From(ctx).Warn("load like audience", slog.String("err", err.Error()))
		return ids
	}
	for _, f := range friends {
		ids = append(ids, f.ID)
	}
	return ids
}

// AddLike records userID's like on filmID. mark is 0 for a plain like, otherwise 1..10.
func (s *Service) AddLike(ctx context.Context, filmID, userID uint, mark int) error {
	const op = "service.AddLike"

	if mark != 0 && (mark < MinMark || mark > MaxMark) {
		return fail(ctx, op, validationf("mark must be between %d and %d", MinMark, MaxMark))
	}
	if err := s.storage.Films().AddLike(ctx, filmID, userID, mark); err != nil {
		return fail(ctx, op, err)
	}

	s.invalidatePopular(ctx)
	s.publish(ctx, hub.Event{Type: hub.EventLikeAdded, Payload: LikeEvent{FilmID: filmID, UserID: userID, Mark: mark}}, s.likeAudience(ctx, userID)...)
	return nil
}

func (s *Service) RemoveLike(ctx context.Context, filmID, userID uint) error {
	const op = "service.RemoveLike"

	if err := s.storage.Films().RemoveLike(ctx, filmID, userID); err != nil {
		return fail(ctx, op, err)
	}

	s.invalidatePopular(ctx)
	s.publish(ctx, hub.Event{Type: hub.EventLikeRemoved, Payload: LikeEvent{FilmID: filmID, UserID: userID}}, s.likeAudience(ctx, userID)...)
	return nil
}

// Popular returns the top filter.Count films, served from the cache when possible.
func (s *Service) Popular(ctx context.Context, filter storage.PopularFilter) ([]models.Film, error) {
	const op = "service.Popular"

	if filter.Count <= 0 {
		return nil, fail(ctx, op, validationf("count must be positive"))
	}

	log := logctx.From(ctx).With(slog.String("op", op))
	var (
		version   int64
		cacheable bool
	)
	if s.cache != nil {
		cached, v, ok, err := s.cache.Get(ctx, filter)
		switch {
		case err != nil:
			log.Warn("popular cache get", slog.String("err", err.Error()))
		case ok:
			return cached, nil
		default:
			version, cacheable = v, true
		}
	}

	films, err := s.storage.Films().Popular(ctx, filter)
	if err != nil {
		return nil, fail(ctx, op, err)
	}

	// The version was read before storage, so a like committed in between
	// leaves this list under a key Invalidate already orphaned.
	if cacheable {
		if err := s.cache.Set(ctx, filter, version, films); err != nil {
			log.Warn("popular cache set", slog.String("err", err.Error()))
		}
	}
	return films, nil
}

// DirectorFilms returns the films of a director ordered by release date or by popularity.
func (s *Service) DirectorFilms(ctx context.Context, directorID uint, sortBy string) ([]models.Film, error) {
	const op = "service.DirectorFilms"

	if sortBy != SortByYear && sortBy != SortByLikes {
		return nil, fail(ctx, op, validationf("sort_by must be %q or %q", SortByYear, SortByLikes))
	}
	if _, err := s.storage.Directors().ByID(ctx, directorID); err != nil {
		return nil, fail(ctx, op, err)
	}

	all, err := s.storage.Films().Films(ctx)
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	films := slices.DeleteFunc(all, func(f models.Film) bool {
		return !slices.ContainsFunc(f.Directors, func(d *models.Director) bool { return d.ID == directorID })
	})

	if sortBy == SortByLikes {
		ranking.Sort(films)
	} else {
		slices.SortStableFunc(films, func(a, b models.Film) int {
			if c := a.ReleaseDate.Compare(b.ReleaseDate.Time); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
	}
	return films, nil
}

// CommonFilms returns the films both users liked, most popular first.
func (s *Service) CommonFilms(ctx context.Context, userID, friendID uint) ([]models.Film, error) {
	const op = "service.CommonFilms"

	for _, id := range []uint{userID, friendID} {
		if _, err := s.storage.Users().UserByID(ctx, id); err != nil {
			return nil, fail(ctx, op, err)
		}
	}

	all, err := s.storage.Films().Films(ctx)
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	films := slices.DeleteFunc(all, func(f models.Film) bool {
		_, a := f.Likes[userID]
		_, b := f.Likes[friendID]
		return !(a && b)
	})
	ranking.Sort(films)
	return films, nil
}

// SearchFilms matches query case-insensitively against film titles and/or director names.
// An empty by searches titles.
func (s *Service) SearchFilms(ctx context.Context, query string, by []string) ([]models.Film, error) {
	const op = "service.SearchFilms"

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, fail(ctx, op, validationf("query must not be blank"))
	}
	var byTitle, byDirector bool
	if len(by) == 0 {
		byTitle = true
	}
	for _, b := range by {
		switch strings.TrimSpace(b) {
		case SearchByTitle:
			byTitle = true
		case SearchByDirector:
			byDirector = true
		default:
			return nil, fail(ctx, op, validationf("by must be a list of %q and %q", SearchByTitle, SearchByDirector))
		}
	}

	all, err := s.storage.Films().Films(ctx)
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	films := slices.DeleteFunc(all, func(f models.Film) bool {
		if byTitle && strings.Contains(strings.ToLower(f.Name), query) {
			return false
		}
		if byDirector && slices.ContainsFunc(f.Directors, func(d *models.Director) bool {
			return strings.Contains(strings.ToLower(d.Name), query)
		}) {
			return false
		}
		return true
	})
	ranking.Sort(films)
	return films, nil
}

// Recommendations finds the users whose likes overlap most with the user's and
// returns the films they liked that the user has not, most popular first.
func (s *Service) Recommendations(ctx context.Context, userID uint) ([]models.Film, error) {
	const op = "service.Recommendations"

	if _, err := s.storage.Users().UserByID(ctx, userID); err != nil {
		return nil, fail(ctx, op, err)
	}
	films, err := s.storage.Films().Films(ctx)
	if err != nil {
		return nil, fail(ctx, op, err)
	}

	overlap := make(map[uint]int)
	for _, f := range films {
		if _, ok := f.Likes[userID]; !ok {
			continue
		}
		for other := range f.Likes {
			if other != userID {
				overlap[other]++
			}
		}
	}

	best := 0
	for _, n := range overlap {
		best = max(best, n)
	}
	recommended := make([]models.Film, 0)
	if best == 0 {
		return recommended, nil
	}

	for _, f := range films {
		if _, ok := f.Likes[userID]; ok {
			continue
		}
		for other := range f.Likes {
			if overlap[other] == best {
				recommended = append(recommended, f)
				break
			}
		}
	}
	ranking.Sort(recommended)
	return recommended, nil
}
