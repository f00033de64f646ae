// Package service holds the business rules of the filmrate backend: input
// validation, existence checks, the friendship workflow, likes and rankings.
//
// A Service keeps no per-request state and is safe for concurrent use as long as
// the storage it wraps is.
package service

import (
	"context"
	"log/slog"
	"time"

	"filmrate/backend/internal/hub"
	"filmrate/backend/internal/models"
	"filmrate/backend/internal/storage"
	"filmrate/backend/pkg/logctx"

	"github.com/go-playground/validator/v10"
)

// PopularCache caches ranked film lists. Implementations must be safe for concurrent use.
type PopularCache interface {
	// Get also reports the cache version it looked at. Set must be given that version.
	Get(ctx context.Context, f storage.PopularFilter) (films []models.Film, version int64, ok bool, err error)
	Set(ctx context.Context, f storage.PopularFilter, version int64, films []models.Film) error
	Invalidate(ctx context.Context) error
}

// Service implements every operation exposed by the API.
type Service struct {
	storage  storage.Storage
	hub      *hub.Hub
	cache    PopularCache // nil when no cache is configured
	validate *validator.Validate
	now      func() time.Time

	genres    *Catalog[models.Genre, *models.Genre]
	mpa       *Catalog[models.Mpa, *models.Mpa]
	directors *Catalog[models.Director, *models.Director]
}

// New creates a Service. h may be nil, then no events are published.
func New(st storage.Storage, h *hub.Hub) *Service {
	s := &Service{
		storage: st,
		hub:     h,
		now:     time.Now,
	}
	s.validate = newValidator(func() time.Time { return s.now() })
	s.genres = newCatalog(s, st.Genres(), "genre")
	s.mpa = newCatalog(s, st.Mpa(), "mpa")
	s.directors = newCatalog(s, st.Directors(), "director")
	return s
}

// SetPopularCache enables caching of popular film lists.
func (s *Service) SetPopularCache(c PopularCache) {
	s.cache = c
}

func (s *Service) Genres() *Catalog[models.Genre, *models.Genre]          { return s.genres }
func (s *Service) Mpa() *Catalog[models.Mpa, *models.Mpa]                  { return s.mpa }
func (s *Service) Directors() *Catalog[models.Director, *models.Director] { return s.directors }

// publish sends an event to users. Failures are logged only.
func (s *Service) publish(ctx context.Context, event hub.Event, userIDs ...uint) {
	if s.hub == nil {
		return
	}
	if err := s.hub.Publish(event, userIDs...); err != nil {
		logctx.From(ctx).Warn("publish event", slog.String("type", event.Type), slog.String("err", err.Error()))
	}
}

// invalidatePopular drops cached rankings after a change that can affect them.
func (s *Service) invalidatePopular(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		logctx.From(ctx).Warn("invalidate popular cache", slog.String("err", err.Error()))
	}
}

// FriendEvent is the payload of relationship events.
type FriendEvent struct {
	UserID   uint                    `json:"user_id"`
	FriendID uint                    `json:"friend_id"`
	Status   models.FriendshipStatus `json:"status"`
}

// LikeEvent is the payload of like events.
type LikeEvent struct {
	FilmID uint `json:"film_id"`
	UserID uint `json:"user_id"`
	Mark   int  `json:"mark,omitempty"`
}
