package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"filmrate/backend/internal/hub"
	"filmrate/backend/internal/models"
	"filmrate/backend/internal/relation"
	"filmrate/backend/internal/storage"
	"filmrate/backend/internal/storage/memory"

	"github.com/stretchr/testify/require"
)

type cacheKey struct {
	version int64
	filter  storage.PopularFilter
}

type fakeCache struct {
	version     int64
	lists       map[cacheKey][]models.Film
	gets, sets  int
	invalidated int
	onMiss      func()
}

func newFakeCache() *fakeCache {
	return &fakeCache{lists: make(map[cacheKey][]models.Film)}
}

func (c *fakeCache) Get(_ context.Context, f storage.PopularFilter) ([]models.Film, int64, bool, error) {
	c.gets++
	v := c.version
	films, ok := c.lists[cacheKey{v, f}]
	if !ok && c.onMiss != nil {
		c.onMiss()
	}
	return films, v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, f storage.PopularFilter, version int64, films []models.Film) error {
	c.sets++
	c.lists[cacheKey{version, f}] = films
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.invalidated++
	c.version++
	return nil
}

var today = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *hub.Hub) {
	t.Helper()
	h := hub.New()
	s := New(memory.New(), h)
	s.now = func() time.Time { return today }
	return s, h
}

func mustUser(t *testing.T, s *Service, login string) *models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), &models.User{Login: login, Email: login + "@mail.com"})
	require.NoError(t, err)
	return u
}

func mustFilm(t *testing.T, s *Service, f models.Film) *models.Film {
	t.Helper()
	if f.ReleaseDate.IsZero() {
		f.ReleaseDate = models.NewDate(2000, time.January, 1)
	}
	if f.Duration == 0 {
		f.Duration = 100
	}
	created, err := s.CreateFilm(context.Background(), &f)
	require.NoError(t, err)
	return created
}

func ids[T any](items []T, id func(T) uint) []uint {
	out := make([]uint, 0, len(items))
	for _, it := range items {
		out = append(out, id(it))
	}
	return out
}

func userIDs(users []models.User) []uint { return ids(users, func(u models.User) uint { return u.ID }) }
func filmIDs(films []models.Film) []uint { return ids(films, func(f models.Film) uint { return f.ID }) }

func TestCreateUser_Normalization(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, &models.User{Login: "john", Email: "  John@Mail.COM "})
	require.NoError(t, err)
	require.Equal(t, uint(1), u.ID)
	require.Equal(t, "john@mail.com", u.Email)
	require.Equal(t, "john", u.Name)
}

func TestCreateUser_Validation(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		user models.User
		msg  string
	}{
		{name: "bad email", user: models.User{Login: "a", Email: "not-an-email"}, msg: "email must be a valid email"},
		{name: "blank email", user: models.User{Login: "a", Email: "  "}, msg: "email must not be blank"},
		{name: "blank login", user: models.User{Email: "a@b.c"}, msg: "login must not be blank"},
		{name: "login with space", user: models.User{Login: "a b", Email: "a@b.c"}, msg: "login must not contain whitespace"},
		{name: "login too long", user: models.User{Login: strings.Repeat("l", 256), Email: "a@mail.com"}, msg: "login must be at most 255 characters"},
		{name: "name too long", user: models.User{Login: "a", Email: "a@mail.com", Name: strings.Repeat("n", 256)}, msg: "name must be at most 255 characters"},
		{name: "birthday tomorrow", user: models.User{Login: "a", Email: "a@b.c", Birthday: models.NewDate(2024, time.June, 16)}, msg: "birthday must not be in the future"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateUser(ctx, &tt.user)
			require.ErrorIs(t, err, ErrValidation)

			var e *Error
			require.ErrorAs(t, err, &e)
			require.Contains(t, e.Msg, tt.msg)
		})
	}

	_, err := s.CreateUser(ctx, &models.User{Login: "today", Email: "t@mail.com", Birthday: models.DateOf(today)})
	require.NoError(t, err)
}

func TestCreateUser_Conflicts(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, &models.User{ID: 5, Login: "a", Email: "a@b.c"})
	require.ErrorIs(t, err, ErrConflict)

	first := mustUser(t, s, "john")
	_, err = s.CreateUser(ctx, &models.User{Login: "john", Email: "other@mail.com"})
	require.ErrorIs(t, err, ErrConflict)
	_, err = s.CreateUser(ctx, &models.User{Login: "other", Email: "JOHN@mail.com"})
	require.ErrorIs(t, err, ErrConflict)

	require.NoError(t, s.DeleteUser(ctx, first.ID))
	mustUser(t, s, "john")
}

func TestUpdateUser_NotFound(t *testing.T) {
	s, _ := newService(t)
	_, err := s.UpdateUser(context.Background(), &models.User{ID: 42, Login: "x", Email: "x@mail.com"})
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFriendship_Scenario(t *testing.T) {
	s, h := newService(t)
	ctx := context.Background()
	john := mustUser(t, s, "john")
	paul := mustUser(t, s, "paul")

	paulEvents := make(hub.Client, 4)
	h.Subscribe(paul.ID, paulEvents)

	pair, err := s.RequestFriendship(ctx, john.ID, paul.ID)
	require.NoError(t, err)
	require.Equal(t, relation.Pair{Forward: models.StatusApplication, Backward: models.StatusSubscription}, pair)

	var event struct {
		Type    string      `json:"type"`
		Payload FriendEvent `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(<-paulEvents, &event))
	require.Equal(t, hub.EventFriendRequest, event.Type)
	require.Equal(t, john.ID, event.Payload.UserID)

	friends, err := s.Friends(ctx, john.ID)
	require.NoError(t, err)
	require.Empty(t, friends)

	_, err = s.RequestFriendship(ctx, john.ID, paul.ID)
	require.ErrorIs(t, err, ErrConflict)

	pair, err = s.RequestFriendship(ctx, paul.ID, john.ID)
	require.NoError(t, err)
	require.True(t, pair.IsMutual())

	require.NoError(t, json.Unmarshal(<-paulEvents, &event))
	require.Equal(t, hub.EventFriendship, event.Type)
	require.Equal(t, FriendEvent{UserID: john.ID, FriendID: paul.ID, Status: models.StatusFriendship}, event.Payload)

	friends, err = s.Friends(ctx, john.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{paul.ID}, userIDs(friends))

	_, err = s.RequestFriendship(ctx, john.ID, paul.ID)
	require.ErrorIs(t, err, relation.ErrAlreadyFriends)

	pair, err = s.RemoveFriendship(ctx, john.ID, paul.ID)
	require.NoError(t, err)
	require.Equal(t, relation.Pair{Forward: models.StatusNone, Backward: models.StatusSubscription}, pair)

	require.NoError(t, json.Unmarshal(<-paulEvents, &event))
	require.Equal(t, hub.EventFriendRemoved, event.Type)
	require.Equal(t, FriendEvent{UserID: john.ID, FriendID: paul.ID, Status: models.StatusSubscription}, event.Payload)

	rels, err := s.Relations(ctx, paul.ID)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	require.Equal(t, models.StatusSubscription, rels[0].Status)

	_, err = s.RemoveFriendship(ctx, john.ID, paul.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFriendship_Errors(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	john := mustUser(t, s, "john")

	_, err := s.RequestFriendship(ctx, john.ID, john.ID)
	require.ErrorIs(t, err, ErrValidation)

	_, err = s.RequestFriendship(ctx, john.ID, 99)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.Friends(ctx, 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCommonFriends_Symmetric(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	a, b, c, d := mustUser(t, s, "a"), mustUser(t, s, "b"), mustUser(t, s, "c"), mustUser(t, s, "d")

	befriend := func(x, y uint) {
		_, err := s.RequestFriendship(ctx, x, y)
		require.NoError(t, err)
		_, err = s.RequestFriendship(ctx, y, x)
		require.NoError(t, err)
	}
	befriend(a.ID, d.ID)
	befriend(a.ID, c.ID)
	befriend(b.ID, c.ID)
	befriend(b.ID, d.ID)

	ab, err := s.CommonFriends(ctx, a.ID, b.ID)
	require.NoError(t, err)
	ba, err := s.CommonFriends(ctx, b.ID, a.ID)
	require.NoError(t, err)

	require.Equal(t, []uint{c.ID, d.ID}, userIDs(ab))
	require.Equal(t, userIDs(ab), userIDs(ba))
}

func TestCreateFilm_Validation(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	valid := func() *models.Film {
		return &models.Film{Name: "Film", ReleaseDate: models.NewDate(1895, time.December, 29), Duration: 1}
	}

	_, err := s.CreateFilm(ctx, valid())
	require.NoError(t, err)

	f := valid()
	f.ReleaseDate = models.NewDate(1895, time.December, 28)
	_, err = s.CreateFilm(ctx, f)
	require.ErrorIs(t, err, ErrValidation)

	f = valid()
	f.Name = "   "
	_, err = s.CreateFilm(ctx, f)
	require.ErrorIs(t, err, ErrValidation)

	f = valid()
	f.Name = "Other"
	f.Duration = 0
	_, err = s.CreateFilm(ctx, f)
	require.ErrorIs(t, err, ErrValidation)

	f = valid()
	f.Name = "Long"
	f.Description = strings.Repeat("ж", 201)
	_, err = s.CreateFilm(ctx, f)
	require.ErrorIs(t, err, ErrValidation)

	f.Description = strings.Repeat("ж", 200)
	_, err = s.CreateFilm(ctx, f)
	require.NoError(t, err)

	f = valid()
	f.Name = strings.Repeat("n", 256)
	_, err = s.CreateFilm(ctx, f)
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorContains(t, err, "name must be at most 255 characters")

	f.Name = strings.Repeat("n", 255)
	_, err = s.CreateFilm(ctx, f)
	require.NoError(t, err)

	_, err = s.CreateFilm(ctx, valid())
	require.ErrorIs(t, err, ErrConflict)

	f = valid()
	f.Name = "Rated"
	missing := uint(77)
	f.MpaID = &missing
	_, err = s.CreateFilm(ctx, f)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLikes_AndPopular(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	f1 := mustFilm(t, s, models.Film{Name: "F1"})
	f2 := mustFilm(t, s, models.Film{Name: "F2"})
	u1, u2 := mustUser(t, s, "u1"), mustUser(t, s, "u2")

	require.NoError(t, s.AddLike(ctx, f1.ID, u1.ID, 0))
	require.NoError(t, s.AddLike(ctx, f1.ID, u2.ID, 10))
	require.NoError(t, s.AddLike(ctx, f2.ID, u1.ID, 1))

	require.ErrorIs(t, s.AddLike(ctx, f2.ID, u1.ID, 0), ErrConflict)
	require.ErrorIs(t, s.AddLike(ctx, f2.ID, u2.ID, 11), ErrValidation)
	require.ErrorIs(t, s.AddLike(ctx, f2.ID, u2.ID, -1), ErrValidation)
	require.ErrorIs(t, s.AddLike(ctx, 99, u2.ID, 0), ErrNotFound)
	require.ErrorIs(t, s.AddLike(ctx, f2.ID, 99, 0), ErrNotFound)

	top, err := s.Popular(ctx, storage.PopularFilter{Count: 2})
	require.NoError(t, err)
	require.Equal(t, []uint{f1.ID, f2.ID}, filmIDs(top))

	require.NoError(t, s.RemoveLike(ctx, f1.ID, u1.ID))
	require.NoError(t, s.RemoveLike(ctx, f1.ID, u2.ID))
	require.ErrorIs(t, s.RemoveLike(ctx, f1.ID, u2.ID), ErrNotFound)

	top, err = s.Popular(ctx, storage.PopularFilter{Count: 2})
	require.NoError(t, err)
	require.Equal(t, []uint{f2.ID, f1.ID}, filmIDs(top))

	top, err = s.Popular(ctx, storage.PopularFilter{Count: 100})
	require.NoError(t, err)
	require.Len(t, top, 2)

	_, err = s.Popular(ctx, storage.PopularFilter{Count: 0})
	require.ErrorIs(t, err, ErrValidation)
}

func TestPopular_Cache(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	c := newFakeCache()
	s.SetPopularCache(c)

	f := mustFilm(t, s, models.Film{Name: "F"})
	u := mustUser(t, s, "u")
	filter := storage.PopularFilter{Count: 10}

	_, err := s.Popular(ctx, filter)
	require.NoError(t, err)
	require.Equal(t, 1, c.sets)

	_, err = s.Popular(ctx, filter)
	require.NoError(t, err)
	require.Equal(t, 1, c.sets, "second call is served from the cache")

	before := c.invalidated
	require.NoError(t, s.AddLike(ctx, f.ID, u.ID, 0))
	require.Equal(t, before+1, c.invalidated)

	top, err := s.Popular(ctx, filter)
	require.NoError(t, err)
	require.Equal(t, 2, c.sets)
	require.Equal(t, 1, top[0].LikeCount())
}

func TestPopular_CacheDropsListLoadedBeforeInvalidation(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	c := newFakeCache()
	s.SetPopularCache(c)

	mustFilm(t, s, models.Film{Name: "F"})
	filter := storage.PopularFilter{Count: 10}

	// A like lands between the cache miss and the store of the loaded list.
	c.onMiss = func() {
		c.onMiss = nil
		require.NoError(t, c.Invalidate(ctx))
	}
	_, err := s.Popular(ctx, filter)
	require.NoError(t, err)
	require.Equal(t, 1, c.sets)

	_, err = s.Popular(ctx, filter)
	require.NoError(t, err)
	require.Equal(t, 2, c.sets, "a list stored under an orphaned version is not served")
}

func TestLike_PublishesToFriends(t *testing.T) {
	s, h := newService(t)
	ctx := context.Background()
	a, b := mustUser(t, s, "a"), mustUser(t, s, "b")
	_, err := s.RequestFriendship(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = s.RequestFriendship(ctx, b.ID, a.ID)
	require.NoError(t, err)

	events := make(hub.Client, 1)
	h.Subscribe(b.ID, events)

	f := mustFilm(t, s, models.Film{Name: "F"})
	require.NoError(t, s.AddLike(ctx, f.ID, a.ID, 7))

	var event struct {
		Type    string    `json:"type"`
		Payload LikeEvent `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(<-events, &event))
	require.Equal(t, hub.EventLikeAdded, event.Type)
	require.Equal(t, LikeEvent{FilmID: f.ID, UserID: a.ID, Mark: 7}, event.Payload)
}

func TestDirectorFilms(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	d, err := s.Directors().Create(ctx, &models.Director{Reference: models.Reference{Name: "Kubrick"}})
	require.NoError(t, err)

	old := mustFilm(t, s, models.Film{Name: "Old", ReleaseDate: models.NewDate(1968, time.April, 2), Directors: []*models.Director{d}})
	recent := mustFilm(t, s, models.Film{Name: "Recent", ReleaseDate: models.NewDate(1999, time.July, 16), Directors: []*models.Director{d}})
	mustFilm(t, s, models.Film{Name: "Unrelated"})
	u := mustUser(t, s, "u")
	require.NoError(t, s.AddLike(ctx, recent.ID, u.ID, 0))

	byYear, err := s.DirectorFilms(ctx, d.ID, SortByYear)
	require.NoError(t, err)
	require.Equal(t, []uint{old.ID, recent.ID}, filmIDs(byYear))

	byLikes, err := s.DirectorFilms(ctx, d.ID, SortByLikes)
	require.NoError(t, err)
	require.Equal(t, []uint{recent.ID, old.ID}, filmIDs(byLikes))

	_, err = s.DirectorFilms(ctx, d.ID, "rating")
	require.ErrorIs(t, err, ErrValidation)
	_, err = s.DirectorFilms(ctx, 99, SortByYear)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCommonFilms_SearchAndRecommendations(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	nolan, err := s.Directors().Create(ctx, &models.Director{Reference: models.Reference{Name: "Christopher Nolan"}})
	require.NoError(t, err)

	f1 := mustFilm(t, s, models.Film{Name: "Inception", Directors: []*models.Director{nolan}})
	f2 := mustFilm(t, s, models.Film{Name: "Memento"})
	f3 := mustFilm(t, s, models.Film{Name: "Interstellar"})
	a, b, c := mustUser(t, s, "a"), mustUser(t, s, "b"), mustUser(t, s, "c")

	like := func(f *models.Film, u *models.User) { require.NoError(t, s.AddLike(ctx, f.ID, u.ID, 0)) }
	like(f1, a)
	like(f2, a)
	like(f1, b)
	like(f2, b)
	like(f3, b)
	like(f3, c)

	common, err := s.CommonFilms(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{f1.ID, f2.ID}, filmIDs(common))

	_, err = s.CommonFilms(ctx, a.ID, 99)
	require.ErrorIs(t, err, ErrNotFound)

	found, err := s.SearchFilms(ctx, "IN", nil)
	require.NoError(t, err)
	require.Equal(t, []uint{f1.ID, f3.ID}, filmIDs(found))

	found, err = s.SearchFilms(ctx, "nolan", []string{SearchByDirector})
	require.NoError(t, err)
	require.Equal(t, []uint{f1.ID}, filmIDs(found))

	found, err = s.SearchFilms(ctx, "mem", []string{SearchByTitle, SearchByDirector})
	require.NoError(t, err)
	require.Equal(t, []uint{f2.ID}, filmIDs(found))

	_, err = s.SearchFilms(ctx, "x", []string{"genre"})
	require.ErrorIs(t, err, ErrValidation)

	recs, err := s.Recommendations(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{f3.ID}, filmIDs(recs))

	recs, err = s.Recommendations(ctx, mustUser(t, s, "lonely").ID)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestDeleteAll_RestartsIDs(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	mustFilm(t, s, models.Film{Name: "A"})
	mustFilm(t, s, models.Film{Name: "B"})

	require.NoError(t, s.DeleteFilms(ctx))
	require.NoError(t, s.DeleteFilms(ctx))

	films, err := s.Films(ctx)
	require.NoError(t, err)
	require.Empty(t, films)
	require.Equal(t, uint(1), mustFilm(t, s, models.Film{Name: "C"}).ID)
}

func TestCatalog(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, s.SeedCatalog(ctx))
	require.NoError(t, s.SeedCatalog(ctx))

	genres, err := s.Genres().List(ctx)
	require.NoError(t, err)
	require.Len(t, genres, len(DefaultGenres))
	mpa, err := s.Mpa().List(ctx)
	require.NoError(t, err)
	require.Equal(t, "PG-13", mpa[2].Name)

	_, err = s.Genres().Create(ctx, &models.Genre{Reference: models.Reference{Name: " Drama "}})
	require.ErrorIs(t, err, ErrConflict)
	_, err = s.Genres().Create(ctx, &models.Genre{Reference: models.Reference{Name: "  "}})
	require.ErrorIs(t, err, ErrValidation)
	_, err = s.Genres().Create(ctx, &models.Genre{Reference: models.Reference{ID: 3, Name: "Noir"}})
	require.ErrorIs(t, err, ErrConflict)

	_, err = s.Mpa().Get(ctx, 99)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Mpa().DeleteAll(ctx))
	created, err := s.Mpa().Create(ctx, &models.Mpa{Reference: models.Reference{Name: "G"}})
	require.NoError(t, err)
	require.Equal(t, uint(1), created.ID)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{err: storage.NotFound("user", 1), kind: ErrNotFound},
		{err: storage.Exists("login", "x"), kind: ErrConflict},
		{err: relation.ErrNoRelation, kind: ErrNotFound},
		{err: relation.ErrAlreadyRequested, kind: ErrConflict},
		{err: errors.New("connection reset"), kind: ErrInternal},
	}
	for _, tt := range tests {
		e := classify(tt.err)
		require.ErrorIs(t, e, tt.kind)
		require.ErrorIs(t, e, tt.err)
	}

	internal := classify(errors.New("dial tcp: refused"))
	require.Equal(t, "internal error", internal.Msg)
}
