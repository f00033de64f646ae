package gormstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"filmrate/backend/internal/database"
	"filmrate/backend/internal/models"
	"filmrate/backend/internal/ranking"
	"filmrate/backend/internal/relation"
	"filmrate/backend/internal/storage"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Run locally:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/gormstore -v -count=1

func startPostgres(t *testing.T) *Storage {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	db, err := database.Connect(dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	st := New(db)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func mustUser(t *testing.T, s *Storage, login string) *models.User {
	t.Helper()
	u, err := s.Users().CreateUser(context.Background(), &models.User{
		Login: login,
		Email: login + "@x.com",
		Name:  login,
	})
	require.NoError(t, err)
	return u
}

func mustFilm(t *testing.T, s *Storage, f *models.Film) *models.Film {
	t.Helper()
	if f.ReleaseDate.IsZero() {
		f.ReleaseDate = models.NewDate(2000, time.January, 1)
	}
	if f.Duration == 0 {
		f.Duration = 90
	}
	created, err := s.Films().CreateFilm(context.Background(), f)
	require.NoError(t, err)
	return created
}

func status(t *testing.T, s *Storage, from, to uint) models.FriendshipStatus {
	t.Helper()
	rels, err := s.Users().Relations(context.Background(), from)
	require.NoError(t, err)
	for _, r := range rels {
		if r.ToUserID == to {
			return r.Status
		}
	}
	return models.StatusNone
}

func TestPostgres(t *testing.T) {
	s := startPostgres(t)
	ctx := context.Background()

	t.Run("friendship scenario", func(t *testing.T) {
		john := mustUser(t, s, "john")
		paul := mustUser(t, s, "paul")
		t.Cleanup(func() { require.NoError(t, s.Users().DeleteUsers(ctx)) })

		_, err := s.Users().RequestFriendship(ctx, john.ID, paul.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatusApplication, status(t, s, john.ID, paul.ID))
		require.Equal(t, models.StatusSubscription, status(t, s, paul.ID, john.ID))

		_, err = s.Users().RequestFriendship(ctx, john.ID, paul.ID)
		require.ErrorIs(t, err, relation.ErrAlreadyRequested)

		pair, err := s.Users().RequestFriendship(ctx, paul.ID, john.ID)
		require.NoError(t, err)
		require.True(t, pair.IsMutual())

		friends, err := s.Users().Friends(ctx, john.ID)
		require.NoError(t, err)
		require.Len(t, friends, 1)
		require.Equal(t, paul.ID, friends[0].ID)

		_, err = s.Users().RemoveFriendship(ctx, john.ID, paul.ID)
		require.NoError(t, err)
		require.Equal(t, models.StatusNone, status(t, s, john.ID, paul.ID))
		require.Equal(t, models.StatusSubscription, status(t, s, paul.ID, john.ID))

		_, err = s.Users().RequestFriendship(ctx, john.ID, 999)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("concurrent reciprocal requests", func(t *testing.T) {
		t.Cleanup(func() { require.NoError(t, s.Users().DeleteUsers(ctx)) })

		for i := 0; i < 20; i++ {
			a := mustUser(t, s, fmt.Sprintf("a%d", i))
			b := mustUser(t, s, fmt.Sprintf("b%d", i))

			var wg sync.WaitGroup
			errs := make([]error, 2)
			for n, ids := range [][2]uint{{a.ID, b.ID}, {b.ID, a.ID}} {
				n, ids := n, ids
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, errs[n] = s.Users().RequestFriendship(ctx, ids[0], ids[1])
				}()
			}
			wg.Wait()

			require.NoError(t, errs[0])
			require.NoError(t, errs[1])
			require.Equal(t, models.StatusFriendship, status(t, s, a.ID, b.ID))
			require.Equal(t, models.StatusFriendship, status(t, s, b.ID, a.ID))
		}
	})

	t.Run("concurrent create with the same login", func(t *testing.T) {
		t.Cleanup(func() { require.NoError(t, s.Users().DeleteUsers(ctx)) })

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for n := range errs {
			n := n
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[n] = s.Users().CreateUser(ctx, &models.User{Login: "dup", Email: fmt.Sprintf("dup%d@x.com", n)})
			}()
		}
		wg.Wait()

		created := 0
		for _, err := range errs {
			if err == nil {
				created++
				continue
			}
			require.ErrorIs(t, err, storage.ErrAlreadyExists)
		}
		require.Equal(t, 1, created)
	})

	t.Run("unique login and email", func(t *testing.T) {
		mustUser(t, s, "ringo")
		t.Cleanup(func() { require.NoError(t, s.Users().DeleteUsers(ctx)) })

		_, err := s.Users().CreateUser(ctx, &models.User{Login: "ringo", Email: "other@x.com"})
		require.ErrorIs(t, err, storage.ErrAlreadyExists)
		_, err = s.Users().CreateUser(ctx, &models.User{Login: "other", Email: "ringo@x.com"})
		require.ErrorIs(t, err, storage.ErrAlreadyExists)
	})

	t.Run("delete all resets sequence", func(t *testing.T) {
		mustUser(t, s, "a")
		mustUser(t, s, "b")
		require.NoError(t, s.Users().DeleteUsers(ctx))
		require.NoError(t, s.Users().DeleteUsers(ctx))

		users, err := s.Users().Users(ctx)
		require.NoError(t, err)
		require.Empty(t, users)

		u := mustUser(t, s, "c")
		require.Equal(t, uint(1), u.ID)
		require.NoError(t, s.Users().DeleteUsers(ctx))
	})

	t.Run("films, references and popularity", func(t *testing.T) {
		t.Cleanup(func() {
			require.NoError(t, s.Films().DeleteFilms(ctx))
			require.NoError(t, s.Users().DeleteUsers(ctx))
			require.NoError(t, s.Genres().DeleteAll(ctx))
			require.NoError(t, s.Mpa().DeleteAll(ctx))
		})

		drama, err := s.Genres().Create(ctx, &models.Genre{Reference: models.Reference{Name: "Drama"}})
		require.NoError(t, err)
		pg, err := s.Mpa().Create(ctx, &models.Mpa{Reference: models.Reference{Name: "PG"}})
		require.NoError(t, err)

		f1 := mustFilm(t, s, &models.Film{Name: "F1", MpaID: &pg.ID, Genres: []*models.Genre{drama, drama}})
		f2 := mustFilm(t, s, &models.Film{Name: "F2"})
		require.Len(t, f1.Genres, 1)
		require.Equal(t, "PG", f1.Mpa.Name)

		_, err = s.Films().CreateFilm(ctx, &models.Film{Name: "F1", ReleaseDate: f1.ReleaseDate, Duration: f1.Duration})
		require.ErrorIs(t, err, storage.ErrAlreadyExists)

		u1 := mustUser(t, s, "u1")
		u2 := mustUser(t, s, "u2")
		require.NoError(t, s.Films().AddLike(ctx, f1.ID, u1.ID, 0))
		require.NoError(t, s.Films().AddLike(ctx, f1.ID, u2.ID, 7))
		require.NoError(t, s.Films().AddLike(ctx, f2.ID, u1.ID, 0))
		require.ErrorIs(t, s.Films().AddLike(ctx, f2.ID, u1.ID, 0), storage.ErrAlreadyExists)

		top, err := s.Films().Popular(ctx, storage.PopularFilter{Count: 2})
		require.NoError(t, err)
		require.Equal(t, []uint{f1.ID, f2.ID}, []uint{top[0].ID, top[1].ID})
		require.Equal(t, 7, top[0].Likes[u2.ID])

		require.NoError(t, s.Films().RemoveLike(ctx, f1.ID, u1.ID))
		require.NoError(t, s.Films().RemoveLike(ctx, f1.ID, u2.ID))
		require.ErrorIs(t, s.Films().RemoveLike(ctx, f1.ID, u2.ID), storage.ErrNotFound)

		top, err = s.Films().Popular(ctx, storage.PopularFilter{Count: 2})
		require.NoError(t, err)
		require.Equal(t, []uint{f2.ID, f1.ID}, []uint{top[0].ID, top[1].ID})

		byGenre, err := s.Films().Popular(ctx, storage.PopularFilter{Count: 10, GenreID: drama.ID})
		require.NoError(t, err)
		require.Len(t, byGenre, 1)

		_, err = s.Films().Popular(ctx, storage.PopularFilter{Count: 0})
		require.ErrorIs(t, err, ranking.ErrInvalidCount)

		require.NoError(t, s.Mpa().Delete(ctx, pg.ID))
		require.NoError(t, s.Genres().Delete(ctx, drama.ID))
		got, err := s.Films().FilmByID(ctx, f1.ID)
		require.NoError(t, err)
		require.Nil(t, got.MpaID)
		require.Empty(t, got.Genres)

		require.NoError(t, s.Users().DeleteUser(ctx, u1.ID))
		got, err = s.Films().FilmByID(ctx, f2.ID)
		require.NoError(t, err)
		require.Zero(t, got.LikeCount())

		_, err = s.Films().CreateFilm(ctx, &models.Film{Name: "F3", ReleaseDate: f1.ReleaseDate, Duration: 1, Genres: []*models.Genre{{Reference: models.Reference{ID: 42}}}})
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}
