package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"filmrate/backend/internal/models"
	"filmrate/backend/internal/relation"
	"filmrate/backend/internal/storage"
)

type userStore struct {
	mu     sync.RWMutex
	seq    sequence
	users  map[uint]models.User
	logins uniqueIndex
	emails uniqueIndex
	// relations[a][b] is the edge a→b. Missing key means StatusNone.
	relations map[uint]map[uint]models.FriendshipStatus

	films *filmStore
}

func (s *userStore) checkUnique(user *models.User) error {
	if !s.logins.free(user.Login, user.ID) {
		return storage.Exists("login", user.Login)
	}
	if !s.emails.free(user.Email, user.ID) {
		return storage.Exists("email", user.Email)
	}
	return nil
}

func (s *userStore) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	const op = "storage/memory/users/CreateUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	created := *user
	created.ID = 0
	if err := s.checkUnique(&created); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	created.ID = s.seq.next()
	s.users[created.ID] = created
	s.logins.put(created.Login, created.ID)
	s.emails.put(created.Email, created.ID)

	return &created, nil
}

func (s *userStore) UpdateUser(_ context.Context, user *models.User) (*models.User, error) {
	const op = "storage/memory/users/UpdateUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.users[user.ID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.NotFound("user", user.ID))
	}
	if err := s.checkUnique(user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logins.drop(old.Login, old.ID)
	s.emails.drop(old.Email, old.ID)
	updated := *user
	s.users[updated.ID] = updated
	s.logins.put(updated.Login, updated.ID)
	s.emails.put(updated.Email, updated.ID)

	return &updated, nil
}

func (s *userStore) UserByID(_ context.Context, id uint) (*models.User, error) {
	const op = "storage/memory/users/UserByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.NotFound("user", id))
	}
	return &user, nil
}

func (s *userStore) Users(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedUsers(func(models.User) bool { return true }), nil
}

func (s *userStore) sortedUsers(keep func(models.User) bool) []models.User {
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		if keep(u) {
			users = append(users, u)
		}
	}
	slices.SortFunc(users, func(a, b models.User) int { return cmp.Compare(a.ID, b.ID) })
	return users
}

func (s *userStore) DeleteUser(_ context.Context, id uint) error {
	const op = "storage/memory/users/DeleteUser"

	s.mu.Lock()
	defer s.mu.Unlock()
	s.films.mu.Lock()
	defer s.films.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.NotFound("user", id))
	}

	delete(s.users, id)
	s.logins.drop(user.Login, id)
	s.emails.drop(user.Email, id)

	delete(s.relations, id)
	for _, edges := range s.relations {
		delete(edges, id)
	}

	for _, f := range s.films.films {
		delete(f.Likes, id)
	}

	return nil
}

func (s *userStore) DeleteUsers(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.films.mu.Lock()
	defer s.films.mu.Unlock()

	clear(s.users)
	clear(s.relations)
	s.logins.clear()
	s.emails.clear()
	s.seq.reset()

	for _, f := range s.films.films {
		clear(f.Likes)
	}

	return nil
}

func (s *userStore) edge(from, to uint) models.FriendshipStatus {
	return s.relations[from][to]
}

func (s *userStore) setEdge(from, to uint, status models.FriendshipStatus) {
	if status == models.StatusNone {
		delete(s.relations[from], to)
		return
	}
	if s.relations[from] == nil {
		s.relations[from] = make(map[uint]models.FriendshipStatus)
	}
	s.relations[from][to] = status
}

type transition func(relation.Pair) (relation.Pair, error)

// apply runs a transition on the (from, to) pair and writes both edges under one lock.
func (s *userStore) apply(op string, from, to uint, next transition) (relation.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []uint{from, to} {
		if _, ok := s.users[id]; !ok {
			return relation.Pair{}, fmt.Errorf("%s: %w", op, storage.NotFound("user", id))
		}
	}

	pair, err := next(relation.Pair{Forward: s.edge(from, to), Backward: s.edge(to, from)})
	if err != nil {
		return pair, fmt.Errorf("%s: %w", op, err)
	}

	s.setEdge(from, to, pair.Forward)
	s.setEdge(to, from, pair.Backward)

	return pair, nil
}

func (s *userStore) RequestFriendship(_ context.Context, from, to uint) (relation.Pair, error) {
	return s.apply("storage/memory/users/RequestFriendship", from, to, relation.Request)
}

func (s *userStore) RemoveFriendship(_ context.Context, from, to uint) (relation.Pair, error) {
	return s.apply("storage/memory/users/RemoveFriendship", from, to, relation.Remove)
}

func (s *userStore) Relations(_ context.Context, id uint) ([]models.UserRelation, error) {
	const op = "storage/memory/users/Relations"

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.users[id]; !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.NotFound("user", id))
	}

	relations := make([]models.UserRelation, 0, len(s.relations[id]))
	for to, status := range s.relations[id] {
		relations = append(relations, models.UserRelation{FromUserID: id, ToUserID: to, Status: status})
	}
	slices.SortFunc(relations, func(a, b models.UserRelation) int { return cmp.Compare(a.ToUserID, b.ToUserID) })

	return relations, nil
}

func (s *userStore) Friends(_ context.Context, id uint) ([]models.User, error) {
	const op = "storage/memory/users/Friends"

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.users[id]; !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.NotFound("user", id))
	}

	edges := s.relations[id]
	return s.sortedUsers(func(u models.User) bool {
		return edges[u.ID] == models.StatusFriendship
	}), nil
}
