package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"filmrate/backend/internal/models"
	"filmrate/backend/internal/storage"
)

// refStore keeps one catalog family (genres, mpa or directors).
type refStore[T any, PT models.RefPtr[T]] struct {
	mu     sync.RWMutex
	entity string
	seq    sequence
	items  map[uint]T
	names  uniqueIndex

	films *filmStore
	// detach removes the reference with the given id from a film. Called under the film lock.
	detach func(f *models.Film, id uint)
}

func newRefStore[T any, PT models.RefPtr[T]](entity string, films *filmStore, detach func(*models.Film, uint)) *refStore[T, PT] {
	return &refStore[T, PT]{
		entity: entity,
		items:  make(map[uint]T),
		names:  uniqueIndex{},
		films:  films,
		detach: detach,
	}
}

func (s *refStore[T, PT]) Create(_ context.Context, ref *T) (*T, error) {
	op := fmt.Sprintf("storage/memory/%s/Create", s.entity)

	s.mu.Lock()
	defer s.mu.Unlock()

	created := *ref
	r := PT(&created).Ref()
	if !s.names.free(r.Name, 0) {
		return nil, fmt.Errorf("%s: %w", op, storage.Exists(s.entity, r.Name))
	}

	r.ID = s.seq.next()
	s.items[r.ID] = created
	s.names.put(r.Name, r.ID)

	return &created, nil
}

func (s *refStore[T, PT]) Update(_ context.Context, ref *T) (*T, error) {
	op := fmt.Sprintf("storage/memory/%s/Update", s.entity)

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := *ref
	r := PT(&updated).Ref()
	old, ok := s.items[r.ID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.NotFound(s.entity, r.ID))
	}
	if !s.names.free(r.Name, r.ID) {
		return nil, fmt.Errorf("%s: %w", op, storage.Exists(s.entity, r.Name))
	}

	s.names.drop(PT(&old).Ref().Name, r.ID)
	s.items[r.ID] = updated
	s.names.put(r.Name, r.ID)

	return &updated, nil
}

func (s *refStore[T, PT]) ByID(_ context.Context, id uint) (*T, error) {
	op := fmt.Sprintf("storage/memory/%s/ByID", s.entity)

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.NotFound(s.entity, id))
	}
	return &item, nil
}

func (s *refStore[T, PT]) List(_ context.Context) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]T, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b T) int {
		return cmp.Compare(PT(&a).Ref().ID, PT(&b).Ref().ID)
	})
	return items, nil
}

func (s *refStore[T, PT]) Delete(_ context.Context, id uint) error {
	op := fmt.Sprintf("storage/memory/%s/Delete", s.entity)

	s.films.mu.Lock()
	defer s.films.mu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.NotFound(s.entity, id))
	}

	for _, f := range s.films.films {
		s.detach(f, id)
	}
	delete(s.items, id)
	s.names.drop(PT(&item).Ref().Name, id)

	return nil
}

func (s *refStore[T, PT]) DeleteAll(_ context.Context) error {
	s.films.mu.Lock()
	defer s.films.mu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.items {
		for _, f := range s.films.films {
			s.detach(f, id)
		}
	}
	clear(s.items)
	s.names.clear()
	s.seq.reset()

	return nil
}

func withoutRef[T any, PT models.RefPtr[T]](refs []PT, id uint) []PT {
	return slices.DeleteFunc(refs, func(r PT) bool { return r.Ref().ID == id })
}
