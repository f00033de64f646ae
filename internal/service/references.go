package service

import (
	"context"
	"fmt"
	"strings"

	"filmrate/backend/internal/models"
	"filmrate/backend/internal/storage"
)

// Catalog serves one reference family (genres, mpa ratings or directors).
type Catalog[T any, PT models.RefPtr[T]] struct {
	s      *Service
	store  storage.References[T]
	entity string
}

func newCatalog[T any, PT models.RefPtr[T]](s *Service, store storage.References[T], entity string) *Catalog[T, PT] {
	return &Catalog[T, PT]{s: s, store: store, entity: entity}
}

func (c *Catalog[T, PT]) op(name string) string {
	return fmt.Sprintf("service.%s.%s", c.entity, name)
}

func (c *Catalog[T, PT]) normalize(ref *T) *T {
	out := *ref
	r := PT(&out).Ref()
	r.Name = strings.TrimSpace(r.Name)
	return &out
}

func (c *Catalog[T, PT]) Create(ctx context.Context, ref *T) (*T, error) {
	op := c.op("Create")

	if PT(ref).Ref().ID != 0 {
		return nil, fail(ctx, op, conflictf("id must not be set when creating a %s", c.entity))
	}
	item := c.normalize(ref)
	if err := c.s.check(item); err != nil {
		return nil, fail(ctx, op, err)
	}

	created, err := c.store.Create(ctx, item)
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	return created, nil
}

func (c *Catalog[T, PT]) Update(ctx context.Context, ref *T) (*T, error) {
	op := c.op("Update")

	item := c.normalize(ref)
	if err := c.s.check(item); err != nil {
		return nil, fail(ctx, op, err)
	}

	updated, err := c.store.Update(ctx, item)
	if err != nil {
		return nil, fail(ctx, op, err)
	}
	// Cached rankings embed reference names.
	c.s.invalidatePopular(ctx)
	return updated, nil
}

func (c *Catalog[T, PT]) Get(ctx context.Context, id uint) (*T, error) {
	item, err := c.store.ByID(ctx, id)
	if err != nil {
		return nil, fail(ctx, c.op("Get"), err)
	}
	return item, nil
}

func (c *Catalog[T, PT]) List(ctx context.Context) ([]T, error) {
	items, err := c.store.List(ctx)
	if err != nil {
		return nil, fail(ctx, c.op("List"), err)
	}
	return items, nil
}

func (c *Catalog[T, PT]) Delete(ctx context.Context, id uint) error {
	if err := c.store.Delete(ctx, id); err != nil {
		return fail(ctx, c.op("Delete"), err)
	}
	c.s.invalidatePopular(ctx)
	return nil
}

func (c *Catalog[T, PT]) DeleteAll(ctx context.Context) error {
	if err := c.store.DeleteAll(ctx); err != nil {
		return fail(ctx, c.op("DeleteAll"), err)
	}
	c.s.invalidatePopular(ctx)
	return nil
}

// seed creates the named entries when the family is empty.
func (c *Catalog[T, PT]) seed(ctx context.Context, names []string) error {
	items, err := c.List(ctx)
	if err != nil || len(items) > 0 {
		return err
	}
	for _, name := range names {
		var item T
		PT(&item).Ref().Name = name
		if _, err := c.Create(ctx, &item); err != nil {
			return err
		}
	}
	return nil
}

// Default reference data.
var (
	DefaultGenres = []string{"Comedy", "Drama", "Animation", "Thriller", "Documentary", "Action"}
	DefaultMpa    = []string{"G", "PG", "PG-13", "R", "NC-17"}
)

// SeedCatalog fills empty genre and mpa families with the default entries.
func (s *Service) SeedCatalog(ctx context.Context) error {
	if err := s.genres.seed(ctx, DefaultGenres); err != nil {
		return err
	}
	return s.mpa.seed(ctx, DefaultMpa)
}
