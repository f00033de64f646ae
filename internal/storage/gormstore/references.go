package gormstore

import (
	"context"
	"fmt"

	"filmrate/backend/internal/models"
	"filmrate/backend/internal/storage"
	"gorm.io/gorm"
)

// refStore keeps one catalog family. Detaching from films is done by the
// foreign keys: join rows cascade, films.mpa_id is set to NULL.
type refStore[T any, PT models.RefPtr[T]] struct {
	db     *gorm.DB
	entity string
	table  string
}

func (s *refStore[T, PT]) Create(ctx context.Context, ref *T) (*T, error) {
	op := fmt.Sprintf("storage/gormstore/%s/Create", s.entity)

	created := *ref
	r := PT(&created).Ref()
	r.ID = 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if used, err := taken(tx, new(T), "name", r.Name, 0); err != nil {
			return err
		} else if used {
			return storage.Exists(s.entity, r.Name)
		}
		return translate(tx.Create(&created).Error, s.entity, r.Name)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &created, nil
}

func (s *refStore[T, PT]) Update(ctx context.Context, ref *T) (*T, error) {
	op := fmt.Sprintf("storage/gormstore/%s/Update", s.entity)

	updated := *ref
	r := PT(&updated).Ref()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, new(T), s.entity, r.ID); err != nil {
			return err
		}
		if used, err := taken(tx, new(T), "name", r.Name, r.ID); err != nil {
			return err
		} else if used {
			return storage.Exists(s.entity, r.Name)
		}
		return translate(tx.Save(&updated).Error, s.entity, r.Name)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &updated, nil
}

func (s *refStore[T, PT]) ByID(ctx context.Context, id uint) (*T, error) {
	op := fmt.Sprintf("storage/gormstore/%s/ByID", s.entity)

	var item T
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err, s.entity, id))
	}
	return &item, nil
}

func (s *refStore[T, PT]) List(ctx context.Context) ([]T, error) {
	op := fmt.Sprintf("storage/gormstore/%s/List", s.entity)

	var items []T
	if err := s.db.WithContext(ctx).Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

func (s *refStore[T, PT]) Delete(ctx context.Context, id uint) error {
	op := fmt.Sprintf("storage/gormstore/%s/Delete", s.entity)

	result := s.db.WithContext(ctx).Delete(new(T), id)
	if result.Error != nil {
		return fmt.Errorf("%s: %w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, storage.NotFound(s.entity, id))
	}
	return nil
}

func (s *refStore[T, PT]) DeleteAll(ctx context.Context) error {
	op := fmt.Sprintf("storage/gormstore/%s/DeleteAll", s.entity)

	if err := clearTable(ctx, s.db, s.table); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
