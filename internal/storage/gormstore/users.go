package gormstore

import (
	"context"
	"fmt"
	"slices"

	"filmrate/backend/internal/models"
	"filmrate/backend/internal/relation"
	"filmrate/backend/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userStore struct {
	db *gorm.DB
}

func (s *userStore) checkUnique(tx *gorm.DB, user *models.User) error {
	if used, err := taken(tx, &models.User{}, "login", user.Login, user.ID); err != nil {
		return err
	} else if used {
		return storage.Exists("login", user.Login)
	}
	if used, err := taken(tx, &models.User{}, "email", user.Email, user.ID); err != nil {
		return err
	} else if used {
		return storage.Exists("email", user.Email)
	}
	return nil
}

func (s *userStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	const op = "storage/gormstore/users/CreateUser"

	created := *user
	created.ID = 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkUnique(tx, &created); err != nil {
			return err
		}
		return translate(tx.Create(&created).Error, "user", created.Login)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &created, nil
}

func (s *userStore) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	const op = "storage/gormstore/users/UpdateUser"

	updated := *user
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.User{}, "user", updated.ID); err != nil {
			return err
		}
		if err := s.checkUnique(tx, &updated); err != nil {
			return err
		}
		return translate(tx.Save(&updated).Error, "user", updated.Login)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &updated, nil
}

func (s *userStore) UserByID(ctx context.Context, id uint) (*models.User, error) {
	const op = "storage/gormstore/users/UserByID"

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err, "user", id))
	}
	return &user, nil
}

func (s *userStore) Users(ctx context.Context) ([]models.User, error) {
	const op = "storage/gormstore/users/Users"

	var users []models.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// DeleteUser relies on ON DELETE CASCADE for relations and likes.
func (s *userStore) DeleteUser(ctx context.Context, id uint) error {
	const op = "storage/gormstore/users/DeleteUser"

	result := s.db.WithContext(ctx).Delete(&models.User{}, id)
	if result.Error != nil {
		return fmt.Errorf("%s: %w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, storage.NotFound("user", id))
	}
	return nil
}

func (s *userStore) DeleteUsers(ctx context.Context) error {
	const op = "storage/gormstore/users/DeleteUsers"

	if err := clearTable(ctx, s.db, "users"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// apply locks both users and both edges of the pair, runs the transition and
// writes the result in the same transaction.
func (s *userStore) apply(ctx context.Context, op string, from, to uint, next func(relation.Pair) (relation.Pair, error)) (relation.Pair, error) {
	var pair relation.Pair
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUsers(tx, from, to); err != nil {
			return err
		}

		var edges []models.UserRelation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)", from, to, to, from).
			Find(&edges).Error
		if err != nil {
			return err
		}

		var current relation.Pair
		for _, e := range edges {
			if e.FromUserID == from {
				current.Forward = e.Status
			} else {
				current.Backward = e.Status
			}
		}

		pair, err = next(current)
		if err != nil {
			return err
		}

		if err := setEdge(tx, from, to, pair.Forward); err != nil {
			return err
		}
		return setEdge(tx, to, from, pair.Backward)
	})
	if err != nil {
		return pair, fmt.Errorf("%s: %w", op, err)
	}
	return pair, nil
}

// lockUsers takes row locks on both users in id order, so two transitions on the
// same pair run one after the other even when no edge row exists yet.
func lockUsers(tx *gorm.DB, a, b uint) error {
	var users []models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", []uint{min(a, b), max(a, b)}).
		Order("id").
		Find(&users).Error
	if err != nil {
		return err
	}

	for _, id := range []uint{a, b} {
		if !slices.ContainsFunc(users, func(u models.User) bool { return u.ID == id }) {
			return storage.NotFound("user", id)
		}
	}
	return nil
}

func setEdge(tx *gorm.DB, from, to uint, status models.FriendshipStatus) error {
	if status == models.StatusNone {
		return tx.Where("from_user_id = ? AND to_user_id = ?", from, to).Delete(&models.UserRelation{}).Error
	}

	edge := models.UserRelation{FromUserID: from, ToUserID: to, Status: status}
	err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "from_user_id"}, {Name: "to_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&edge).Error
	return translate(err, "user", to)
}

func (s *userStore) RequestFriendship(ctx context.Context, from, to uint) (relation.Pair, error) {
	return s.apply(ctx, "storage/gormstore/users/RequestFriendship", from, to, relation.Request)
}

func (s *userStore) RemoveFriendship(ctx context.Context, from, to uint) (relation.Pair, error) {
	return s.apply(ctx, "storage/gormstore/users/RemoveFriendship", from, to, relation.Remove)
}

func (s *userStore) Relations(ctx context.Context, id uint) ([]models.UserRelation, error) {
	const op = "storage/gormstore/users/Relations"

	db := s.db.WithContext(ctx)
	if err := mustExist(db, &models.User{}, "user", id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var relations []models.UserRelation
	if err := db.Where("from_user_id = ?", id).Order("to_user_id").Find(&relations).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return relations, nil
}

func (s *userStore) Friends(ctx context.Context, id uint) ([]models.User, error) {
	const op = "storage/gormstore/users/Friends"

	db := s.db.WithContext(ctx)
	if err := mustExist(db, &models.User{}, "user", id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var friends []models.User
	err := db.Joins("JOIN user_relations ur ON ur.to_user_id = users.id").
		Where("ur.from_user_id = ? AND ur.status = ?", id, models.StatusFriendship).
		Order("users.id").
		Find(&friends).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return friends, nil
}
