package gormstore

import (
	"context"
	"fmt"

	"filmrate/backend/internal/models"
	"filmrate/backend/internal/ranking"
	"filmrate/backend/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type filmStore struct {
	db *gorm.DB
}

func byID(table string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(table + ".id")
	}
}

// load reads films with their references and likes, ordered by id.
// conds are passed to Find.
func load(tx *gorm.DB, conds ...any) ([]models.Film, error) {
	var films []models.Film
	err := tx.Preload("Mpa").
		Preload("Genres", byID("genres")).
		Preload("Directors", byID("directors")).
		Order("films.id").
		Find(&films, conds...).Error
	if err != nil {
		return nil, err
	}
	if len(films) == 0 {
		return films, nil
	}

	ids := make([]uint, len(films))
	index := make(map[uint]int, len(films))
	for i := range films {
		ids[i] = films[i].ID
		index[films[i].ID] = i
		films[i].Likes = make(map[uint]int)
	}

	var likes []models.FilmLike
	if err := tx.Where("film_id IN ?", ids).Find(&likes).Error; err != nil {
		return nil, err
	}
	for _, l := range likes {
		films[index[l.FilmID]].Likes[l.UserID] = l.Mark
	}

	return films, nil
}

func loadOne(tx *gorm.DB, id uint) (*models.Film, error) {
	films, err := load(tx, "films.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(films) == 0 {
		return nil, storage.NotFound("film", id)
	}
	return &films[0], nil
}

func uniqueIDs[T any, PT models.RefPtr[T]](refs []*T) []uint {
	seen := make(map[uint]bool, len(refs))
	ids := make([]uint, 0, len(refs))
	for _, r := range refs {
		id := PT(r).Ref().ID
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// checkRefs returns storage.ErrNotFound for the first referenced id that does not exist.
func checkRefs(tx *gorm.DB, model any, entity string, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	var found []uint
	if err := tx.Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return err
	}
	known := make(map[uint]bool, len(found))
	for _, id := range found {
		known[id] = true
	}
	for _, id := range ids {
		if !known[id] {
			return storage.NotFound(entity, id)
		}
	}
	return nil
}

// write validates references and the natural key, then stores the film row and
// replaces its join rows.
func write(tx *gorm.DB, film *models.Film, create bool) error {
	row := *film
	if row.Mpa != nil && row.MpaID == nil {
		id := row.Mpa.ID
		row.MpaID = &id
	}
	if row.MpaID != nil {
		if err := mustExist(tx, &models.Mpa{}, "mpa", *row.MpaID); err != nil {
			return err
		}
	}
	genreIDs := uniqueIDs(film.Genres)
	if err := checkRefs(tx, &models.Genre{}, "genre", genreIDs); err != nil {
		return err
	}
	directorIDs := uniqueIDs(film.Directors)
	if err := checkRefs(tx, &models.Director{}, "director", directorIDs); err != nil {
		return err
	}

	key := fmt.Sprintf("%s|%s|%d", row.Name, row.ReleaseDate, row.Duration)
	var n int64
	err := tx.Model(&models.Film{}).
		Where("name = ? AND release_date = ? AND duration = ? AND id <> ?", row.Name, row.ReleaseDate, row.Duration, row.ID).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n > 0 {
		return storage.Exists("film", key)
	}

	row.Mpa, row.Genres, row.Directors = nil, nil, nil
	if create {
		err = tx.Omit(clause.Associations).Create(&row).Error
	} else {
		err = tx.Omit(clause.Associations).Save(&row).Error
	}
	if err := translate(err, "film", key); err != nil {
		return err
	}
	film.ID = row.ID

	if err := tx.Where("film_id = ?", row.ID).Delete(&models.FilmGenre{}).Error; err != nil {
		return err
	}
	if err := tx.Where("film_id = ?", row.ID).Delete(&models.FilmDirector{}).Error; err != nil {
		return err
	}
	if len(genreIDs) > 0 {
		rows := make([]models.FilmGenre, len(genreIDs))
		for i, id := range genreIDs {
			rows[i] = models.FilmGenre{FilmID: row.ID, GenreID: id}
		}
		if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
			return translate(err, "genre", genreIDs)
		}
	}
	if len(directorIDs) > 0 {
		rows := make([]models.FilmDirector, len(directorIDs))
		for i, id := range directorIDs {
			rows[i] = models.FilmDirector{FilmID: row.ID, DirectorID: id}
		}
		if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
			return translate(err, "director", directorIDs)
		}
	}
	return nil
}

func (s *filmStore) CreateFilm(ctx context.Context, film *models.Film) (*models.Film, error) {
	const op = "storage/gormstore/films/CreateFilm"

	var created *models.Film
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f := film.Clone()
		f.ID = 0
		if err := write(tx, f, true); err != nil {
			return err
		}
		var err error
		created, err = loadOne(tx, f.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

func (s *filmStore) UpdateFilm(ctx context.Context, film *models.Film) (*models.Film, error) {
	const op = "storage/gormstore/films/UpdateFilm"

	var updated *models.Film
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Film{}, "film", film.ID); err != nil {
			return err
		}
		if err := write(tx, film.Clone(), false); err != nil {
			return err
		}
		var err error
		updated, err = loadOne(tx, film.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

func (s *filmStore) FilmByID(ctx context.Context, id uint) (*models.Film, error) {
	const op = "storage/gormstore/films/FilmByID"

	film, err := loadOne(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return film, nil
}

func (s *filmStore) Films(ctx context.Context) ([]models.Film, error) {
	const op = "storage/gormstore/films/Films"

	films, err := load(s.db.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return films, nil
}

// DeleteFilm relies on ON DELETE CASCADE for join rows and likes.
func (s *filmStore) DeleteFilm(ctx context.Context, id uint) error {
	const op = "storage/gormstore/films/DeleteFilm"

	result := s.db.WithContext(ctx).Delete(&models.Film{}, id)
	if result.Error != nil {
		return fmt.Errorf("%s: %w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, storage.NotFound("film", id))
	}
	return nil
}

func (s *filmStore) DeleteFilms(ctx context.Context) error {
	const op = "storage/gormstore/films/DeleteFilms"

	if err := clearTable(ctx, s.db, "films"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func likeKey(filmID, userID uint) string {
	return fmt.Sprintf("film %d user %d", filmID, userID)
}

func (s *filmStore) AddLike(ctx context.Context, filmID, userID uint, mark int) error {
	const op = "storage/gormstore/films/AddLike"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Film{}, "film", filmID); err != nil {
			return err
		}
		if err := mustExist(tx, &models.User{}, "user", userID); err != nil {
			return err
		}
		like := models.FilmLike{FilmID: filmID, UserID: userID, Mark: mark}
		return translate(tx.Omit(clause.Associations).Create(&like).Error, "like", likeKey(filmID, userID))
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *filmStore) RemoveLike(ctx context.Context, filmID, userID uint) error {
	const op = "storage/gormstore/films/RemoveLike"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, &models.Film{}, "film", filmID); err != nil {
			return err
		}
		if err := mustExist(tx, &models.User{}, "user", userID); err != nil {
			return err
		}
		result := tx.Where("film_id = ? AND user_id = ?", filmID, userID).Delete(&models.FilmLike{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.NotFound("like", likeKey(filmID, userID))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Popular ranks in SQL, then loads the selected films and restores the ranking.
func (s *filmStore) Popular(ctx context.Context, filter storage.PopularFilter) ([]models.Film, error) {
	const op = "storage/gormstore/films/Popular"

	if filter.Count <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ranking.ErrInvalidCount)
	}

	db := s.db.WithContext(ctx)
	q := db.Table("films").
		Joins("LEFT JOIN film_likes fl ON fl.film_id = films.id").
		Group("films.id").
		Order("COUNT(fl.user_id) DESC, films.id ASC").
		Limit(filter.Count)
	if filter.Year != 0 {
		q = q.Where("EXTRACT(YEAR FROM films.release_date) = ?", filter.Year)
	}
	if filter.GenreID != 0 {
		q = q.Where("EXISTS (SELECT 1 FROM film_genres fg WHERE fg.film_id = films.id AND fg.genre_id = ?)", filter.GenreID)
	}

	var ids []uint
	if err := q.Pluck("films.id", &ids).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(ids) == 0 {
		return []models.Film{}, nil
	}

	films, err := load(db, "films.id IN ?", ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ranking.Sort(films)
	return films, nil
}
