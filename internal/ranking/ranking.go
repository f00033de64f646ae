// Package ranking orders films by community engagement.
package ranking

import (
	"errors"
	"slices"

	"filmrate/backend/internal/models"
)

// ErrInvalidCount is returned by Top for a non-positive count.
var ErrInvalidCount = errors.New("count must be positive")

// Compare orders films by like count descending, then by id ascending.
func Compare(a, b *models.Film) int {
	if la, lb := a.LikeCount(), b.LikeCount(); la != lb {
		if la > lb {
			return -1
		}
		return 1
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// Sort ranks films in place.
func Sort(films []models.Film) {
	slices.SortStableFunc(films, func(a, b models.Film) int {
		return Compare(&a, &b)
	})
}

// Top returns the first n films of the ranking. The input slice is not modified.
// If n exceeds the number of films, all of them are returned.
func Top(films []models.Film, n int) ([]models.Film, error) {
	if n <= 0 {
		return nil, ErrInvalidCount
	}
	ranked := slices.Clone(films)
	Sort(ranked)
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}
