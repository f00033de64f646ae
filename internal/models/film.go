package models

import "time"

// CinemaBirthday is the date of the first public film screening.
// Release dates must be strictly after it.
var CinemaBirthday = NewDate(1895, time.December, 28)

// Film represents a film in the catalog.
type Film struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:255;not null;uniqueIndex:idx_films_natural_key" validate:"notblank,max=255"`
	Description string `gorm:"size:200" validate:"max=200"`
	ReleaseDate Date   `gorm:"not null;uniqueIndex:idx_films_natural_key" validate:"releasedate"`
	Duration    int    `gorm:"not null;uniqueIndex:idx_films_natural_key" validate:"gt=0"`

	MpaID *uint `gorm:"index"`
	Mpa   *Mpa  `gorm:"foreignKey:MpaID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" validate:"-"`

	Genres    []*Genre    `gorm:"many2many:film_genres;" validate:"-"`
	Directors []*Director `gorm:"many2many:film_directors;" validate:"-"`

	// Likes maps user id to the mark that user gave. Loaded from film_likes.
	Likes map[uint]int `gorm:"-"`
}

// LikeCount is the popularity of the film.
func (f *Film) LikeCount() int {
	return len(f.Likes)
}

// FilmGenre is the join row between a film and a genre.
type FilmGenre struct {
	FilmID  uint `gorm:"primaryKey"`
	GenreID uint `gorm:"primaryKey"`

	Film  Film  `gorm:"foreignKey:FilmID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Genre Genre `gorm:"foreignKey:GenreID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// FilmDirector is the join row between a film and a director.
type FilmDirector struct {
	FilmID     uint `gorm:"primaryKey"`
	DirectorID uint `gorm:"primaryKey"`

	Film     Film     `gorm:"foreignKey:FilmID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Director Director `gorm:"foreignKey:DirectorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// FilmLike is a user's like on a film. Mark 0 is a plain like, otherwise 1..10.
type FilmLike struct {
	FilmID    uint `gorm:"primaryKey"`
	UserID    uint `gorm:"primaryKey;index"`
	Mark      int  `gorm:"not null;default:0"`
	CreatedAt time.Time

	Film Film `gorm:"foreignKey:FilmID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// Clone returns a deep copy of the film.
func (f *Film) Clone() *Film {
	c := *f
	if f.MpaID != nil {
		id := *f.MpaID
		c.MpaID = &id
	}
	if f.Mpa != nil {
		m := *f.Mpa
		c.Mpa = &m
	}
	c.Genres = make([]*Genre, 0, len(f.Genres))
	for _, g := range f.Genres {
		gc := *g
		c.Genres = append(c.Genres, &gc)
	}
	c.Directors = make([]*Director, 0, len(f.Directors))
	for _, d := range f.Directors {
		dc := *d
		c.Directors = append(c.Directors, &dc)
	}
	c.Likes = make(map[uint]int, len(f.Likes))
	for u, m := range f.Likes {
		c.Likes[u] = m
	}
	return &c
}
