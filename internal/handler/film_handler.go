package handler

import (
	"net/http"
	"strings"

	"filmrate/backend/internal/models"
	"filmrate/backend/internal/service"
	"filmrate/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// RefInput points at an existing genre, rating or director by id.
type RefInput struct {
	ID uint `json:"id" example:"1"`
}

// FilmInput defines the body of film create and update requests.
type FilmInput struct {
	Name        string      `json:"name" example:"Inception"`
	Description string      `json:"description" example:"A thief who steals corporate secrets through dreams."`
	ReleaseDate models.Date `json:"release_date" swaggertype:"string" example:"2010-07-16"`
	Duration    int         `json:"duration" example:"148"`
	Mpa         *RefInput   `json:"mpa"`
	Genres      []RefInput  `json:"genres"`
	Directors   []RefInput  `json:"directors"`
}

func (in FilmInput) model(id uint) *models.Film {
	f := &models.Film{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		ReleaseDate: in.ReleaseDate,
		Duration:    in.Duration,
	}
	if in.Mpa != nil {
		mpaID := in.Mpa.ID
		f.MpaID = &mpaID
	}
	for _, g := range in.Genres {
		f.Genres = append(f.Genres, &models.Genre{Reference: models.Reference{ID: g.ID}})
	}
	for _, d := range in.Directors {
		f.Directors = append(f.Directors, &models.Director{Reference: models.Reference{ID: d.ID}})
	}
	return f
}

type createFilmInput struct {
	FilmInput
	ID uint `json:"id"`
}

// FilmResponse defines the public representation of a film.
type FilmResponse struct {
	ID          uint          `json:"id" example:"1"`
	Name        string        `json:"name" example:"Inception"`
	Description string        `json:"description"`
	ReleaseDate models.Date   `json:"release_date" swaggertype:"string" example:"2010-07-16"`
	Duration    int           `json:"duration" example:"148"`
	Mpa         *RefResponse  `json:"mpa"`
	Genres      []RefResponse `json:"genres"`
	Directors   []RefResponse `json:"directors"`
	Likes       int           `json:"likes" example:"42"`
	Rate        float64       `json:"rate" example:"8.5"`
}

// rate is the average of the explicit marks; plain likes do not count.
func rate(likes map[uint]int) float64 {
	sum, n := 0, 0
	for _, m := range likes {
		if m > 0 {
			sum += m
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func newFilmResponse(f models.Film) FilmResponse {
	resp := FilmResponse{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		ReleaseDate: f.ReleaseDate,
		Duration:    f.Duration,
		Genres:      make([]RefResponse, 0, len(f.Genres)),
		Directors:   make([]RefResponse, 0, len(f.Directors)),
		Likes:       f.LikeCount(),
		Rate:        rate(f.Likes),
	}
	if f.Mpa != nil {
		resp.Mpa = &RefResponse{ID: f.Mpa.ID, Name: f.Mpa.Name}
	}
	for _, g := range f.Genres {
		resp.Genres = append(resp.Genres, RefResponse{ID: g.ID, Name: g.Name})
	}
	for _, d := range f.Directors {
		resp.Directors = append(resp.Directors, RefResponse{ID: d.ID, Name: d.Name})
	}
	return resp
}

func newFilmResponses(films []models.Film) []FilmResponse {
	out := make([]FilmResponse, 0, len(films))
	for _, f := range films {
		out = append(out, newFilmResponse(f))
	}
	return out
}

// endregion

// region --- Film CRUD ---

// CreateFilm godoc
// @Summary      Create a film
// @Description  Referenced mpa, genres and directors must exist. Name, release date and duration identify a film.
// @Tags         films
// @Accept       json
// @Produce      json
// @Param        input body FilmInput true "Film Info"
// @Success      201  {object}  FilmResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Unknown mpa, genre or director"
// @Failure      409  {object}  ErrorResponse "Film already exists"
// @Router       /films [post]
func (h *Handler) CreateFilm(c *gin.Context) {
	var input createFilmInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	film, err := h.svc.CreateFilm(c.Request.Context(), input.model(input.ID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newFilmResponse(*film))
}

// UpdateFilm godoc
// @Summary      Update a film
// @Description  Replaces fields and references of a film. Likes are kept.
// @Tags         films
// @Accept       json
// @Produce      json
// @Param        id    path      int        true  "Film ID"
// @Param        input body      FilmInput  true  "Film Info"
// @Success      200   {object}  FilmResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /films/{id} [put]
func (h *Handler) UpdateFilm(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input FilmInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	film, err := h.svc.UpdateFilm(c.Request.Context(), input.model(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFilmResponse(*film))
}

// GetFilms godoc
// @Summary      List films
// @Tags         films
// @Produce      json
// @Param        page  query     int  false  "Page number" default(1)
// @Param        limit query     int  false  "Items per page"
// @Success      200   {array}   FilmResponse
// @Router       /films [get]
func (h *Handler) GetFilms(c *gin.Context) {
	films, err := h.svc.Films(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, newFilmResponses(films))
}

// GetFilm godoc
// @Summary      Get a film
// @Tags         films
// @Produce      json
// @Param        id   path      int  true  "Film ID"
// @Success      200  {object}  FilmResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /films/{id} [get]
func (h *Handler) GetFilm(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	film, err := h.svc.Film(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFilmResponse(*film))
}

// DeleteFilm godoc
// @Summary      Delete a film
// @Tags         films
// @Param        id   path  int  true  "Film ID"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Router       /films/{id} [delete]
func (h *Handler) DeleteFilm(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteFilm(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteFilms godoc
// @Summary      Delete all films
// @Tags         films
// @Success      204
// @Router       /films [delete]
func (h *Handler) DeleteFilms(c *gin.Context) {
	if err := h.svc.DeleteFilms(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// endregion

// region --- Likes and rankings ---

func filmAndUser(c *gin.Context) (uint, uint, bool) {
	filmID, ok := pathID(c, "id")
	if !ok {
		return 0, 0, false
	}
	userID, ok := pathID(c, "user_id")
	if !ok {
		return 0, 0, false
	}
	return filmID, userID, true
}

// AddLike godoc
// @Summary      Like a film
// @Tags         likes
// @Param        id       path   int  true   "Film ID"
// @Param        user_id  path   int  true   "User ID"
// @Param        mark     query  int  false  "Mark from 1 to 10; omit for a plain like"
// @Success      204
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "Already liked"
// @Router       /films/{id}/like/{user_id} [put]
func (h *Handler) AddLike(c *gin.Context) {
	filmID, userID, ok := filmAndUser(c)
	if !ok {
		return
	}
	mark, ok := optionalInt(c, "mark", 0)
	if !ok {
		return
	}

	if err := h.svc.AddLike(c.Request.Context(), filmID, userID, mark); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveLike godoc
// @Summary      Remove a like
// @Tags         likes
// @Param        id       path  int  true  "Film ID"
// @Param        user_id  path  int  true  "User ID"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Router       /films/{id}/like/{user_id} [delete]
func (h *Handler) RemoveLike(c *gin.Context) {
	filmID, userID, ok := filmAndUser(c)
	if !ok {
		return
	}

	if err := h.svc.RemoveLike(c.Request.Context(), filmID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetPopularFilms godoc
// @Summary      Most liked films
// @Description  Ordered by number of likes, ties broken by id.
// @Tags         films
// @Produce      json
// @Param        count     query     int  false  "Number of films" default(10)
// @Param        genre_id  query     int  false  "Only films of this genre"
// @Param        year      query     int  false  "Only films released this year"
// @Success      200       {array}   FilmResponse
// @Failure      400       {object}  ErrorResponse
// @Router       /films/popular [get]
func (h *Handler) GetPopularFilms(c *gin.Context) {
	count, ok := optionalInt(c, "count", 10)
	if !ok {
		return
	}
	genreID, ok := optionalInt(c, "genre_id", 0)
	if !ok {
		return
	}
	year, ok := optionalInt(c, "year", 0)
	if !ok {
		return
	}
	if genreID < 0 || year < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "genre_id and year must not be negative"})
		return
	}

	films, err := h.svc.Popular(c.Request.Context(), storage.PopularFilter{Count: count, GenreID: uint(genreID), Year: year})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFilmResponses(films))
}

// GetDirectorFilms godoc
// @Summary      Films of a director
// @Tags         films
// @Produce      json
// @Param        director_id  path      int     true   "Director ID"
// @Param        sort_by      query     string  false  "year or likes" default(year)
// @Success      200          {array}   FilmResponse
// @Failure      400          {object}  ErrorResponse
// @Failure      404          {object}  ErrorResponse
// @Router       /films/director/{director_id} [get]
func (h *Handler) GetDirectorFilms(c *gin.Context) {
	directorID, ok := pathID(c, "director_id")
	if !ok {
		return
	}

	films, err := h.svc.DirectorFilms(c.Request.Context(), directorID, c.DefaultQuery("sort_by", service.SortByYear))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFilmResponses(films))
}

// GetCommonFilms godoc
// @Summary      Films liked by both users
// @Tags         films
// @Produce      json
// @Param        user_id    query     int  true  "User ID"
// @Param        friend_id  query     int  true  "Friend ID"
// @Success      200        {array}   FilmResponse
// @Failure      400        {object}  ErrorResponse
// @Failure      404        {object}  ErrorResponse
// @Router       /films/common [get]
func (h *Handler) GetCommonFilms(c *gin.Context) {
	userID, ok := queryID(c, "user_id")
	if !ok {
		return
	}
	friendID, ok := queryID(c, "friend_id")
	if !ok {
		return
	}

	films, err := h.svc.CommonFilms(c.Request.Context(), userID, friendID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFilmResponses(films))
}

// SearchFilms godoc
// @Summary      Search films
// @Description  Case-insensitive substring search over titles and/or director names.
// @Tags         films
// @Produce      json
// @Param        query  query     string  true   "Text to look for"
// @Param        by     query     string  false  "Comma separated: title,director" default(title)
// @Success      200    {array}   FilmResponse
// @Failure      400    {object}  ErrorResponse
// @Router       /films/search [get]
func (h *Handler) SearchFilms(c *gin.Context) {
	films, err := h.svc.SearchFilms(c.Request.Context(), c.Query("query"), splitCommaSeparated(c.Query("by")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFilmResponses(films))
}

// GetRecommendations godoc
// @Summary      Film recommendations
// @Description  Films liked by the users with the most similar taste that the user has not liked yet.
// @Tags         films
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {array}   FilmResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id}/recommendations [get]
func (h *Handler) GetRecommendations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	films, err := h.svc.Recommendations(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFilmResponses(films))
}

// endregion

// Helper to split comma-separated strings
func splitCommaSeparated(s string) []string {
	var result []string
	parts := strings.Split(s, ",")
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
