// Package handler exposes the service over HTTP with gin.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"filmrate/backend/internal/hub"
	"filmrate/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// Handler holds the dependencies of every endpoint.
type Handler struct {
	svc *service.Service
	hub *hub.Hub
}

// New creates a Handler.
func New(svc *service.Service, h *hub.Hub) *Handler {
	return &Handler{svc: svc, hub: h}
}

// Register mounts every endpoint on the group (usually /api/v1).
func (h *Handler) Register(api *gin.RouterGroup) {
	users := api.Group("/users")
	{
		users.POST("", h.CreateUser)
		users.GET("", h.GetUsers)
		users.DELETE("", h.DeleteUsers)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)

		// Relationship routes
		users.PUT("/:id/friends/:friend_id", h.RequestFriendship)
		users.DELETE("/:id/friends/:friend_id", h.RemoveFriendship)
		users.GET("/:id/friends", h.GetFriends)
		users.GET("/:id/friends/common/:other_id", h.GetCommonFriends)
		users.GET("/:id/relations", h.GetRelations)

		users.GET("/:id/recommendations", h.GetRecommendations)
		users.GET("/:id/events", h.StreamEvents)
	}

	films := api.Group("/films")
	{
		films.POST("", h.CreateFilm)
		films.GET("", h.GetFilms)
		films.DELETE("", h.DeleteFilms)
		films.GET("/popular", h.GetPopularFilms)
		films.GET("/common", h.GetCommonFilms)
		films.GET("/search", h.SearchFilms)
		films.GET("/director/:director_id", h.GetDirectorFilms)
		films.GET("/:id", h.GetFilm)
		films.PUT("/:id", h.UpdateFilm)
		films.DELETE("/:id", h.DeleteFilm)
		films.PUT("/:id/like/:user_id", h.AddLike)
		films.DELETE("/:id/like/:user_id", h.RemoveLike)
	}

	registerCatalog(api.Group("/genres"), newCatalogHandler(h.svc.Genres()))
	registerCatalog(api.Group("/mpa"), newCatalogHandler(h.svc.Mpa()))
	registerCatalog(api.Group("/directors"), newCatalogHandler(h.svc.Directors()))
}

// respondError maps service errors to status codes. Internal failures never leak details.
func respondError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, service.ErrInternal.Error()

	var e *service.Error
	if errors.As(err, &e) {
		switch {
		case errors.Is(e.Kind, service.ErrValidation):
			status, msg = http.StatusBadRequest, e.Msg
		case errors.Is(e.Kind, service.ErrConflict):
			status, msg = http.StatusConflict, e.Msg
		case errors.Is(e.Kind, service.ErrNotFound):
			status, msg = http.StatusNotFound, e.Msg
		}
	}
	c.JSON(status, ErrorResponse{Error: msg})
}

// pathID parses a positive integer path parameter. On failure it writes a 400 and returns false.
func pathID(c *gin.Context, name string) (uint, bool) {
	return parseID(c, name, c.Param(name))
}

// queryID is pathID for query parameters.
func queryID(c *gin.Context, name string) (uint, bool) {
	return parseID(c, name, c.Query(name))
}

func parseID(c *gin.Context, name, raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// optionalInt parses an optional integer query parameter.
func optionalInt(c *gin.Context, name string, def int) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid " + name})
		return 0, false
	}
	return v, true
}
