package handler

import (
	"net/http"

	"filmrate/backend/internal/models"
	"filmrate/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// RefNameInput defines the body of genre, mpa and director requests.
type RefNameInput struct {
	Name string `json:"name" example:"Drama"`
}

type createRefInput struct {
	RefNameInput
	ID uint `json:"id"`
}

// RefResponse is a genre, mpa rating or director.
type RefResponse struct {
	ID   uint   `json:"id" example:"1"`
	Name string `json:"name" example:"Drama"`
}

// catalogHandler serves one reference family. The three families share the handlers.
type catalogHandler[T any, PT models.RefPtr[T]] struct {
	catalog *service.Catalog[T, PT]
}

func newCatalogHandler[T any, PT models.RefPtr[T]](catalog *service.Catalog[T, PT]) *catalogHandler[T, PT] {
	return &catalogHandler[T, PT]{catalog: catalog}
}

func registerCatalog[T any, PT models.RefPtr[T]](g *gin.RouterGroup, h *catalogHandler[T, PT]) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.DELETE("", h.DeleteAll)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func newRefResponse[T any, PT models.RefPtr[T]](item *T) RefResponse {
	r := PT(item).Ref()
	return RefResponse{ID: r.ID, Name: r.Name}
}

func refOf[T any, PT models.RefPtr[T]](id uint, name string) *T {
	var item T
	r := PT(&item).Ref()
	r.ID, r.Name = id, name
	return &item
}

// Create godoc
// @Summary      Create a genre, mpa rating or director
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        input body RefNameInput true "Name"
// @Success      201  {object}  RefResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "Name already taken"
// @Router       /genres [post]
// @Router       /mpa [post]
// @Router       /directors [post]
func (h *catalogHandler[T, PT]) Create(c *gin.Context) {
	var input createRefInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	item, err := h.catalog.Create(c.Request.Context(), refOf[T, PT](input.ID, input.Name))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newRefResponse[T, PT](item))
}

// Update godoc
// @Summary      Rename a genre, mpa rating or director
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        id    path      int           true  "ID"
// @Param        input body      RefNameInput  true  "Name"
// @Success      200   {object}  RefResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /genres/{id} [put]
// @Router       /mpa/{id} [put]
// @Router       /directors/{id} [put]
func (h *catalogHandler[T, PT]) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input RefNameInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	item, err := h.catalog.Update(c.Request.Context(), refOf[T, PT](id, input.Name))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRefResponse[T, PT](item))
}

// List godoc
// @Summary      List genres, mpa ratings or directors
// @Tags         catalog
// @Produce      json
// @Param        page  query     int  false  "Page number" default(1)
// @Param        limit query     int  false  "Items per page"
// @Success      200   {array}   RefResponse
// @Router       /genres [get]
// @Router       /mpa [get]
// @Router       /directors [get]
func (h *catalogHandler[T, PT]) List(c *gin.Context) {
	items, err := h.catalog.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]RefResponse, 0, len(items))
	for i := range items {
		out = append(out, newRefResponse[T, PT](&items[i]))
	}
	respondList(c, out)
}

// Get godoc
// @Summary      Get a genre, mpa rating or director
// @Tags         catalog
// @Produce      json
// @Param        id   path      int  true  "ID"
// @Success      200  {object}  RefResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /genres/{id} [get]
// @Router       /mpa/{id} [get]
// @Router       /directors/{id} [get]
func (h *catalogHandler[T, PT]) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	item, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRefResponse[T, PT](item))
}

// Delete godoc
// @Summary      Delete a genre, mpa rating or director
// @Description  Films referencing it lose the reference.
// @Tags         catalog
// @Param        id   path  int  true  "ID"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Router       /genres/{id} [delete]
// @Router       /mpa/{id} [delete]
// @Router       /directors/{id} [delete]
func (h *catalogHandler[T, PT]) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteAll godoc
// @Summary      Delete every genre, mpa rating or director
// @Tags         catalog
// @Success      204
// @Router       /genres [delete]
// @Router       /mpa [delete]
// @Router       /directors [delete]
func (h *catalogHandler[T, PT]) DeleteAll(c *gin.Context) {
	if err := h.catalog.DeleteAll(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
