package handler

import (
	"net/http"

	"filmrate/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// UserInput defines the body of user create and update requests.
type UserInput struct {
	Email    string      `json:"email" example:"john@example.com"`
	Login    string      `json:"login" example:"john"`
	Name     string      `json:"name" example:"John Lennon"`
	Birthday models.Date `json:"birthday" swaggertype:"string" example:"1940-10-09"`
}

func (in UserInput) model(id uint) *models.User {
	return &models.User{
		ID:       id,
		Email:    in.Email,
		Login:    in.Login,
		Name:     in.Name,
		Birthday: in.Birthday,
	}
}

// UserResponse defines the public representation of a user.
type UserResponse struct {
	ID       uint        `json:"id" example:"1"`
	Email    string      `json:"email" example:"john@example.com"`
	Login    string      `json:"login" example:"john"`
	Name     string      `json:"name" example:"John Lennon"`
	Birthday models.Date `json:"birthday" swaggertype:"string" example:"1940-10-09"`
}

func newUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Email:    u.Email,
		Login:    u.Login,
		Name:     u.Name,
		Birthday: u.Birthday,
	}
}

func newUserResponses(users []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, newUserResponse(u))
	}
	return out
}

// createUserInput accepts an id only to reject it.
type createUserInput struct {
	UserInput
	ID uint `json:"id"`
}

// endregion

// CreateUser godoc
// @Summary      Create a user
// @Description  Registers a new user. Email is stored lower-cased; name defaults to the login.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        input body UserInput true "User Info"
// @Success      201  {object}  UserResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "Login or email already taken"
// @Failure      500  {object}  ErrorResponse
// @Router       /users [post]
func (h *Handler) CreateUser(c *gin.Context) {
	var input createUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	user, err := h.svc.CreateUser(c.Request.Context(), input.model(input.ID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newUserResponse(*user))
}

// UpdateUser godoc
// @Summary      Update a user
// @Description  Replaces every field of an existing user.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      int        true  "User ID"
// @Param        input body      UserInput  true  "User Info"
// @Success      200   {object}  UserResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /users/{id} [put]
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input UserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	user, err := h.svc.UpdateUser(c.Request.Context(), input.model(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(*user))
}

// GetUsers godoc
// @Summary      List users
// @Description  Returns every user ordered by id. With limit the response is paginated.
// @Tags         users
// @Produce      json
// @Param        page  query     int  false  "Page number" default(1)
// @Param        limit query     int  false  "Items per page"
// @Success      200   {array}   UserResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /users [get]
func (h *Handler) GetUsers(c *gin.Context) {
	users, err := h.svc.Users(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, newUserResponses(users))
}

// GetUser godoc
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  UserResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := h.svc.User(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(*user))
}

// DeleteUser godoc
// @Summary      Delete a user
// @Description  Deletes the user together with its relationships and likes.
// @Tags         users
// @Param        id   path  int  true  "User ID"
// @Success      204
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteUsers godoc
// @Summary      Delete all users
// @Description  Clears the user family. The next created user gets id 1.
// @Tags         users
// @Success      204
// @Router       /users [delete]
func (h *Handler) DeleteUsers(c *gin.Context) {
	if err := h.svc.DeleteUsers(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
