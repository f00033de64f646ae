package handler

import (
	"net/http"
	"time"

	"filmrate/backend/internal/models"
	"filmrate/backend/internal/relation"

	"github.com/gin-gonic/gin"
)

// FriendshipResponse reports both directions of a relationship after a change,
// seen from the acting user.
type FriendshipResponse struct {
	UserID       uint                    `json:"user_id" example:"1"`
	FriendID     uint                    `json:"friend_id" example:"2"`
	Status       models.FriendshipStatus `json:"status" swaggertype:"string" example:"APPLICATION"`
	FriendStatus models.FriendshipStatus `json:"friend_status" swaggertype:"string" example:"SUBSCRIPTION"`
}

func newFriendshipResponse(userID, friendID uint, p relation.Pair) FriendshipResponse {
	return FriendshipResponse{UserID: userID, FriendID: friendID, Status: p.Forward, FriendStatus: p.Backward}
}

// RelationResponse is one outgoing relationship edge.
type RelationResponse struct {
	UserID    uint                    `json:"user_id" example:"2"`
	Status    models.FriendshipStatus `json:"status" swaggertype:"string" example:"FRIENDSHIP"`
	UpdatedAt string                  `json:"updated_at,omitempty" example:"2024-06-15T12:00:00Z"`
}

// friendPair reads the :id and :friend_id path parameters.
func friendPair(c *gin.Context) (uint, uint, bool) {
	userID, ok := pathID(c, "id")
	if !ok {
		return 0, 0, false
	}
	friendID, ok := pathID(c, "friend_id")
	if !ok {
		return 0, 0, false
	}
	return userID, friendID, true
}

// RequestFriendship godoc
// @Summary      Send or accept a friend request
// @Description  If the other user already asked (or follows), both become friends. Otherwise a request is sent.
// @Tags         friendship
// @Produce      json
// @Param        id         path      int  true  "User ID"
// @Param        friend_id  path      int  true  "Target User ID"
// @Success      200        {object}  FriendshipResponse
// @Failure      400        {object}  ErrorResponse "Self-friendship or invalid id"
// @Failure      404        {object}  ErrorResponse
// @Failure      409        {object}  ErrorResponse "Already friends or request pending"
// @Router       /users/{id}/friends/{friend_id} [put]
func (h *Handler) RequestFriendship(c *gin.Context) {
	userID, friendID, ok := friendPair(c)
	if !ok {
		return
	}

	pair, err := h.svc.RequestFriendship(c.Request.Context(), userID, friendID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFriendshipResponse(userID, friendID, pair))
}

// RemoveFriendship godoc
// @Summary      Remove a friend or cancel a request
// @Description  A removed friend keeps following the user as a subscription.
// @Tags         friendship
// @Produce      json
// @Param        id         path      int  true  "User ID"
// @Param        friend_id  path      int  true  "Target User ID"
// @Success      200        {object}  FriendshipResponse
// @Failure      400        {object}  ErrorResponse
// @Failure      404        {object}  ErrorResponse "No relationship"
// @Router       /users/{id}/friends/{friend_id} [delete]
func (h *Handler) RemoveFriendship(c *gin.Context) {
	userID, friendID, ok := friendPair(c)
	if !ok {
		return
	}

	pair, err := h.svc.RemoveFriendship(c.Request.Context(), userID, friendID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFriendshipResponse(userID, friendID, pair))
}

// GetFriends godoc
// @Summary      List friends
// @Description  Users the given user has a confirmed friendship with, ordered by id.
// @Tags         friendship
// @Produce      json
// @Param        id    path      int  true   "User ID"
// @Param        page  query     int  false  "Page number" default(1)
// @Param        limit query     int  false  "Items per page"
// @Success      200   {array}   UserResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /users/{id}/friends [get]
func (h *Handler) GetFriends(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	friends, err := h.svc.Friends(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, newUserResponses(friends))
}

// GetCommonFriends godoc
// @Summary      List common friends
// @Tags         friendship
// @Produce      json
// @Param        id        path      int  true  "User ID"
// @Param        other_id  path      int  true  "Other User ID"
// @Success      200       {array}   UserResponse
// @Failure      404       {object}  ErrorResponse
// @Router       /users/{id}/friends/common/{other_id} [get]
func (h *Handler) GetCommonFriends(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	otherID, ok := pathID(c, "other_id")
	if !ok {
		return
	}

	common, err := h.svc.CommonFriends(c.Request.Context(), id, otherID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, newUserResponses(common))
}

// GetRelations godoc
// @Summary      Get user relations
// @Description  Every outgoing relationship edge of the user: APPLICATION, SUBSCRIPTION or FRIENDSHIP.
// @Tags         friendship
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {array}   RelationResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id}/relations [get]
func (h *Handler) GetRelations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	relations, err := h.svc.Relations(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]RelationResponse, 0, len(relations))
	for _, r := range relations {
		resp := RelationResponse{UserID: r.ToUserID, Status: r.Status}
		if !r.UpdatedAt.IsZero() {
			resp.UpdatedAt = r.UpdatedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, out)
}
