package handler

import (
	"log/slog"

	"filmrate/backend/internal/hub"
	"filmrate/backend/pkg/logctx"

	"github.com/gin-gonic/gin"
)

// eventBuffer is how many events a slow stream may lag behind before it misses some.
const eventBuffer = 16

// StreamEvents godoc
// @Summary      Stream user events
// @Description  Server-Sent Events: friend requests, friendships, removals and likes of friends.
// @Description  The first event is "ready" once the stream is subscribed.
// @Tags         events
// @Produce      text/event-stream
// @Param        id   path      int  true  "User ID"
// @Success      200  {string}  string  "event stream"
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id}/events [get]
func (h *Handler) StreamEvents(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.svc.User(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	log := logctx.From(c.Request.Context()).With(slog.Uint64("user_id", uint64(id)))
	client := make(hub.Client, eventBuffer)
	h.hub.Subscribe(id, client)
	log.Debug("event stream opened", slog.Int("streams", h.hub.Subscribers(id)))
	defer func() {
		h.hub.Unsubscribe(id, client)
		log.Debug("event stream closed", slog.Int("streams", h.hub.Subscribers(id)))
	}()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent("ready", gin.H{"user_id": id})
	c.Writer.Flush()

	done := c.Request.Context().Done()
	for {
		select {
		case <-done:
			return
		case msg, open := <-client:
			if !open {
				return
			}
			c.SSEvent("message", string(msg))
			c.Writer.Flush()
		}
	}
}
