package server

import (
	"io"

	"github.com/gin-gonic/gin"
)

// handleBoardEvents streams a board's object events over SSE. The
// subscription excludes events originated by the authenticated user
// unless include_self=true is passed, mirroring the echo suppression
// downstream sync clients rely on.
func (h *httpHandler) handleBoardEvents(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	excludeUser := userID
	if c.Query("include_self") == "true" {
		excludeUser = ""
	}

	stream, cancel := h.store.SubscribeEvents(c.Request.Context(), c.Param("boardID"), excludeUser)
	defer cancel()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(string(event.Type), toObjectPayload(event.Object))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
