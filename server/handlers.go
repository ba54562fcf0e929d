package server

import (
	"io"
	"net/http"

	"github.com/Luismorlan/socialmux/server/middlewares"
	"github.com/gin-gonic/gin"
)

type rowRequest struct {
	RowID string `json:"row_id" binding:"required"`
}

type visibilityRequest struct {
	RowID   string `json:"row_id" binding:"required"`
	Visible bool   `json:"visible"`
}

type reactionRequest struct {
	RowID string `json:"row_id" binding:"required"`
	Emoji string `json:"emoji" binding:"required"`
}

type repostRequest struct {
	RowID string `json:"row_id" binding:"required"`
	// Confirmed reports that the caller passed the confirm (or undo) gate.
	Confirmed bool `json:"confirmed"`
}

type commentRequest struct {
	RowID string `json:"row_id" binding:"required"`
	Text  string `json:"text" binding:"required"`
}

// viewerID resolves the caller's viewer id, rejecting the request when it is
// absent. With auth bypassed the header can legitimately be missing, but a
// session keyed on the empty string must never be created.
func viewerID(c *gin.Context) (string, bool) {
	id := middlewares.ViewerID(c)
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing viewer identity"})
		return "", false
	}
	return id, true
}

// RegisterRoutes binds all feed endpoints onto the router group.
func RegisterRoutes(r gin.IRoutes, sessions *Sessions) {
	r.POST("/feed/load", loadFeedHandler(sessions))
	r.POST("/feed/more", loadMoreHandler(sessions))
	r.POST("/feed/visibility", visibilityHandler(sessions))
	r.POST("/feed/like", likeHandler(sessions))
	r.POST("/feed/reaction", reactionHandler(sessions))
	r.POST("/feed/repost", repostHandler(sessions))
	r.POST("/feed/comment", commentHandler(sessions))
	r.POST("/feed/release", releaseHandler(sessions))
	r.GET("/feed/stream", streamHandler(sessions))
}

func loadFeedHandler(sessions *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewerId, ok := viewerID(c)
		if !ok {
			return
		}
		rows, err := sessions.Engine(viewerId).LoadFeed(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rows": rows})
	}
}

func loadMoreHandler(sessions *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewerId, ok := viewerID(c)
		if !ok {
			return
		}
		engine := sessions.Engine(viewerId)
		rows, err := engine.LoadMore(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rows": rows, "has_more": engine.HasMore()})
	}
}

func visibilityHandler(sessions *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req visibilityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		viewerId, ok := viewerID(c)
		if !ok {
			return
		}
		sessions.Engine(viewerId).SetRowVisible(req.RowID, req.Visible)
		c.Status(http.StatusNoContent)
	}
}

func likeHandler(sessions *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req rowRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		viewerId, ok := viewerID(c)
		if !ok {
			return
		}
		if err := sessions.Engine(viewerId).PerformLike(c.Request.Context(), req.RowID); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func reactionHandler(sessions *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reactionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		viewerId, ok := viewerID(c)
		if !ok {
			return
		}
		if err := sessions.Engine(viewerId).PerformReaction(c.Request.Context(), req.RowID, req.Emoji); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func repostHandler(sessions *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req repostRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		viewerId, ok := viewerID(c)
		if !ok {
			return
		}
		// The confirmation UI lives client side; the gate just relays the
		// caller's decision.
		gate := func(undo bool) bool { return req.Confirmed }
		if err := sessions.Engine(viewerId).PerformRepost(c.Request.Context(), req.RowID, gate); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func commentHandler(sessions *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req commentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		viewerId, ok := viewerID(c)
		if !ok {
			return
		}
		if err := sessions.Engine(viewerId).PerformComment(c.Request.Context(), req.RowID, req.Text); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func releaseHandler(sessions *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewerId, ok := viewerID(c)
		if !ok {
			return
		}
		sessions.Release(viewerId)
		c.Status(http.StatusNoContent)
	}
}

// streamHandler serves rows-changed updates as server-sent events until the
// client disconnects.
func streamHandler(sessions *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewerId, ok := viewerID(c)
		if !ok {
			return
		}
		ch := sessions.Engine(viewerId).SubscribeRowsChanged(c.Request.Context())

		c.Stream(func(w io.Writer) bool {
			select {
			case update, ok := <-ch:
				if !ok {
					return false
				}
				c.SSEvent("rows", update)
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}
