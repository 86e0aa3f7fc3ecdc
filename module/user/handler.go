package user

import (
	"net/http"

	"YChat/service/presence"

	"github.com/gin-gonic/gin"
)

// Handler exposes the presence directory's outward-facing query surface over
// HTTP: a last-seen lookup and an online enumeration.
type Handler struct {
	dir *presence.Directory
}

func NewHandler(dir *presence.Directory) *Handler {
	return &Handler{dir: dir}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/online", h.listOnline)
	rg.GET("/:userId/lastseen", h.lastSeen)
}

// lastSeen answers with the user-level activity timestamp. A user with no
// live connection has no presence entry at all, so the answer degrades to
// online=false with no timestamp.
func (h *Handler) lastSeen(c *gin.Context) {
	userID := c.Param("userId")
	last, ok := h.dir.LastActivity(userID)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"userId": userID, "online": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":     userID,
		"online":     true,
		"lastSeenAt": last.UnixMilli(),
	})
}

func (h *Handler) listOnline(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.dir.Users()})
}
