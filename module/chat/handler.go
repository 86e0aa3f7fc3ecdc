package chat

import (
	"net/http"

	"YChat/middleware/security"
	"YChat/service/realtime"
	"YChat/service/storage"
	"YChat/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler carries the small HTTP surface around conversations: creating one
// (which pushes the `new conversation` event to every affected live session)
// and reading history back.
type Handler struct {
	store  *storage.MongoConversationStore
	events *realtime.ServerEventEmitter
}

func NewHandler(store *storage.MongoConversationStore, events *realtime.ServerEventEmitter) *Handler {
	return &Handler{store: store, events: events}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.create)
	rg.GET("/:conversationId/messages", h.history)
}

type createConversationReq struct {
	Members []string `json:"members"`
}

func (h *Handler) create(c *gin.Context) {
	var req createConversationReq
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Members) == 0 {
		c.JSON(http.StatusBadRequest, errs.ErrValidationFailed.WithDetail("members list required"))
		return
	}

	// The creator is always a member, whether listed or not.
	creator := c.GetString(security.CtxUserIDKey)
	members := req.Members
	found := false
	for _, m := range members {
		if m == creator {
			found = true
			break
		}
	}
	if !found {
		members = append(members, creator)
	}

	conversationID := uuid.NewString()
	if err := h.store.CreateConversation(c.Request.Context(), conversationID, members); err != nil {
		c.JSON(http.StatusInternalServerError, errs.AsCodeError(err))
		return
	}

	h.events.NewConversation(members, gin.H{
		"conversationId": conversationID,
		"members":        members,
	})

	c.JSON(http.StatusOK, gin.H{"conversationId": conversationID, "members": members})
}

func (h *Handler) history(c *gin.Context) {
	conversationID := c.Param("conversationId")

	members, err := h.store.GetMembers(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errs.AsCodeError(err))
		return
	}
	caller := c.GetString(security.CtxUserIDKey)
	isMember := false
	for _, m := range members {
		if m == caller {
			isMember = true
			break
		}
	}
	if !isMember {
		c.JSON(http.StatusForbidden, errs.ErrForbidden.WithDetail("not a conversation member"))
		return
	}

	msgs, err := h.store.MessagesByConversation(c.Request.Context(), conversationID, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errs.AsCodeError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
