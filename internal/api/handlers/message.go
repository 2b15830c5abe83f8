package handlers

import (
	"net/http"
	"strconv"

	"course-chat-service/internal/api/middleware"
	"course-chat-service/internal/models"
	"course-chat-service/internal/services"
	"course-chat-service/internal/websocket"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messageService *services.MessageService
	gateway        *websocket.Gateway
}

func NewMessageHandler(messageService *services.MessageService, gateway *websocket.Gateway) *MessageHandler {
	return &MessageHandler{messageService: messageService, gateway: gateway}
}

// ListMessages godoc
// @Summary List channel messages
// @Description Root messages of a channel, newest-first, cursor-paginated
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param channelId path string true "Channel ID"
// @Param limit query int false "Page size"
// @Param cursor query string false "Id of the last message of the previous page"
// @Success 200 {object} models.MessageListResponse
// @Failure 403 {object} services.Error
// @Failure 404 {object} services.Error
// @Router /channels/{channelId}/messages [get]
func (h *MessageHandler) ListMessages(c *gin.Context) {
	limit := services.DefaultPageSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	identity := middleware.Identity(c)
	page, err := h.messageService.ListMessages(c.Request.Context(), identity.UserID, c.Param("channelId"), limit, c.Query("cursor"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// SendMessage godoc
// @Summary Send a message
// @Description Persist a message and broadcast it to the channel's room
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param channelId path string true "Channel ID"
// @Param request body models.SendMessageRequest true "Message"
// @Success 201 {object} models.MessageResponse
// @Failure 403 {object} services.Error
// @Failure 404 {object} services.Error
// @Router /channels/{channelId}/messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := middleware.Identity(c)
	channelID := c.Param("channelId")
	message, err := h.messageService.SendMessage(c.Request.Context(), identity.UserID, channelID, services.SendMessageData{
		Text:        req.Text,
		ThreadID:    req.ThreadID,
		IsEmergency: req.IsEmergency,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// HTTP-originated writes reach socket subscribers through the same
	// room broadcast the gateway uses, after persistence.
	h.gateway.Broadcast(channelID, message)

	c.JSON(http.StatusCreated, gin.H{"message": message})
}

func (h *MessageHandler) UpdateMessage(c *gin.Context) {
	var req models.UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := middleware.Identity(c)
	message, err := h.messageService.UpdateMessage(c.Request.Context(), identity.UserID, c.Param("messageId"), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// DeleteMessage performs the logical delete; the row survives with the
// tombstone body.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	identity := middleware.Identity(c)
	if err := h.messageService.DeleteMessage(c.Request.Context(), identity.UserID, c.Param("messageId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) ListThreadMessages(c *gin.Context) {
	identity := middleware.Identity(c)
	messages, err := h.messageService.ListThreadMessages(c.Request.Context(), identity.UserID, c.Param("threadId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
