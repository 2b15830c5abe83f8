package handlers

import (
	"net/http"

	"course-chat-service/internal/api/middleware"
	"course-chat-service/internal/models"
	"course-chat-service/internal/services"

	"github.com/gin-gonic/gin"
)

type ChannelHandler struct {
	channelService *services.ChannelService
}

func NewChannelHandler(channelService *services.ChannelService) *ChannelHandler {
	return &ChannelHandler{channelService: channelService}
}

// ListChannels godoc
// @Summary List course channels
// @Description List every channel of a course the caller is a member of
// @Tags channels
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course ID"
// @Success 200 {array} models.ChannelResponse
// @Failure 403 {object} services.Error
// @Failure 404 {object} services.Error
// @Router /courses/{courseId}/channels [get]
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	identity := middleware.Identity(c)
	channels, err := h.channelService.ListChannels(c.Request.Context(), identity.UserID, c.Param("courseId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

// CreateChannel godoc
// @Summary Create a channel
// @Description Create a channel in a course; instructor roles only
// @Tags channels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course ID"
// @Param request body models.CreateChannelRequest true "Channel"
// @Success 201 {object} models.ChannelResponse
// @Failure 403 {object} services.Error
// @Router /courses/{courseId}/channels [post]
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	var req models.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := middleware.Identity(c)
	channel, err := h.channelService.CreateChannel(c.Request.Context(), identity.UserID, c.Param("courseId"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"channel": channel})
}

func (h *ChannelHandler) GetChannel(c *gin.Context) {
	identity := middleware.Identity(c)
	channel, err := h.channelService.GetChannel(c.Request.Context(), identity.UserID, c.Param("channelId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": channel})
}

func (h *ChannelHandler) UpdateChannel(c *gin.Context) {
	var req models.UpdateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := middleware.Identity(c)
	channel, err := h.channelService.UpdateChannel(c.Request.Context(), identity.UserID, c.Param("channelId"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": channel})
}

// DeleteChannel freezes the channel; rows are never removed.
func (h *ChannelHandler) DeleteChannel(c *gin.Context) {
	identity := middleware.Identity(c)
	if err := h.channelService.DeleteChannel(c.Request.Context(), identity.UserID, c.Param("channelId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChannelHandler) ListMembers(c *gin.Context) {
	identity := middleware.Identity(c)
	members, err := h.channelService.ListMembers(c.Request.Context(), identity.UserID, c.Param("channelId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (h *ChannelHandler) AddMember(c *gin.Context) {
	var req models.AddChannelMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := middleware.Identity(c)
	member, err := h.channelService.AddMember(c.Request.Context(), identity.UserID, c.Param("channelId"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"member": member})
}

// UpdateMemberStatus answers a pending channel invitation.
func (h *ChannelHandler) UpdateMemberStatus(c *gin.Context) {
	var req models.UpdateChannelMemberStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := middleware.Identity(c)
	member, err := h.channelService.UpdateMemberStatus(c.Request.Context(), identity.UserID, c.Param("channelId"), c.Param("memberId"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": member})
}

func (h *ChannelHandler) ListThreads(c *gin.Context) {
	identity := middleware.Identity(c)
	threads, err := h.channelService.ListThreads(c.Request.Context(), identity.UserID, c.Param("channelId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

func (h *ChannelHandler) CreateThread(c *gin.Context) {
	var req models.CreateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := middleware.Identity(c)
	thread, err := h.channelService.CreateThread(c.Request.Context(), identity.UserID, c.Param("channelId"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"thread": thread})
}

// respondError maps a service error to its HTTP shape. The closed taxonomy
// keeps internal detail out of response bodies.
func respondError(c *gin.Context, err error) {
	svcErr := services.AsError(err)
	c.JSON(services.HTTPStatus(svcErr), gin.H{"error": svcErr})
}
