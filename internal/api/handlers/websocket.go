package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"course-chat-service/internal/api/middleware"
	"course-chat-service/internal/auth"
	ws "course-chat-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			return true
		}
		if customOrigins := os.Getenv("ALLOWED_ORIGINS"); customOrigins != "" {
			for _, allowed := range strings.Split(customOrigins, ",") {
				if origin == strings.TrimSpace(allowed) {
					return true
				}
			}
		}
		return false
	},
}

type WSHandler struct {
	hub      *ws.Hub
	gateway  *ws.Gateway
	verifier *auth.Verifier
}

func NewWSHandler(hub *ws.Hub, gateway *ws.Gateway, verifier *auth.Verifier) *WSHandler {
	return &WSHandler{hub: hub, gateway: gateway, verifier: verifier}
}

// HandleWebSocket godoc
// @Summary WebSocket connection
// @Description Authenticate the upgrade request and establish the realtime connection
// @Tags websocket
// @Param token query string false "Bearer token (alternative to the Authorization header)"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} map[string]string "Missing or invalid token"
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	// The upgrade request is the handshake: a connection without a valid
	// token is rejected before any event can be processed.
	token := middleware.BearerToken(c.Request)
	if token == "" {
		slog.Warn("websocket connection rejected: no token", "remote", c.ClientIP())
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
		return
	}

	identity, err := h.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		slog.Warn("websocket connection rejected: invalid token", "remote", c.ClientIP())
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "userID", identity.UserID, "error", err)
		return
	}

	client := ws.NewClient(h.hub, h.gateway, conn, *identity)
	client.Serve()
}
