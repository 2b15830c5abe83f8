package middleware

import (
	"net/http"
	"strings"

	"course-chat-service/internal/auth"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// AuthMiddleware authenticates REST requests with the same token verifier
// the websocket gateway uses, so both surfaces accept exactly the same
// credentials.
type AuthMiddleware struct {
	verifier *auth.Verifier
}

func NewAuthMiddleware(verifier *auth.Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		identity, err := m.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// Identity returns the verified identity set by RequireAuth.
func Identity(c *gin.Context) *auth.Identity {
	value, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := value.(*auth.Identity)
	return identity
}

// BearerToken extracts the credential from the Authorization header or,
// for websocket upgrades where browsers cannot set headers, the token
// query parameter.
func BearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
