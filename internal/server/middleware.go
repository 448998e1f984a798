package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
	"taskboard/internal/service"
)

const currentUserKey = "currentUser"

// requireAuth resolves the bearer token to a user and stores it on the
// context. Requests without a valid token stop with 401.
func (s *Server) requireAuth(c *gin.Context) {
	c.Header("Vary", "Authorization")

	raw, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		abortUnauthorized(c, "Authentication credentials were not provided.")
		return
	}

	userID, err := s.tokens.Verify(raw)
	if err != nil {
		abortUnauthorized(c, "Invalid token.")
		return
	}

	user, err := s.svc.UserByID(c.Request.Context(), userID)
	if err != nil {
		var nf *service.NotFoundError
		if errors.As(err, &nf) {
			abortUnauthorized(c, "User no longer exists.")
			return
		}
		s.logger.Error("load token user", slog.Int64("user_id", userID), slog.String("error", err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
		return
	}

	c.Set(currentUserKey, user)
	c.Next()
}

// bearerToken extracts the token from "Bearer <token>" or "Token <token>".
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") && !strings.EqualFold(parts[0], "Token") {
		return "", false
	}
	return parts[1], true
}

func abortUnauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
}

// currentUser returns the user stored by requireAuth.
func currentUser(c *gin.Context) models.User {
	u, _ := c.MustGet(currentUserKey).(models.User)
	return u
}
