package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
	"taskboard/internal/service"
)

type registrationRequest struct {
	FullName         string `json:"fullname"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	RepeatedPassword string `json:"repeated_password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister creates an account and returns a token for it.
func (s *Server) handleRegister(c *gin.Context) {
	var req registrationRequest
	if !s.bindJSON(c, &req, nil) {
		return
	}

	user, err := s.svc.Register(c.Request.Context(), service.Registration{
		FullName:         req.FullName,
		Email:            req.Email,
		Password:         req.Password,
		RepeatedPassword: req.RepeatedPassword,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondWithToken(c, http.StatusCreated, user)
}

// handleLogin exchanges email and password for a token.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !s.bindJSON(c, &req, nil) {
		return
	}

	user, err := s.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondWithToken(c, http.StatusOK, user)
}

// handleEmailCheck resolves an email address to a user, so clients can
// pick board members.
func (s *Server) handleEmailCheck(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"email": "This query parameter is required."})
		return
	}

	user, err := s.svc.UserByEmail(c.Request.Context(), email)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, toUserView(user))
}

func (s *Server) respondWithToken(c *gin.Context, status int, user models.User) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.logger.Info("token issued", slog.Int64("user_id", user.ID))
	respondSuccess(c, status, toAuthView(user, token))
}
