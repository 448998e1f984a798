package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type commentRequest struct {
	Content string `json:"content"`
}

// handleListComments returns the comments of a task, oldest first.
func (s *Server) handleListComments(c *gin.Context) {
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}

	comments, err := s.svc.ListComments(c.Request.Context(), currentUser(c).ID, taskID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, toCommentViews(comments))
}

// handleCreateComment posts a comment on a task.
func (s *Server) handleCreateComment(c *gin.Context) {
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}
	actorID := currentUser(c).ID

	var req commentRequest
	if !s.bindJSON(c, &req, s.taskProbe(actorID, taskID)) {
		return
	}

	comment, err := s.svc.CreateComment(c.Request.Context(), actorID, taskID, req.Content)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, toCommentView(comment))
}

// handleDeleteComment removes a comment written by the caller.
func (s *Server) handleDeleteComment(c *gin.Context) {
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}
	commentID, ok := parseID(c, "comment_id")
	if !ok {
		return
	}

	if err := s.svc.DeleteComment(c.Request.Context(), currentUser(c).ID, taskID, commentID); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusNoContent, nil)
}
