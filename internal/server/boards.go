package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
	"taskboard/internal/service"
)

type createBoardRequest struct {
	Title   string  `json:"title"`
	Members []int64 `json:"members"`
}

type updateBoardRequest struct {
	Title   models.Optional[string]  `json:"title"`
	Members models.Optional[[]int64] `json:"members"`
}

// handleListBoards returns the boards the caller owns or belongs to.
func (s *Server) handleListBoards(c *gin.Context) {
	boards, err := s.svc.ListBoards(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, toBoardViews(boards))
}

// handleCreateBoard creates a board owned by the caller.
func (s *Server) handleCreateBoard(c *gin.Context) {
	var req createBoardRequest
	if !s.bindJSON(c, &req, nil) {
		return
	}

	board, err := s.svc.CreateBoard(c.Request.Context(), currentUser(c).ID, req.Title, req.Members)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, toBoardView(board))
}

// handleGetBoard returns a board with its members and tasks.
func (s *Server) handleGetBoard(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	board, err := s.svc.GetBoard(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, toBoardDetailView(board))
}

// handleUpdateBoard renames a board and/or replaces its member list.
func (s *Server) handleUpdateBoard(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actorID := currentUser(c).ID

	var req updateBoardRequest
	if !s.bindJSON(c, &req, s.boardProbe(actorID, id)) {
		return
	}

	update := service.BoardUpdate{}
	if req.Title.Set {
		if req.Title.Null {
			s.rejectNull(c, actorID, id, "title")
			return
		}
		update.Title = &req.Title.Value
	}
	if req.Members.Set {
		if req.Members.Null {
			s.rejectNull(c, actorID, id, "members")
			return
		}
		update.Members = req.Members.Value
		if update.Members == nil {
			update.Members = []int64{}
		}
	}

	board, err := s.svc.UpdateBoard(c.Request.Context(), actorID, id, update)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, toBoardView(board))
}

// handleDeleteBoard removes a board. Only its owner may do so.
func (s *Server) handleDeleteBoard(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.svc.DeleteBoard(c.Request.Context(), currentUser(c).ID, id); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusNoContent, nil)
}

// boardProbe reports whether the board exists and the actor may use it.
func (s *Server) boardProbe(actorID, boardID int64) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := s.svc.GetBoard(ctx, actorID, boardID)
		return err
	}
}

// rejectNull answers 400 for a non-nullable board field, after the usual
// existence and permission checks.
func (s *Server) rejectNull(c *gin.Context, actorID, boardID int64, field string) {
	if err := s.boardProbe(actorID, boardID)(c.Request.Context()); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{field: "This field may not be null."})
}
