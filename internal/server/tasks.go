package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
	"taskboard/internal/service"
)

type createTaskRequest struct {
	Board       int64           `json:"board"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      models.Status   `json:"status"`
	Priority    models.Priority `json:"priority"`
	AssigneeID  *int64          `json:"assignee_id"`
	ReviewerID  *int64          `json:"reviewer_id"`
	DueDate     *models.Date    `json:"due_date"`
}

type updateTaskRequest struct {
	Board       *int64                       `json:"board"`
	Title       *string                      `json:"title"`
	Description *string                      `json:"description"`
	Status      *models.Status               `json:"status"`
	Priority    *models.Priority             `json:"priority"`
	AssigneeID  models.Optional[int64]       `json:"assignee_id"`
	ReviewerID  models.Optional[int64]       `json:"reviewer_id"`
	DueDate     models.Optional[models.Date] `json:"due_date"`
}

// handleCreateTask adds a task to a board the caller belongs to.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if !s.bindJSON(c, &req, nil) {
		return
	}

	task, err := s.svc.CreateTask(c.Request.Context(), currentUser(c).ID, service.NewTask{
		BoardID:     req.Board,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  deref(req.AssigneeID),
		ReviewerID:  deref(req.ReviewerID),
		DueDate:     req.DueDate,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, toTaskView(task))
}

// handleGetTask returns a single task.
func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	task, err := s.svc.GetTask(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, toTaskView(task))
}

// handleUpdateTask applies a partial update to a task.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actorID := currentUser(c).ID

	var req updateTaskRequest
	if !s.bindJSON(c, &req, s.taskProbe(actorID, id)) {
		return
	}

	task, err := s.svc.UpdateTask(c.Request.Context(), actorID, id, service.TaskUpdate{
		BoardID:     req.Board,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		ReviewerID:  req.ReviewerID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, toTaskView(task))
}

// handleDeleteTask removes a task. Only the board owner may do so.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.svc.DeleteTask(c.Request.Context(), currentUser(c).ID, id); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusNoContent, nil)
}

// handleAssignedToMe lists tasks assigned to the caller.
func (s *Server) handleAssignedToMe(c *gin.Context) {
	tasks, err := s.svc.ListAssignedTo(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, toTaskViews(tasks))
}

// handleReviewing lists tasks the caller reviews.
func (s *Server) handleReviewing(c *gin.Context) {
	tasks, err := s.svc.ListReviewing(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, toTaskViews(tasks))
}

// taskProbe reports whether the task exists and the actor may use it.
func (s *Server) taskProbe(actorID, taskID int64) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := s.svc.GetTask(ctx, actorID, taskID)
		return err
	}
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
