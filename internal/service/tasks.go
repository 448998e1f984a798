package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"taskboard/internal/authz"
	"taskboard/internal/models"
	"taskboard/internal/storage"
	"taskboard/internal/textclean"
)

// TaskDetail is a task with its resolved assignee, reviewer and comment count.
type TaskDetail struct {
	Task          models.Task
	Assignee      *models.User
	Reviewer      *models.User
	CommentsCount int
}

// NewTask is the payload for creating a task. Zero AssigneeID or ReviewerID
// means unassigned.
type NewTask struct {
	BoardID     int64
	Title       string
	Description string
	Status      models.Status
	Priority    models.Priority
	AssigneeID  int64
	ReviewerID  int64
	DueDate     *models.Date
}

// TaskUpdate lists the task fields to change. For AssigneeID and ReviewerID
// an explicit null or 0 clears the role, a positive id sets it and an unset
// optional leaves it untouched. BoardID, when given, must equal the task's
// current board.
type TaskUpdate struct {
	BoardID     *int64
	Title       *string
	Description *string
	Status      *models.Status
	Priority    *models.Priority
	AssigneeID  models.Optional[int64]
	ReviewerID  models.Optional[int64]
	DueDate     models.Optional[models.Date]
}

var (
	statusChoices   = joinChoices(models.Statuses)
	priorityChoices = joinChoices(models.Priorities)
)

func joinChoices[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// CreateTask adds a task to a board the actor belongs to.
func (s *Service) CreateTask(ctx context.Context, actorID int64, in NewTask) (TaskDetail, error) {
	if in.BoardID <= 0 {
		return TaskDetail{}, invalid("board", "This field is required.")
	}
	board, err := s.store.GetBoard(ctx, in.BoardID)
	if errors.Is(err, storage.ErrNotFound) {
		return TaskDetail{}, invalid("board", "Board does not exist.")
	}
	if err != nil {
		return TaskDetail{}, fmt.Errorf("load board %d: %w", in.BoardID, err)
	}
	if err := s.requireMember(ctx, actorID, board, "You must be a member of the board to create a task."); err != nil {
		return TaskDetail{}, err
	}

	task := models.Task{
		BoardID:     board.ID,
		Title:       textclean.Normalize(in.Title),
		Description: textclean.Normalize(in.Description),
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
	}
	if task.Status == "" {
		task.Status = models.StatusToDo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}

	v := newValidator()
	v.check(task.Title != "", "title", "This field is required.")
	v.check(textclean.Len(task.Title) <= 255, "title", "Ensure this field has no more than 255 characters.")
	v.check(task.Status.Valid(), "status", "Invalid status. Must be one of: "+statusChoices)
	v.check(task.Priority.Valid(), "priority", "Invalid priority. Must be one of: "+priorityChoices)
	if in.AssigneeID != 0 {
		if err := s.checkBoardRole(ctx, v, board, "assignee_id", "Assignee", in.AssigneeID); err != nil {
			return TaskDetail{}, err
		}
		id := in.AssigneeID
		task.AssigneeID = &id
	}
	if in.ReviewerID != 0 {
		if err := s.checkBoardRole(ctx, v, board, "reviewer_id", "Reviewer", in.ReviewerID); err != nil {
			return TaskDetail{}, err
		}
		id := in.ReviewerID
		task.ReviewerID = &id
	}
	if err := v.err(); err != nil {
		return TaskDetail{}, err
	}

	created, err := s.store.CreateTask(ctx, task)
	if err != nil {
		return TaskDetail{}, fmt.Errorf("create task: %w", err)
	}
	s.logger.Info("task created", slog.Int64("task_id", created.ID), slog.Int64("board_id", board.ID))
	return s.describeTask(ctx, created)
}

// GetTask returns a single task visible to the actor.
func (s *Service) GetTask(ctx context.Context, actorID, taskID int64) (TaskDetail, error) {
	task, _, err := s.taskContext(ctx, actorID, taskID, "You must be a member of the board to view this task.")
	if err != nil {
		return TaskDetail{}, err
	}
	return s.describeTask(ctx, task)
}

// UpdateTask applies a partial update. Owner and members may update.
func (s *Service) UpdateTask(ctx context.Context, actorID, taskID int64, u TaskUpdate) (TaskDetail, error) {
	task, board, err := s.taskContext(ctx, actorID, taskID, "You must be a member of the board to update this task.")
	if err != nil {
		return TaskDetail{}, err
	}

	var patch storage.TaskPatch
	v := newValidator()
	if u.BoardID != nil {
		v.check(*u.BoardID == task.BoardID, "board", "The board of a task cannot be changed.")
	}
	if u.Title != nil {
		title := textclean.Normalize(*u.Title)
		v.check(title != "", "title", "This field may not be blank.")
		v.check(textclean.Len(title) <= 255, "title", "Ensure this field has no more than 255 characters.")
		patch.Title = &title
	}
	if u.Description != nil {
		description := textclean.Normalize(*u.Description)
		patch.Description = &description
	}
	if u.Status != nil {
		v.check(u.Status.Valid(), "status", "Invalid status. Must be one of: "+statusChoices)
		patch.Status = u.Status
	}
	if u.Priority != nil {
		v.check(u.Priority.Valid(), "priority", "Invalid priority. Must be one of: "+priorityChoices)
		patch.Priority = u.Priority
	}
	if patch.AssigneeID, err = s.roleChange(ctx, v, board, "assignee_id", "Assignee", u.AssigneeID); err != nil {
		return TaskDetail{}, err
	}
	if patch.ReviewerID, err = s.roleChange(ctx, v, board, "reviewer_id", "Reviewer", u.ReviewerID); err != nil {
		return TaskDetail{}, err
	}
	patch.DueDate = u.DueDate
	if err := v.err(); err != nil {
		return TaskDetail{}, err
	}

	updated, err := s.store.UpdateTask(ctx, task.ID, patch)
	if err != nil {
		_, err = resolve(updated, err, "task", taskID)
		return TaskDetail{}, err
	}
	return s.describeTask(ctx, updated)
}

// DeleteTask removes a task and its comments. Only the board owner may delete.
func (s *Service) DeleteTask(ctx context.Context, actorID, taskID int64) error {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}
	board, err := s.loadBoard(ctx, task.BoardID)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return &NotFoundError{Resource: "task", ID: taskID}
		}
		return err
	}
	if !authz.CanDeleteTask(actorID, board) {
		return &PermissionError{Detail: "Only the board owner can delete this task."}
	}
	if err := s.store.DeleteTask(ctx, task.ID); err != nil {
		_, err = resolve(0, err, "task", taskID)
		return err
	}
	s.logger.Info("task deleted", slog.Int64("task_id", task.ID), slog.Int64("board_id", board.ID))
	return nil
}

// ListAssignedTo returns the accessible tasks assigned to actorID.
func (s *Service) ListAssignedTo(ctx context.Context, actorID int64) ([]TaskDetail, error) {
	tasks, err := s.store.ListTasksAssignedTo(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return s.describeTasks(ctx, tasks)
}

// ListReviewing returns the accessible tasks actorID reviews.
func (s *Service) ListReviewing(ctx context.Context, actorID int64) ([]TaskDetail, error) {
	tasks, err := s.store.ListTasksReviewing(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return s.describeTasks(ctx, tasks)
}

// roleChange validates an assignee/reviewer patch and normalizes 0 to null.
func (s *Service) roleChange(ctx context.Context, v *validator, board models.Board, field, label string, o models.Optional[int64]) (models.Optional[int64], error) {
	if !o.Set {
		return o, nil
	}
	if o.Null || o.Value == 0 {
		return models.Null[int64](), nil
	}
	if err := s.checkBoardRole(ctx, v, board, field, label, o.Value); err != nil {
		return o, err
	}
	return o, nil
}

// checkBoardRole records a validation failure on field unless userID is an
// existing user who is the owner or a member of board.
func (s *Service) checkBoardRole(ctx context.Context, v *validator, board models.Board, field, label string, userID int64) error {
	_, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		v.check(false, field, label+" user does not exist.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s %d: %w", field, userID, err)
	}
	ok, err := authz.IsBoardMember(ctx, s.store, userID, board)
	if err != nil {
		return err
	}
	v.check(ok, field, label+" must be a member of the board.")
	return nil
}

func (s *Service) describeTask(ctx context.Context, t models.Task) (TaskDetail, error) {
	details, err := s.describeTasks(ctx, []models.Task{t})
	if err != nil {
		return TaskDetail{}, err
	}
	return details[0], nil
}

// describeTasks resolves assignees, reviewers and comment counts for tasks.
func (s *Service) describeTasks(ctx context.Context, tasks []models.Task) ([]TaskDetail, error) {
	ids := make([]int64, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	counts, err := s.store.CommentCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	users := make(map[int64]*models.User)
	lookup := func(id *int64) (*models.User, error) {
		if id == nil {
			return nil, nil
		}
		if u, ok := users[*id]; ok {
			return u, nil
		}
		u, err := s.store.GetUser(ctx, *id)
		if errors.Is(err, storage.ErrNotFound) {
			users[*id] = nil
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		users[*id] = &u
		return &u, nil
	}

	out := make([]TaskDetail, 0, len(tasks))
	for _, t := range tasks {
		assignee, err := lookup(t.AssigneeID)
		if err != nil {
			return nil, err
		}
		reviewer, err := lookup(t.ReviewerID)
		if err != nil {
			return nil, err
		}
		out = append(out, TaskDetail{Task: t, Assignee: assignee, Reviewer: reviewer, CommentsCount: counts[t.ID]})
	}
	return out, nil
}
