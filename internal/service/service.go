// Package service implements boards, tasks, comments and accounts on top of
// a Store.
//
// Every operation resolves the target first (NotFoundError), then checks the
// actor's rights through authz (PermissionError), and only then validates the
// payload (ValidationError). Any other error is a storage failure.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"taskboard/internal/authz"
	"taskboard/internal/models"
	"taskboard/internal/storage"
)

// IdentityLookup resolves user ids to accounts.
type IdentityLookup interface {
	GetUser(ctx context.Context, id int64) (models.User, error)
	MissingUsers(ctx context.Context, ids []int64) ([]int64, error)
}

// Store is the persistence the service needs.
type Store interface {
	IdentityLookup
	authz.MembershipChecker

	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	CreateBoard(ctx context.Context, title string, ownerID int64, memberIDs []int64) (models.Board, error)
	GetBoard(ctx context.Context, id int64) (models.Board, error)
	ListBoardsForUser(ctx context.Context, userID int64) ([]models.Board, error)
	UpdateBoard(ctx context.Context, id int64, patch storage.BoardPatch) (models.Board, error)
	DeleteBoard(ctx context.Context, id int64) error
	ListMembers(ctx context.Context, boardID int64) ([]models.User, error)
	BoardStats(ctx context.Context, boardID int64) (models.BoardStats, error)

	CreateTask(ctx context.Context, t models.Task) (models.Task, error)
	GetTask(ctx context.Context, id int64) (models.Task, error)
	UpdateTask(ctx context.Context, id int64, patch storage.TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	ListTasksByBoard(ctx context.Context, boardID int64) ([]models.Task, error)
	ListTasksAssignedTo(ctx context.Context, userID int64) ([]models.Task, error)
	ListTasksReviewing(ctx context.Context, userID int64) ([]models.Task, error)
	CommentCounts(ctx context.Context, taskIDs []int64) (map[int64]int, error)

	CreateComment(ctx context.Context, c models.Comment) (models.Comment, error)
	GetComment(ctx context.Context, id int64) (models.Comment, error)
	ListComments(ctx context.Context, taskID int64) ([]models.Comment, error)
	DeleteComment(ctx context.Context, id int64) error
}

// Service applies the authorization and consistency rules of the board.
type Service struct {
	store  Store
	logger *slog.Logger
}

// New constructs a Service backed by store.
func New(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{store: store, logger: logger}
}

// resolve turns storage.ErrNotFound into a NotFoundError for the resource.
func resolve[T any](v T, err error, resource string, id int64) (T, error) {
	if errors.Is(err, storage.ErrNotFound) {
		return v, &NotFoundError{Resource: resource, ID: id}
	}
	if err != nil {
		return v, fmt.Errorf("load %s %d: %w", resource, id, err)
	}
	return v, nil
}

func (s *Service) loadBoard(ctx context.Context, id int64) (models.Board, error) {
	b, err := s.store.GetBoard(ctx, id)
	return resolve(b, err, "board", id)
}

func (s *Service) loadTask(ctx context.Context, id int64) (models.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	return resolve(t, err, "task", id)
}

// requireMember fails with PermissionError unless actorID is the owner or a
// member of board.
func (s *Service) requireMember(ctx context.Context, actorID int64, board models.Board, detail string) error {
	ok, err := authz.IsBoardMember(ctx, s.store, actorID, board)
	if err != nil {
		return err
	}
	if !ok {
		return &PermissionError{Detail: detail}
	}
	return nil
}

// taskContext loads a task and its board and checks that actorID belongs to
// the board.
func (s *Service) taskContext(ctx context.Context, actorID, taskID int64, detail string) (models.Task, models.Board, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return models.Task{}, models.Board{}, err
	}
	board, err := s.store.GetBoard(ctx, task.BoardID)
	if errors.Is(err, storage.ErrNotFound) {
		// Board vanished between the two reads; the task cascaded with it.
		return models.Task{}, models.Board{}, &NotFoundError{Resource: "task", ID: taskID}
	}
	if err != nil {
		return models.Task{}, models.Board{}, fmt.Errorf("load board %d: %w", task.BoardID, err)
	}
	if err := s.requireMember(ctx, actorID, board, detail); err != nil {
		return models.Task{}, models.Board{}, err
	}
	return task, board, nil
}
