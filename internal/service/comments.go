package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"taskboard/internal/authz"
	"taskboard/internal/models"
	"taskboard/internal/storage"
	"taskboard/internal/textclean"
)

// CommentDetail is a comment with its resolved author.
type CommentDetail struct {
	Comment models.Comment
	Author  models.User
}

const notBoardMember = "You must be a member of the board."

// ListComments returns the comments of a task, oldest first.
func (s *Service) ListComments(ctx context.Context, actorID, taskID int64) ([]CommentDetail, error) {
	task, _, err := s.taskContext(ctx, actorID, taskID, notBoardMember)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	authors := make(map[int64]models.User)
	out := make([]CommentDetail, 0, len(comments))
	for _, c := range comments {
		author, ok := authors[c.AuthorID]
		if !ok {
			author, err = s.store.GetUser(ctx, c.AuthorID)
			if err != nil {
				return nil, fmt.Errorf("load author %d: %w", c.AuthorID, err)
			}
			authors[c.AuthorID] = author
		}
		out = append(out, CommentDetail{Comment: c, Author: author})
	}
	return out, nil
}

// CreateComment adds a comment authored by actorID.
func (s *Service) CreateComment(ctx context.Context, actorID, taskID int64, content string) (CommentDetail, error) {
	task, _, err := s.taskContext(ctx, actorID, taskID, notBoardMember)
	if err != nil {
		return CommentDetail{}, err
	}

	content = textclean.Normalize(content)
	if content == "" {
		return CommentDetail{}, invalid("content", "This field may not be blank.")
	}

	author, err := s.store.GetUser(ctx, actorID)
	if err != nil {
		return CommentDetail{}, fmt.Errorf("load author %d: %w", actorID, err)
	}
	c, err := s.store.CreateComment(ctx, models.Comment{TaskID: task.ID, AuthorID: actorID, Content: content})
	if err != nil {
		return CommentDetail{}, fmt.Errorf("create comment: %w", err)
	}
	return CommentDetail{Comment: c, Author: author}, nil
}

// DeleteComment removes a comment. Only its author may delete it, whatever
// their role on the board.
func (s *Service) DeleteComment(ctx context.Context, actorID, taskID, commentID int64) error {
	task, _, err := s.taskContext(ctx, actorID, taskID, notBoardMember)
	if err != nil {
		return err
	}

	comment, err := s.store.GetComment(ctx, commentID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && comment.TaskID != task.ID) {
		return &NotFoundError{Resource: "comment", ID: commentID}
	}
	if err != nil {
		return fmt.Errorf("load comment %d: %w", commentID, err)
	}
	if !authz.CanDeleteComment(actorID, comment) {
		return &PermissionError{Detail: "Only the comment author can delete it."}
	}
	if err := s.store.DeleteComment(ctx, comment.ID); err != nil {
		_, err = resolve(0, err, "comment", commentID)
		return err
	}
	s.logger.Info("comment deleted", slog.Int64("comment_id", comment.ID), slog.Int64("task_id", task.ID))
	return nil
}
