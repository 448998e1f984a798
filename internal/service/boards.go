package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"taskboard/internal/authz"
	"taskboard/internal/models"
	"taskboard/internal/storage"
	"taskboard/internal/textclean"
)

// BoardSummary is a board with its listing counters.
type BoardSummary struct {
	Board models.Board
	Stats models.BoardStats
}

// BoardDetail is a board with its members and tasks.
type BoardDetail struct {
	BoardSummary
	Members []models.User
	Tasks   []TaskDetail
}

// BoardUpdate lists the board fields to change. A nil Members leaves the
// member set untouched; a non-nil (possibly empty) one replaces it.
type BoardUpdate struct {
	Title   *string
	Members []int64
}

// ListBoards returns the boards actorID owns or belongs to.
func (s *Service) ListBoards(ctx context.Context, actorID int64) ([]BoardSummary, error) {
	boards, err := s.store.ListBoardsForUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	out := make([]BoardSummary, 0, len(boards))
	for _, b := range boards {
		summary, err := s.summarize(ctx, b)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

// CreateBoard creates a board owned by actorID. Every member id must resolve
// to a user; the owner is added to the member set.
func (s *Service) CreateBoard(ctx context.Context, actorID int64, title string, memberIDs []int64) (BoardSummary, error) {
	title = textclean.Normalize(title)

	v := newValidator()
	v.check(title != "", "title", "This field is required.")
	v.check(textclean.Len(title) <= 255, "title", "Ensure this field has no more than 255 characters.")
	if err := v.err(); err != nil {
		return BoardSummary{}, err
	}
	if err := s.checkUsersExist(ctx, memberIDs); err != nil {
		return BoardSummary{}, err
	}

	board, err := s.store.CreateBoard(ctx, title, actorID, memberIDs)
	if err != nil {
		return BoardSummary{}, fmt.Errorf("create board: %w", err)
	}
	s.logger.Info("board created", slog.Int64("board_id", board.ID), slog.Int64("owner_id", actorID))
	return s.summarize(ctx, board)
}

// GetBoard returns the board with members and tasks.
func (s *Service) GetBoard(ctx context.Context, actorID, boardID int64) (BoardDetail, error) {
	board, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return BoardDetail{}, err
	}
	if err := s.requireMember(ctx, actorID, board, "You do not have permission to access this board."); err != nil {
		return BoardDetail{}, err
	}

	summary, err := s.summarize(ctx, board)
	if err != nil {
		return BoardDetail{}, err
	}
	members, err := s.store.ListMembers(ctx, board.ID)
	if err != nil {
		return BoardDetail{}, err
	}
	tasks, err := s.store.ListTasksByBoard(ctx, board.ID)
	if err != nil {
		return BoardDetail{}, err
	}
	details, err := s.describeTasks(ctx, tasks)
	if err != nil {
		return BoardDetail{}, err
	}
	return BoardDetail{BoardSummary: summary, Members: members, Tasks: details}, nil
}

// UpdateBoard changes the title and/or replaces the member set. Owner and
// members may update; the owner always stays a member.
func (s *Service) UpdateBoard(ctx context.Context, actorID, boardID int64, u BoardUpdate) (BoardSummary, error) {
	board, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return BoardSummary{}, err
	}
	if err := s.requireMember(ctx, actorID, board, "You do not have permission to modify this board."); err != nil {
		return BoardSummary{}, err
	}

	var patch storage.BoardPatch
	if u.Title != nil {
		title := textclean.Normalize(*u.Title)
		v := newValidator()
		v.check(title != "", "title", "This field may not be blank.")
		v.check(textclean.Len(title) <= 255, "title", "Ensure this field has no more than 255 characters.")
		if err := v.err(); err != nil {
			return BoardSummary{}, err
		}
		patch.Title = &title
	}
	if u.Members != nil {
		if err := s.checkUsersExist(ctx, u.Members); err != nil {
			return BoardSummary{}, err
		}
		patch.Members = u.Members
	}

	updated, err := s.store.UpdateBoard(ctx, board.ID, patch)
	if err != nil {
		_, err = resolve(updated, err, "board", boardID)
		return BoardSummary{}, err
	}
	return s.summarize(ctx, updated)
}

// ReplaceMembers sets the board's member set to memberIDs plus the owner.
func (s *Service) ReplaceMembers(ctx context.Context, actorID, boardID int64, memberIDs []int64) (BoardSummary, error) {
	if memberIDs == nil {
		memberIDs = []int64{}
	}
	return s.UpdateBoard(ctx, actorID, boardID, BoardUpdate{Members: memberIDs})
}

// DeleteBoard removes the board with all its tasks and comments. Only the
// owner may delete.
func (s *Service) DeleteBoard(ctx context.Context, actorID, boardID int64) error {
	board, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if !authz.CanDeleteBoard(actorID, board) {
		return &PermissionError{Detail: "Only the owner can delete this board."}
	}
	if err := s.store.DeleteBoard(ctx, board.ID); err != nil {
		_, err = resolve(0, err, "board", boardID)
		return err
	}
	s.logger.Info("board deleted", slog.Int64("board_id", board.ID), slog.Int64("owner_id", actorID))
	return nil
}

// CanAccess reports whether userID is the owner or a member of the board.
func (s *Service) CanAccess(ctx context.Context, userID int64, board models.Board) (bool, error) {
	return authz.IsBoardMember(ctx, s.store, userID, board)
}

// CanDelete reports whether userID may delete the board.
func (s *Service) CanDelete(userID int64, board models.Board) bool {
	return authz.CanDeleteBoard(userID, board)
}

// checkUsersExist fails with a "members" ValidationError listing every id
// that does not resolve to a user.
func (s *Service) checkUsersExist(ctx context.Context, ids []int64) error {
	missing, err := s.store.MissingUsers(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	strs := make([]string, len(missing))
	for i, id := range missing {
		strs[i] = fmt.Sprint(id)
	}
	return invalid("members", "Invalid user IDs: ["+strings.Join(strs, ", ")+"]")
}

func (s *Service) summarize(ctx context.Context, b models.Board) (BoardSummary, error) {
	stats, err := s.store.BoardStats(ctx, b.ID)
	if err != nil {
		return BoardSummary{}, err
	}
	return BoardSummary{Board: b, Stats: stats}, nil
}
