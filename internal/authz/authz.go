// Package authz decides who may read or change boards, tasks and comments.
//
// Authorization rules:
//   - The board owner and the board members can read the board, update it,
//     and create, read and update its tasks and comments
//   - Only the board owner can delete the board or any of its tasks
//   - Only the author of a comment can delete it, whatever their board role
//
// Callers must establish that the resource exists before asking; these
// functions never report absence.
package authz

import (
	"context"

	"taskboard/internal/models"
)

// MembershipChecker answers explicit board membership queries.
type MembershipChecker interface {
	IsMember(ctx context.Context, boardID, userID int64) (bool, error)
}

// IsBoardOwner reports whether userID owns the board.
func IsBoardOwner(userID int64, board models.Board) bool {
	return userID != 0 && board.OwnerID == userID
}

// IsBoardMember reports whether userID is the owner of the board or in its
// member set. The owner check does not touch storage.
// Returns an error only if the membership lookup fails.
func IsBoardMember(ctx context.Context, m MembershipChecker, userID int64, board models.Board) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	if IsBoardOwner(userID, board) {
		return true, nil
	}
	return m.IsMember(ctx, board.ID, userID)
}

// IsCommentAuthor reports whether userID wrote the comment.
func IsCommentAuthor(userID int64, comment models.Comment) bool {
	return userID != 0 && comment.AuthorID == userID
}

// CanDeleteBoard reports whether userID may delete the board.
func CanDeleteBoard(userID int64, board models.Board) bool {
	return IsBoardOwner(userID, board)
}

// CanDeleteTask reports whether userID may delete a task on the board.
func CanDeleteTask(userID int64, board models.Board) bool {
	return IsBoardOwner(userID, board)
}

// CanDeleteComment reports whether userID may delete the comment.
func CanDeleteComment(userID int64, comment models.Comment) bool {
	return IsCommentAuthor(userID, comment)
}
