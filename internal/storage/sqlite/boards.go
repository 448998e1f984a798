package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskboard/internal/models"
	"taskboard/internal/storage"
)

const boardColumns = `b.id, b.title, b.owner_id, b.created_at, b.updated_at`

func scanBoard(row interface{ Scan(...any) error }) (models.Board, error) {
	var b models.Board
	err := row.Scan(&b.ID, &b.Title, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// CreateBoard inserts a board and its member set in one transaction. The
// owner is always added as a member. Unknown member ids abort the whole write.
func (s *Store) CreateBoard(ctx context.Context, title string, ownerID int64, memberIDs []int64) (models.Board, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO boards(title, owner_id) VALUES(?, ?)`, title, ownerID)
		if err != nil {
			return fmt.Errorf("insert board: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("board id: %w", err)
		}
		return insertMembers(ctx, tx, id, ownerID, memberIDs)
	})
	if err != nil {
		return models.Board{}, err
	}
	return s.GetBoard(ctx, id)
}

// insertMembers adds the owner and every id in memberIDs to the board.
func insertMembers(ctx context.Context, tx *sql.Tx, boardID, ownerID int64, memberIDs []int64) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO board_members(board_id, user_id) VALUES(?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare member insert: %w", err)
	}
	defer stmt.Close()

	for _, userID := range append([]int64{ownerID}, memberIDs...) {
		if _, err := stmt.ExecContext(ctx, boardID, userID); err != nil {
			return fmt.Errorf("insert member %d: %w", userID, err)
		}
	}
	return nil
}

// GetBoard fetches a single board by id.
func (s *Store) GetBoard(ctx context.Context, id int64) (models.Board, error) {
	b, err := scanBoard(s.db.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM boards b WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Board{}, notFound("board", id)
	}
	if err != nil {
		return models.Board{}, fmt.Errorf("get board: %w", err)
	}
	return b, nil
}

// ListBoardsForUser returns the boards userID owns or belongs to, newest first.
func (s *Store) ListBoardsForUser(ctx context.Context, userID int64) ([]models.Board, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT `+boardColumns+`
        FROM boards b
        LEFT JOIN board_members m ON m.board_id = b.id
        WHERE b.owner_id = ? OR m.user_id = ?
        ORDER BY b.created_at DESC, b.id DESC`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	var boards []models.Board
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

// UpdateBoard applies the patch atomically. When the member set is replaced
// the owner is re-inserted before the transaction commits.
func (s *Store) UpdateBoard(ctx context.Context, id int64, patch storage.BoardPatch) (models.Board, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var ownerID int64
		err := tx.QueryRowContext(ctx, `SELECT owner_id FROM boards WHERE id = ?`, id).Scan(&ownerID)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("board", id)
		}
		if err != nil {
			return fmt.Errorf("load board owner: %w", err)
		}

		if patch.Title != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE boards SET title = ? WHERE id = ?`, *patch.Title, id); err != nil {
				return fmt.Errorf("update board: %w", err)
			}
		}

		if patch.Members != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM board_members WHERE board_id = ?`, id); err != nil {
				return fmt.Errorf("clear members: %w", err)
			}
			if err := insertMembers(ctx, tx, id, ownerID, patch.Members); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Board{}, err
	}
	return s.GetBoard(ctx, id)
}

// DeleteBoard removes a board; tasks, comments and memberships cascade.
func (s *Store) DeleteBoard(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound("board", id)
	}
	return nil
}

// IsMember reports whether userID is in the board's member set.
func (s *Store) IsMember(ctx context.Context, boardID, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM board_members WHERE board_id = ? AND user_id = ?)`, boardID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

// ListMembers returns the users in the board's member set ordered by id.
func (s *Store) ListMembers(ctx context.Context, boardID int64) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT u.id, u.email, u.fullname, u.password_hash, u.created_at
        FROM users u
        JOIN board_members m ON m.user_id = u.id
        WHERE m.board_id = ?
        ORDER BY u.id`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// BoardStats computes the listing counters for a board.
func (s *Store) BoardStats(ctx context.Context, boardID int64) (models.BoardStats, error) {
	var st models.BoardStats
	err := s.db.QueryRowContext(ctx, `SELECT
            (SELECT COUNT(*) FROM board_members WHERE board_id = ?),
            (SELECT COUNT(*) FROM tasks WHERE board_id = ?),
            (SELECT COUNT(*) FROM tasks WHERE board_id = ? AND status = ?),
            (SELECT COUNT(*) FROM tasks WHERE board_id = ? AND priority = ?)`,
		boardID, boardID, boardID, models.StatusToDo, boardID, models.PriorityHigh).
		Scan(&st.MemberCount, &st.TicketCount, &st.TasksToDoCount, &st.TasksHighPrioCount)
	if err != nil {
		return models.BoardStats{}, fmt.Errorf("board stats: %w", err)
	}
	return st, nil
}
