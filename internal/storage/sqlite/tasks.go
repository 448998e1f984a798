package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskboard/internal/models"
	"taskboard/internal/storage"
)

const taskColumns = `t.id, t.board_id, t.title, t.description, t.status, t.priority, t.assignee_id, t.reviewer_id, t.due_date, t.created_at, t.updated_at`

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var (
		t        models.Task
		assignee sql.NullInt64
		reviewer sql.NullInt64
		due      sql.NullString
	)
	if err := row.Scan(&t.ID, &t.BoardID, &t.Title, &t.Description, &t.Status, &t.Priority, &assignee, &reviewer, &due, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return models.Task{}, err
	}
	if assignee.Valid {
		t.AssigneeID = &assignee.Int64
	}
	if reviewer.Valid {
		t.ReviewerID = &reviewer.Int64
	}
	if due.Valid {
		d, err := models.ParseDate(due.String)
		if err != nil {
			return models.Task{}, fmt.Errorf("task %d due date %q: %w", t.ID, due.String, err)
		}
		t.DueDate = &d
	}
	return t, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullableDate(d *models.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// CreateTask inserts a new task for a board.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	if t.Title == "" {
		return models.Task{}, fmt.Errorf("task title must not be empty")
	}
	if t.Status == "" {
		t.Status = models.StatusToDo
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO tasks(board_id, title, description, status, priority, assignee_id, reviewer_id, due_date)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		t.BoardID, t.Title, t.Description, string(t.Status), string(t.Priority),
		nullableID(t.AssigneeID), nullableID(t.ReviewerID), nullableDate(t.DueDate))
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, fmt.Errorf("task id: %w", err)
	}
	return s.GetTask(ctx, id)
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, notFound("task", id)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// UpdateTask writes only the fields present in the patch.
func (s *Store) UpdateTask(ctx context.Context, id int64, patch storage.TaskPatch) (models.Task, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if patch.Priority != nil {
		set("priority", string(*patch.Priority))
	}
	if patch.AssigneeID.Set {
		set("assignee_id", optionalID(patch.AssigneeID))
	}
	if patch.ReviewerID.Set {
		set("reviewer_id", optionalID(patch.ReviewerID))
	}
	if patch.DueDate.Set {
		if patch.DueDate.Null {
			set("due_date", nil)
		} else {
			set("due_date", patch.DueDate.Value.String())
		}
	}

	if len(sets) == 0 {
		return s.GetTask(ctx, id)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Task{}, err
	}
	if affected == 0 {
		return models.Task{}, notFound("task", id)
	}
	return s.GetTask(ctx, id)
}

func optionalID(o models.Optional[int64]) any {
	if o.Null || o.Value == 0 {
		return nil
	}
	return o.Value
}

// DeleteTask removes a task; its comments cascade.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound("task", id)
	}
	return nil
}

// ListTasksByBoard returns the tasks of a board, newest first.
func (s *Store) ListTasksByBoard(ctx context.Context, boardID int64) ([]models.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks t
        WHERE t.board_id = ?
        ORDER BY t.created_at DESC, t.id DESC`, boardID)
}

// ListTasksAssignedTo returns the tasks assigned to userID on boards the
// user can still access.
func (s *Store) ListTasksAssignedTo(ctx context.Context, userID int64) ([]models.Task, error) {
	return s.listAccessibleTasksBy(ctx, "assignee_id", userID)
}

// ListTasksReviewing returns the tasks userID reviews on boards the user
// can still access.
func (s *Store) ListTasksReviewing(ctx context.Context, userID int64) ([]models.Task, error) {
	return s.listAccessibleTasksBy(ctx, "reviewer_id", userID)
}

func (s *Store) listAccessibleTasksBy(ctx context.Context, column string, userID int64) ([]models.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks t
        JOIN boards b ON b.id = t.board_id
        WHERE t.`+column+` = ?
          AND (b.owner_id = ? OR EXISTS(SELECT 1 FROM board_members m WHERE m.board_id = b.id AND m.user_id = ?))
        ORDER BY t.created_at DESC, t.id DESC`, userID, userID, userID)
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CommentCounts returns the number of comments per task id. Tasks without
// comments are absent from the map.
func (s *Store) CommentCounts(ctx context.Context, taskIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(taskIDs))
	if len(taskIDs) == 0 {
		return counts, nil
	}
	marks, args := placeholders(taskIDs)
	rows, err := s.db.QueryContext(ctx, `SELECT task_id, COUNT(*) FROM comments WHERE task_id IN (`+marks+`) GROUP BY task_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    int64
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("scan comment count: %w", err)
		}
		counts[id] = count
	}
	return counts, rows.Err()
}
