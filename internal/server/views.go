package server

import (
	"time"

	"taskboard/internal/models"
	"taskboard/internal/service"
)

// Wire shapes for API responses. Each to*View function is a pure mapping from
// the service result; nothing else writes these structs.

type userView struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`
}

type authView struct {
	Token    string `json:"token"`
	FullName string `json:"fullname"`
	Email    string `json:"email"`
	UserID   int64  `json:"user_id"`
}

type boardView struct {
	ID                 int64  `json:"id"`
	Title              string `json:"title"`
	MemberCount        int    `json:"member_count"`
	TicketCount        int    `json:"ticket_count"`
	TasksToDoCount     int    `json:"tasks_to_do_count"`
	TasksHighPrioCount int    `json:"tasks_high_prio_count"`
	OwnerID            int64  `json:"owner_id"`
}

type boardDetailView struct {
	boardView
	Members []userView `json:"members"`
	Tasks   []taskView `json:"tasks"`
}

type taskView struct {
	ID            int64        `json:"id"`
	Board         int64        `json:"board"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Status        string       `json:"status"`
	Priority      string       `json:"priority"`
	Assignee      *userView    `json:"assignee"`
	Reviewer      *userView    `json:"reviewer"`
	DueDate       *models.Date `json:"due_date"`
	CommentsCount int          `json:"comments_count"`
}

type commentView struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
}

func toUserView(u models.User) userView {
	return userView{ID: u.ID, Email: u.Email, FullName: u.FullName}
}

func toUserViewPtr(u *models.User) *userView {
	if u == nil {
		return nil
	}
	v := toUserView(*u)
	return &v
}

func toAuthView(u models.User, token string) authView {
	return authView{Token: token, FullName: u.FullName, Email: u.Email, UserID: u.ID}
}

func toBoardView(b service.BoardSummary) boardView {
	return boardView{
		ID:                 b.Board.ID,
		Title:              b.Board.Title,
		MemberCount:        b.Stats.MemberCount,
		TicketCount:        b.Stats.TicketCount,
		TasksToDoCount:     b.Stats.TasksToDoCount,
		TasksHighPrioCount: b.Stats.TasksHighPrioCount,
		OwnerID:            b.Board.OwnerID,
	}
}

func toBoardViews(boards []service.BoardSummary) []boardView {
	out := make([]boardView, 0, len(boards))
	for _, b := range boards {
		out = append(out, toBoardView(b))
	}
	return out
}

func toBoardDetailView(d service.BoardDetail) boardDetailView {
	members := make([]userView, 0, len(d.Members))
	for _, m := range d.Members {
		members = append(members, toUserView(m))
	}
	return boardDetailView{
		boardView: toBoardView(d.BoardSummary),
		Members:   members,
		Tasks:     toTaskViews(d.Tasks),
	}
}

// wireStatus is the only place a task status is rendered for clients.
func wireStatus(s models.Status) string {
	return string(s)
}

func toTaskView(d service.TaskDetail) taskView {
	return taskView{
		ID:            d.Task.ID,
		Board:         d.Task.BoardID,
		Title:         d.Task.Title,
		Description:   d.Task.Description,
		Status:        wireStatus(d.Task.Status),
		Priority:      string(d.Task.Priority),
		Assignee:      toUserViewPtr(d.Assignee),
		Reviewer:      toUserViewPtr(d.Reviewer),
		DueDate:       d.Task.DueDate,
		CommentsCount: d.CommentsCount,
	}
}

func toTaskViews(tasks []service.TaskDetail) []taskView {
	out := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskView(t))
	}
	return out
}

func toCommentView(d service.CommentDetail) commentView {
	return commentView{
		ID:        d.Comment.ID,
		CreatedAt: d.Comment.CreatedAt,
		Author:    d.Author.FullName,
		Content:   d.Comment.Content,
	}
}

func toCommentViews(comments []service.CommentDetail) []commentView {
	out := make([]commentView, 0, len(comments))
	for _, c := range comments {
		out = append(out, toCommentView(c))
	}
	return out
}
