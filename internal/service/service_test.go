package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"taskboard/internal/models"
	"taskboard/internal/service"
	"taskboard/internal/storage/sqlite"
)

type fixture struct {
	svc      *service.Service
	owner    models.User
	member   models.User
	outsider models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{svc: service.New(store, nil)}
	f.owner = f.register(t, "Olivia Owner", "owner@example.com")
	f.member = f.register(t, "Mark Member", "member@example.com")
	f.outsider = f.register(t, "Otto Outsider", "outsider@example.com")
	return f
}

func (f *fixture) register(t *testing.T, name, email string) models.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), service.Registration{
		FullName:         name,
		Email:            email,
		Password:         "password123",
		RepeatedPassword: "password123",
	})
	if err != nil {
		t.Fatalf("failed to register %s: %v", email, err)
	}
	return u
}

func (f *fixture) board(t *testing.T) service.BoardSummary {
	t.Helper()
	b, err := f.svc.CreateBoard(context.Background(), f.owner.ID, "Sprint 1", []int64{f.member.ID})
	if err != nil {
		t.Fatalf("failed to create board: %v", err)
	}
	return b
}

func (f *fixture) task(t *testing.T, boardID int64) service.TaskDetail {
	t.Helper()
	td, err := f.svc.CreateTask(context.Background(), f.member.ID, service.NewTask{BoardID: boardID, Title: "Write tests"})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	return td
}

func memberIDs(t *testing.T, f *fixture, actorID, boardID int64) map[int64]bool {
	t.Helper()
	detail, err := f.svc.GetBoard(context.Background(), actorID, boardID)
	if err != nil {
		t.Fatalf("failed to get board: %v", err)
	}
	ids := make(map[int64]bool, len(detail.Members))
	for _, m := range detail.Members {
		ids[m.ID] = true
	}
	return ids
}

func assertNotFound(t *testing.T, err error) {
	t.Helper()
	var nf *service.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func assertPermission(t *testing.T, err error) {
	t.Helper()
	var pe *service.PermissionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PermissionError, got %v", err)
	}
}

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve *service.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	return ve.Fields
}

func TestCreateBoard_OwnerIsMember(t *testing.T) {
	f := newFixture(t)
	b := f.board(t)

	if b.Board.OwnerID != f.owner.ID {
		t.Errorf("expected owner %d, got %d", f.owner.ID, b.Board.OwnerID)
	}
	if b.Stats.MemberCount != 2 {
		t.Errorf("expected 2 members, got %d", b.Stats.MemberCount)
	}
	ids := memberIDs(t, f, f.owner.ID, b.Board.ID)
	if !ids[f.owner.ID] || !ids[f.member.ID] {
		t.Errorf("expected owner and member, got %v", ids)
	}
}

func TestCreateBoard_UnknownMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateBoard(ctx, f.owner.ID, "Ghosts", []int64{f.member.ID, 99999})
	fields := validationFields(t, err)
	if !strings.Contains(fields["members"], "99999") {
		t.Errorf("expected members error naming 99999, got %q", fields["members"])
	}

	boards, err := f.svc.ListBoards(ctx, f.owner.ID)
	if err != nil {
		t.Fatalf("list boards: %v", err)
	}
	if len(boards) != 0 {
		t.Errorf("expected no board to be persisted, got %d", len(boards))
	}
}

func TestCreateBoard_TitleRequired(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateBoard(context.Background(), f.owner.ID, "  ", nil)
	if fields := validationFields(t, err); fields["title"] == "" {
		t.Errorf("expected title error, got %v", fields)
	}
}

func TestReplaceMembers_OwnerReinserted(t *testing.T) {
	f := newFixture(t)
	b := f.board(t)

	// A member replaces the set with only the outsider and omits the owner.
	summary, err := f.svc.ReplaceMembers(context.Background(), f.member.ID, b.Board.ID, []int64{f.outsider.ID})
	if err != nil {
		t.Fatalf("replace members: %v", err)
	}
	if summary.Stats.MemberCount != 2 {
		t.Errorf("expected owner + outsider, got %d members", summary.Stats.MemberCount)
	}

	ids := memberIDs(t, f, f.owner.ID, b.Board.ID)
	if !ids[f.owner.ID] || !ids[f.outsider.ID] || ids[f.member.ID] {
		t.Errorf("unexpected member set %v", ids)
	}

	// The removed member lost access.
	_, err = f.svc.GetBoard(context.Background(), f.member.ID, b.Board.ID)
	assertPermission(t, err)
}

func TestReplaceMembers_UnknownIDLeavesSetIntact(t *testing.T) {
	f := newFixture(t)
	b := f.board(t)

	_, err := f.svc.ReplaceMembers(context.Background(), f.owner.ID, b.Board.ID, []int64{99999})
	validationFields(t, err)

	ids := memberIDs(t, f, f.owner.ID, b.Board.ID)
	if len(ids) != 2 || !ids[f.member.ID] {
		t.Errorf("member set changed after failed replace: %v", ids)
	}
}

func TestGetBoard_NotFoundBeforeForbidden(t *testing.T) {
	f := newFixture(t)
	b := f.board(t)
	ctx := context.Background()

	_, err := f.svc.GetBoard(ctx, f.outsider.ID, 424242)
	assertNotFound(t, err)

	_, err = f.svc.GetBoard(ctx, f.outsider.ID, b.Board.ID)
	assertPermission(t, err)
}

func TestUpdateBoard_ForbiddenBeforeInvalid(t *testing.T) {
	f := newFixture(t)
	b := f.board(t)
	blank := ""

	_, err := f.svc.UpdateBoard(context.Background(), f.outsider.ID, b.Board.ID, service.BoardUpdate{Title: &blank, Members: []int64{99999}})
	assertPermission(t, err)

	_, err = f.svc.UpdateBoard(context.Background(), f.member.ID, b.Board.ID, service.BoardUpdate{Title: &blank})
	validationFields(t, err)
}

func TestDeleteBoard_OwnerOnlyAndCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.board(t)
	td := f.task(t, b.Board.ID)
	if _, err := f.svc.CreateComment(ctx, f.member.ID, td.Task.ID, "looks good"); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	assertPermission(t, f.svc.DeleteBoard(ctx, f.member.ID, b.Board.ID))
	assertNotFound(t, f.svc.DeleteBoard(ctx, f.member.ID, 424242))

	if err := f.svc.DeleteBoard(ctx, f.owner.ID, b.Board.ID); err != nil {
		t.Fatalf("delete board: %v", err)
	}

	_, err := f.svc.GetTask(ctx, f.owner.ID, td.Task.ID)
	assertNotFound(t, err)
	_, err = f.svc.ListComments(ctx, f.owner.ID, td.Task.ID)
	assertNotFound(t, err)
}

func TestCreateTask_Authorization(t *testing.T) {
	f := newFixture(t)
	b := f.board(t)
	ctx := context.Background()

	_, err := f.svc.CreateTask(ctx, f.outsider.ID, service.NewTask{BoardID: b.Board.ID, Title: "x", Status: "bogus"})
	assertPermission(t, err)

	_, err = f.svc.CreateTask(ctx, f.owner.ID, service.NewTask{BoardID: 424242, Title: "x"})
	if fields := validationFields(t, err); fields["board"] == "" {
		t.Errorf("expected board error, got %v", fields)
	}
}

func TestCreateTask_RoleMembership(t *testing.T) {
	f := newFixture(t)
	b := f.board(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		assignee  int64
		reviewer  int64
		wantField string
	}{
		{"owner and member", f.owner.ID, f.member.ID, ""},
		{"member assigns self", f.member.ID, 0, ""},
		{"outsider assignee", f.outsider.ID, 0, "assignee_id"},
		{"outsider reviewer", 0, f.outsider.ID, "reviewer_id"},
		{"unknown assignee", 99999, 0, "assignee_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td, err := f.svc.CreateTask(ctx, f.member.ID, service.NewTask{
				BoardID:    b.Board.ID,
				Title:      "Task",
				AssigneeID: tt.assignee,
				ReviewerID: tt.reviewer,
			})
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if tt.assignee != 0 && (td.Assignee == nil || td.Assignee.ID != tt.assignee) {
					t.Errorf("expected assignee %d, got %+v", tt.assignee, td.Assignee)
				}
				return
			}
			if fields := validationFields(t, err); fields[tt.wantField] == "" {
				t.Errorf("expected %s error, got %v", tt.wantField, fields)
			}
		})
	}
}

func TestCreateTask_EnumValidation(t *testing.T) {
	f := newFixture(t)
	b := f.board(t)

	_, err := f.svc.CreateTask(context.Background(), f.owner.ID, service.NewTask{
		BoardID:  b.Board.ID,
		Title:    "Task",
		Status:   "reviewing",
		Priority: "urgent",
	})
	fields := validationFields(t, err)
	if !strings.Contains(fields["status"], "to-do, in-progress, review, done") {
		t.Errorf("status error should list choices, got %q", fields["status"])
	}
	if !strings.Contains(fields["priority"], "low, medium, high") {
		t.Errorf("priority error should list choices, got %q", fields["priority"])
	}
}

func TestTask_ReviewStatusRoundTrip(t *testing.T) {
	f := newFixture(t)
	b := f.board(t)
	ctx := context.Background()

	td, err := f.svc.CreateTask(ctx, f.owner.ID, service.NewTask{BoardID: b.Board.ID, Title: "Check", Status: models.StatusReview})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	got, err := f.svc.GetTask(ctx, f.member.ID, td.Task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Task.Status != "review" {
		t.Errorf("expected status review, got %q", got.Task.Status)
	}
}

func TestUpdateTask_AssigneeTriState(t *testing.T) {
	f := newFixture(t)
	b := f.board(t)
	ctx := context.Background()

	td, err := f.svc.CreateTask(ctx, f.owner.ID, service.NewTask{BoardID: b.Board.ID, Title: "T", AssigneeID: f.member.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	title := "Renamed"
	td, err = f.svc.UpdateTask(ctx, f.member.ID, td.Task.ID, service.TaskUpdate{Title: &title})
	if err != nil {
		t.Fatalf("update title: %v", err)
	}
	if td.Assignee == nil || td.Assignee.ID != f.member.ID {
		t.Fatalf("omitted assignee_id must leave assignee, got %+v", td.Assignee)
	}

	td, err = f.svc.UpdateTask(ctx, f.member.ID, td.Task.ID, service.TaskUpdate{AssigneeID: models.Some[int64](0)})
	if err != nil {
		t.Fatalf("clear assignee: %v", err)
	}
	if td.Assignee != nil || td.Task.AssigneeID != nil {
		t.Fatalf("assignee_id 0 must clear, got %+v", td.Assignee)
	}

	td, err = f.svc.UpdateTask(ctx, f.member.ID, td.Task.ID, service.TaskUpdate{AssigneeID: models.Some(f.owner.ID)})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if td.Assignee == nil || td.Assignee.ID != f.owner.ID {
		t.Fatalf("expected owner as assignee, got %+v", td.Assignee)
	}

	td, err = f.svc.UpdateTask(ctx, f.member.ID, td.Task.ID, service.TaskUpdate{ReviewerID: models.Null[int64]()})
	if err != nil {
		t.Fatalf("null reviewer: %v", err)
	}
	if td.Assignee == nil || td.Reviewer != nil {
		t.Fatalf("null reviewer must not touch assignee, got %+v / %+v", td.Assignee, td.Reviewer)
	}

	_, err = f.svc.UpdateTask(ctx, f.member.ID, td.Task.ID, service.TaskUpdate{AssigneeID: models.Some(f.outsider.ID)})
	if fields := validationFields(t, err); fields["assignee_id"] == "" {
		t.Errorf("expected assignee_id error, got %v", fields)
	}
}

func TestUpdateTask_Ordering(t *testing.T) {
	f := newFixture(t)
	b := f.board(t)
	td := f.task(t, b.Board.ID)
	ctx := context.Background()
	bad := models.Status("nope")

	_, err := f.svc.UpdateTask(ctx, f.outsider.ID, 424242, service.TaskUpdate{Status: &bad})
	assertNotFound(t, err)

	_, err = f.svc.UpdateTask(ctx, f.outsider.ID, td.Task.ID, service.TaskUpdate{Status: &bad})
	assertPermission(t, err)

	_, err = f.svc.UpdateTask(ctx, f.member.ID, td.Task.ID, service.TaskUpdate{Status: &bad})
	validationFields(t, err)

	other := b.Board.ID + 1
	_, err = f.svc.UpdateTask(ctx, f.member.ID, td.Task.ID, service.TaskUpdate{BoardID: &other})
	if fields := validationFields(t, err); fields["board"] == "" {
		t.Errorf("expected board error, got %v", fields)
	}
}

func TestDeleteTask_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	b := f.board(t)
	td := f.task(t, b.Board.ID)
	ctx := context.Background()

	assertPermission(t, f.svc.DeleteTask(ctx, f.member.ID, td.Task.ID))
	if err := f.svc.DeleteTask(ctx, f.owner.ID, td.Task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	assertNotFound(t, f.svc.DeleteTask(ctx, f.owner.ID, td.Task.ID))
}

func TestListAssignedAndReviewing(t *testing.T) {
	f := newFixture(t)
	b := f.board(t)
	ctx := context.Background()

	if _, err := f.svc.CreateTask(ctx, f.owner.ID, service.NewTask{BoardID: b.Board.ID, Title: "A", AssigneeID: f.member.ID, ReviewerID: f.owner.ID}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := f.svc.CreateTask(ctx, f.owner.ID, service.NewTask{BoardID: b.Board.ID, Title: "B"}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	assigned, err := f.svc.ListAssignedTo(ctx, f.member.ID)
	if err != nil {
		t.Fatalf("assigned: %v", err)
	}
	if len(assigned) != 1 || assigned[0].Task.Title != "A" {
		t.Errorf("unexpected assigned tasks %+v", assigned)
	}

	reviewing, err := f.svc.ListReviewing(ctx, f.owner.ID)
	if err != nil {
		t.Fatalf("reviewing: %v", err)
	}
	if len(reviewing) != 1 || reviewing[0].Reviewer == nil || reviewing[0].Reviewer.ID != f.owner.ID {
		t.Errorf("unexpected reviewing tasks %+v", reviewing)
	}

	none, err := f.svc.ListReviewing(ctx, f.outsider.ID)
	if err != nil || len(none) != 0 {
		t.Errorf("outsider should review nothing, got %v, %v", none, err)
	}
}

func TestComments_Lifecycle(t *testing.T) {
	f := newFixture(t)
	b := f.board(t)
	td := f.task(t, b.Board.ID)
	ctx := context.Background()

	_, err := f.svc.CreateComment(ctx, f.outsider.ID, td.Task.ID, "let me in")
	assertPermission(t, err)

	_, err = f.svc.CreateComment(ctx, f.member.ID, td.Task.ID, "   ")
	validationFields(t, err)

	first, err := f.svc.CreateComment(ctx, f.member.ID, td.Task.ID, "first")
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if first.Comment.AuthorID != f.member.ID || first.Author.FullName != "Mark Member" {
		t.Errorf("author must be the actor, got %+v", first)
	}
	if _, err := f.svc.CreateComment(ctx, f.owner.ID, td.Task.ID, "second"); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	list, err := f.svc.ListComments(ctx, f.owner.ID, td.Task.ID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(list) != 2 || list[0].Comment.Content != "first" || list[1].Comment.Content != "second" {
		t.Errorf("unexpected comments %+v", list)
	}

	got, err := f.svc.GetTask(ctx, f.owner.ID, td.Task.ID)
	if err != nil || got.CommentsCount != 2 {
		t.Errorf("expected comments_count 2, got %d (%v)", got.CommentsCount, err)
	}
}

func TestDeleteComment_AuthorOnly(t *testing.T) {
	f := newFixture(t)
	b := f.board(t)
	td := f.task(t, b.Board.ID)
	ctx := context.Background()

	c, err := f.svc.CreateComment(ctx, f.member.ID, td.Task.ID, "mine")
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}

	// The board owner is not enough.
	assertPermission(t, f.svc.DeleteComment(ctx, f.owner.ID, td.Task.ID, c.Comment.ID))
	assertPermission(t, f.svc.DeleteComment(ctx, f.outsider.ID, td.Task.ID, c.Comment.ID))
	assertNotFound(t, f.svc.DeleteComment(ctx, f.member.ID, td.Task.ID, 424242))

	other := f.task(t, b.Board.ID)
	assertNotFound(t, f.svc.DeleteComment(ctx, f.member.ID, other.Task.ID, c.Comment.ID))

	if err := f.svc.DeleteComment(ctx, f.member.ID, td.Task.ID, c.Comment.ID); err != nil {
		t.Fatalf("delete comment: %v", err)
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, service.Registration{FullName: "Dup", Email: "owner@example.com", Password: "password123", RepeatedPassword: "password123"})
	if fields := validationFields(t, err); fields["email"] == "" {
		t.Errorf("expected duplicate email error, got %v", fields)
	}

	_, err = f.svc.Register(ctx, service.Registration{FullName: "X", Email: "not-an-email", Password: "short", RepeatedPassword: "other"})
	fields := validationFields(t, err)
	if fields["email"] == "" || fields["password"] == "" {
		t.Errorf("expected email and password errors, got %v", fields)
	}

	_, err = f.svc.Register(ctx, service.Registration{FullName: "X", Email: "x@example.com", Password: "password123", RepeatedPassword: "password124"})
	if fields := validationFields(t, err); fields["password"] != "Password fields didn't match." {
		t.Errorf("expected mismatch error, got %v", fields)
	}

	u, err := f.svc.Authenticate(ctx, "owner@example.com", "password123")
	if err != nil || u.ID != f.owner.ID {
		t.Fatalf("expected owner to authenticate, got %+v, %v", u, err)
	}

	for _, tc := range [][2]string{{"owner@example.com", "wrong-password"}, {"ghost@example.com", "password123"}} {
		_, err := f.svc.Authenticate(ctx, tc[0], tc[1])
		if fields := validationFields(t, err); fields["non_field_errors"] != "Invalid email or password." {
			t.Errorf("%s: unexpected error %v", tc[0], fields)
		}
	}
}

func TestUserByEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.UserByEmail(ctx, "member@example.com")
	if err != nil || u.ID != f.member.ID {
		t.Fatalf("expected member, got %+v, %v", u, err)
	}
	_, err = f.svc.UserByEmail(ctx, "nobody@example.com")
	assertNotFound(t, err)
	_, err = f.svc.UserByEmail(ctx, "broken")
	validationFields(t, err)
}

func TestCanAccessAndCanDelete(t *testing.T) {
	f := newFixture(t)
	summary := f.board(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		userID    int64
		canAccess bool
		canDelete bool
	}{
		{"owner", f.owner.ID, true, true},
		{"member", f.member.ID, true, false},
		{"outsider", f.outsider.ID, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := f.svc.CanAccess(ctx, tt.userID, summary.Board)
			if err != nil {
				t.Fatalf("CanAccess: %v", err)
			}
			if ok != tt.canAccess {
				t.Errorf("CanAccess = %v, want %v", ok, tt.canAccess)
			}
			if got := f.svc.CanDelete(tt.userID, summary.Board); got != tt.canDelete {
				t.Errorf("CanDelete = %v, want %v", got, tt.canDelete)
			}
		})
	}
}

func TestTextKeptAsGiven(t *testing.T) {
	f := newFixture(t)
	b := f.board(t)
	ctx := context.Background()

	td, err := f.svc.CreateTask(ctx, f.owner.ID, service.NewTask{
		BoardID:     b.Board.ID,
		Title:       "  fix a<b and c>d  ",
		Description: "&lt;script&gt;alert(1)&lt;/script&gt;",
	})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	if td.Task.Title != "fix a<b and c>d" {
		t.Errorf("title = %q", td.Task.Title)
	}
	if td.Task.Description != "&lt;script&gt;alert(1)&lt;/script&gt;" {
		t.Errorf("description = %q", td.Task.Description)
	}

	c, err := f.svc.CreateComment(ctx, f.member.ID, td.Task.ID, "use List<T> here")
	if err != nil {
		t.Fatalf("failed to create comment: %v", err)
	}
	if c.Comment.Content != "use List<T> here" {
		t.Errorf("content = %q", c.Comment.Content)
	}
}

func TestTitleLengthCountsCharacters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.CreateBoard(ctx, f.owner.ID, strings.Repeat("é", 200), nil)
	if err != nil {
		t.Fatalf("200 two-byte characters should fit: %v", err)
	}

	long := strings.Repeat("é", 256)
	_, err = f.svc.UpdateBoard(ctx, f.owner.ID, b.Board.ID, service.BoardUpdate{Title: &long})
	var verr *service.ValidationError
	if !errors.As(err, &verr) || verr.Fields["title"] == "" {
		t.Fatalf("expected title validation error, got %v", err)
	}

	_, err = f.svc.CreateTask(ctx, f.owner.ID, service.NewTask{BoardID: b.Board.ID, Title: strings.Repeat("日", 255)})
	if err != nil {
		t.Fatalf("255 three-byte characters should fit: %v", err)
	}

	_, err = f.svc.Register(ctx, service.Registration{
		FullName:         strings.Repeat("ü", 150),
		Email:            "umlaut@example.com",
		Password:         "password123",
		RepeatedPassword: "password123",
	})
	if err != nil {
		t.Fatalf("150 character name should fit: %v", err)
	}
}
