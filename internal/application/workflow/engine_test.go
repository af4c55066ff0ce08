package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/garyjia/travel-desk/internal/apperror"
	"github.com/garyjia/travel-desk/internal/application/dispatcher"
	"github.com/garyjia/travel-desk/internal/application/port"
	"github.com/garyjia/travel-desk/internal/domain/entity"
	"github.com/garyjia/travel-desk/internal/domain/event"
	domainwf "github.com/garyjia/travel-desk/internal/domain/workflow"
	"github.com/garyjia/travel-desk/internal/infrastructure/persistence/repository"
	"github.com/garyjia/travel-desk/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/travel-desk/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Mock implementations

type mockDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockDispatcher) Subscribe(eventType event.Type, handler dispatcher.Handler) {}

func (m *mockDispatcher) SubscribeNamed(eventType event.Type, name string, handler dispatcher.Handler) {
}

func (m *mockDispatcher) Unsubscribe(eventType event.Type, name string) {}

func (m *mockDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.DispatchAsync(ctx, evt)
	return nil
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockDispatcher) ListHandlers(eventType event.Type) []dispatcher.HandlerInfo { return nil }

func (m *mockDispatcher) Close() error { return nil }

func (m *mockDispatcher) all() []*event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*event.Event(nil), m.events...)
}

type mockMetrics struct {
	mu          sync.Mutex
	transitions []string
	rejections  []string
}

func (m *mockMetrics) ObserveTransition(role domainwf.Role, action domainwf.Action, to domainwf.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, role.String()+"/"+action.String()+"/"+to.String())
}

func (m *mockMetrics) ObserveRejection(role domainwf.Role, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections = append(m.rejections, reason)
}

func (m *mockMetrics) ObserveNotification(channel, status string) {}

// failingComments fails every insert
type failingComments struct {
	port.CommentRepository
}

func (f failingComments) Create(ctx context.Context, c *entity.RequestComment) error {
	return errors.New("disk full")
}

type fixture struct {
	engine     WorkflowEngine
	requests   port.RequestRepository
	comments   port.CommentRepository
	dispatcher *mockDispatcher
	metrics    *mockMetrics
	employee   *entity.User
	manager    *entity.User
	db         *sqlite.DB
}

func newFixture(t *testing.T, opts ...EngineOption) *fixture {
	t.Helper()

	raw, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "wf.db"), MaxOpenConns: 4}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	require.NoError(t, database.NewMigrator(raw, zap.NewNop()).RunEmbedded())

	db := sqlite.NewDB(raw.DB, zap.NewNop())
	users := repository.NewUserRepository(db, zap.NewNop())

	manager := &entity.User{Email: "mgr@example.com", PasswordHash: "x", RoleID: entity.RoleIDManager, FirstName: "Mona", IsActive: true}
	require.NoError(t, users.Create(context.Background(), manager))
	employee := &entity.User{Email: "emp@example.com", PasswordHash: "x", RoleID: entity.RoleIDEmployee, FirstName: "Eli", ManagerID: &manager.ID, EmployeeCode: "EMP001", IsActive: true}
	require.NoError(t, users.Create(context.Background(), employee))

	f := &fixture{
		requests:   repository.NewRequestRepository(db, zap.NewNop()),
		comments:   repository.NewCommentRepository(db, zap.NewNop()),
		dispatcher: &mockDispatcher{},
		metrics:    &mockMetrics{},
		employee:   employee,
		manager:    manager,
		db:         db,
	}

	all := append([]EngineOption{WithDispatcher(f.dispatcher), WithMetrics(f.metrics)}, opts...)
	f.engine = NewEngine(f.requests, f.comments, db, zap.NewNop(), all...)
	return f
}

func (f *fixture) submit(t *testing.T) *entity.TravelRequest {
	t.Helper()
	req, err := f.engine.Submit(context.Background(), SubmitCommand{
		OwnerID:      f.employee.ID,
		EmployeeCode: "EMP001",
		Details: entity.TravelDetails{
			ProjectName:         "Offsite",
			DepartmentName:      "Engineering",
			ReasonForTravelling: "Planning",
			TypeOfBooking:       "Flight",
		},
	})
	require.NoError(t, err)
	return req
}

func (f *fixture) reload(t *testing.T, id int64) *entity.TravelRequest {
	t.Helper()
	req, err := f.requests.GetByID(context.Background(), id)
	require.NoError(t, err)
	return req
}

func (f *fixture) forceStatus(t *testing.T, id int64, status domainwf.Status) {
	t.Helper()
	require.NoError(t, f.requests.UpdateStatus(context.Background(), id, status))
}

func assertCode(t *testing.T, err error, code apperror.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, apperror.GetCode(err), "error: %v", err)
}

// Test factory

func TestBuildTravelPolicy_Table(t *testing.T) {
	p := BuildTravelPolicy()
	both := domainwf.NotifyEmployee | domainwf.NotifyManager

	tests := []struct {
		role     domainwf.Role
		action   domainwf.Action
		from     domainwf.Status
		want     domainwf.Status
		audience domainwf.Audience
	}{
		{domainwf.RoleEmployee, domainwf.ActionSubmit, "", domainwf.StatusPending, domainwf.NotifyManager},
		{domainwf.RoleEmployee, domainwf.ActionEdit, domainwf.StatusReturnedToEmployee, domainwf.StatusPending, domainwf.NotifyNone},
		{domainwf.RoleManager, domainwf.ActionApprove, domainwf.StatusPending, domainwf.StatusManagerApproved, domainwf.NotifyTravelAdmins},
		{domainwf.RoleManager, domainwf.ActionDisapprove, domainwf.StatusPending, domainwf.StatusDisapproved, domainwf.NotifyEmployee},
		{domainwf.RoleManager, domainwf.ActionReturnToEmployee, domainwf.StatusPending, domainwf.StatusReturnedToEmployee, domainwf.NotifyEmployee},
		{domainwf.RoleTravelAdmin, domainwf.ActionApprove, domainwf.StatusManagerApproved, domainwf.StatusApproved, both},
		{domainwf.RoleTravelAdmin, domainwf.ActionDisapprove, domainwf.StatusManagerApproved, domainwf.StatusDisapproved, both},
		{domainwf.RoleTravelAdmin, domainwf.ActionBook, domainwf.StatusApproved, domainwf.StatusBooked, both},
		{domainwf.RoleTravelAdmin, domainwf.ActionBookTicket, domainwf.StatusApproved, domainwf.StatusCompleted, both},
		{domainwf.RoleTravelAdmin, domainwf.ActionComplete, domainwf.StatusBooked, domainwf.StatusCompleted, both},
		{domainwf.RoleTravelAdmin, domainwf.ActionClose, domainwf.StatusBooked, domainwf.StatusCompleted, both},
		{domainwf.RoleTravelAdmin, domainwf.ActionReturnToManager, domainwf.StatusManagerApproved, domainwf.StatusReturnedToManager, both},
		{domainwf.RoleTravelAdmin, domainwf.ActionReturnToEmployee, domainwf.StatusManagerApproved, domainwf.StatusReturnedToEmployee, both},
	}

	for _, tt := range tests {
		t.Run(tt.role.String()+" "+tt.action.String(), func(t *testing.T) {
			d, err := p.Decide(domainwf.Transition{Role: tt.role, Action: tt.action, From: tt.from, Comment: "note"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.To)
			assert.Equal(t, tt.audience, d.Audience)
		})
	}
}

func TestBuildTravelPolicy_ReviewersIgnoreCurrentStatus(t *testing.T) {
	p := BuildTravelPolicy()

	for _, role := range []domainwf.Role{domainwf.RoleManager, domainwf.RoleTravelAdmin} {
		for _, action := range p.PermittedActions(role) {
			for _, from := range domainwf.AllStatuses() {
				_, err := p.Decide(domainwf.Transition{Role: role, Action: action, From: from, Comment: "ok"})
				assert.NoError(t, err, "%s %s from %s", role, action, from)
			}
		}
	}
}

func TestBuildTravelPolicy_AdminHasNoWorkflowActions(t *testing.T) {
	p := BuildTravelPolicy()
	assert.Empty(t, p.PermittedActions(domainwf.RoleAdmin))
	assert.False(t, p.Can(domainwf.RoleEmployee, domainwf.ActionApprove))
	assert.False(t, p.Can(domainwf.RoleManager, domainwf.ActionBook))
}

// Test engine

func TestEngine_SubmitCreatesPendingRequest(t *testing.T) {
	f := newFixture(t)

	req := f.submit(t)
	assert.Positive(t, req.ID)
	assert.Equal(t, domainwf.StatusPending, req.Status)
	assert.Empty(t, req.Comments)

	owned, err := f.requests.ListByOwner(context.Background(), f.employee.ID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, domainwf.StatusPending, owned[0].Status)
	assert.Equal(t, "Offsite", owned[0].ProjectName)

	events := f.dispatcher.all()
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeRequestSubmitted, events[0].Type)
	assert.Equal(t, req.ID, events[0].RequestID)
	assert.Equal(t, int64(domainwf.NotifyManager), events[0].GetPayloadInt(event.KeyAudience))
	assert.Equal(t, f.employee.ID, events[0].GetPayloadInt(event.KeyOwnerID))
}

func TestEngine_SubmitRecordsOptionalComment(t *testing.T) {
	f := newFixture(t)

	req, err := f.engine.Submit(context.Background(), SubmitCommand{
		OwnerID: f.employee.ID,
		Details: entity.TravelDetails{ProjectName: "Offsite", DepartmentName: "Eng", ReasonForTravelling: "r", TypeOfBooking: "Hotel"},
		Comment: "  urgent  ",
	})
	require.NoError(t, err)
	require.Len(t, req.Comments, 1)
	assert.Equal(t, "urgent", req.Comments[0].Comment)
	assert.Equal(t, f.employee.ID, req.Comments[0].UserID)
}

func TestEngine_ManagerApprove(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	out, err := f.engine.Apply(context.Background(), Command{
		RequestID: req.ID,
		ActorID:   f.manager.ID,
		Role:      domainwf.RoleManager,
		Action:    "Approve",
		Comment:   "ok",
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusManagerApproved, out.Request.Status)

	stored := f.reload(t, req.ID)
	assert.Equal(t, domainwf.StatusManagerApproved, stored.Status)
	require.Len(t, stored.Comments, 1)
	assert.Equal(t, "ok", stored.Comments[0].Comment)
	assert.Equal(t, f.manager.ID, stored.Comments[0].UserID)

	events := f.dispatcher.all()
	require.Len(t, events, 2)
	last := events[1]
	assert.Equal(t, event.TypeRequestTransitioned, last.Type)
	assert.Equal(t, "Manager Approved", last.GetPayloadString(event.KeyTo))
	assert.Equal(t, "Pending", last.GetPayloadString(event.KeyFrom))
	assert.Equal(t, int64(domainwf.NotifyTravelAdmins), last.GetPayloadInt(event.KeyAudience))

	assert.Contains(t, f.metrics.transitions, "Manager/approve/Manager Approved")
}

func TestEngine_ReturnAlias(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	out, err := f.engine.Apply(context.Background(), Command{
		RequestID: req.ID, ActorID: f.manager.ID, Role: domainwf.RoleManager, Action: " RETURN ", Comment: "fix dates",
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusReturnedToEmployee, out.Request.Status)
	assert.Equal(t, domainwf.ActionReturnToEmployee, out.Decision.Action)
}

func TestEngine_EveryReviewerRuleRecordsOneComment(t *testing.T) {
	p := BuildTravelPolicy()
	statuses := domainwf.AllStatuses()

	i := 0
	for _, role := range []domainwf.Role{domainwf.RoleManager, domainwf.RoleTravelAdmin} {
		for _, action := range p.PermittedActions(role) {
			from := statuses[i%len(statuses)]
			i++

			t.Run(role.String()+" "+action.String()+" from "+from.String(), func(t *testing.T) {
				f := newFixture(t)
				actorID := f.manager.ID
				if role == domainwf.RoleTravelAdmin {
					desk := &entity.User{Email: "desk@example.com", PasswordHash: "x", RoleID: entity.RoleIDTravelAdmin, FirstName: "Dee", IsActive: true}
					require.NoError(t, repository.NewUserRepository(f.db, zap.NewNop()).Create(context.Background(), desk))
					actorID = desk.ID
				}

				req := f.submit(t)
				f.forceStatus(t, req.ID, from)

				want, err := p.Decide(domainwf.Transition{Role: role, Action: action, From: from, Comment: "noted"})
				require.NoError(t, err)

				out, err := f.engine.Apply(context.Background(), Command{
					RequestID: req.ID, ActorID: actorID, Role: role, Action: action.String(), Comment: "noted",
				})
				require.NoError(t, err)
				assert.Equal(t, want.To, out.Request.Status)

				stored := f.reload(t, req.ID)
				assert.Equal(t, want.To, stored.Status)
				require.Len(t, stored.Comments, 1)
				assert.Equal(t, actorID, stored.Comments[0].UserID)
				assert.Equal(t, "noted", stored.Comments[0].Comment)
			})
		}
	}
}

func TestEngine_ActionsOutsideRoleVocabulary(t *testing.T) {
	keywords := map[domainwf.Role][]string{
		domainwf.RoleManager:     {"book ticket", "complete", "return to manager", "edit", "close", "book"},
		domainwf.RoleTravelAdmin: {"return", "edit", "delete", "submit"},
		domainwf.RoleEmployee:    {"approve", "return"},
	}

	for role, list := range keywords {
		for _, kw := range list {
			t.Run(role.String()+" "+kw, func(t *testing.T) {
				f := newFixture(t)
				req := f.submit(t)

				_, err := f.engine.Apply(context.Background(), Command{
					RequestID: req.ID, ActorID: f.manager.ID, Role: role, Action: kw, Comment: "x",
				})
				assertCode(t, err, apperror.CodeValidation)
				assert.Equal(t, MsgUnknownAction, apperror.Message(err))

				stored := f.reload(t, req.ID)
				assert.Equal(t, domainwf.StatusPending, stored.Status)
				assert.Empty(t, stored.Comments)
			})
		}
	}
}

func TestEngine_RejectionsLeaveNoTrace(t *testing.T) {
	tests := []struct {
		name    string
		cmd     func(f *fixture, id int64) Command
		code    apperror.Code
		message string
	}{
		{
			name: "blank comment",
			cmd: func(f *fixture, id int64) Command {
				return Command{RequestID: id, ActorID: f.manager.ID, Role: domainwf.RoleManager, Action: "approve", Comment: " \t "}
			},
			code:    apperror.CodeValidation,
			message: MsgCommentRequired,
		},
		{
			name: "unknown action",
			cmd: func(f *fixture, id int64) Command {
				return Command{RequestID: id, ActorID: f.manager.ID, Role: domainwf.RoleManager, Action: "escalate", Comment: "ok"}
			},
			code:    apperror.CodeValidation,
			message: MsgUnknownAction,
		},
		{
			name: "manager cannot book",
			cmd: func(f *fixture, id int64) Command {
				return Command{RequestID: id, ActorID: f.manager.ID, Role: domainwf.RoleManager, Action: "book", Comment: "ok"}
			},
			code:    apperror.CodeValidation,
			message: MsgUnknownAction,
		},
		{
			name: "travel admin has no bare return",
			cmd: func(f *fixture, id int64) Command {
				return Command{RequestID: id, ActorID: f.manager.ID, Role: domainwf.RoleTravelAdmin, Action: "return", Comment: "ok"}
			},
			code:    apperror.CodeValidation,
			message: MsgUnknownAction,
		},
		{
			name: "edit while pending",
			cmd: func(f *fixture, id int64) Command {
				return Command{RequestID: id, ActorID: f.employee.ID, Role: domainwf.RoleEmployee, Action: "edit",
					Details: &entity.TravelDetails{ProjectName: "Changed"}}
			},
			code:    apperror.CodeValidation,
			message: MsgNotEditable,
		},
		{
			name: "edit by someone else",
			cmd: func(f *fixture, id int64) Command {
				return Command{RequestID: id, ActorID: f.manager.ID, Role: domainwf.RoleEmployee, Action: "edit",
					Details: &entity.TravelDetails{ProjectName: "Changed"}}
			},
			code:    apperror.CodeNotFound,
			message: MsgEditNotOwned,
		},
		{
			name: "delete by someone else",
			cmd: func(f *fixture, id int64) Command {
				return Command{RequestID: id, ActorID: f.manager.ID, Role: domainwf.RoleEmployee, Action: "delete"}
			},
			code:    apperror.CodeNotFound,
			message: MsgDeleteNotOwned,
		},
		{
			name: "missing request",
			cmd: func(f *fixture, id int64) Command {
				return Command{RequestID: id + 100, ActorID: f.manager.ID, Role: domainwf.RoleManager, Action: "approve", Comment: "ok"}
			},
			code:    apperror.CodeNotFound,
			message: MsgRequestNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := f.submit(t)

			_, err := f.engine.Apply(context.Background(), tt.cmd(f, req.ID))
			assertCode(t, err, tt.code)
			assert.Equal(t, tt.message, apperror.Message(err))

			stored := f.reload(t, req.ID)
			assert.Equal(t, domainwf.StatusPending, stored.Status)
			assert.Equal(t, "Offsite", stored.ProjectName)
			assert.Empty(t, stored.Comments)
			assert.Len(t, f.dispatcher.all(), 1, "only the submit event is emitted")
			assert.NotEmpty(t, f.metrics.rejections)
		})
	}
}

func TestEngine_EmployeeEditAfterReturn(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)
	f.forceStatus(t, req.ID, domainwf.StatusReturnedToEmployee)

	dates := "12-14 Nov"
	out, err := f.engine.Apply(context.Background(), Command{
		RequestID: req.ID,
		ActorID:   f.employee.ID,
		Role:      domainwf.RoleEmployee,
		Action:    "edit",
		Details: &entity.TravelDetails{
			ProjectName:         "Offsite v2",
			DepartmentName:      "Engineering",
			ReasonForTravelling: "Planning",
			TypeOfBooking:       "Flight",
			Dates:               &dates,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusPending, out.Request.Status)
	assert.Equal(t, "Offsite v2", out.Request.ProjectName)

	stored := f.reload(t, req.ID)
	assert.Equal(t, domainwf.StatusPending, stored.Status)
	assert.Equal(t, "Offsite v2", stored.ProjectName)
	require.NotNil(t, stored.Dates)
	assert.Equal(t, dates, *stored.Dates)
	assert.Empty(t, stored.Comments, "edit without a comment records none")

	last := f.dispatcher.all()[1]
	assert.Equal(t, int64(domainwf.NotifyNone), last.GetPayloadInt(event.KeyAudience))
}

func TestEngine_EditRequiresDetails(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)
	f.forceStatus(t, req.ID, domainwf.StatusReturnedToEmployee)

	_, err := f.engine.Apply(context.Background(), Command{RequestID: req.ID, ActorID: f.employee.ID, Role: domainwf.RoleEmployee, Action: "edit"})
	assertCode(t, err, apperror.CodeValidation)
	assert.Equal(t, MsgDetailsRequired, apperror.Message(err))
}

func TestEngine_TravelAdminActsFromAnyStatus(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	out, err := f.engine.Apply(context.Background(), Command{
		RequestID: req.ID, ActorID: f.manager.ID, Role: domainwf.RoleTravelAdmin, Action: "approve", Comment: "fast track",
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusApproved, out.Request.Status)
	assert.Equal(t, domainwf.StatusPending, out.Decision.From)
}

func TestEngine_BookTicketStoresDocument(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	out, err := f.engine.Apply(context.Background(), Command{
		RequestID: req.ID,
		ActorID:   f.manager.ID,
		Role:      domainwf.RoleTravelAdmin,
		Action:    "Book Ticket",
		Comment:   "booked flight",
		TicketURL: "https://files.example.com/ticket.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusCompleted, out.Request.Status)
	assert.Equal(t, "https://files.example.com/ticket.pdf", out.Request.DocumentURL())

	stored := f.reload(t, req.ID)
	assert.Equal(t, domainwf.StatusCompleted, stored.Status)
	assert.Equal(t, "https://files.example.com/ticket.pdf", stored.DocumentURL())
	require.Len(t, stored.Comments, 1)
	assert.Equal(t, "booked flight", stored.Comments[0].Comment)
}

func TestEngine_DeleteByOwner(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)
	f.forceStatus(t, req.ID, domainwf.StatusApproved)

	out, err := f.engine.Apply(context.Background(), Command{RequestID: req.ID, ActorID: f.employee.ID, Role: domainwf.RoleEmployee, Action: "delete"})
	require.NoError(t, err)
	assert.Nil(t, out.Request)
	assert.True(t, out.Decision.Removes)

	assert.Nil(t, f.reload(t, req.ID))

	events := f.dispatcher.all()
	require.Len(t, events, 2)
	assert.Equal(t, event.TypeRequestDeleted, events[1].Type)
}

func TestEngine_SequentialTransitionsKeepOrderedTrail(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	f := newFixture(t, WithClock(clock))
	req := f.submit(t)

	steps := []struct {
		role    domainwf.Role
		action  string
		comment string
		want    domainwf.Status
	}{
		{domainwf.RoleManager, "approve", "looks fine", domainwf.StatusManagerApproved},
		{domainwf.RoleTravelAdmin, "return to manager", "budget?", domainwf.StatusReturnedToManager},
		{domainwf.RoleManager, "approve", "budget ok", domainwf.StatusManagerApproved},
		{domainwf.RoleTravelAdmin, "book", "PNR 123", domainwf.StatusBooked},
		{domainwf.RoleTravelAdmin, "complete", "done", domainwf.StatusCompleted},
	}

	for _, s := range steps {
		_, err := f.engine.Apply(context.Background(), Command{
			RequestID: req.ID, ActorID: f.manager.ID, Role: s.role, Action: s.action, Comment: s.comment,
		})
		require.NoError(t, err)
	}

	owned, err := f.requests.ListByOwner(context.Background(), f.employee.ID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, steps[len(steps)-1].want, owned[0].Status)
	require.Len(t, owned[0].Comments, len(steps))
	for i, s := range steps {
		assert.Equal(t, s.comment, owned[0].Comments[i].Comment)
		if i > 0 {
			assert.False(t, owned[0].Comments[i].Timestamp.Before(owned[0].Comments[i-1].Timestamp))
		}
	}
}

func TestEngine_PersistenceFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	broken := NewEngine(f.requests, failingComments{f.comments}, f.db, zap.NewNop(), WithDispatcher(f.dispatcher))

	_, err := broken.Apply(context.Background(), Command{
		RequestID: req.ID, ActorID: f.manager.ID, Role: domainwf.RoleManager, Action: "approve", Comment: "ok",
	})
	assertCode(t, err, apperror.CodeInternal)

	stored := f.reload(t, req.ID)
	assert.Equal(t, domainwf.StatusPending, stored.Status, "status change must roll back with the comment")
	assert.Len(t, f.dispatcher.all(), 1)
}
