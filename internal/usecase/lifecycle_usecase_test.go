package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fixora/tracker/internal/adapter/memory"
	"github.com/fixora/tracker/internal/audit"
	"github.com/fixora/tracker/internal/domain"
	"github.com/fixora/tracker/internal/logger"
	"github.com/fixora/tracker/internal/ports"
)

var (
	t0      = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	admin   = domain.Actor{UserID: "admin-1", OrganizationID: "org-a", Role: domain.RoleAdmin}
	creator = domain.Actor{UserID: "member-1", OrganizationID: "org-a", Role: domain.RoleMember}
	other   = domain.Actor{UserID: "member-2", OrganizationID: "org-a", Role: domain.RoleMember}
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

// MockNotifier is a mock implementation of ports.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n ports.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockAuditRepository is a mock implementation of ports.AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) List(ctx context.Context, organizationID string, entityType domain.EntityType, entityID string, limit int) ([]*domain.AuditEntry, error) {
	args := m.Called(ctx, organizationID, entityType, entityID, limit)
	return args.Get(0).([]*domain.AuditEntry), args.Error(1)
}

// wrappedUnitOfWork lets a test swap repositories inside a unit of work
type wrappedUnitOfWork struct {
	inner ports.UnitOfWork
	wrap  func(ports.Repositories) ports.Repositories
}

func (w wrappedUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	return w.inner.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		return fn(ctx, w.wrap(repos))
	})
}

type failingAttachments struct {
	ports.AttachmentRepository
	err error
}

func (f failingAttachments) StampDeleted(ctx context.Context, organizationID string, ticketIDs []string, at time.Time, by string) (int, error) {
	return 0, f.err
}

type fixture struct {
	store    *memory.Store
	clock    *testClock
	notifier *MockNotifier
	uc       *LifecycleUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	clock := &testClock{now: t0}
	notifier := &MockNotifier{}
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Maybe()
	log := logger.NewNop()

	return &fixture{
		store:    store,
		clock:    clock,
		notifier: notifier,
		uc: NewLifecycleUseCase(
			store,
			audit.NewRecorder(store.Audit(), clock, log),
			notifier,
			clock,
			domain.DefaultRetentionWindow,
			log,
		),
	}
}

func (f *fixture) project(t *testing.T, createdBy string, archived bool) *domain.Project {
	t.Helper()

	p := domain.NewProject("org-a", "OPS", "Operations", createdBy, t0)
	if archived {
		require.NoError(t, p.Archive(admin, t0))
	}
	require.NoError(t, f.store.Repositories().Projects.Create(context.Background(), p))
	return p
}

func (f *fixture) ticket(t *testing.T, p *domain.Project, seq int, status domain.TicketStatus, createdBy string) *domain.Ticket {
	t.Helper()

	ticket := domain.NewTicket(p, seq, "Broken VPN", "VPN drops every hour", domain.TicketPriorityMedium, createdBy, t0)
	ticket.Status = status
	repos := f.store.Repositories()
	require.NoError(t, repos.Tickets.Create(context.Background(), ticket))
	require.NoError(t, repos.Comments.Create(context.Background(), domain.NewComment(ticket, createdBy, "looking into it", t0)))
	require.NoError(t, repos.Attachments.Create(context.Background(), domain.NewAttachment(ticket, createdBy, "log.txt", "text/plain", 12, "objects/"+ticket.ID, t0)))
	return ticket
}

func TestLifecycleUseCase_ArchiveProject(t *testing.T) {
	tests := []struct {
		name    string
		actor   domain.Actor
		wantErr error
	}{
		{name: "admin archives", actor: admin},
		{name: "member is forbidden", actor: creator, wantErr: domain.ErrNotAuthorized},
		{name: "missing actor", actor: domain.Actor{}, wantErr: domain.ErrMissingActor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := f.project(t, creator.UserID, false)

			got, err := f.uc.ArchiveProject(context.Background(), tt.actor, p.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 0, f.store.Audit().CountAction(domain.AuditProjectArchive))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, domain.LifecycleArchived, got.State())
			assert.Equal(t, domain.ProjectStatusArchived, got.Status)
			assert.Equal(t, 1, f.store.Audit().CountAction(domain.AuditProjectArchive))
		})
	}
}

func TestLifecycleUseCase_UnarchiveProject(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, creator.UserID, true)

	got, err := f.uc.UnarchiveProject(context.Background(), admin, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LifecycleActive, got.State())
	assert.Nil(t, got.ArchivedAt)

	_, err = f.uc.UnarchiveProject(context.Background(), admin, p.ID)
	assert.ErrorIs(t, err, domain.ErrProjectNotArchived)
}

func TestLifecycleUseCase_SoftDeleteProject(t *testing.T) {
	t.Run("requires archive", func(t *testing.T) {
		f := newFixture(t)
		p := f.project(t, creator.UserID, false)

		_, err := f.uc.SoftDeleteProject(context.Background(), admin, p.ID, "cleanup")
		assert.ErrorIs(t, err, domain.ErrProjectNotArchived)

		stored, err := f.store.Repositories().Projects.FindByID(context.Background(), "org-a", p.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.DeletedAt)
		assert.Nil(t, stored.PurgeAfter)
	})

	for _, status := range []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress} {
		t.Run("blocked by "+string(status)+" ticket", func(t *testing.T) {
			f := newFixture(t)
			p := f.project(t, creator.UserID, true)
			ticket := f.ticket(t, p, 1, status, creator.UserID)

			_, err := f.uc.SoftDeleteProject(context.Background(), admin, p.ID, "")
			assert.ErrorIs(t, err, domain.ErrProjectHasActiveTickets)

			repos := f.store.Repositories()
			stored, err := repos.Projects.FindByID(context.Background(), "org-a", p.ID)
			require.NoError(t, err)
			assert.Nil(t, stored.DeletedAt)

			comments, err := repos.Comments.ListByTicket(context.Background(), "org-a", ticket.ID)
			require.NoError(t, err)
			require.Len(t, comments, 1)
			assert.Nil(t, comments[0].DeletedAt)
		})
	}

	t.Run("forbidden for non creator", func(t *testing.T) {
		f := newFixture(t)
		p := f.project(t, creator.UserID, true)

		_, err := f.uc.SoftDeleteProject(context.Background(), other, p.ID, "")
		assert.ErrorIs(t, err, domain.ErrNotAuthorized)
		assert.Equal(t, domain.ErrorKindForbidden, domain.KindOf(err))
	})

	t.Run("other tenant sees not found", func(t *testing.T) {
		f := newFixture(t)
		p := f.project(t, creator.UserID, true)
		outsider := domain.Actor{UserID: "admin-9", OrganizationID: "org-b", Role: domain.RoleAdmin}

		_, err := f.uc.SoftDeleteProject(context.Background(), outsider, p.ID, "")
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	})

	t.Run("creator deletes and dependents are stamped", func(t *testing.T) {
		f := newFixture(t)
		p := f.project(t, creator.UserID, true)
		done := f.ticket(t, p, 1, domain.TicketStatusDone, creator.UserID)
		f.ticket(t, p, 2, domain.TicketStatusCancelled, creator.UserID)

		got, err := f.uc.SoftDeleteProject(context.Background(), creator, p.ID, "test")
		require.NoError(t, err)

		require.NotNil(t, got.DeletedAt)
		assert.True(t, got.DeletedAt.Equal(t0))
		assert.True(t, got.PurgeAfter.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))
		assert.Equal(t, creator.UserID, *got.DeletedBy)
		assert.Equal(t, "test", *got.DeletedReason)

		repos := f.store.Repositories()
		comments, err := repos.Comments.ListByTicket(context.Background(), "org-a", done.ID)
		require.NoError(t, err)
		require.Len(t, comments, 1)
		require.NotNil(t, comments[0].DeletedAt)
		assert.True(t, comments[0].DeletedAt.Equal(t0))

		storedTicket, err := repos.Tickets.FindByID(context.Background(), "org-a", done.ID)
		require.NoError(t, err)
		assert.Nil(t, storedTicket.DeletedAt, "tickets keep their own lifecycle fields")

		assert.Equal(t, 1, f.store.Audit().CountAction(domain.AuditProjectSoftDelete))
		f.notifier.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(n ports.Notification) bool {
			return n.Type == ports.NotificationTypeMovedToTrash && n.Recipient == creator.UserID && n.EntityID == p.ID
		}))
	})

	t.Run("storage failure rolls back", func(t *testing.T) {
		f := newFixture(t)
		p := f.project(t, creator.UserID, true)
		ticket := f.ticket(t, p, 1, domain.TicketStatusDone, creator.UserID)

		boom := errors.New("attachments table unavailable")
		f.uc.uow = wrappedUnitOfWork{inner: f.store, wrap: func(repos ports.Repositories) ports.Repositories {
			repos.Attachments = failingAttachments{AttachmentRepository: repos.Attachments, err: boom}
			return repos
		}}

		_, err := f.uc.SoftDeleteProject(context.Background(), admin, p.ID, "")
		assert.ErrorIs(t, err, boom)

		repos := f.store.Repositories()
		stored, err := repos.Projects.FindByID(context.Background(), "org-a", p.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.DeletedAt)

		comments, err := repos.Comments.ListByTicket(context.Background(), "org-a", ticket.ID)
		require.NoError(t, err)
		assert.Nil(t, comments[0].DeletedAt)
		assert.Equal(t, 0, f.store.Audit().CountAction(domain.AuditProjectSoftDelete))
	})

	t.Run("twice fails", func(t *testing.T) {
		f := newFixture(t)
		p := f.project(t, creator.UserID, true)

		_, err := f.uc.SoftDeleteProject(context.Background(), admin, p.ID, "")
		require.NoError(t, err)
		_, err = f.uc.SoftDeleteProject(context.Background(), admin, p.ID, "")
		assert.ErrorIs(t, err, domain.ErrAlreadyDeleted)
	})
}

func TestLifecycleUseCase_RestoreProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, creator.UserID, true)
	earlier := f.ticket(t, p, 1, domain.TicketStatusDone, creator.UserID)
	later := f.ticket(t, p, 2, domain.TicketStatusDone, creator.UserID)

	// The first ticket is trashed on its own a day before the project.
	_, err := f.uc.SoftDeleteTicket(ctx, creator, earlier.ID, "duplicate")
	require.NoError(t, err)

	f.clock.now = t0.Add(24 * time.Hour)
	_, err = f.uc.SoftDeleteProject(ctx, admin, p.ID, "")
	require.NoError(t, err)

	f.clock.now = t0.Add(48 * time.Hour)
	got, err := f.uc.RestoreProject(ctx, admin, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LifecycleActive, got.State())
	assert.Equal(t, domain.ProjectStatusActive, got.Status)
	assert.Nil(t, got.PurgeAfter)
	require.NotNil(t, got.RestoredAt)
	assert.Equal(t, admin.UserID, *got.RestoredBy)

	repos := f.store.Repositories()
	laterComments, err := repos.Comments.ListByTicket(ctx, "org-a", later.ID)
	require.NoError(t, err)
	assert.Nil(t, laterComments[0].DeletedAt)

	earlierComments, err := repos.Comments.ListByTicket(ctx, "org-a", earlier.ID)
	require.NoError(t, err)
	require.NotNil(t, earlierComments[0].DeletedAt, "independently trashed ticket keeps its stamp")
	assert.True(t, earlierComments[0].DeletedAt.Equal(t0))

	assert.Equal(t, 1, f.store.Audit().CountAction(domain.AuditProjectRestore))
}

func TestLifecycleUseCase_RestoreProjectAfterDeadline(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, creator.UserID, true)

	_, err := f.uc.SoftDeleteProject(context.Background(), admin, p.ID, "")
	require.NoError(t, err)

	f.clock.now = t0.Add(domain.DefaultRetentionWindow)
	_, err = f.uc.RestoreProject(context.Background(), admin, p.ID)
	assert.ErrorIs(t, err, domain.ErrRetentionElapsed)
}

func TestLifecycleUseCase_SoftDeleteTicket(t *testing.T) {
	tests := []struct {
		name    string
		actor   domain.Actor
		status  domain.TicketStatus
		wantErr error
	}{
		{name: "creator deletes open ticket", actor: creator, status: domain.TicketStatusOpen},
		{name: "admin deletes in progress ticket", actor: admin, status: domain.TicketStatusInProgress},
		{name: "other member is forbidden", actor: other, status: domain.TicketStatusDone, wantErr: domain.ErrNotAuthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := f.project(t, creator.UserID, false)
			ticket := f.ticket(t, p, 1, tt.status, creator.UserID)

			got, err := f.uc.SoftDeleteTicket(context.Background(), tt.actor, ticket.ID, "")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, domain.LifecycleSoftDeleted, got.State())
			assert.Equal(t, tt.status, got.Status, "workflow status is untouched")

			attachments, err := f.store.Repositories().Attachments.ListByTicket(context.Background(), "org-a", ticket.ID)
			require.NoError(t, err)
			require.NotNil(t, attachments[0].DeletedAt)
			assert.Equal(t, 1, f.store.Audit().CountAction(domain.AuditTicketSoftDelete))
		})
	}
}

func TestLifecycleUseCase_RestoreTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, creator.UserID, false)
	ticket := f.ticket(t, p, 1, domain.TicketStatusOpen, creator.UserID)

	_, err := f.uc.RestoreTicket(ctx, creator, ticket.ID)
	assert.ErrorIs(t, err, domain.ErrNotDeleted)

	_, err = f.uc.SoftDeleteTicket(ctx, creator, ticket.ID, "")
	require.NoError(t, err)

	_, err = f.uc.RestoreTicket(ctx, other, ticket.ID)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	got, err := f.uc.RestoreTicket(ctx, creator, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LifecycleActive, got.State())

	comments, err := f.store.Repositories().Comments.ListByTicket(ctx, "org-a", ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, comments[0].DeletedAt)
}

func TestLifecycleUseCase_AuditFailureDoesNotFailOperation(t *testing.T) {
	store := memory.NewStore()
	clock := &testClock{now: t0}
	base, hook := logtest.NewNullLogger()
	base.SetLevel(logrus.InfoLevel)
	log := logger.FromLogrus(base, "test")

	auditRepo := &MockAuditRepository{}
	auditRepo.On("Append", mock.Anything, mock.Anything).Return(errors.New("audit store down"))

	notifier := &MockNotifier{}
	notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	uc := NewLifecycleUseCase(store, audit.NewRecorder(auditRepo, clock, log), notifier, clock, 0, log)

	p := domain.NewProject("org-a", "OPS", "Operations", creator.UserID, t0)
	require.NoError(t, p.Archive(admin, t0))
	require.NoError(t, store.Repositories().Projects.Create(context.Background(), p))

	got, err := uc.SoftDeleteProject(context.Background(), admin, p.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.LifecycleSoftDeleted, got.State())

	auditRepo.AssertNumberOfCalls(t, "Append", 1)
	notifier.AssertNumberOfCalls(t, "Notify", 1)

	var warnings []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings = append(warnings, e.Message)
		}
	}
	assert.Contains(t, warnings, "Failed to append audit entry")
	assert.Contains(t, warnings, "Failed to send lifecycle notification")
}
