package persistence

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/tracker/internal/domain"
	"github.com/fixora/tracker/internal/logger"
	"github.com/fixora/tracker/internal/ports"
)

// openTestDB connects to TEST_DATABASE_URL and applies the migrations. Tests
// are skipped when the variable is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn, PoolConfig{MaxOpenConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db, "../../../migrations", "up", logger.NewNop()))
	return db
}

func seedOrg(t *testing.T, store *Store) string {
	t.Helper()
	now := time.Now().UTC()
	org := &domain.Organization{ID: "org-" + uuid.NewString(), Name: "Acme", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.CreateOrganization(context.Background(), org))
	return org.ID
}

func TestPostgresStore_LifecycleRoundTrip(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	org := seedOrg(t, store)
	admin := domain.Actor{UserID: "admin", OrganizationID: org, Role: domain.RoleAdmin}
	now := time.Now().UTC().Truncate(time.Microsecond)

	project := domain.NewProject(org, "OPS", "Operations", "admin", now)
	ticket := domain.NewTicket(project, 1, "Broken printer", "", domain.TicketPriorityLow, "admin", now)
	ticket.Status = domain.TicketStatusDone

	err := store.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if err := repos.Projects.Create(ctx, project); err != nil {
			return err
		}
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		if err := repos.Comments.Create(ctx, domain.NewComment(ticket, "admin", "looking", now)); err != nil {
			return err
		}
		return repos.Attachments.Create(ctx, domain.NewAttachment(ticket, "admin", "a.png", "image/png", 10, org+"/a.png", now))
	})
	require.NoError(t, err)

	repos := store.Repositories()

	blocking, err := repos.Tickets.CountBlocking(ctx, org, project.ID, domain.BlockingTicketStatuses)
	require.NoError(t, err)
	assert.Equal(t, 0, blocking)

	require.NoError(t, project.Archive(admin, now))
	require.NoError(t, project.SoftDelete(admin, "cleanup", 0, now, time.Hour))
	require.NoError(t, repos.Projects.Update(ctx, project))

	stamped, err := repos.Comments.StampDeleted(ctx, org, []string{ticket.ID}, now, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, stamped)

	deleted, err := repos.Projects.ListDeleted(ctx, org)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "cleanup", *deleted[0].DeletedReason)
	assert.True(t, deleted[0].PurgeAfter.Equal(now.Add(time.Hour)))

	_, err = repos.Projects.FindByID(ctx, "org-other", project.ID)
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	cleared, err := repos.Comments.ClearDeleted(ctx, org, []string{ticket.ID}, *deleted[0].DeletedAt)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)
}

func TestPostgresStore_PurgeCandidatesAndCascade(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	org := seedOrg(t, store)
	admin := domain.Actor{UserID: "admin", OrganizationID: org, Role: domain.RoleAdmin}
	deletedAt := time.Now().UTC().Add(-48 * time.Hour)

	project := domain.NewProject(org, "OLD", "Old", "admin", deletedAt)
	require.NoError(t, project.Archive(admin, deletedAt))
	require.NoError(t, project.SoftDelete(admin, "", 0, deletedAt, time.Hour))
	ticket := domain.NewTicket(project, 1, "Stale", "", domain.TicketPriorityLow, "admin", deletedAt)
	ticket.Status = domain.TicketStatusDone

	repos := store.Repositories()
	require.NoError(t, repos.Projects.Create(ctx, project))
	require.NoError(t, repos.Tickets.Create(ctx, ticket))
	require.NoError(t, repos.Comments.Create(ctx, domain.NewComment(ticket, "admin", "done", deletedAt)))

	refs, err := repos.Projects.ListPurgeCandidates(ctx, time.Now().UTC(), "", 1000)
	require.NoError(t, err)
	var found bool
	for _, ref := range refs {
		if ref.ID == project.ID {
			found = true
			assert.Equal(t, org, ref.OrganizationID)
		}
	}
	assert.True(t, found)

	err = store.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := repos.Projects.LockPurgeCandidate(ctx, project.ID, time.Now().UTC()); err != nil {
			return err
		}
		return repos.Projects.HardDelete(ctx, org, project.ID)
	})
	require.NoError(t, err)

	_, err = repos.Tickets.FindByID(ctx, org, ticket.ID)
	assert.ErrorIs(t, err, domain.ErrTicketNotFound)
	comments, err := repos.Comments.ListByTicket(ctx, org, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	_, err = repos.Projects.LockPurgeCandidate(ctx, project.ID, time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestPostgresAuditRepository_AppendAndList(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	org := seedOrg(t, store)
	entityID := uuid.NewString()

	entry, err := domain.NewAuditEntry(org, nil, domain.AuditProjectPurge, domain.EntityTypeProject, &entityID,
		map[string]int{"tickets": 2}, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, store.Audit().Append(ctx, entry))

	entries, err := store.Audit().List(ctx, org, domain.EntityTypeProject, entityID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].ActorID)
	assert.JSONEq(t, `{"tickets":2}`, string(entries[0].Details))
}
