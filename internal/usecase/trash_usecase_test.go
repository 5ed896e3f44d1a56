package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/tracker/internal/domain"
)

func TestTrashUseCase_ListTrash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ops := f.project(t, admin.UserID, true)
	_, err := f.uc.SoftDeleteProject(ctx, admin, ops.ID, "test")
	require.NoError(t, err)

	web := domain.NewProject("org-a", "WEB", "Website", admin.UserID, t0)
	require.NoError(t, f.store.Repositories().Projects.Create(ctx, web))
	ticket := f.ticket(t, web, 3, domain.TicketStatusOpen, admin.UserID)

	// The ticket is trashed later, so its deadline sorts after the project.
	f.clock.now = t0.Add(2 * 24 * time.Hour)
	_, err = f.uc.SoftDeleteTicket(ctx, admin, ticket.ID, "")
	require.NoError(t, err)

	// Another tenant's trash never shows up.
	foreign := domain.Actor{UserID: "admin-b", OrganizationID: "org-b", Role: domain.RoleAdmin}
	foreignProject := domain.NewProject("org-b", "OPS", "Ops B", foreign.UserID, t0)
	require.NoError(t, foreignProject.Archive(foreign, t0))
	require.NoError(t, f.store.Repositories().Projects.Create(ctx, foreignProject))
	_, err = f.uc.SoftDeleteProject(ctx, foreign, foreignProject.ID, "")
	require.NoError(t, err)

	f.clock.now = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	trash := NewTrashUseCase(f.store.Repositories().Projects, f.store.Repositories().Tickets, f.clock)

	tests := []struct {
		name      string
		trashType domain.TrashType
		wantIDs   []string
		wantDays  []int
	}{
		{name: "all", trashType: domain.TrashTypeAll, wantIDs: []string{ops.ID, ticket.ID}, wantDays: []int{16, 18}},
		{name: "empty means all", trashType: "", wantIDs: []string{ops.ID, ticket.ID}, wantDays: []int{16, 18}},
		{name: "projects", trashType: domain.TrashTypeProject, wantIDs: []string{ops.ID}, wantDays: []int{16}},
		{name: "tickets", trashType: domain.TrashTypeTicket, wantIDs: []string{ticket.ID}, wantDays: []int{18}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := trash.ListTrash(ctx, admin, tt.trashType)
			require.NoError(t, err)
			require.Len(t, resp.Items, len(tt.wantIDs))
			assert.Equal(t, len(tt.wantIDs), resp.Total)

			for i, item := range resp.Items {
				assert.Equal(t, tt.wantIDs[i], item.ID)
				assert.Equal(t, tt.wantDays[i], item.DaysRemaining)
			}
		})
	}

	resp, err := trash.ListTrash(ctx, admin, domain.TrashTypeProject)
	require.NoError(t, err)
	item := resp.Items[0]
	assert.Equal(t, "OPS", item.Key)
	assert.Equal(t, domain.EntityTypeProject, item.Type)
	assert.Equal(t, admin.UserID, item.DeletedBy)
	assert.Equal(t, "test", *item.DeletedReason)
	assert.True(t, item.PurgeAfter.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))
}

func TestTrashUseCase_ListTrashRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	trash := NewTrashUseCase(f.store.Repositories().Projects, f.store.Repositories().Tickets, f.clock)

	_, err := trash.ListTrash(context.Background(), creator, domain.TrashTypeAll)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	_, err = trash.ListTrash(context.Background(), domain.Actor{}, domain.TrashTypeAll)
	assert.ErrorIs(t, err, domain.ErrMissingActor)
}

func TestTrashUseCase_ListTrashDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, admin.UserID, true)
	_, err := f.uc.SoftDeleteProject(ctx, admin, p.ID, "")
	require.NoError(t, err)

	before, err := f.store.Repositories().Projects.FindByID(ctx, "org-a", p.ID)
	require.NoError(t, err)

	trash := NewTrashUseCase(f.store.Repositories().Projects, f.store.Repositories().Tickets, f.clock)
	_, err = trash.ListTrash(ctx, admin, domain.TrashTypeAll)
	require.NoError(t, err)

	after, err := f.store.Repositories().Projects.FindByID(ctx, "org-a", p.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
