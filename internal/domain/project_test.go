package domain

import (
	"testing"
	"time"
)

func newArchivedProject(t *testing.T) *Project {
	t.Helper()
	project := NewProject("org1", "OPS", "Operations", "user1", testNow)
	if err := project.Archive(adminActor, testNow); err != nil {
		t.Fatalf("Unexpected archive error: %v", err)
	}
	return project
}

func TestProject_Archive(t *testing.T) {
	project := NewProject("org1", "OPS", "Operations", "user1", testNow)

	if err := project.Archive(adminActor, testNow); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if project.State() != LifecycleArchived {
		t.Errorf("Expected state %s, got %s", LifecycleArchived, project.State())
	}

	if project.Status != ProjectStatusArchived {
		t.Errorf("Expected status %s, got %s", ProjectStatusArchived, project.Status)
	}

	if project.ArchivedBy == nil || *project.ArchivedBy != "admin1" {
		t.Error("Expected archived-by admin1")
	}

	if err := project.Archive(adminActor, testNow); err != ErrAlreadyArchived {
		t.Errorf("Expected ErrAlreadyArchived, got %v", err)
	}
}

func TestProject_ArchiveRequiresAdmin(t *testing.T) {
	project := NewProject("org1", "OPS", "Operations", "user1", testNow)
	creator := Actor{UserID: "user1", OrganizationID: "org1", Role: RoleMember}

	if err := project.Archive(creator, testNow); err != ErrNotAuthorized {
		t.Errorf("Expected ErrNotAuthorized, got %v", err)
	}

	if project.ArchivedAt != nil {
		t.Error("Expected project to be unchanged")
	}
}

func TestProject_Unarchive(t *testing.T) {
	project := newArchivedProject(t)

	if err := project.Unarchive(adminActor, testNow); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if project.ArchivedAt != nil || project.ArchivedBy != nil {
		t.Error("Expected archived fields to be cleared")
	}

	if project.State() != LifecycleActive {
		t.Errorf("Expected state %s, got %s", LifecycleActive, project.State())
	}

	if err := project.Unarchive(adminActor, testNow); err != ErrProjectNotArchived {
		t.Errorf("Expected ErrProjectNotArchived, got %v", err)
	}
}

func TestProject_SoftDeleteRequiresArchive(t *testing.T) {
	project := NewProject("org1", "OPS", "Operations", "user1", testNow)

	err := project.SoftDelete(adminActor, "test", 0, testNow, DefaultRetentionWindow)
	if err != ErrProjectNotArchived {
		t.Errorf("Expected ErrProjectNotArchived, got %v", err)
	}

	if project.DeletedAt != nil || project.PurgeAfter != nil {
		t.Error("Expected project to be unchanged")
	}
}

func TestProject_SoftDeleteWithActiveTickets(t *testing.T) {
	project := newArchivedProject(t)

	err := project.SoftDelete(adminActor, "test", 2, testNow, DefaultRetentionWindow)
	if err != ErrProjectHasActiveTickets {
		t.Errorf("Expected ErrProjectHasActiveTickets, got %v", err)
	}

	if project.DeletedAt != nil {
		t.Error("Expected project to be unchanged")
	}
}

func TestProject_SoftDeleteForbidden(t *testing.T) {
	project := newArchivedProject(t)
	stranger := Actor{UserID: "user2", OrganizationID: "org1", Role: RoleMember}

	if err := project.SoftDelete(stranger, "", 0, testNow, DefaultRetentionWindow); err != ErrNotAuthorized {
		t.Errorf("Expected ErrNotAuthorized, got %v", err)
	}
}

func TestProject_SoftDelete(t *testing.T) {
	project := newArchivedProject(t)

	if err := project.SoftDelete(adminActor, "test", 0, testNow, DefaultRetentionWindow); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	wantPurge := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	if project.DeletedAt == nil || !project.DeletedAt.Equal(testNow) {
		t.Errorf("Expected deleted-at %v, got %v", testNow, project.DeletedAt)
	}

	if project.PurgeAfter == nil || !project.PurgeAfter.Equal(wantPurge) {
		t.Errorf("Expected purge-after %v, got %v", wantPurge, project.PurgeAfter)
	}

	if project.ArchivedAt == nil {
		t.Error("A deleted project must stay archived")
	}

	if project.State() != LifecycleSoftDeleted {
		t.Errorf("Expected state %s, got %s", LifecycleSoftDeleted, project.State())
	}

	if err := project.Unarchive(adminActor, testNow); err != ErrAlreadyDeleted {
		t.Errorf("Expected ErrAlreadyDeleted, got %v", err)
	}
}

func TestProject_Restore(t *testing.T) {
	project := newArchivedProject(t)
	_ = project.SoftDelete(adminActor, "test", 0, testNow, DefaultRetentionWindow)

	if err := project.Restore(adminActor, testNow.Add(24*time.Hour)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if project.State() != LifecycleActive {
		t.Errorf("Expected state %s, got %s", LifecycleActive, project.State())
	}

	if project.PurgeAfter != nil || project.DeletedReason != nil {
		t.Error("Expected soft-delete fields to be cleared")
	}

	if project.RestoredAt == nil {
		t.Error("Expected restored-at to be set")
	}
}

func TestDaysRemaining(t *testing.T) {
	purgeAfter := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		now      time.Time
		expected int
	}{
		{"two weeks in", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), 16},
		{"partial day rounds up", time.Date(2024, 1, 30, 1, 0, 0, 0, time.UTC), 1},
		{"at deadline", purgeAfter, 0},
		{"overdue less than a day", purgeAfter.Add(5 * time.Hour), 0},
		{"overdue by a day", purgeAfter.Add(24 * time.Hour), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysRemaining(purgeAfter, tt.now); got != tt.expected {
				t.Errorf("Expected %d days, got %d", tt.expected, got)
			}
		})
	}
}

func TestParseTrashType(t *testing.T) {
	tests := []struct {
		input    string
		expected TrashType
		wantErr  bool
	}{
		{"", TrashTypeAll, false},
		{"all", TrashTypeAll, false},
		{"PROJECT", TrashTypeProject, false},
		{"ticket", TrashTypeTicket, false},
		{"comment", "", true},
	}

	for _, tt := range tests {
		got, err := ParseTrashType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTrashType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.expected {
			t.Errorf("ParseTrashType(%q) = %s, want %s", tt.input, got, tt.expected)
		}
	}
}
