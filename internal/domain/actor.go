package domain

// Role is the role an actor holds inside its organization
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Actor identifies who is performing an operation and in which tenant.
// It is passed explicitly to every lifecycle and query operation.
type Actor struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	Role           Role   `json:"role"`
}

// IsAdmin reports whether the actor has admin capability
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Validate checks that the actor carries both an identity and a tenant
func (a Actor) Validate() error {
	if a.UserID == "" || a.OrganizationID == "" {
		return ErrMissingActor
	}
	return nil
}

// CanManage reports whether the actor may delete or restore an entity
// created by createdBy.
func (a Actor) CanManage(createdBy string) bool {
	return a.IsAdmin() || (createdBy != "" && a.UserID == createdBy)
}
