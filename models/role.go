package models

// Role is the closed set of access levels a user can hold.
type Role int

const (
	RoleGuest Role = iota
	RoleSubscriber
	RoleAdmin
	RoleMainAdmin
)

func (r Role) String() string {
	switch r {
	case RoleSubscriber:
		return "subscriber"
	case RoleAdmin:
		return "admin"
	case RoleMainAdmin:
		return "main_admin"
	default:
		return "guest"
	}
}

// CanReviewClaims reports whether the role may approve or reject payment claims.
func (r Role) CanReviewClaims() bool {
	return r >= RoleAdmin
}

// CanManageAdmins reports whether the role may promote or demote admins.
// Reserved to the main admin.
func (r Role) CanManageAdmins() bool {
	return r == RoleMainAdmin
}

// CanEraseUsers reports whether the role may hard-delete users and their data.
func (r Role) CanEraseUsers() bool {
	return r == RoleMainAdmin
}
