package domain

import "time"

// Role is the access role carried in the identity provider's custom claim.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleUser      Role = "user"
	RoleOrganizer Role = "organizer"
	RoleArtist    Role = "artist"
)

// Valid reports whether the role is one of the known claims.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleOrganizer, RoleArtist:
		return true
	}
	return false
}

// CanManageEvents reports whether the role may mutate event records.
func (r Role) CanManageEvents() bool {
	return r == RoleAdmin || r == RoleOrganizer
}

// User is a backoffice account as reported by the identity provider.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	LastSignIn  time.Time `json:"lastSignIn,omitempty"`
}
