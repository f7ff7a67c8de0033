package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/tocdoc/tocdoc/internal/platform/auth"
)

// User maps to the app_user table. Role is derived from the admin email
// allowlist on every sign-in, never set by a client.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Role      auth.Role `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IsDoctor reports whether the user holds the physician role.
func (u *User) IsDoctor() bool { return u.Role == auth.RoleDoctor }
