package model

import (
	"strings"
	"time"

	"trading-academy/internal/domain"

	"github.com/google/uuid"
)

// Role is an authorization role. It decides which screens a user may see,
// not which paid content they are entitled to.
type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleSignals    Role = "SIGNALS"
	RolePremium    Role = "PREMIUM"
	RoleAffiliate  Role = "AFFILIATE"
	RoleSupport    Role = "SUPPORT"
	RoleEditor     Role = "EDITOR"
	RoleAnalyst    Role = "ANALYST"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPERADMIN"
)

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleStudent, RoleSignals, RolePremium, RoleAffiliate, RoleSupport,
		RoleEditor, RoleAnalyst, RoleAdmin, RoleSuperAdmin:
		return r, true
	}
	return "", false
}

// CanManageBilling reports whether the role may act on other users' subscriptions.
func (r Role) CanManageBilling() bool {
	return r == RoleSupport || r == RoleAdmin || r == RoleSuperAdmin
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func NewUser(id, email, name string, role Role) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domain.NewValidationError("email", "is required")
	}
	if role == "" {
		role = RoleStudent
	}
	return &User{ID: id, Email: email, Name: name, Role: role, CreatedAt: time.Now().UTC()}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
