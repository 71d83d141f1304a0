package domain

import (
	"strings"
	"time"

	"github.com/diagnosis/supperclub/pkg/access"
	"github.com/diagnosis/supperclub/pkg/auth"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type User struct {
	ID                   int64       `json:"id"`
	Email                string      `json:"email"`
	PasswordHash         *string     `json:"-"`
	Name                 string      `json:"name"`
	Phone                string      `json:"phone,omitempty"`
	Image                string      `json:"image,omitempty"`
	Role                 access.Role `json:"role"`
	RoleSelectionPending bool        `json:"needsRoleSelection"`
	EmailVerifiedAt      *time.Time  `json:"emailVerifiedAt,omitempty"`
	CreatedAt            time.Time   `json:"createdAt"`
	UpdatedAt            time.Time   `json:"updatedAt"`
}

// Identity is what a session is issued for.
func (u *User) Identity() auth.Identity {
	return auth.Identity{
		ID:                   u.ID,
		Email:                u.Email,
		Name:                 u.Name,
		Role:                 string(u.Role),
		RoleSelectionPending: u.RoleSelectionPending,
	}
}

// UserInfo is the public projection returned by the API.
type UserInfo struct {
	ID                 int64       `json:"id"`
	Email              string      `json:"email"`
	Name               string      `json:"name"`
	Role               access.Role `json:"role"`
	NeedsRoleSelection bool        `json:"needsRoleSelection"`
}

func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Role:               u.Role,
		NeedsRoleSelection: u.RoleSelectionPending,
	}
}

// NewUser is the insert shape for both sign-up paths.
type NewUser struct {
	Email                string
	PasswordHash         *string
	Name                 string
	Phone                string
	Image                string
	Role                 access.Role
	RoleSelectionPending bool
	EmailVerifiedAt      *time.Time
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role,omitempty"`
}

func (r *RegisterRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	if r.Role == "" {
		r.Role = string(access.RoleGuest)
	}
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 200)),
		validation.Field(&r.Phone, validation.Length(7, 30)),
		validation.Field(&r.Role, validation.In(string(access.RoleGuest), string(access.RoleHost))),
	)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
