package domain

import "time"

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) Validate() error {
	if u.Username == "" {
		return Validationf("username is required")
	}
	if u.PasswordHash == "" {
		return Validationf("password is required")
	}
	return nil
}

// UserUpdate is a partial update; nil pointers leave the field untouched.
// PasswordHash arrives pre-hashed from the service layer.
type UserUpdate struct {
	Username     *string
	PasswordHash *string
}

type Role struct {
	ID          int64
	Name        string
	Description string
	Permissions []Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r Role) Validate() error {
	if r.Name == "" {
		return Validationf("role name is required")
	}
	return nil
}

type RoleUpdate struct {
	Name        *string
	Description *string
}

type Permission struct {
	ID          int64
	Name        string
	Description string
}
