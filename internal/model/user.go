package model

import "github.com/google/uuid"

// Role enumerates the platform roles the auth service issues.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Elevated reports whether the role may act on resources it does not own.
// Teachers manage only their own exams; admins manage everything.
func (r Role) Elevated() bool {
	return r == RoleAdmin
}

// User is the identity projection returned by the auth service.
type User struct {
	ID    uuid.UUID `json:"id"`
	Role  Role      `json:"role"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}
