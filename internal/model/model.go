package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleGrader is a grader (course staff) user role.
	UserRoleGrader UserRole = "grader"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// GradeSession is a persisted grading run: the assignment it graded and
// the exported results document at the moment it was saved.
type GradeSession struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignment_id"`
	Students     int       `json:"students"`
	Exported     string    `json:"exported"`
	CreatedAt    time.Time `json:"created_at"`
}

// GradeConfig holds runtime grading parameters set via CLI flags. They
// prefill the dashboard form; every gather can override them.
type GradeConfig struct {
	ImplName      string // default implementation file name
	TestName      string // default test file name
	Entry         string // runner entry function, e.g. "main.RunTests"
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
}
