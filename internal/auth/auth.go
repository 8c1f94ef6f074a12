package auth

import (
	"context"
	"time"

	"github.com/frahmantamala/approval-portal/internal/core/user"
	"github.com/golang-jwt/jwt/v5"
)

const (
	PermAdmin       = "admin"
	PermManageRooms = "manage_rooms"
	PermViewReports = "view_reports"
)

// User is the authenticated principal attached to a request context.
type User struct {
	ID           int64    `json:"id"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	Permissions  []string `json:"permissions,omitempty"`
	TeamID       *int64   `json:"team_id,omitempty"`
	DepartmentID *int64   `json:"department_id,omitempty"`
	DivisionID   *int64   `json:"division_id,omitempty"`
}

func (u *User) Scope() user.Scope {
	return user.Scope{TeamID: u.TeamID, DepartmentID: u.DepartmentID, DivisionID: u.DivisionID}
}

func (u *User) HasPermission(permission string) bool {
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

func (u *User) HasAnyPermission(permissions []string) bool {
	for _, userPerm := range u.Permissions {
		for _, requiredPerm := range permissions {
			if userPerm == requiredPerm {
				return true
			}
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.HasPermission(PermAdmin)
}

func (u *User) CanManageRooms() bool {
	return u.HasAnyPermission([]string{PermManageRooms, PermAdmin})
}

func (u *User) CanViewReports() bool {
	return u.HasAnyPermission([]string{PermViewReports, PermAdmin})
}

// Credentials is what login needs from the directory.
type Credentials struct {
	EmployeeID   int64
	Email        string
	PasswordHash string
	IsActive     bool
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// Claims represents JWT token claims
type Claims struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	Kind   TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

type TokenGenerator interface {
	GenerateAccessToken(userID string, email string) (string, error)
	GenerateRefreshToken(userID string, email string) (string, error)
	ValidateToken(tokenString string, kind TokenKind) (*Claims, error)
	AccessTTL() time.Duration
}

type ctxKey string

const ContextUserKey ctxKey = "user"

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*User)
	return u, ok
}

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}
