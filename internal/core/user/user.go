// Package user holds the employee profile shared by the directory, auth and document packages.
package user

import "time"

type Profile struct {
	ID           int64
	Email        string
	Name         string
	RoleLabel    string
	TeamID       *int64
	DepartmentID *int64
	DivisionID   *int64
	ManagerID    *int64
	IsActive     bool
	Permissions  []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Scope is the organisational placement used for visibility checks.
type Scope struct {
	TeamID       *int64 `json:"team_id,omitempty"`
	DepartmentID *int64 `json:"department_id,omitempty"`
	DivisionID   *int64 `json:"division_id,omitempty"`
}

func (p *Profile) Scope() Scope {
	return Scope{TeamID: p.TeamID, DepartmentID: p.DepartmentID, DivisionID: p.DivisionID}
}

func (p *Profile) HasPermission(name string) bool {
	for _, perm := range p.Permissions {
		if perm == name {
			return true
		}
	}
	return false
}

// SameUnit reports whether both ids are set and equal.
func SameUnit(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}
