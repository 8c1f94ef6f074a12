package employee

import (
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	employeeDatamodel "github.com/frahmantamala/approval-portal/internal/core/datamodel/employee"
	"github.com/frahmantamala/approval-portal/internal/core/user"
)

// Employee is a directory entry. PasswordHash never leaves the auth flow.
type Employee struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	RoleLabel    string    `json:"role_label,omitempty"`
	ApprovalRole string    `json:"approval_role,omitempty"`
	TeamID       *int64    `json:"team_id,omitempty"`
	DepartmentID *int64    `json:"department_id,omitempty"`
	DivisionID   *int64    `json:"division_id,omitempty"`
	ManagerID    *int64    `json:"manager_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	Permissions  []string  `json:"permissions,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UnitKind string

const (
	UnitCompany    UnitKind = "company"
	UnitDivision   UnitKind = "division"
	UnitDepartment UnitKind = "department"
	UnitTeam       UnitKind = "team"
)

type OrgUnit struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Kind     UnitKind `json:"kind"`
	ParentID *int64   `json:"parent_id,omitempty"`
	HeadID   *int64   `json:"head_id,omitempty"`
}

// OrgNode is an org unit with its head and sub-units resolved for display.
type OrgNode struct {
	*OrgUnit
	HeadName string     `json:"head_name,omitempty"`
	Children []*OrgNode `json:"children"`
}

var (
	ErrNotFound        = internal.NewNotFoundError("employee not found", internal.ErrCodeEmployeeNotFound)
	ErrOrgUnitNotFound = internal.NewNotFoundError("org unit not found", internal.ErrCodeEmployeeNotFound)
)

func (e *Employee) Profile() *user.Profile {
	return &user.Profile{
		ID:           e.ID,
		Email:        e.Email,
		Name:         e.Name,
		RoleLabel:    e.RoleLabel,
		TeamID:       e.TeamID,
		DepartmentID: e.DepartmentID,
		DivisionID:   e.DivisionID,
		ManagerID:    e.ManagerID,
		IsActive:     e.IsActive,
		Permissions:  e.Permissions,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

// BuildTree nests units under their parents. Units whose parent is unknown become roots.
func BuildTree(units []*OrgUnit, names map[int64]string) []*OrgNode {
	nodes := make(map[int64]*OrgNode, len(units))
	for _, u := range units {
		n := &OrgNode{OrgUnit: u, Children: []*OrgNode{}}
		if u.HeadID != nil {
			n.HeadName = names[*u.HeadID]
		}
		nodes[u.ID] = n
	}

	roots := []*OrgNode{}
	for _, u := range units {
		n := nodes[u.ID]
		if u.ParentID != nil {
			if parent, ok := nodes[*u.ParentID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}

func ToDataModel(e *Employee) *employeeDatamodel.Employee {
	return &employeeDatamodel.Employee{
		ID:           e.ID,
		Email:        e.Email,
		Name:         e.Name,
		PasswordHash: e.PasswordHash,
		RoleLabel:    e.RoleLabel,
		ApprovalRole: e.ApprovalRole,
		TeamID:       e.TeamID,
		DepartmentID: e.DepartmentID,
		DivisionID:   e.DivisionID,
		ManagerID:    e.ManagerID,
		IsActive:     e.IsActive,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func FromDataModel(e *employeeDatamodel.Employee) *Employee {
	return &Employee{
		ID:           e.ID,
		Email:        e.Email,
		Name:         e.Name,
		PasswordHash: e.PasswordHash,
		RoleLabel:    e.RoleLabel,
		ApprovalRole: e.ApprovalRole,
		TeamID:       e.TeamID,
		DepartmentID: e.DepartmentID,
		DivisionID:   e.DivisionID,
		ManagerID:    e.ManagerID,
		IsActive:     e.IsActive,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
		Permissions:  []string{},
	}
}

func FromDataModelWithPermissions(e *employeeDatamodel.Employee, permissions []string) *Employee {
	out := FromDataModel(e)
	out.Permissions = permissions
	return out
}

func UnitFromDataModel(u *employeeDatamodel.OrgUnit) *OrgUnit {
	return &OrgUnit{
		ID:       u.ID,
		Name:     u.Name,
		Kind:     UnitKind(u.Kind),
		ParentID: u.ParentID,
		HeadID:   u.HeadID,
	}
}

func UnitToDataModel(u *OrgUnit) *employeeDatamodel.OrgUnit {
	return &employeeDatamodel.OrgUnit{
		ID:       u.ID,
		Name:     u.Name,
		Kind:     string(u.Kind),
		ParentID: u.ParentID,
		HeadID:   u.HeadID,
	}
}
