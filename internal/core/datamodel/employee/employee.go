package employee

import "time"

type Employee struct {
	ID           int64     `gorm:"primaryKey"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	Name         string    `gorm:"column:name;not null"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	RoleLabel    string    `gorm:"column:role_label"`
	ApprovalRole string    `gorm:"column:approval_role;index"`
	TeamID       *int64    `gorm:"column:team_id"`
	DepartmentID *int64    `gorm:"column:department_id"`
	DivisionID   *int64    `gorm:"column:division_id"`
	ManagerID    *int64    `gorm:"column:manager_id"`
	IsActive     bool      `gorm:"column:is_active;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Employee) TableName() string {
	return "employees"
}

type OrgUnit struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Kind      string    `gorm:"column:kind;not null"`
	ParentID  *int64    `gorm:"column:parent_id;index"`
	HeadID    *int64    `gorm:"column:head_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (OrgUnit) TableName() string {
	return "org_units"
}

type Permission struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;uniqueIndex;not null"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Permission) TableName() string {
	return "permissions"
}

type EmployeePermission struct {
	ID           int64     `gorm:"primaryKey"`
	EmployeeID   int64     `gorm:"column:employee_id;not null;uniqueIndex:idx_employee_permission"`
	PermissionID int64     `gorm:"column:permission_id;not null;uniqueIndex:idx_employee_permission"`
	GrantedBy    *int64    `gorm:"column:granted_by"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (EmployeePermission) TableName() string {
	return "employee_permissions"
}
