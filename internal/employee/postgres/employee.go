package postgres

import (
	"context"
	"errors"

	employeeDatamodel "github.com/frahmantamala/approval-portal/internal/core/datamodel/employee"
	"github.com/frahmantamala/approval-portal/internal/employee"
	"gorm.io/gorm"
)

type EmployeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

var _ employee.Repository = (*EmployeeRepository)(nil)

func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*employee.Employee, error) {
	var row employeeDatamodel.Employee
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, employee.ErrNotFound
		}
		return nil, err
	}
	return employee.FromDataModel(&row), nil
}

func (r *EmployeeRepository) GetByEmail(ctx context.Context, email string) (*employee.Employee, error) {
	var row employeeDatamodel.Employee
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, employee.ErrNotFound
		}
		return nil, err
	}
	return employee.FromDataModel(&row), nil
}

func (r *EmployeeRepository) GetPermissions(ctx context.Context, id int64) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Table("permissions p").
		Select("p.name").
		Joins("JOIN employee_permissions ep ON ep.permission_id = p.id").
		Where("ep.employee_id = ?", id).
		Order("p.name").
		Scan(&names).Error
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (r *EmployeeRepository) FindByApprovalRole(ctx context.Context, role string) (*employee.Employee, error) {
	var row employeeDatamodel.Employee
	err := r.db.WithContext(ctx).
		Where("approval_role = ? AND is_active = ?", role, true).
		Order("id ASC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, employee.ErrNotFound
		}
		return nil, err
	}
	return employee.FromDataModel(&row), nil
}

func (r *EmployeeRepository) ActiveIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&employeeDatamodel.Employee{}).
		Where("is_active = ?", true).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *EmployeeRepository) GetOrgUnit(ctx context.Context, id int64) (*employee.OrgUnit, error) {
	var row employeeDatamodel.OrgUnit
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, employee.ErrOrgUnitNotFound
		}
		return nil, err
	}
	return employee.UnitFromDataModel(&row), nil
}

func (r *EmployeeRepository) ListOrgUnits(ctx context.Context) ([]*employee.OrgUnit, error) {
	var rows []employeeDatamodel.OrgUnit
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*employee.OrgUnit, 0, len(rows))
	for i := range rows {
		out = append(out, employee.UnitFromDataModel(&rows[i]))
	}
	return out, nil
}

func (r *EmployeeRepository) Names(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []employeeDatamodel.Employee
	if err := r.db.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Name
	}
	return out, nil
}

// Create inserts an employee and grants the named permissions, creating
// missing permission rows. Used by the seed command.
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := employee.ToDataModel(e)
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		e.ID = row.ID
		for _, name := range e.Permissions {
			perm := employeeDatamodel.Permission{Name: name}
			if err := tx.Where("name = ?", name).FirstOrCreate(&perm).Error; err != nil {
				return err
			}
			if err := tx.Create(&employeeDatamodel.EmployeePermission{EmployeeID: e.ID, PermissionID: perm.ID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *EmployeeRepository) CreateOrgUnit(ctx context.Context, u *employee.OrgUnit) error {
	row := employee.UnitToDataModel(u)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	u.ID = row.ID
	return nil
}

// SetUnitHead assigns the head of a unit after both rows exist.
func (r *EmployeeRepository) SetUnitHead(ctx context.Context, unitID, headID int64) error {
	return r.db.WithContext(ctx).Model(&employeeDatamodel.OrgUnit{}).
		Where("id = ?", unitID).
		Update("head_id", headID).Error
}
