package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/auth"
	employeeDatamodel "github.com/frahmantamala/approval-portal/internal/core/datamodel/employee"
	"gorm.io/gorm"
)

var errEmployeeNotFound = internal.NewNotFoundError("employee not found", internal.ErrCodeEmployeeNotFound)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

var _ auth.Repository = (*Repository)(nil)

func (r *Repository) GetCredentials(ctx context.Context, email string) (*auth.Credentials, error) {
	var row employeeDatamodel.Employee
	err := r.db.WithContext(ctx).
		Select("id", "email", "password_hash", "is_active").
		Where("LOWER(email) = ?", email).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errEmployeeNotFound
		}
		return nil, err
	}
	return &auth.Credentials{
		EmployeeID:   row.ID,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		IsActive:     row.IsActive,
	}, nil
}

func (r *Repository) GetUserWithPermissions(ctx context.Context, userID int64) (*auth.User, error) {
	var row employeeDatamodel.Employee
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", userID, true).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errEmployeeNotFound
		}
		return nil, err
	}

	var permissions []string
	err = r.db.WithContext(ctx).
		Table("permissions p").
		Select("p.name").
		Joins("JOIN employee_permissions ep ON ep.permission_id = p.id").
		Where("ep.employee_id = ?", userID).
		Scan(&permissions).Error
	if err != nil {
		return nil, err
	}

	return &auth.User{
		ID:           row.ID,
		Email:        row.Email,
		Name:         row.Name,
		Permissions:  permissions,
		TeamID:       row.TeamID,
		DepartmentID: row.DepartmentID,
		DivisionID:   row.DivisionID,
	}, nil
}
