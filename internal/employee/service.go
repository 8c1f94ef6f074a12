package employee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/approval-portal/internal/approval"
	"github.com/frahmantamala/approval-portal/internal/core/user"
	"github.com/frahmantamala/approval-portal/internal/document"
	"github.com/frahmantamala/approval-portal/internal/leave"
	"github.com/patrickmn/go-cache"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Employee, error)
	GetPermissions(ctx context.Context, id int64) ([]string, error)
	FindByApprovalRole(ctx context.Context, role string) (*Employee, error)
	ActiveIDs(ctx context.Context) ([]int64, error)
	GetOrgUnit(ctx context.Context, id int64) (*OrgUnit, error)
	ListOrgUnits(ctx context.Context) ([]*OrgUnit, error)
	Names(ctx context.Context, ids []int64) (map[int64]string, error)
}

const (
	employeeKeyPattern = "employee:%d"
	unitKeyPattern     = "org-unit:%d"
	roleKeyPattern     = "approval-role:%s"

	DefaultCacheTTL = 5 * time.Minute
)

// Service is the HR directory. Lookups are cached for a short TTL since
// approval routing resolves the same heads for every submission.
type Service struct {
	repo   Repository
	cache  *cache.Cache
	logger *slog.Logger
}

func NewService(repo Repository, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		repo:   repo,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

var (
	_ approval.Directory   = (*Service)(nil)
	_ document.People      = (*Service)(nil)
	_ leave.EmployeeSource = (*Service)(nil)
)

// Get returns the employee with permissions, bypassing the cache.
func (s *Service) Get(ctx context.Context, id int64) (*Employee, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	perms, err := s.repo.GetPermissions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get employee permissions: %w", err)
	}
	e.Permissions = perms
	return e, nil
}

func (s *Service) Profile(ctx context.Context, id int64) (*user.Profile, error) {
	e, err := s.employee(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.Profile(), nil
}

func (s *Service) ActiveEmployeeIDs(ctx context.Context) ([]int64, error) {
	return s.repo.ActiveIDs(ctx)
}

// ResolveApprover maps a policy role to the employee holding it for ownerID.
// Unit heads come from the owner's team, department or division; company-wide
// roles come from the approval_role column. Inactive holders count as vacant.
func (s *Service) ResolveApprover(ctx context.Context, ownerID int64, role approval.PolicyRole) (*approval.Approver, error) {
	owner, err := s.employee(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var holder *Employee
	switch role {
	case approval.PolicyTeamLead:
		holder, err = s.unitHead(ctx, owner.TeamID)
		if err == nil && holder == nil && owner.ManagerID != nil {
			holder, err = s.optional(ctx, *owner.ManagerID)
		}
	case approval.PolicyDepartmentHead:
		holder, err = s.unitHead(ctx, owner.DepartmentID)
	case approval.PolicyDivisionHead:
		holder, err = s.unitHead(ctx, owner.DivisionID)
	default:
		holder, err = s.roleHolder(ctx, string(role))
	}
	if err != nil {
		return nil, err
	}
	if holder == nil || !holder.IsActive {
		s.logger.Debug("approval role vacant", "owner_id", ownerID, "role", role)
		return nil, nil
	}
	return &approval.Approver{ID: holder.ID, Name: holder.Name}, nil
}

// OrgTree returns the organisation as nested units with head names.
func (s *Service) OrgTree(ctx context.Context) ([]*OrgNode, error) {
	units, err := s.repo.ListOrgUnits(ctx)
	if err != nil {
		return nil, err
	}
	var heads []int64
	for _, u := range units {
		if u.HeadID != nil {
			heads = append(heads, *u.HeadID)
		}
	}
	names, err := s.repo.Names(ctx, heads)
	if err != nil {
		return nil, err
	}
	return BuildTree(units, names), nil
}

// Invalidate drops a cached employee after a directory change.
func (s *Service) Invalidate(id int64) {
	s.cache.Delete(fmt.Sprintf(employeeKeyPattern, id))
}

func (s *Service) employee(ctx context.Context, id int64) (*Employee, error) {
	key := fmt.Sprintf(employeeKeyPattern, id)
	if v, ok := s.cache.Get(key); ok {
		return v.(*Employee), nil
	}
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, e)
	return e, nil
}

func (s *Service) optional(ctx context.Context, id int64) (*Employee, error) {
	e, err := s.employee(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return e, err
}

func (s *Service) unitHead(ctx context.Context, unitID *int64) (*Employee, error) {
	if unitID == nil {
		return nil, nil
	}
	key := fmt.Sprintf(unitKeyPattern, *unitID)
	var unit *OrgUnit
	if v, ok := s.cache.Get(key); ok {
		unit = v.(*OrgUnit)
	} else {
		u, err := s.repo.GetOrgUnit(ctx, *unitID)
		if errors.Is(err, ErrOrgUnitNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		s.cache.SetDefault(key, u)
		unit = u
	}
	if unit.HeadID == nil {
		return nil, nil
	}
	return s.optional(ctx, *unit.HeadID)
}

func (s *Service) roleHolder(ctx context.Context, role string) (*Employee, error) {
	key := fmt.Sprintf(roleKeyPattern, role)
	if v, ok := s.cache.Get(key); ok {
		return v.(*Employee), nil
	}
	e, err := s.repo.FindByApprovalRole(ctx, role)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, e)
	return e, nil
}
