package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/approval-portal/internal"
	"github.com/frahmantamala/approval-portal/internal/approval"
	"github.com/frahmantamala/approval-portal/internal/auth"
	employeeDatamodel "github.com/frahmantamala/approval-portal/internal/core/datamodel/employee"
	documentPostgres "github.com/frahmantamala/approval-portal/internal/document/postgres"
	"github.com/frahmantamala/approval-portal/internal/employee"
	employeePostgres "github.com/frahmantamala/approval-portal/internal/employee/postgres"
	"github.com/frahmantamala/approval-portal/internal/leave"
	leavePostgres "github.com/frahmantamala/approval-portal/internal/leave/postgres"
	"github.com/frahmantamala/approval-portal/internal/room"
	roomPostgres "github.com/frahmantamala/approval-portal/internal/room/postgres"
	"github.com/frahmantamala/approval-portal/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const seedPassword = "password"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long: `Seed an org chart, employees for every approval role, meeting rooms and
this year's leave balances. Every seeded employee logs in with "password".`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gdb, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if err := seed(context.Background(), gdb, cfg); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	},
}

var seedTables = []string{
	"approval_history", "document_attachments", "document_links", "document_references",
	"approval_steps", "documents", "meeting_room_bookings", "meeting_rooms",
	"leave_balances", "employee_permissions", "permissions", "employees", "org_units",
}

type seedEmployee struct {
	Email        string
	Name         string
	RoleLabel    string
	ApprovalRole approval.PolicyRole
	Unit         string
	Permissions  []string
	HeadOf       []string
}

func seed(ctx context.Context, db *gorm.DB, cfg *internal.Config) error {
	lg := logger.LoggerWrapper()

	if clearData {
		for _, table := range seedTables {
			if err := db.WithContext(ctx).Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		fmt.Println("Cleared existing data")
	}

	repo := employeePostgres.NewEmployeeRepository(db)

	// Units are created parent first.
	units := []struct {
		Name   string
		Kind   employee.UnitKind
		Parent string
	}{
		{"Acme", employee.UnitCompany, ""},
		{"Operations", employee.UnitDivision, "Acme"},
		{"People & Culture", employee.UnitDepartment, "Operations"},
		{"Engineering", employee.UnitDepartment, "Operations"},
		{"Platform", employee.UnitTeam, "Engineering"},
	}
	unitIDs := map[string]int64{}
	for _, u := range units {
		var existing employeeDatamodel.OrgUnit
		err := db.WithContext(ctx).Where("name = ? AND kind = ?", u.Name, string(u.Kind)).First(&existing).Error
		if err == nil {
			unitIDs[u.Name] = existing.ID
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		unit := &employee.OrgUnit{Name: u.Name, Kind: u.Kind}
		if u.Parent != "" {
			parent := unitIDs[u.Parent]
			unit.ParentID = &parent
		}
		if err := repo.CreateOrgUnit(ctx, unit); err != nil {
			return fmt.Errorf("create org unit %s: %w", u.Name, err)
		}
		unitIDs[u.Name] = unit.ID
		fmt.Printf("Seeded org unit: %s (%s)\n", u.Name, u.Kind)
	}

	people := []seedEmployee{
		{Email: "ceo@acme.test", Name: "Citra CEO", RoleLabel: "Chief Executive", ApprovalRole: approval.PolicyCEO,
			Unit: "Acme", Permissions: []string{auth.PermAdmin}, HeadOf: []string{"Acme"}},
		{Email: "ops.head@acme.test", Name: "Oka Division Head", RoleLabel: "Head of Operations",
			Unit: "Operations", Permissions: []string{auth.PermViewReports}, HeadOf: []string{"Operations"}},
		{Email: "hr@acme.test", Name: "Hana HR", RoleLabel: "HR Manager", ApprovalRole: approval.PolicyHRManager,
			Unit: "People & Culture", Permissions: []string{auth.PermViewReports}, HeadOf: []string{"People & Culture"}},
		{Email: "finance@acme.test", Name: "Fadhil Finance", RoleLabel: "Finance Manager", ApprovalRole: approval.PolicyFinanceManager,
			Unit: "Operations", Permissions: []string{auth.PermViewReports}},
		{Email: "eng.head@acme.test", Name: "Eka Engineering Head", RoleLabel: "Head of Engineering",
			Unit: "Engineering", HeadOf: []string{"Engineering"}},
		{Email: "lead@acme.test", Name: "Lia Team Lead", RoleLabel: "Team Lead",
			Unit: "Platform", HeadOf: []string{"Platform"}},
		{Email: "staff@acme.test", Name: "Sari Staff", RoleLabel: "Engineer", Unit: "Platform"},
		{Email: "ga@acme.test", Name: "Gilang General Affairs", RoleLabel: "General Affairs",
			Unit: "People & Culture", Permissions: []string{auth.PermManageRooms}},
	}

	hash, err := auth.NewService(nil, nil, cfg.Security.BCryptCost, lg).HashPassword(seedPassword)
	if err != nil {
		return err
	}

	for _, p := range people {
		e, err := repo.GetByEmail(ctx, p.Email)
		switch {
		case err == nil:
			fmt.Println("employee already exists:", p.Email)
		case errors.Is(err, employee.ErrNotFound):
			e = &employee.Employee{
				Email:        p.Email,
				Name:         p.Name,
				PasswordHash: hash,
				RoleLabel:    p.RoleLabel,
				ApprovalRole: string(p.ApprovalRole),
				IsActive:     true,
				Permissions:  p.Permissions,
			}
			placeEmployee(e, p.Unit, unitIDs)
			if err := repo.Create(ctx, e); err != nil {
				return fmt.Errorf("create employee %s: %w", p.Email, err)
			}
			fmt.Println("Seeded employee:", p.Email)
		default:
			return err
		}

		for _, unit := range p.HeadOf {
			if err := repo.SetUnitHead(ctx, unitIDs[unit], e.ID); err != nil {
				return fmt.Errorf("set head of %s: %w", unit, err)
			}
		}
	}

	rooms := roomPostgres.NewRoomRepository(db)
	existing, err := rooms.ListRooms(ctx, false)
	if err != nil {
		return err
	}
	have := map[string]bool{}
	for _, r := range existing {
		have[r.Name] = true
	}
	for _, r := range []*room.Room{
		{Name: "Orchid", Location: "2F east", Capacity: 6, IsActive: true},
		{Name: "Lotus", Location: "2F west", Capacity: 10, IsActive: true},
		{Name: "Jasmine", Location: "3F", Capacity: 20, IsActive: true},
	} {
		if have[r.Name] {
			continue
		}
		if err := rooms.CreateRoom(ctx, r); err != nil {
			return fmt.Errorf("create room %s: %w", r.Name, err)
		}
		fmt.Println("Seeded meeting room:", r.Name)
	}

	directory := employee.NewService(repo, employee.DefaultCacheTTL, lg)
	leaveSvc := leave.NewService(leavePostgres.NewBalanceRepository(db), directory, documentPostgres.NewLeaveCalendar(db), lg)
	year := time.Now().Year()
	created, err := leaveSvc.GrantYear(ctx, year, decimal.NewFromFloat(cfg.Leave.DefaultAnnualDays))
	if err != nil {
		return fmt.Errorf("grant leave: %w", err)
	}
	fmt.Printf("Granted %d leave balances for %d\n", created, year)
	return nil
}

// placeEmployee fills team, department and division from the unit the employee sits in.
func placeEmployee(e *employee.Employee, unit string, ids map[string]int64) {
	id := func(name string) *int64 {
		v := ids[name]
		return &v
	}
	switch unit {
	case "Platform":
		e.TeamID = id("Platform")
		e.DepartmentID = id("Engineering")
		e.DivisionID = id("Operations")
	case "Engineering", "People & Culture":
		e.DepartmentID = id(unit)
		e.DivisionID = id("Operations")
	case "Operations":
		e.DivisionID = id("Operations")
	}
}
