package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/estate-sales-api/internal/auth"
	"github.com/straye-as/estate-sales-api/internal/database"
	"github.com/straye-as/estate-sales-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database with the full schema. The pool is
// limited to one connection, so code under test must run every query of a transaction on the
// transaction handle.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateEmployee inserts an active employee with the given role
func CreateEmployee(t *testing.T, db *gorm.DB, role domain.EmployeeRole) *domain.Employee {
	t.Helper()
	employee := &domain.Employee{
		AuthUserID: uuid.NewString(),
		Name:       gofakeit.Name(),
		Email:      fmt.Sprintf("%s@example.com", uuid.NewString()[:12]),
		Phone:      gofakeit.Phone(),
		Role:       role,
		IsActive:   true,
	}
	require.NoError(t, db.Create(employee).Error)
	return employee
}

// AssignProjects links the employee to the projects
func AssignProjects(t *testing.T, db *gorm.DB, employeeID uuid.UUID, projectIDs ...uuid.UUID) {
	t.Helper()
	for _, projectID := range projectIDs {
		require.NoError(t, db.Create(&domain.EmployeeProject{EmployeeID: employeeID, ProjectID: projectID}).Error)
	}
}

// CreateProject inserts an active project
func CreateProject(t *testing.T, db *gorm.DB) *domain.Project {
	t.Helper()
	project := &domain.Project{
		Name:     gofakeit.Company() + " Residences",
		Location: gofakeit.City(),
		IsActive: true,
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

// CreateUnit inserts a unit in the project with the given status
func CreateUnit(t *testing.T, db *gorm.DB, projectID uuid.UUID, status domain.UnitStatus) *domain.Unit {
	t.Helper()
	unit := &domain.Unit{
		ProjectID: projectID,
		Code:      "A-" + uuid.NewString()[:8],
		Building:  "A",
		Floor:     gofakeit.Number(0, 12),
		Area:      120,
		Price:     decimal.NewFromInt(2500000),
		Status:    status,
	}
	require.NoError(t, db.Create(unit).Error)
	return unit
}

// CreateClient inserts a client with the given status
func CreateClient(t *testing.T, db *gorm.DB, status domain.ClientStatus) *domain.Client {
	t.Helper()
	client := &domain.Client{
		Name:   gofakeit.Name(),
		Phone:  fmt.Sprintf("+2010%08d", gofakeit.Number(0, 99999999)),
		Source: "walk-in",
		Status: status,
	}
	require.NoError(t, db.Create(client).Error)
	return client
}

// CreateReservation inserts a reservation row directly, bypassing the lifecycle rules
func CreateReservation(t *testing.T, db *gorm.DB, client *domain.Client, unit *domain.Unit, employeeID uuid.UUID, status domain.ReservationStatus, createdAt time.Time) *domain.Reservation {
	t.Helper()
	reservation := &domain.Reservation{
		BaseModel:       domain.BaseModel{CreatedAt: createdAt, UpdatedAt: createdAt},
		ClientID:        client.ID,
		UnitID:          unit.ID,
		ProjectID:       unit.ProjectID,
		EmployeeID:      employeeID,
		Status:          status,
		ReservationDate: createdAt,
	}
	require.NoError(t, db.Create(reservation).Error)
	return reservation
}

// AdminActor builds the actor for an admin employee
func AdminActor(employee *domain.Employee) *auth.Actor {
	return &auth.Actor{
		EmployeeID: employee.ID,
		Name:       employee.Name,
		Email:      employee.Email,
		Role:       domain.EmployeeRoleAdmin,
	}
}

// SalesActor builds the actor for a sales employee assigned to projectIDs
func SalesActor(employee *domain.Employee, projectIDs ...uuid.UUID) *auth.Actor {
	return &auth.Actor{
		EmployeeID: employee.ID,
		Name:       employee.Name,
		Email:      employee.Email,
		Role:       domain.EmployeeRoleSales,
		ProjectIDs: projectIDs,
	}
}
