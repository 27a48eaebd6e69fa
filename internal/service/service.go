package service

import (
	"github.com/straye-as/estate-sales-api/internal/repository"
	"gorm.io/gorm"
)

// Repositories bundles the repositories shared by the services
type Repositories struct {
	Clients      *repository.ClientRepository
	Projects     *repository.ProjectRepository
	Models       *repository.ProjectModelRepository
	Units        *repository.UnitRepository
	Reservations *repository.ReservationRepository
	Sales        *repository.SaleRepository
	FollowUps    *repository.FollowUpRepository
	Employees    *repository.EmployeeRepository
	Transitions  *repository.TransitionLogRepository
}

// NewRepositories creates every repository on the same database handle
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Clients:      repository.NewClientRepository(db),
		Projects:     repository.NewProjectRepository(db),
		Models:       repository.NewProjectModelRepository(db),
		Units:        repository.NewUnitRepository(db),
		Reservations: repository.NewReservationRepository(db),
		Sales:        repository.NewSaleRepository(db),
		FollowUps:    repository.NewFollowUpRepository(db),
		Employees:    repository.NewEmployeeRepository(db),
		Transitions:  repository.NewTransitionLogRepository(db),
	}
}
