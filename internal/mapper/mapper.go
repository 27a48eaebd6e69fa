package mapper

import (
	"strings"
	"time"

	"github.com/straye-as/estate-sales-api/internal/domain"
)

const timestampFormat = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// ToEmployeeDTO converts Employee to EmployeeDTO
func ToEmployeeDTO(employee *domain.Employee) domain.EmployeeDTO {
	return domain.EmployeeDTO{
		ID:         employee.ID,
		AuthUserID: employee.AuthUserID,
		Name:       employee.Name,
		Email:      employee.Email,
		Phone:      employee.Phone,
		Role:       employee.Role,
		IsActive:   employee.IsActive,
		CreatedAt:  formatTime(employee.CreatedAt),
	}
}

// ToProjectDTO converts Project to ProjectDTO
func ToProjectDTO(project *domain.Project) domain.ProjectDTO {
	return domain.ProjectDTO{
		ID:          project.ID,
		Name:        project.Name,
		Location:    project.Location,
		Description: project.Description,
		IsActive:    project.IsActive,
		CreatedAt:   formatTime(project.CreatedAt),
		UpdatedAt:   formatTime(project.UpdatedAt),
	}
}

// ToProjectModelDTO converts ProjectModel to ProjectModelDTO
func ToProjectModelDTO(model *domain.ProjectModel) domain.ProjectModelDTO {
	return domain.ProjectModelDTO{
		ID:        model.ID,
		ProjectID: model.ProjectID,
		Name:      model.Name,
		Area:      model.Area,
		Bedrooms:  model.Bedrooms,
		Bathrooms: model.Bathrooms,
		BasePrice: model.BasePrice,
	}
}

// ToUnitDTO converts Unit to UnitDTO. Project and model names are filled when preloaded.
func ToUnitDTO(unit *domain.Unit) domain.UnitDTO {
	dto := domain.UnitDTO{
		ID:        unit.ID,
		ProjectID: unit.ProjectID,
		ModelID:   unit.ModelID,
		Code:      unit.Code,
		Building:  unit.Building,
		Floor:     unit.Floor,
		Area:      unit.Area,
		Price:     unit.Price,
		Status:    unit.Status,
		UpdatedAt: formatTime(unit.UpdatedAt),
	}
	if unit.Project != nil {
		dto.ProjectName = unit.Project.Name
	}
	if unit.ProjectModel != nil {
		dto.ModelName = unit.ProjectModel.Name
	}
	return dto
}

// ToClientDTO converts Client to ClientDTO
func ToClientDTO(client *domain.Client) domain.ClientDTO {
	return domain.ClientDTO{
		ID:                 client.ID,
		Name:               client.Name,
		Phone:              client.Phone,
		Email:              client.Email,
		NationalID:         client.NationalID,
		Source:             client.Source,
		Notes:              client.Notes,
		Status:             client.Status,
		AssignedEmployeeID: client.AssignedEmployeeID,
		CreatedAt:          formatTime(client.CreatedAt),
		UpdatedAt:          formatTime(client.UpdatedAt),
	}
}

// ToFollowUpDTO converts FollowUp to FollowUpDTO
func ToFollowUpDTO(followUp *domain.FollowUp) domain.FollowUpDTO {
	dto := domain.FollowUpDTO{
		ID:               followUp.ID,
		ClientID:         followUp.ClientID,
		EmployeeID:       followUp.EmployeeID,
		Type:             followUp.Type,
		Notes:            followUp.Notes,
		Location:         followUp.Location,
		NextFollowUpDate: formatOptionalTime(followUp.NextFollowUpDate),
		CreatedAt:        formatTime(followUp.CreatedAt),
	}
	if followUp.Employee != nil {
		dto.EmployeeName = followUp.Employee.Name
	}
	return dto
}

// ToReservationDTO converts Reservation to ReservationDTO
func ToReservationDTO(reservation *domain.Reservation) domain.ReservationDTO {
	dto := domain.ReservationDTO{
		ID:               reservation.ID,
		ClientID:         reservation.ClientID,
		UnitID:           reservation.UnitID,
		ProjectID:        reservation.ProjectID,
		EmployeeID:       reservation.EmployeeID,
		Status:           reservation.Status,
		ReservationDate:  formatTime(reservation.ReservationDate),
		DownPayment:      reservation.DownPayment,
		PaymentMethod:    reservation.PaymentMethod,
		Notes:            reservation.Notes,
		BankName:         reservation.BankName,
		FinancingAmount:  reservation.FinancingAmount,
		FinancingYears:   reservation.FinancingYears,
		FollowEmployeeID: reservation.FollowEmployeeID,
		LastFollowUpAt:   formatOptionalTime(reservation.LastFollowUpAt),
		FollowUpDetails:  reservation.FollowUpDetails,
		CancelledAt:      formatOptionalTime(reservation.CancelledAt),
		CancelReason:     reservation.CancelReason,
		CreatedAt:        formatTime(reservation.CreatedAt),
	}
	if reservation.Client != nil {
		dto.ClientName = reservation.Client.Name
	}
	if reservation.Unit != nil {
		dto.UnitCode = reservation.Unit.Code
	}
	return dto
}

// ToSaleDTO converts Sale to SaleDTO
func ToSaleDTO(sale *domain.Sale) domain.SaleDTO {
	dto := domain.SaleDTO{
		ID:             sale.ID,
		ClientID:       sale.ClientID,
		UnitID:         sale.UnitID,
		ProjectID:      sale.ProjectID,
		EmployeeID:     sale.EmployeeID,
		ReservationID:  sale.ReservationID,
		ContractNumber: sale.ContractNumber,
		ContractDate:   formatOptionalTime(sale.ContractDate),
		SaleDate:       formatTime(sale.SaleDate),
		PriceBeforeTax: sale.PriceBeforeTax,
		TaxRate:        sale.TaxRate,
		TotalPrice:     sale.TotalPrice(),
		DownPayment:    sale.DownPayment,
		Installments:   sale.Installments,
		PaymentPlan:    sale.PaymentPlan,
		Notes:          sale.Notes,
		HasContract:    sale.ContractKey != "",
		CreatedAt:      formatTime(sale.CreatedAt),
	}
	if sale.Client != nil {
		dto.ClientName = sale.Client.Name
	}
	if sale.Unit != nil {
		dto.UnitCode = sale.Unit.Code
	}
	if sale.Project != nil {
		dto.ProjectName = sale.Project.Name
	}
	if sale.Employee != nil {
		dto.EmployeeName = sale.Employee.Name
	}
	return dto
}

// ToTransitionLogDTO converts TransitionLog to TransitionLogDTO
func ToTransitionLogDTO(entry *domain.TransitionLog) domain.TransitionLogDTO {
	steps := []string{}
	if entry.Steps != "" {
		steps = strings.Split(entry.Steps, ",")
	}
	return domain.TransitionLogDTO{
		ID:          entry.ID,
		Operation:   entry.Operation,
		Status:      entry.Status,
		EntityID:    entry.EntityID,
		ActorID:     entry.ActorID,
		Steps:       steps,
		FailedStep:  entry.FailedStep,
		Error:       entry.Error,
		RetryOfID:   entry.RetryOfID,
		CreatedAt:   formatTime(entry.CreatedAt),
		CompletedAt: formatOptionalTime(entry.CompletedAt),
	}
}
