package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs for API responses

type EmployeeDTO struct {
	ID         uuid.UUID    `json:"id"`
	AuthUserID string       `json:"authUserId,omitempty"`
	Name       string       `json:"name"`
	Email      string       `json:"email"`
	Phone      string       `json:"phone,omitempty"`
	Role       EmployeeRole `json:"role"`
	IsActive   bool         `json:"isActive"`
	ProjectIDs []uuid.UUID  `json:"projectIds,omitempty"`
	CreatedAt  string       `json:"createdAt"` // ISO 8601
}

type ProjectDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   string    `json:"createdAt"`
	UpdatedAt   string    `json:"updatedAt"`
}

type ProjectModelDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProjectID uuid.UUID       `json:"projectId"`
	Name      string          `json:"name"`
	Area      float64         `json:"area"`
	Bedrooms  int             `json:"bedrooms"`
	Bathrooms int             `json:"bathrooms"`
	BasePrice decimal.Decimal `json:"basePrice"`
}

type UnitDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProjectID   uuid.UUID       `json:"projectId"`
	ProjectName string          `json:"projectName,omitempty"`
	ModelID     *uuid.UUID      `json:"modelId,omitempty"`
	ModelName   string          `json:"modelName,omitempty"`
	Code        string          `json:"code"`
	Building    string          `json:"building,omitempty"`
	Floor       int             `json:"floor"`
	Area        float64         `json:"area"`
	Price       decimal.Decimal `json:"price"`
	Status      UnitStatus      `json:"status"`
	UpdatedAt   string          `json:"updatedAt"`
}

type ClientDTO struct {
	ID                 uuid.UUID    `json:"id"`
	Name               string       `json:"name"`
	Phone              string       `json:"phone,omitempty"`
	Email              string       `json:"email,omitempty"`
	NationalID         string       `json:"nationalId,omitempty"`
	Source             string       `json:"source,omitempty"`
	Notes              string       `json:"notes,omitempty"`
	Status             ClientStatus `json:"status"`
	AssignedEmployeeID *uuid.UUID   `json:"assignedEmployeeId,omitempty"`
	CreatedAt          string       `json:"createdAt"`
	UpdatedAt          string       `json:"updatedAt"`
}

type FollowUpDTO struct {
	ID               uuid.UUID    `json:"id"`
	ClientID         uuid.UUID    `json:"clientId"`
	EmployeeID       uuid.UUID    `json:"employeeId"`
	EmployeeName     string       `json:"employeeName,omitempty"`
	Type             FollowUpType `json:"type"`
	Notes            string       `json:"notes,omitempty"`
	Location         string       `json:"location,omitempty"`
	NextFollowUpDate *string      `json:"nextFollowUpDate,omitempty"`
	CreatedAt        string       `json:"createdAt"`
}

type ReservationDTO struct {
	ID               uuid.UUID         `json:"id"`
	ClientID         uuid.UUID         `json:"clientId"`
	ClientName       string            `json:"clientName,omitempty"`
	UnitID           uuid.UUID         `json:"unitId"`
	UnitCode         string            `json:"unitCode,omitempty"`
	ProjectID        uuid.UUID         `json:"projectId"`
	EmployeeID       uuid.UUID         `json:"employeeId"`
	Status           ReservationStatus `json:"status"`
	ReservationDate  string            `json:"reservationDate"`
	DownPayment      decimal.Decimal   `json:"downPayment"`
	PaymentMethod    string            `json:"paymentMethod,omitempty"`
	Notes            string            `json:"notes,omitempty"`
	BankName         string            `json:"bankName,omitempty"`
	FinancingAmount  decimal.Decimal   `json:"financingAmount"`
	FinancingYears   int               `json:"financingYears,omitempty"`
	FollowEmployeeID *uuid.UUID        `json:"followEmployeeId,omitempty"`
	LastFollowUpAt   *string           `json:"lastFollowUpAt,omitempty"`
	FollowUpDetails  string            `json:"followUpDetails,omitempty"`
	CancelledAt      *string           `json:"cancelledAt,omitempty"`
	CancelReason     string            `json:"cancelReason,omitempty"`
	CreatedAt        string            `json:"createdAt"`
}

type SaleDTO struct {
	ID             uuid.UUID       `json:"id"`
	ClientID       uuid.UUID       `json:"clientId"`
	ClientName     string          `json:"clientName,omitempty"`
	UnitID         uuid.UUID       `json:"unitId"`
	UnitCode       string          `json:"unitCode,omitempty"`
	ProjectID      uuid.UUID       `json:"projectId"`
	ProjectName    string          `json:"projectName,omitempty"`
	EmployeeID     uuid.UUID       `json:"employeeId"`
	EmployeeName   string          `json:"employeeName,omitempty"`
	ReservationID  *uuid.UUID      `json:"reservationId,omitempty"`
	ContractNumber string          `json:"contractNumber,omitempty"`
	ContractDate   *string         `json:"contractDate,omitempty"`
	SaleDate       string          `json:"saleDate"`
	PriceBeforeTax decimal.Decimal `json:"priceBeforeTax"`
	TaxRate        decimal.Decimal `json:"taxRate"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
	DownPayment    decimal.Decimal `json:"downPayment"`
	Installments   int             `json:"installments,omitempty"`
	PaymentPlan    string          `json:"paymentPlan,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	HasContract    bool            `json:"hasContract"`
	CreatedAt      string          `json:"createdAt"`
}

type TransitionLogDTO struct {
	ID          uuid.UUID           `json:"id"`
	Operation   TransitionOperation `json:"operation"`
	Status      TransitionStatus    `json:"status"`
	EntityID    *uuid.UUID          `json:"entityId,omitempty"`
	ActorID     uuid.UUID           `json:"actorId"`
	Steps       []string            `json:"steps"`
	FailedStep  string              `json:"failedStep,omitempty"`
	Error       string              `json:"error,omitempty"`
	RetryOfID   *uuid.UUID          `json:"retryOfId,omitempty"`
	CreatedAt   string              `json:"createdAt"`
	CompletedAt *string             `json:"completedAt,omitempty"`
}

// ClientTimelineDTO is everything that happened with a client, newest first
type ClientTimelineDTO struct {
	Client       ClientDTO        `json:"client"`
	FollowUps    []FollowUpDTO    `json:"followUps"`
	Reservations []ReservationDTO `json:"reservations"`
	Sales        []SaleDTO        `json:"sales"`
}

// PaginatedResponse wraps list results
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// Request types

// Amount is a decimal request value. Clients may send it as a JSON string or a JSON number;
// both keep their literal text and are parsed by the service, which reports bad input per field.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	*a = Amount(data)
	return nil
}

type RecordFollowUpRequest struct {
	Type             FollowUpType `json:"type" validate:"required,oneof=call whatsapp visit"`
	Notes            string       `json:"notes" validate:"max=5000"`
	Location         string       `json:"location" validate:"max=300"`
	NextFollowUpDate *time.Time   `json:"nextFollowUpDate,omitempty"`
	// EmployeeID defaults to the acting employee
	EmployeeID *uuid.UUID `json:"employeeId,omitempty"`
}

type CreateReservationRequest struct {
	ClientID uuid.UUID `json:"clientId" validate:"required"`
	UnitID   uuid.UUID `json:"unitId" validate:"required"`
	// EmployeeID defaults to the acting employee
	EmployeeID      *uuid.UUID `json:"employeeId,omitempty"`
	ReservationDate *time.Time `json:"reservationDate,omitempty"`
	DownPayment     Amount     `json:"downPayment,omitempty"`
	PaymentMethod   string     `json:"paymentMethod,omitempty" validate:"max=50"`
	Notes           string     `json:"notes,omitempty" validate:"max=5000"`
	BankName        string     `json:"bankName,omitempty" validate:"max=100"`
	FinancingAmount Amount     `json:"financingAmount,omitempty"`
	FinancingYears  int        `json:"financingYears,omitempty" validate:"gte=0,lte=40"`
}

type CancelReservationRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// ConvertToSaleRequest carries the sale fields. The reservation comes from the URL.
type ConvertToSaleRequest struct {
	ClientID       uuid.UUID  `json:"clientId"`
	UnitID         uuid.UUID  `json:"unitId"`
	EmployeeID     uuid.UUID  `json:"employeeId"`
	PriceBeforeTax Amount     `json:"priceBeforeTax"`
	TaxRate        Amount     `json:"taxRate,omitempty"`
	DownPayment    Amount     `json:"downPayment,omitempty"`
	Installments   int        `json:"installments,omitempty" validate:"gte=0,lte=600"`
	PaymentPlan    string     `json:"paymentPlan,omitempty" validate:"max=100"`
	ContractNumber string     `json:"contractNumber,omitempty" validate:"max=100"`
	ContractDate   *time.Time `json:"contractDate,omitempty"`
	SaleDate       *time.Time `json:"saleDate,omitempty"`
	Notes          string     `json:"notes,omitempty" validate:"max=5000"`
}

type CreateClientRequest struct {
	Name               string     `json:"name" validate:"required,max=200"`
	Phone              string     `json:"phone" validate:"max=50"`
	Email              string     `json:"email" validate:"omitempty,email,max=255"`
	NationalID         string     `json:"nationalId" validate:"max=50"`
	Source             string     `json:"source" validate:"max=100"`
	Notes              string     `json:"notes" validate:"max=5000"`
	AssignedEmployeeID *uuid.UUID `json:"assignedEmployeeId,omitempty"`
}

type UpdateClientRequest struct {
	Name               string     `json:"name" validate:"required,max=200"`
	Phone              string     `json:"phone" validate:"max=50"`
	Email              string     `json:"email" validate:"omitempty,email,max=255"`
	NationalID         string     `json:"nationalId" validate:"max=50"`
	Source             string     `json:"source" validate:"max=100"`
	Notes              string     `json:"notes" validate:"max=5000"`
	AssignedEmployeeID *uuid.UUID `json:"assignedEmployeeId,omitempty"`
	// Status may only move between pre-reservation states; lifecycle operations own the rest
	Status *ClientStatus `json:"status,omitempty" validate:"omitempty,oneof=new lead interested visited"`
}

type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Location    string `json:"location" validate:"max=300"`
	Description string `json:"description" validate:"max=5000"`
}

type UpdateProjectRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Location    string `json:"location" validate:"max=300"`
	Description string `json:"description" validate:"max=5000"`
	IsActive    bool   `json:"isActive"`
}

type ProjectModelRequest struct {
	Name      string  `json:"name" validate:"required,max=200"`
	Area      float64 `json:"area" validate:"gte=0"`
	Bedrooms  int     `json:"bedrooms" validate:"gte=0,lte=20"`
	Bathrooms int     `json:"bathrooms" validate:"gte=0,lte=20"`
	BasePrice Amount  `json:"basePrice"`
}

type CreateUnitRequest struct {
	ProjectID uuid.UUID  `json:"projectId" validate:"required"`
	ModelID   *uuid.UUID `json:"modelId,omitempty"`
	Code      string     `json:"code" validate:"required,max=50"`
	Building  string     `json:"building" validate:"max=50"`
	Floor     int        `json:"floor" validate:"gte=-5,lte=200"`
	Area      float64    `json:"area" validate:"gte=0"`
	Price     Amount     `json:"price"`
}

// UpdateUnitRequest never carries a status; unit status is owned by the lifecycle operations
type UpdateUnitRequest struct {
	ModelID  *uuid.UUID `json:"modelId,omitempty"`
	Code     string     `json:"code" validate:"required,max=50"`
	Building string     `json:"building" validate:"max=50"`
	Floor    int        `json:"floor" validate:"gte=-5,lte=200"`
	Area     float64    `json:"area" validate:"gte=0"`
	Price    Amount     `json:"price"`
}

type CreateEmployeeRequest struct {
	AuthUserID string       `json:"authUserId" validate:"max=100"`
	Name       string       `json:"name" validate:"required,max=200"`
	Email      string       `json:"email" validate:"required,email,max=255"`
	Phone      string       `json:"phone" validate:"max=50"`
	Role       EmployeeRole `json:"role" validate:"required,oneof=admin sales"`
}

type UpdateEmployeeRequest struct {
	Name     string       `json:"name" validate:"required,max=200"`
	Phone    string       `json:"phone" validate:"max=50"`
	Role     EmployeeRole `json:"role" validate:"required,oneof=admin sales"`
	IsActive bool         `json:"isActive"`
}

type AssignProjectsRequest struct {
	ProjectIDs []uuid.UUID `json:"projectIds" validate:"required"`
}
