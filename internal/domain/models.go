package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns an ID when the caller did not set one
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Employee is a staff member who signs in through the hosted auth provider
type Employee struct {
	BaseModel
	AuthUserID string       `gorm:"type:varchar(100);uniqueIndex;column:auth_user_id"`
	Name       string       `gorm:"type:varchar(200);not null"`
	Email      string       `gorm:"type:varchar(255);not null;uniqueIndex"`
	Phone      string       `gorm:"type:varchar(50)"`
	Role       EmployeeRole `gorm:"type:varchar(20);not null;default:'sales'"`
	IsActive   bool         `gorm:"not null;default:true;column:is_active"`
}

// EmployeeProject assigns a sales employee to a project
type EmployeeProject struct {
	EmployeeID uuid.UUID `gorm:"type:uuid;primaryKey;column:employee_id"`
	ProjectID  uuid.UUID `gorm:"type:uuid;primaryKey;column:project_id"`
	CreatedAt  time.Time `gorm:"not null"`
}

// Project is a real-estate development containing units
type Project struct {
	BaseModel
	Name        string `gorm:"type:varchar(200);not null;index"`
	Location    string `gorm:"type:varchar(300)"`
	Description string `gorm:"type:text"`
	IsActive    bool   `gorm:"not null;default:true;column:is_active"`
}

// ProjectModel is a unit layout offered within a project
type ProjectModel struct {
	BaseModel
	ProjectID uuid.UUID       `gorm:"type:uuid;not null;index;column:project_id"`
	Project   *Project        `gorm:"foreignKey:ProjectID"`
	Name      string          `gorm:"type:varchar(200);not null"`
	Area      float64         `gorm:"not null;default:0"`
	Bedrooms  int             `gorm:"not null;default:0"`
	Bathrooms int             `gorm:"not null;default:0"`
	BasePrice decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0;column:base_price"`
}

// Unit is a sellable apartment, villa or shop
type Unit struct {
	BaseModel
	ProjectID    uuid.UUID       `gorm:"type:uuid;not null;index;column:project_id"`
	Project      *Project        `gorm:"foreignKey:ProjectID"`
	ModelID      *uuid.UUID      `gorm:"type:uuid;index;column:model_id"`
	ProjectModel *ProjectModel   `gorm:"foreignKey:ModelID"`
	Code         string          `gorm:"type:varchar(50);not null"`
	Building     string          `gorm:"type:varchar(50)"`
	Floor        int             `gorm:"not null;default:0"`
	Area         float64         `gorm:"not null;default:0"`
	Price        decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Status       UnitStatus      `gorm:"type:varchar(20);not null;default:'available';index"`
}

// Client is a prospective or actual buyer
type Client struct {
	BaseModel
	Name               string       `gorm:"type:varchar(200);not null;index"`
	Phone              string       `gorm:"type:varchar(50);index"`
	Email              string       `gorm:"type:varchar(255)"`
	NationalID         string       `gorm:"type:varchar(50);column:national_id"`
	Source             string       `gorm:"type:varchar(100)"`
	Notes              string       `gorm:"type:text"`
	Status             ClientStatus `gorm:"type:varchar(20);not null;default:'new';index"`
	AssignedEmployeeID *uuid.UUID   `gorm:"type:uuid;index;column:assigned_employee_id"`
	AssignedEmployee   *Employee    `gorm:"foreignKey:AssignedEmployeeID"`
}

// Reservation holds a unit for a client until it is converted to a sale or cancelled
type Reservation struct {
	BaseModel
	ClientID        uuid.UUID         `gorm:"type:uuid;not null;index;column:client_id"`
	Client          *Client           `gorm:"foreignKey:ClientID"`
	UnitID          uuid.UUID         `gorm:"type:uuid;not null;index;column:unit_id"`
	Unit            *Unit             `gorm:"foreignKey:UnitID"`
	ProjectID       uuid.UUID         `gorm:"type:uuid;not null;index;column:project_id"`
	EmployeeID      uuid.UUID         `gorm:"type:uuid;not null;index;column:employee_id"`
	Employee        *Employee         `gorm:"foreignKey:EmployeeID"`
	Status          ReservationStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	ReservationDate time.Time         `gorm:"not null;column:reservation_date"`
	DownPayment     decimal.Decimal   `gorm:"type:numeric(14,2);not null;default:0;column:down_payment"`
	PaymentMethod   string            `gorm:"type:varchar(50);column:payment_method"`
	Notes           string            `gorm:"type:text"`
	// Bank financing, display only
	BankName        string          `gorm:"type:varchar(100);column:bank_name"`
	FinancingAmount decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0;column:financing_amount"`
	FinancingYears  int             `gorm:"not null;default:0;column:financing_years"`
	// Follow-up metadata, stamped when a follow-up is recorded for the client
	FollowEmployeeID *uuid.UUID `gorm:"type:uuid;column:follow_employee_id"`
	LastFollowUpAt   *time.Time `gorm:"column:last_follow_up_at"`
	FollowUpDetails  string     `gorm:"type:text;column:follow_up_details"`
	CancelledAt      *time.Time `gorm:"column:cancelled_at"`
	CancelReason     string     `gorm:"type:text;column:cancel_reason"`
}

// Sale is the executed contract for a unit
type Sale struct {
	BaseModel
	ClientID       uuid.UUID       `gorm:"type:uuid;not null;index;column:client_id"`
	Client         *Client         `gorm:"foreignKey:ClientID"`
	UnitID         uuid.UUID       `gorm:"type:uuid;not null;index;column:unit_id"`
	Unit           *Unit           `gorm:"foreignKey:UnitID"`
	ProjectID      uuid.UUID       `gorm:"type:uuid;not null;index;column:project_id"`
	Project        *Project        `gorm:"foreignKey:ProjectID"`
	EmployeeID     uuid.UUID       `gorm:"type:uuid;not null;index;column:employee_id"`
	Employee       *Employee       `gorm:"foreignKey:EmployeeID"`
	ReservationID  *uuid.UUID      `gorm:"type:uuid;index;column:reservation_id"`
	ContractNumber string          `gorm:"type:varchar(100);column:contract_number"`
	ContractDate   *time.Time      `gorm:"column:contract_date"`
	SaleDate       time.Time       `gorm:"not null;column:sale_date"`
	PriceBeforeTax decimal.Decimal `gorm:"type:numeric(14,2);not null;column:price_before_tax"`
	TaxRate        decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0;column:tax_rate"`
	DownPayment    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0;column:down_payment"`
	Installments   int             `gorm:"not null;default:0"`
	PaymentPlan    string          `gorm:"type:varchar(100);column:payment_plan"`
	Notes          string          `gorm:"type:text"`
	// ContractKey is the storage key of the signed contract, empty until uploaded
	ContractKey string `gorm:"type:varchar(500);column:contract_key"`
}

// TotalPrice is the price including tax
func (s *Sale) TotalPrice() decimal.Decimal {
	return s.PriceBeforeTax.Add(s.PriceBeforeTax.Mul(s.TaxRate).Div(decimal.NewFromInt(100))).Round(2)
}

// FollowUp is an immutable record of contact with a client
type FollowUp struct {
	ID               uuid.UUID    `gorm:"type:uuid;primaryKey"`
	ClientID         uuid.UUID    `gorm:"type:uuid;not null;index;column:client_id"`
	EmployeeID       uuid.UUID    `gorm:"type:uuid;not null;index;column:employee_id"`
	Employee         *Employee    `gorm:"foreignKey:EmployeeID"`
	Type             FollowUpType `gorm:"type:varchar(20);not null"`
	Notes            string       `gorm:"type:text"`
	Location         string       `gorm:"type:varchar(300)"`
	NextFollowUpDate *time.Time   `gorm:"column:next_follow_up_date"`
	CreatedAt        time.Time    `gorm:"not null;index"`
}

// BeforeCreate assigns an ID when the caller did not set one
func (f *FollowUp) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// TransitionLog is a journal entry for one lifecycle operation. It is written outside the
// operation's transaction so that failed and abandoned transitions stay visible.
type TransitionLog struct {
	BaseModel
	Operation   TransitionOperation `gorm:"type:varchar(50);not null;index"`
	Status      TransitionStatus    `gorm:"type:varchar(20);not null;index"`
	EntityID    *uuid.UUID          `gorm:"type:uuid;index;column:entity_id"`
	ActorID     uuid.UUID           `gorm:"type:uuid;not null;column:actor_id"`
	Payload     string              `gorm:"type:text;not null"`
	Steps       string              `gorm:"type:text"`
	FailedStep  string              `gorm:"type:varchar(100);column:failed_step"`
	Error       string              `gorm:"type:text"`
	RetryOfID   *uuid.UUID          `gorm:"type:uuid;column:retry_of_id"`
	CompletedAt *time.Time          `gorm:"column:completed_at"`
}
