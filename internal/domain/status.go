package domain

// ClientStatus tracks how far a client has moved through the sales funnel
type ClientStatus string

const (
	ClientStatusNew        ClientStatus = "new"
	ClientStatusLead       ClientStatus = "lead"
	ClientStatusInterested ClientStatus = "interested"
	ClientStatusVisited    ClientStatus = "visited"
	ClientStatusReserved   ClientStatus = "reserved"
	ClientStatusConverted  ClientStatus = "converted"
)

// IsValid checks if the ClientStatus is a valid enum value
func (s ClientStatus) IsValid() bool {
	switch s {
	case ClientStatusNew, ClientStatusLead, ClientStatusInterested, ClientStatusVisited,
		ClientStatusReserved, ClientStatusConverted:
		return true
	}
	return false
}

// IsPreReservation reports whether the client has not yet reserved or bought a unit.
func (s ClientStatus) IsPreReservation() bool {
	switch s {
	case ClientStatusNew, ClientStatusLead, ClientStatusInterested, ClientStatusVisited:
		return true
	case ClientStatusReserved, ClientStatusConverted:
		return false
	}
	return false
}

// UnitStatus represents the availability of a unit
type UnitStatus string

const (
	UnitStatusAvailable UnitStatus = "available"
	UnitStatusReserved  UnitStatus = "reserved"
	UnitStatusSold      UnitStatus = "sold"
)

// IsValid checks if the UnitStatus is a valid enum value
func (s UnitStatus) IsValid() bool {
	switch s {
	case UnitStatusAvailable, UnitStatusReserved, UnitStatusSold:
		return true
	}
	return false
}

// ReservationStatus represents the state of a reservation. Converted and cancelled are terminal
// except that deleting a sale reopens its converted reservation.
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusConverted ReservationStatus = "converted"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// IsValid checks if the ReservationStatus is a valid enum value
func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationStatusActive, ReservationStatusConverted, ReservationStatusCancelled:
		return true
	}
	return false
}

// FollowUpType is the channel used to follow up with a client
type FollowUpType string

const (
	FollowUpTypeCall     FollowUpType = "call"
	FollowUpTypeWhatsApp FollowUpType = "whatsapp"
	FollowUpTypeVisit    FollowUpType = "visit"
)

// IsValid checks if the FollowUpType is a valid enum value
func (t FollowUpType) IsValid() bool {
	switch t {
	case FollowUpTypeCall, FollowUpTypeWhatsApp, FollowUpTypeVisit:
		return true
	}
	return false
}

// ResultingClientStatus is the client status a follow-up of this type produces.
func (t FollowUpType) ResultingClientStatus() ClientStatus {
	switch t {
	case FollowUpTypeVisit:
		return ClientStatusVisited
	case FollowUpTypeCall, FollowUpTypeWhatsApp:
		return ClientStatusInterested
	}
	return ClientStatusInterested
}

// EmployeeRole gates which operations an employee may perform
type EmployeeRole string

const (
	EmployeeRoleAdmin EmployeeRole = "admin"
	EmployeeRoleSales EmployeeRole = "sales"
)

// IsValid checks if the EmployeeRole is a valid enum value
func (r EmployeeRole) IsValid() bool {
	switch r {
	case EmployeeRoleAdmin, EmployeeRoleSales:
		return true
	}
	return false
}

// TransitionStatus is the state of a transition journal entry
type TransitionStatus string

const (
	TransitionStatusPending   TransitionStatus = "pending"
	TransitionStatusCompleted TransitionStatus = "completed"
	TransitionStatusFailed    TransitionStatus = "failed"
	TransitionStatusRetried   TransitionStatus = "retried"
)

// IsValid checks if the TransitionStatus is a valid enum value
func (s TransitionStatus) IsValid() bool {
	switch s {
	case TransitionStatusPending, TransitionStatusCompleted, TransitionStatusFailed, TransitionStatusRetried:
		return true
	}
	return false
}

// TransitionOperation names a lifecycle operation recorded in the journal
type TransitionOperation string

const (
	OperationRecordFollowUp    TransitionOperation = "record_follow_up"
	OperationCreateReservation TransitionOperation = "create_reservation"
	OperationCancelReservation TransitionOperation = "cancel_reservation"
	OperationDeleteReservation TransitionOperation = "delete_reservation"
	OperationConvertToSale     TransitionOperation = "convert_to_sale"
	OperationDeleteSale        TransitionOperation = "delete_sale"
)

// IsValid checks if the TransitionOperation is a valid enum value
func (o TransitionOperation) IsValid() bool {
	switch o {
	case OperationRecordFollowUp, OperationCreateReservation, OperationCancelReservation,
		OperationDeleteReservation, OperationConvertToSale, OperationDeleteSale:
		return true
	}
	return false
}
