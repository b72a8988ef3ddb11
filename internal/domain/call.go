package domain

import (
	"math"
	"time"
)

// CallState enumerates lifecycle states for a service call.
type CallState string

const (
	CallStateDraft           CallState = "draft"
	CallStateConfirmed       CallState = "confirmed"
	CallStateAssigned        CallState = "assigned"
	CallStateInProgress      CallState = "in_progress"
	CallStatePendingSpares   CallState = "pending_spares"
	CallStatePendingCustomer CallState = "pending_customer"
	CallStateResolved        CallState = "resolved"
	CallStateClosed          CallState = "closed"
	CallStateCancelled       CallState = "cancelled"
)

// CallStates lists every state in workflow order.
var CallStates = []CallState{
	CallStateDraft,
	CallStateConfirmed,
	CallStateAssigned,
	CallStateInProgress,
	CallStatePendingSpares,
	CallStatePendingCustomer,
	CallStateResolved,
	CallStateClosed,
	CallStateCancelled,
}

// IsTerminal reports whether no regular transition leaves the state.
func (s CallState) IsTerminal() bool {
	return s == CallStateClosed || s == CallStateCancelled
}

// NonTerminalCallStates are the states that count toward a technician's load.
func NonTerminalCallStates() []CallState {
	states := make([]CallState, 0, len(CallStates))
	for _, s := range CallStates {
		if !s.IsTerminal() {
			states = append(states, s)
		}
	}
	return states
}

// CallType classifies the work requested.
type CallType string

const (
	CallTypeInstallation CallType = "installation"
	CallTypeRepair       CallType = "repair"
	CallTypeMaintenance  CallType = "maintenance"
	CallTypeInspection   CallType = "inspection"
	CallTypeComplaint    CallType = "complaint"
	CallTypeSalesEnquiry CallType = "sales_enquiry"
	CallTypeSpareEnquiry CallType = "spare_enquiry"
	CallTypeOthers       CallType = "others"
)

var referencePrefixes = map[CallType]string{
	CallTypeInstallation: "INST",
	CallTypeRepair:       "REPR",
	CallTypeMaintenance:  "MAINT",
	CallTypeInspection:   "INSP",
	CallTypeComplaint:    "COMPL",
	CallTypeSalesEnquiry: "SALE",
	CallTypeSpareEnquiry: "SPARE",
	CallTypeOthers:       "OTHR",
}

// DefaultReferencePrefix is used for call types without a dedicated prefix.
const DefaultReferencePrefix = "CALL"

// ReferencePrefix returns the prefix used in the call reference number.
func (t CallType) ReferencePrefix() string {
	if prefix, ok := referencePrefixes[t]; ok {
		return prefix
	}
	return DefaultReferencePrefix
}

// Valid reports whether the call type is known.
func (t CallType) Valid() bool {
	_, ok := referencePrefixes[t]
	return ok
}

// ServiceType distinguishes on-site and carry-in service.
type ServiceType string

const (
	ServiceTypeInService  ServiceType = "inservice"
	ServiceTypeOutService ServiceType = "outservice"
)

// WarrantyStatus is the warranty standing of the serviced product.
type WarrantyStatus string

const (
	WarrantyStatusUnder    WarrantyStatus = "yes"
	WarrantyStatusOut      WarrantyStatus = "no"
	WarrantyStatusStockSet WarrantyStatus = "stock_set"
	WarrantyStatusExtended WarrantyStatus = "extended"
)

// Pinned reports whether the status was set manually and must not be derived.
func (w WarrantyStatus) Pinned() bool {
	return w == WarrantyStatusExtended || w == WarrantyStatusStockSet
}

// WarrantyType describes the product warranty coverage.
type WarrantyType string

const (
	WarrantyTypeNone    WarrantyType = "none"
	WarrantyTypeLimited WarrantyType = "limited"
	WarrantyTypeFull    WarrantyType = "full"
)

// Priority levels, 0 (low) to 3 (urgent).
const (
	PriorityLow    = 0
	PriorityNormal = 1
	PriorityHigh   = 2
	PriorityUrgent = 3
)

var slaHours = map[int]int{
	PriorityLow:    72,
	PriorityNormal: 48,
	PriorityHigh:   24,
	PriorityUrgent: 4,
}

// SLAHours returns the resolution commitment for a priority. Unmapped priorities get 48h.
func SLAHours(priority int) int {
	if hours, ok := slaHours[priority]; ok {
		return hours
	}
	return 48
}

// ServiceCall is the aggregate driving a field service request.
type ServiceCall struct {
	ID                   string
	Reference            string
	ServiceType          ServiceType
	CallType             CallType
	Priority             int
	State                CallState
	CustomerName         string
	Mobile               string
	Email                string
	Address              string
	PostalCode           string
	ProductID            *string
	SerialNumber         string
	WarrantyType         WarrantyType
	WarrantyDurationDays int
	PurchaseDate         *time.Time
	WarrantyStatus       WarrantyStatus
	WarrantyExpiryDate   *time.Time
	NatureOfComplaint    string
	Symptoms             string
	TechnicianID         *string
	ServicePartnerID     *string
	AutoAssigned         bool
	CallDate             time.Time
	SLADeadline          time.Time
	ConfirmedDate        *time.Time
	AssignedDate         *time.Time
	StartDate            *time.Time
	ResolvedDate         *time.Time
	ClosedDate           *time.Time
	CurrentOTP           *string
	OTPGeneratedAt       *time.Time
	Resolution           string
	ServiceNotes         string
	PartsUsed            string
	ServiceCharge        float64
	SpareCharge          float64
	IsPaid               bool
	CreatedBy            *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// RefreshDerived recomputes the stored derived fields. today is used for warranty checks.
func (c *ServiceCall) RefreshDerived(today time.Time) {
	c.SLADeadline = c.CallDate.Add(time.Duration(SLAHours(c.Priority)) * time.Hour)
	c.WarrantyExpiryDate = c.computeWarrantyExpiry()
	if c.ProductID != nil && c.PurchaseDate != nil && !c.WarrantyStatus.Pinned() {
		if c.IsUnderWarranty(today) {
			c.WarrantyStatus = WarrantyStatusUnder
		} else {
			c.WarrantyStatus = WarrantyStatusOut
		}
	}
}

func (c *ServiceCall) computeWarrantyExpiry() *time.Time {
	if c.ProductID == nil || c.PurchaseDate == nil {
		return nil
	}
	if c.WarrantyType == WarrantyTypeNone || c.WarrantyType == "" || c.WarrantyDurationDays <= 0 {
		return nil
	}
	expiry := truncateDay(*c.PurchaseDate).AddDate(0, 0, c.WarrantyDurationDays)
	return &expiry
}

// IsUnderWarranty reports whether today is on or before the warranty expiry date.
func (c *ServiceCall) IsUnderWarranty(today time.Time) bool {
	expiry := c.computeWarrantyExpiry()
	if expiry == nil {
		return false
	}
	return !truncateDay(today).After(*expiry)
}

// IsSLABreached is true only while the call is open and past its deadline.
func (c *ServiceCall) IsSLABreached(now time.Time) bool {
	if c.State.IsTerminal() || c.SLADeadline.IsZero() {
		return false
	}
	return now.After(c.SLADeadline)
}

// ResponseTimeHours is the time between call date and assignment.
func (c *ServiceCall) ResponseTimeHours() float64 {
	if c.AssignedDate == nil {
		return 0
	}
	return c.AssignedDate.Sub(c.CallDate).Hours()
}

// ResolutionTimeHours is the time between call date and resolution.
func (c *ServiceCall) ResolutionTimeHours() float64 {
	if c.ResolvedDate == nil {
		return 0
	}
	return c.ResolvedDate.Sub(c.CallDate).Hours()
}

// ClosingDays is the number of whole days between call date and closure.
func (c *ServiceCall) ClosingDays() int {
	if c.ClosedDate == nil {
		return 0
	}
	return wholeDays(c.ClosedDate.Sub(c.CallDate))
}

// AgingDays is the age of an open call in whole days.
func (c *ServiceCall) AgingDays(now time.Time) int {
	if c.State.IsTerminal() {
		return 0
	}
	return wholeDays(now.Sub(c.CallDate))
}

// TotalCharge sums service and spare charges.
func (c *ServiceCall) TotalCharge() float64 {
	return c.ServiceCharge + c.SpareCharge
}

func wholeDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
