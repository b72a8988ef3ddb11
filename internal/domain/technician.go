package domain

import "time"

// TechnicianState captures technician availability.
type TechnicianState string

const (
	TechnicianAvailable TechnicianState = "available"
	TechnicianBusy      TechnicianState = "busy"
	TechnicianOffline   TechnicianState = "offline"
)

// Valid reports whether the state is known.
func (s TechnicianState) Valid() bool {
	switch s {
	case TechnicianAvailable, TechnicianBusy, TechnicianOffline:
		return true
	}
	return false
}

// Technician is a field engineer linked to one operator account.
type Technician struct {
	ID               string
	Code             string
	Name             string
	UserID           string
	ServicePartnerID *string
	Mobile           string
	Email            string
	State            TechnicianState
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DefaultServiceAreaPriority applies when an area is registered without a priority.
const DefaultServiceAreaPriority = 10

// ServiceArea is a postal code served by a technician. Lower priority is preferred.
type ServiceArea struct {
	ID           string
	TechnicianID string
	PostalCode   string
	AreaName     string
	City         string
	Priority     int
	Active       bool
	CreatedAt    time.Time
}

// ServiceAreaCandidate pairs a matching service area with its technician.
type ServiceAreaCandidate struct {
	Area       ServiceArea
	Technician Technician
}

// TechnicianWorkload summarises the calls assigned to a technician.
type TechnicianWorkload struct {
	TechnicianID      string
	TotalCalls        int
	ActiveCalls       int
	CompletedCalls    int
	AvgResolutionDays float64
}
