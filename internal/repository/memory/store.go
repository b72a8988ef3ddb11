// Package memory provides in-process implementations of the repository
// interfaces. They back the API when no database is configured and serve as
// fakes in tests.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/field-service/internal/domain"
)

// Store holds every table behind one lock so cross-table reads see one snapshot.
type Store struct {
	mu            sync.RWMutex
	now           func() time.Time
	calls         map[string]domain.ServiceCall
	notifications []domain.NotificationTransaction
	technicians   map[string]domain.Technician
	areas         map[string]domain.ServiceArea
	feedbacks     map[string]domain.Feedback
	partners      map[string]domain.ServicePartner
	categories    map[string]domain.TATCategory
	claims        map[string]domain.Claim
	attachments   []domain.Attachment
	activities    []domain.Activity
	operators     map[string]domain.Operator
}

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{
		now:         time.Now,
		calls:       make(map[string]domain.ServiceCall),
		technicians: make(map[string]domain.Technician),
		areas:       make(map[string]domain.ServiceArea),
		feedbacks:   make(map[string]domain.Feedback),
		partners:    make(map[string]domain.ServicePartner),
		categories:  make(map[string]domain.TATCategory),
		claims:      make(map[string]domain.Claim),
		operators:   make(map[string]domain.Operator),
	}
}

// WithClock overrides the timestamp source used for created/updated fields.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func newID() string {
	return uuid.NewString()
}

func (s *Store) Calls() *CallRepository                 { return &CallRepository{s: s} }
func (s *Store) Notifications() *NotificationRepository { return &NotificationRepository{s: s} }
func (s *Store) Technicians() *TechnicianRepository     { return &TechnicianRepository{s: s} }
func (s *Store) ServiceAreas() *ServiceAreaRepository   { return &ServiceAreaRepository{s: s} }
func (s *Store) Feedbacks() *FeedbackRepository         { return &FeedbackRepository{s: s} }
func (s *Store) Partners() *ServicePartnerRepository    { return &ServicePartnerRepository{s: s} }
func (s *Store) Claims() *ClaimRepository               { return &ClaimRepository{s: s} }
func (s *Store) Attachments() *AttachmentRepository     { return &AttachmentRepository{s: s} }
func (s *Store) Activities() *ActivityRepository        { return &ActivityRepository{s: s} }
func (s *Store) Operators() *OperatorRepository         { return &OperatorRepository{s: s} }
