package persistence

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/field-service/internal/repository"
	"github.com/spec-kit/field-service/internal/repository/memory"
)

// Repositories bundles every store the services need.
type Repositories struct {
	Calls         repository.CallRepository
	Notifications repository.NotificationRepository
	Attachments   repository.AttachmentRepository
	Activities    repository.ActivityRepository
	Technicians   repository.TechnicianRepository
	ServiceAreas  repository.ServiceAreaRepository
	Feedbacks     repository.FeedbackRepository
	Partners      repository.ServicePartnerRepository
	Claims        repository.ClaimRepository
	Operators     repository.OperatorRepository
}

// NewRepositories returns postgres repositories, or an in-memory store when pool is nil.
func NewRepositories(pool *pgxpool.Pool) Repositories {
	if pool == nil {
		return MemoryRepositories(memory.NewStore())
	}
	return Repositories{
		Calls:         repository.NewCallRepository(pool),
		Notifications: repository.NewNotificationRepository(pool),
		Attachments:   repository.NewAttachmentRepository(pool),
		Activities:    repository.NewActivityRepository(pool),
		Technicians:   repository.NewTechnicianRepository(pool),
		ServiceAreas:  repository.NewServiceAreaRepository(pool),
		Feedbacks:     repository.NewFeedbackRepository(pool),
		Partners:      repository.NewServicePartnerRepository(pool),
		Claims:        repository.NewClaimRepository(pool),
		Operators:     repository.NewOperatorRepository(pool),
	}
}

// MemoryRepositories exposes an in-memory store through the repository interfaces.
func MemoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Calls:         store.Calls(),
		Notifications: store.Notifications(),
		Attachments:   store.Attachments(),
		Activities:    store.Activities(),
		Technicians:   store.Technicians(),
		ServiceAreas:  store.ServiceAreas(),
		Feedbacks:     store.Feedbacks(),
		Partners:      store.Partners(),
		Claims:        store.Claims(),
		Operators:     store.Operators(),
	}
}
