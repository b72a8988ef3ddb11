package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/field-service/internal/domain"
)

// ServicePartnerRepository manages partners and their TAT rate cards.
type ServicePartnerRepository interface {
	Create(ctx context.Context, partner *domain.ServicePartner) error
	GetByID(ctx context.Context, id string) (*domain.ServicePartner, error)
	CreateTATCategory(ctx context.Context, category *domain.TATCategory) error
	// ListTATCategories returns the partner's categories ordered by ascending days.
	ListTATCategories(ctx context.Context, partnerID string) ([]domain.TATCategory, error)
}

type servicePartnerRepository struct {
	pool *pgxpool.Pool
}

// NewServicePartnerRepository constructs repository.
func NewServicePartnerRepository(pool *pgxpool.Pool) ServicePartnerRepository {
	return &servicePartnerRepository{pool: pool}
}

func (r *servicePartnerRepository) Create(ctx context.Context, partner *domain.ServicePartner) error {
	const query = `INSERT INTO service_partners (name, active_flag) VALUES ($1,$2) RETURNING id`
	return r.pool.QueryRow(ctx, query, partner.Name, partner.Active).Scan(&partner.ID)
}

func (r *servicePartnerRepository) GetByID(ctx context.Context, id string) (*domain.ServicePartner, error) {
	const query = `SELECT id, name, active_flag FROM service_partners WHERE id=$1`
	var partner domain.ServicePartner
	if err := r.pool.QueryRow(ctx, query, id).Scan(&partner.ID, &partner.Name, &partner.Active); err != nil {
		return nil, err
	}
	return &partner, nil
}

func (r *servicePartnerRepository) CreateTATCategory(ctx context.Context, category *domain.TATCategory) error {
	const query = `
        INSERT INTO tat_categories (service_partner_id, name, days, amount)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		category.ServicePartnerID,
		category.Name,
		category.Days,
		category.Amount,
	).Scan(&category.ID)
	return translateError(err)
}

func (r *servicePartnerRepository) ListTATCategories(ctx context.Context, partnerID string) ([]domain.TATCategory, error) {
	const query = `
        SELECT id, service_partner_id, name, days, amount
        FROM tat_categories WHERE service_partner_id=$1 ORDER BY days ASC`
	rows, err := r.pool.Query(ctx, query, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TATCategory
	for rows.Next() {
		var category domain.TATCategory
		if err := rows.Scan(
			&category.ID,
			&category.ServicePartnerID,
			&category.Name,
			&category.Days,
			&category.Amount,
		); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}
