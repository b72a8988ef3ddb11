package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/field-service/internal/domain"
)

// ServiceAreaRepository persists technician coverage by postal code.
type ServiceAreaRepository interface {
	Create(ctx context.Context, area *domain.ServiceArea) error
	Update(ctx context.Context, area *domain.ServiceArea) error
	GetByID(ctx context.Context, id string) (*domain.ServiceArea, error)
	ListByTechnician(ctx context.Context, technicianID string) ([]domain.ServiceArea, error)
	// ListCandidates returns active areas for the postal code whose technician is active and available.
	ListCandidates(ctx context.Context, postalCode string) ([]domain.ServiceAreaCandidate, error)
}

const serviceAreaColumns = `id, technician_id, postal_code, area_name, city, priority, active_flag, created_at`

type serviceAreaRepository struct {
	pool *pgxpool.Pool
}

// NewServiceAreaRepository constructs repository.
func NewServiceAreaRepository(pool *pgxpool.Pool) ServiceAreaRepository {
	return &serviceAreaRepository{pool: pool}
}

func (r *serviceAreaRepository) Create(ctx context.Context, area *domain.ServiceArea) error {
	const query = `
        INSERT INTO service_areas (technician_id, postal_code, area_name, city, priority, active_flag)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		area.TechnicianID,
		area.PostalCode,
		area.AreaName,
		area.City,
		area.Priority,
		area.Active,
	).Scan(&area.ID, &area.CreatedAt)
	return translateError(err)
}

func (r *serviceAreaRepository) Update(ctx context.Context, area *domain.ServiceArea) error {
	const query = `
        UPDATE service_areas SET area_name=$1, city=$2, priority=$3, active_flag=$4
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query, area.AreaName, area.City, area.Priority, area.Active, area.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *serviceAreaRepository) GetByID(ctx context.Context, id string) (*domain.ServiceArea, error) {
	query := `SELECT ` + serviceAreaColumns + ` FROM service_areas WHERE id=$1`
	var area domain.ServiceArea
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&area.ID,
		&area.TechnicianID,
		&area.PostalCode,
		&area.AreaName,
		&area.City,
		&area.Priority,
		&area.Active,
		&area.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &area, nil
}

func (r *serviceAreaRepository) ListByTechnician(ctx context.Context, technicianID string) ([]domain.ServiceArea, error) {
	query := `SELECT ` + serviceAreaColumns + ` FROM service_areas WHERE technician_id=$1 ORDER BY priority ASC, postal_code ASC`
	rows, err := r.pool.Query(ctx, query, technicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceArea
	for rows.Next() {
		var area domain.ServiceArea
		if err := rows.Scan(
			&area.ID,
			&area.TechnicianID,
			&area.PostalCode,
			&area.AreaName,
			&area.City,
			&area.Priority,
			&area.Active,
			&area.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, area)
	}
	return result, rows.Err()
}

func (r *serviceAreaRepository) ListCandidates(ctx context.Context, postalCode string) ([]domain.ServiceAreaCandidate, error) {
	const query = `
        SELECT a.id, a.technician_id, a.postal_code, a.area_name, a.city, a.priority, a.active_flag, a.created_at,
               t.id, t.code, t.name, t.user_id, t.service_partner_id, t.mobile, t.email, t.state, t.active_flag,
               t.created_at, t.updated_at
        FROM service_areas a
        JOIN technicians t ON t.id = a.technician_id
        WHERE a.postal_code=$1 AND a.active_flag AND t.active_flag AND t.state='available'`
	rows, err := r.pool.Query(ctx, query, postalCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceAreaCandidate
	for rows.Next() {
		var c domain.ServiceAreaCandidate
		if err := rows.Scan(
			&c.Area.ID,
			&c.Area.TechnicianID,
			&c.Area.PostalCode,
			&c.Area.AreaName,
			&c.Area.City,
			&c.Area.Priority,
			&c.Area.Active,
			&c.Area.CreatedAt,
			&c.Technician.ID,
			&c.Technician.Code,
			&c.Technician.Name,
			&c.Technician.UserID,
			&c.Technician.ServicePartnerID,
			&c.Technician.Mobile,
			&c.Technician.Email,
			&c.Technician.State,
			&c.Technician.Active,
			&c.Technician.CreatedAt,
			&c.Technician.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
