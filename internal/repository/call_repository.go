package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/field-service/internal/domain"
)

// CallFilter captures dispatcher search parameters.
type CallFilter struct {
	States            []domain.CallState
	CallType          *domain.CallType
	TechnicianID      *string
	ServicePartnerID  *string
	PostalCode        *string
	CallDateFrom      *time.Time
	CallDateTo        *time.Time
	SLADeadlineBefore *time.Time
	SearchTerm        *string
	Limit             int
	Offset            int
}

// CallRepository encapsulates service call persistence.
type CallRepository interface {
	Create(ctx context.Context, call *domain.ServiceCall) error
	Update(ctx context.Context, call *domain.ServiceCall) error
	// SaveTransition writes the call and its notification entries atomically.
	// Entries without an ID are inserted, the rest have their OTP verification fields updated.
	SaveTransition(ctx context.Context, call *domain.ServiceCall, entries []*domain.NotificationTransaction) error
	GetByID(ctx context.Context, id string) (*domain.ServiceCall, error)
	GetByReference(ctx context.Context, reference string) (*domain.ServiceCall, error)
	List(ctx context.Context, filter CallFilter) ([]domain.ServiceCall, error)
	CountActiveByTechnicians(ctx context.Context, technicianIDs []string) (map[string]int, error)
	Workload(ctx context.Context, technicianID string) (*domain.TechnicianWorkload, error)
}

const callColumns = `id, reference, service_type, call_type, priority, state, customer_name, mobile, email,
               address, postal_code, product_id, serial_number, warranty_type, warranty_duration_days,
               purchase_date, warranty_status, warranty_expiry_date, nature_of_complaint, symptoms,
               technician_id, service_partner_id, auto_assigned, call_date, sla_deadline, confirmed_date,
               assigned_date, start_date, resolved_date, closed_date, current_otp, otp_generated_at,
               resolution, service_notes, parts_used, service_charge, spare_charge, is_paid, created_by,
               created_at, updated_at`

type callRepository struct {
	pool *pgxpool.Pool
}

// NewCallRepository instantiates repository.
func NewCallRepository(pool *pgxpool.Pool) CallRepository {
	return &callRepository{pool: pool}
}

func (r *callRepository) Create(ctx context.Context, call *domain.ServiceCall) error {
	const query = `
        INSERT INTO service_calls (reference, service_type, call_type, priority, state, customer_name, mobile, email,
            address, postal_code, product_id, serial_number, warranty_type, warranty_duration_days, purchase_date,
            warranty_status, warranty_expiry_date, nature_of_complaint, symptoms, technician_id, service_partner_id,
            auto_assigned, call_date, sla_deadline, service_charge, spare_charge, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		call.Reference,
		call.ServiceType,
		call.CallType,
		call.Priority,
		call.State,
		call.CustomerName,
		call.Mobile,
		call.Email,
		call.Address,
		call.PostalCode,
		call.ProductID,
		call.SerialNumber,
		call.WarrantyType,
		call.WarrantyDurationDays,
		call.PurchaseDate,
		call.WarrantyStatus,
		call.WarrantyExpiryDate,
		call.NatureOfComplaint,
		call.Symptoms,
		call.TechnicianID,
		call.ServicePartnerID,
		call.AutoAssigned,
		call.CallDate,
		call.SLADeadline,
		call.ServiceCharge,
		call.SpareCharge,
		call.CreatedBy,
	).Scan(&call.ID, &call.CreatedAt, &call.UpdatedAt)
	return translateError(err)
}

func (r *callRepository) Update(ctx context.Context, call *domain.ServiceCall) error {
	return updateCall(ctx, r.pool, call)
}

func updateCall(ctx context.Context, db dbtx, call *domain.ServiceCall) error {
	const query = `
        UPDATE service_calls SET service_type=$1, call_type=$2, priority=$3, state=$4, customer_name=$5, mobile=$6,
            email=$7, address=$8, postal_code=$9, product_id=$10, serial_number=$11, warranty_type=$12,
            warranty_duration_days=$13, purchase_date=$14, warranty_status=$15, warranty_expiry_date=$16,
            nature_of_complaint=$17, symptoms=$18, technician_id=$19, service_partner_id=$20, auto_assigned=$21,
            sla_deadline=$22, confirmed_date=$23, assigned_date=$24, start_date=$25, resolved_date=$26,
            closed_date=$27, current_otp=$28, otp_generated_at=$29, resolution=$30, service_notes=$31,
            parts_used=$32, service_charge=$33, spare_charge=$34, is_paid=$35, updated_at=NOW()
        WHERE id=$36
        RETURNING updated_at`
	err := db.QueryRow(ctx, query,
		call.ServiceType,
		call.CallType,
		call.Priority,
		call.State,
		call.CustomerName,
		call.Mobile,
		call.Email,
		call.Address,
		call.PostalCode,
		call.ProductID,
		call.SerialNumber,
		call.WarrantyType,
		call.WarrantyDurationDays,
		call.PurchaseDate,
		call.WarrantyStatus,
		call.WarrantyExpiryDate,
		call.NatureOfComplaint,
		call.Symptoms,
		call.TechnicianID,
		call.ServicePartnerID,
		call.AutoAssigned,
		call.SLADeadline,
		call.ConfirmedDate,
		call.AssignedDate,
		call.StartDate,
		call.ResolvedDate,
		call.ClosedDate,
		call.CurrentOTP,
		call.OTPGeneratedAt,
		call.Resolution,
		call.ServiceNotes,
		call.PartsUsed,
		call.ServiceCharge,
		call.SpareCharge,
		call.IsPaid,
		call.ID,
	).Scan(&call.UpdatedAt)
	return err
}

func (r *callRepository) SaveTransition(ctx context.Context, call *domain.ServiceCall, entries []*domain.NotificationTransaction) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := updateCall(ctx, tx, call); err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.ID == "" {
				if err := insertNotification(ctx, tx, entry); err != nil {
					return err
				}
				continue
			}
			if err := markNotificationVerified(ctx, tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *callRepository) GetByID(ctx context.Context, id string) (*domain.ServiceCall, error) {
	query := `SELECT ` + callColumns + ` FROM service_calls WHERE id=$1`
	return scanCall(r.pool.QueryRow(ctx, query, id))
}

func (r *callRepository) GetByReference(ctx context.Context, reference string) (*domain.ServiceCall, error) {
	query := `SELECT ` + callColumns + ` FROM service_calls WHERE reference=$1`
	return scanCall(r.pool.QueryRow(ctx, query, reference))
}

func (r *callRepository) List(ctx context.Context, filter CallFilter) ([]domain.ServiceCall, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			args = append(args, state)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("state IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CallType != nil {
		args = append(args, *filter.CallType)
		clauses = append(clauses, fmt.Sprintf("call_type=$%d", len(args)))
	}
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		clauses = append(clauses, fmt.Sprintf("technician_id=$%d", len(args)))
	}
	if filter.ServicePartnerID != nil {
		args = append(args, *filter.ServicePartnerID)
		clauses = append(clauses, fmt.Sprintf("service_partner_id=$%d", len(args)))
	}
	if filter.PostalCode != nil {
		args = append(args, *filter.PostalCode)
		clauses = append(clauses, fmt.Sprintf("postal_code=$%d", len(args)))
	}
	if filter.CallDateFrom != nil {
		args = append(args, *filter.CallDateFrom)
		clauses = append(clauses, fmt.Sprintf("call_date >= $%d", len(args)))
	}
	if filter.CallDateTo != nil {
		args = append(args, *filter.CallDateTo)
		clauses = append(clauses, fmt.Sprintf("call_date <= $%d", len(args)))
	}
	if filter.SLADeadlineBefore != nil {
		args = append(args, *filter.SLADeadlineBefore)
		clauses = append(clauses, fmt.Sprintf("sla_deadline < $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(reference) LIKE %s OR LOWER(customer_name) LIKE %s OR mobile LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset, 20)
	query := fmt.Sprintf(`SELECT %s FROM service_calls WHERE %s ORDER BY call_date DESC, reference DESC LIMIT %d OFFSET %d`,
		callColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceCall
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *call)
	}
	return result, rows.Err()
}

func (r *callRepository) CountActiveByTechnicians(ctx context.Context, technicianIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(technicianIDs))
	if len(technicianIDs) == 0 {
		return counts, nil
	}
	const query = `
        SELECT technician_id::text, COUNT(*)
        FROM service_calls
        WHERE technician_id = ANY($1::uuid[]) AND state NOT IN ('closed', 'cancelled')
        GROUP BY technician_id`
	rows, err := r.pool.Query(ctx, query, technicianIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for _, id := range technicianIDs {
		counts[id] = 0
	}
	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

func (r *callRepository) Workload(ctx context.Context, technicianID string) (*domain.TechnicianWorkload, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE state NOT IN ('closed', 'cancelled')),
               COUNT(*) FILTER (WHERE state = 'closed'),
               COALESCE(AVG(EXTRACT(EPOCH FROM (closed_date - call_date)) / 86400) FILTER (WHERE closed_date IS NOT NULL), 0)
        FROM service_calls WHERE technician_id=$1`
	workload := &domain.TechnicianWorkload{TechnicianID: technicianID}
	if err := r.pool.QueryRow(ctx, query, technicianID).Scan(
		&workload.TotalCalls,
		&workload.ActiveCalls,
		&workload.CompletedCalls,
		&workload.AvgResolutionDays,
	); err != nil {
		return nil, err
	}
	return workload, nil
}

func scanCall(row pgx.Row) (*domain.ServiceCall, error) {
	var call domain.ServiceCall
	if err := row.Scan(
		&call.ID,
		&call.Reference,
		&call.ServiceType,
		&call.CallType,
		&call.Priority,
		&call.State,
		&call.CustomerName,
		&call.Mobile,
		&call.Email,
		&call.Address,
		&call.PostalCode,
		&call.ProductID,
		&call.SerialNumber,
		&call.WarrantyType,
		&call.WarrantyDurationDays,
		&call.PurchaseDate,
		&call.WarrantyStatus,
		&call.WarrantyExpiryDate,
		&call.NatureOfComplaint,
		&call.Symptoms,
		&call.TechnicianID,
		&call.ServicePartnerID,
		&call.AutoAssigned,
		&call.CallDate,
		&call.SLADeadline,
		&call.ConfirmedDate,
		&call.AssignedDate,
		&call.StartDate,
		&call.ResolvedDate,
		&call.ClosedDate,
		&call.CurrentOTP,
		&call.OTPGeneratedAt,
		&call.Resolution,
		&call.ServiceNotes,
		&call.PartsUsed,
		&call.ServiceCharge,
		&call.SpareCharge,
		&call.IsPaid,
		&call.CreatedBy,
		&call.CreatedAt,
		&call.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &call, nil
}
