package leads

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var leadsTracer = otel.Tracer("aesthetic-leads.internal.leads")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithQuerier(db querier) *PostgresRepository {
	if db == nil {
		panic("leads: querier required")
	}
	return &PostgresRepository{db: db}
}

const leadColumns = `id, first_name, last_name, email, phone, contact_method, treatment_interest,
		target_area, preferred_date, preferred_time, message, consent, marketing_opt_in,
		source, page_path, utm_source, utm_medium, utm_campaign, utm_term, utm_content,
		status, created_at, updated_at`

// Create inserts a new row with status NEW.
func (r *PostgresRepository) Create(ctx context.Context, in *ValidatedLead) (*Lead, error) {
	ctx, span := leadsTracer.Start(ctx, "leads.postgres.create")
	defer span.End()

	lead := &Lead{
		ID:            uuid.New().String(),
		ValidatedLead: *in,
		Status:        StatusNew,
	}
	query := `
		INSERT INTO leads (id, first_name, last_name, email, phone, contact_method, treatment_interest,
			target_area, preferred_date, preferred_time, message, consent, marketing_opt_in,
			source, page_path, utm_source, utm_medium, utm_campaign, utm_term, utm_content, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRow(ctx, query,
		lead.ID,
		in.FirstName,
		in.LastName,
		in.Email,
		in.Phone,
		string(in.ContactMethod),
		in.TreatmentInterest,
		string(in.TargetArea),
		in.PreferredDate,
		in.PreferredTime,
		in.Message,
		in.Consent,
		in.MarketingOptIn,
		in.Source,
		in.PagePath,
		in.UTMSource,
		in.UTMMedium,
		in.UTMCampaign,
		in.UTMTerm,
		in.UTMContent,
		string(StatusNew),
	).Scan(&lead.CreatedAt, &lead.UpdatedAt); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}
	span.SetAttributes(attribute.String("lead.id", lead.ID))
	return lead, nil
}

// GetByID fetches a single lead.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrLeadNotFound
	}
	ctx, span := leadsTracer.Start(ctx, "leads.postgres.get")
	defer span.End()

	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	lead, err := scanLead(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

// List returns one page of leads newest first and the total matching count.
func (r *PostgresRepository) List(ctx context.Context, filter ListLeadsFilter) ([]*Lead, int, error) {
	filter = filter.normalized()
	ctx, span := leadsTracer.Start(ctx, "leads.postgres.list")
	defer span.End()

	status := string(filter.Status)
	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM leads WHERE ($1 = '' OR status = $1)`,
		status,
	).Scan(&total); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("leads: count failed: %w", err)
	}

	query := `SELECT ` + leadColumns + `
		FROM leads
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, status, filter.Limit, filter.Offset)
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	out := make([]*Lead, 0, filter.Limit)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("leads: list rows: %w", err)
	}
	return out, total, nil
}

// UpdateStatus sets the status without any transition rules.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status) (*Lead, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrLeadNotFound
	}
	ctx, span := leadsTracer.Start(ctx, "leads.postgres.update_status")
	defer span.End()

	query := `
		UPDATE leads
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + leadColumns
	lead, err := scanLead(r.db.QueryRow(ctx, query, id, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("leads: update status failed: %w", err)
	}
	return lead, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*Lead, error) {
	var (
		lead          Lead
		contactMethod string
		targetArea    string
		status        string
	)
	if err := row.Scan(
		&lead.ID,
		&lead.FirstName,
		&lead.LastName,
		&lead.Email,
		&lead.Phone,
		&contactMethod,
		&lead.TreatmentInterest,
		&targetArea,
		&lead.PreferredDate,
		&lead.PreferredTime,
		&lead.Message,
		&lead.Consent,
		&lead.MarketingOptIn,
		&lead.Source,
		&lead.PagePath,
		&lead.UTMSource,
		&lead.UTMMedium,
		&lead.UTMCampaign,
		&lead.UTMTerm,
		&lead.UTMContent,
		&status,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, err
	}
	lead.ContactMethod = ContactMethod(contactMethod)
	lead.TargetArea = TargetArea(targetArea)
	lead.Status = Status(status)
	return &lead, nil
}

var _ Repository = (*PostgresRepository)(nil)
