package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/octobees/brandintel/internal/database"
	"github.com/octobees/brandintel/internal/entity"
)

// ErrReportNotFound is returned when a report id does not resolve.
var ErrReportNotFound = errors.New("report not found")

// Delivery channels tracked on a report.
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// ReportsRepository persists generated reports.
type ReportsRepository interface {
	Create(ctx context.Context, report *entity.Report) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Report, error)
	GetRecipient(ctx context.Context, reportID uuid.UUID) (*entity.Recipient, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, channel string) error
}

// PGXReportsRepository implements ReportsRepository with pgx.
type PGXReportsRepository struct {
	pool database.Pool
}

// NewPGXReportsRepository instantiates a reports repository.
func NewPGXReportsRepository(pool database.Pool) *PGXReportsRepository {
	return &PGXReportsRepository{pool: pool}
}

// Create inserts a report once per generation id. A repeated call for the same
// generation returns the row already stored instead of writing a second one.
func (r *PGXReportsRepository) Create(ctx context.Context, report *entity.Report) error {
	if report.ReportType == "" {
		report.ReportType = entity.ReportTypeWeekly
	}

	row := r.pool.QueryRow(ctx, `
        INSERT INTO reports (generation_id, brand_id, report_type, insights, summary)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (generation_id) DO UPDATE SET generation_id = reports.generation_id
        RETURNING id, insights, summary, sent_via_email, sent_via_whatsapp, created_at
    `, report.GenerationID, report.BrandID, report.ReportType, []byte(report.Insights), report.Summary)

	if err := row.Scan(&report.ID, &report.Insights, &report.Summary, &report.SentViaEmail, &report.SentViaWhatsApp, &report.CreatedAt); err != nil {
		return eris.Wrapf(err, "insert report for generation %s", report.GenerationID)
	}
	return nil
}

// Get loads a report by id.
func (r *PGXReportsRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT id, generation_id, brand_id, report_type, insights, summary, sent_via_email, sent_via_whatsapp, created_at
        FROM reports
        WHERE id = $1
    `, id)

	var report entity.Report
	if err := row.Scan(&report.ID, &report.GenerationID, &report.BrandID, &report.ReportType, &report.Insights, &report.Summary, &report.SentViaEmail, &report.SentViaWhatsApp, &report.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, eris.Wrapf(err, "query report %s", id)
	}
	return &report, nil
}

// GetRecipient resolves the brand owner's delivery preferences for a report.
func (r *PGXReportsRepository) GetRecipient(ctx context.Context, reportID uuid.UUID) (*entity.Recipient, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT p.id, b.name, p.email, p.email_opted_in, p.whatsapp_number, p.whatsapp_opted_in
        FROM reports r
        JOIN brands b ON b.id = r.brand_id
        JOIN profiles p ON p.id = b.user_id
        WHERE r.id = $1
    `, reportID)

	var (
		recipient entity.Recipient
		email     sql.NullString
		phone     sql.NullString
	)
	if err := row.Scan(&recipient.UserID, &recipient.BrandName, &email, &recipient.EmailOptedIn, &phone, &recipient.WhatsAppOptedIn); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, eris.Wrapf(err, "query recipient for report %s", reportID)
	}
	recipient.Email = nullStringToPtr(email)
	recipient.WhatsAppNumber = nullStringToPtr(phone)
	return &recipient, nil
}

// MarkDelivered flips the delivery flag for one channel. It is the only mutation a report allows.
func (r *PGXReportsRepository) MarkDelivered(ctx context.Context, id uuid.UUID, channel string) error {
	var query string
	switch channel {
	case ChannelEmail:
		query = `UPDATE reports SET sent_via_email = TRUE WHERE id = $1`
	case ChannelWhatsApp:
		query = `UPDATE reports SET sent_via_whatsapp = TRUE WHERE id = $1`
	default:
		return eris.Errorf("unknown delivery channel %q", channel)
	}

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return eris.Wrapf(err, "mark report %s delivered via %s", id, channel)
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}
