package deal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound   = errors.New("deal: not found")
	ErrEmptyPatch = errors.New("deal: empty patch")
)

type Repository interface {
	Create(ctx context.Context, params CreateParams) (Deal, error)
	GetByID(ctx context.Context, id int64) (Deal, error)
	ListByStatus(ctx context.Context, filters ListFilters) (Page, error)
	Update(ctx context.Context, id int64, patch Patch) (Deal, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const dealColumns = `id, status, submitter_name, submitter_email, submitter_phone, property_address,
	property_type, asking_price, notes, latitude, longitude, purchase_agreement_key,
	assignment_agreement_key, jv_agreement_key, sent_deal_description_at, sent_jv_agreement_at,
	created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, params CreateParams) (Deal, error) {
	query := `
		INSERT INTO deal_submissions (status, submitter_name, submitter_email, submitter_phone,
			property_address, property_type, asking_price, notes, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + dealColumns

	row := r.pool.QueryRow(ctx, query,
		params.Status,
		params.SubmitterName,
		params.SubmitterEmail,
		params.SubmitterPhone,
		params.PropertyAddress,
		params.PropertyType,
		params.AskingPrice,
		params.Notes,
		params.Latitude,
		params.Longitude,
	)
	d, err := scanDeal(row)
	if err != nil {
		return Deal{}, fmt.Errorf("deal: create: %w", err)
	}
	return d, nil
}

func (r *PGRepository) GetByID(ctx context.Context, id int64) (Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deal_submissions WHERE id = $1`

	d, err := scanDeal(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Deal{}, ErrNotFound
		}
		return Deal{}, fmt.Errorf("deal: get by id: %w", err)
	}
	return d, nil
}

// ListByStatus reads one page ordered by (created_at, id) descending. It
// fetches one extra row; when present that row's id becomes NextCursor and
// the following call starts at it inclusively, so no row is skipped or
// repeated while the table is unchanged. A cursor whose row no longer
// exists yields an empty page.
func (r *PGRepository) ListByStatus(ctx context.Context, filters ListFilters) (Page, error) {
	if filters.Limit <= 0 || filters.Limit > MaxLimit {
		filters.Limit = DefaultLimit
	}

	where := []string{"1=1"}
	args := []any{}

	if filters.Status != "" {
		where = append(where, fmt.Sprintf("d.status = $%d", len(args)+1))
		args = append(args, filters.Status)
	}
	if filters.Cursor != nil {
		where = append(where, fmt.Sprintf(
			"(d.created_at, d.id) <= (SELECT c.created_at, c.id FROM deal_submissions c WHERE c.id = $%d)",
			len(args)+1))
		args = append(args, *filters.Cursor)
	}

	query := fmt.Sprintf(`SELECT %s FROM deal_submissions d WHERE %s ORDER BY d.created_at DESC, d.id DESC LIMIT %d`,
		prefixed("d", dealColumns), strings.Join(where, " AND "), filters.Limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("deal: query list: %w", err)
	}
	defer rows.Close()

	deals := []Deal{}
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return Page{}, fmt.Errorf("deal: scan list: %w", err)
		}
		deals = append(deals, d)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("deal: iterate list: %w", err)
	}

	return paginate(deals, filters.Limit), nil
}

// paginate trims the look-ahead row from a limit+1 result.
func paginate(deals []Deal, limit int) Page {
	if len(deals) <= limit {
		return Page{Deals: deals}
	}
	next := deals[limit].ID
	return Page{Deals: deals[:limit], NextCursor: &next}
}

// Update writes only the fields set in patch and bumps updated_at.
func (r *PGRepository) Update(ctx context.Context, id int64, patch Patch) (Deal, error) {
	if patch.isEmpty() {
		return Deal{}, ErrEmptyPatch
	}

	set := []string{}
	args := []any{id}

	if patch.Status != nil {
		args = append(args, *patch.Status)
		set = append(set, fmt.Sprintf("status = $%d", len(args)))
	}
	if patch.Document != nil {
		if !patch.Document.Type.Valid() {
			return Deal{}, fmt.Errorf("deal: update: invalid document type %v", patch.Document.Type)
		}
		args = append(args, patch.Document.Key)
		set = append(set, fmt.Sprintf("%s = $%d", patch.Document.Type.column(), len(args)))
	}
	if patch.SentDealDescriptionAt != nil {
		args = append(args, *patch.SentDealDescriptionAt)
		set = append(set, fmt.Sprintf("sent_deal_description_at = $%d", len(args)))
	}
	if patch.SentJvAgreementAt != nil {
		args = append(args, *patch.SentJvAgreementAt)
		set = append(set, fmt.Sprintf("sent_jv_agreement_at = $%d", len(args)))
	}
	set = append(set, "updated_at = now()")

	query := fmt.Sprintf(`UPDATE deal_submissions SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(set, ", "), dealColumns)

	d, err := scanDeal(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Deal{}, ErrNotFound
		}
		return Deal{}, fmt.Errorf("deal: update: %w", err)
	}
	return d, nil
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func scanDeal(row pgx.Row) (Deal, error) {
	var d Deal
	err := row.Scan(
		&d.ID,
		&d.Status,
		&d.SubmitterName,
		&d.SubmitterEmail,
		&d.SubmitterPhone,
		&d.PropertyAddress,
		&d.PropertyType,
		&d.AskingPrice,
		&d.Notes,
		&d.Latitude,
		&d.Longitude,
		&d.PurchaseAgreementKey,
		&d.AssignmentAgreementKey,
		&d.JvAgreementKey,
		&d.SentDealDescriptionAt,
		&d.SentJvAgreementAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

