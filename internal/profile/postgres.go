package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/onnwee/talentdir/internal/tracing"
)

const profileColumns = `id, user_id, name, job_title, company_name, nationality,
	short_bio, long_bio, profile_picture, email, phone, social_links,
	interested_in, languages, areas_of_expertise, keywords, memberships,
	status, created_at, updated_at`

// pqUniqueViolation is the Postgres SQLSTATE for unique_violation.
const pqUniqueViolation = "23505"

// PostgresRepository implements Repository on top of the profiles table.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}

// facetColumn maps a facet field to its array column.
func facetColumn(field FacetField) (string, error) {
	switch field {
	case FacetLanguages:
		return "languages", nil
	case FacetAreasOfExpertise:
		return "areas_of_expertise", nil
	case FacetMemberships:
		return "memberships", nil
	default:
		return "", fmt.Errorf("unknown facet field: %q", field)
	}
}

// buildQuery renders q as a SELECT over profiles.
// Clauses are conjunctive: status equality, category containment, one array
// overlap per non-empty facet, and the owner exclusion.
func buildQuery(q Query) (string, []any, error) {
	var (
		sb   strings.Builder
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	sb.WriteString("SELECT ")
	sb.WriteString(profileColumns)
	sb.WriteString(" FROM profiles WHERE status = ")
	sb.WriteString(arg(string(q.EffectiveStatus())))

	// Containment as @> so the GIN index on interested_in applies.
	if q.Category != "" {
		sb.WriteString(" AND interested_in @> ")
		sb.WriteString(arg(pq.Array([]string{q.Category})))
	}

	for _, o := range q.Overlaps {
		if len(o.Values) == 0 {
			continue
		}
		col, err := facetColumn(o.Field)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" AND ")
		sb.WriteString(col)
		sb.WriteString(" && ")
		sb.WriteString(arg(pq.Array(o.Values)))
	}

	if q.ExcludeUserID != "" {
		sb.WriteString(" AND (user_id IS NULL OR user_id <> ")
		sb.WriteString(arg(q.ExcludeUserID))
		sb.WriteString(")")
	}

	sb.WriteString(" ORDER BY created_at ASC, id ASC")
	return sb.String(), args, nil
}

// Query executes q against the profiles table.
func (r *PostgresRepository) Query(ctx context.Context, q Query) (_ []*Profile, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "profiles", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query, args, err := buildQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	results := make([]*Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return results, nil
}

// FacetProjection reads the facet arrays of approved profiles.
func (r *PostgresRepository) FacetProjection(ctx context.Context) (_ []FacetProjection, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "profiles", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := r.db.QueryContext(ctx,
		`SELECT languages, areas_of_expertise, memberships FROM profiles WHERE status = $1`,
		string(StatusApproved))
	if err != nil {
		return nil, fmt.Errorf("failed to query facet projection: %w", err)
	}
	defer rows.Close()

	projection := make([]FacetProjection, 0)
	for rows.Next() {
		var languages, expertise, memberships pq.StringArray
		if err := rows.Scan(&languages, &expertise, &memberships); err != nil {
			return nil, fmt.Errorf("failed to scan facet projection: %w", err)
		}
		projection = append(projection, FacetProjection{
			Languages:        languages,
			AreasOfExpertise: expertise,
			Memberships:      memberships,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate facet projection: %w", err)
	}
	return projection, nil
}

// Insert stores a new profile row.
func (r *PostgresRepository) Insert(ctx context.Context, p *Profile) (err error) {
	if p == nil || p.ID == "" {
		return ErrMissingID
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, p.Status)
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "profiles", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	socialLinks, err := json.Marshal(p.SocialLinks)
	if err != nil {
		return fmt.Errorf("failed to encode social links: %w", err)
	}

	query := `
		INSERT INTO profiles (
			id, user_id, name, job_title, company_name, nationality,
			short_bio, long_bio, profile_picture, email, phone, social_links,
			interested_in, languages, areas_of_expertise, keywords, memberships,
			status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		p.ID,
		nullString(p.UserID),
		p.Name,
		p.JobTitle,
		p.CompanyName,
		p.Nationality,
		p.ShortBio,
		p.LongBio,
		p.ProfilePicture,
		p.Email,
		p.Phone,
		socialLinks,
		pq.Array(arrayOrEmpty(p.InterestedIn)),
		pq.Array(arrayOrEmpty(p.Languages)),
		pq.Array(arrayOrEmpty(p.AreasOfExpertise)),
		pq.Array(arrayOrEmpty(p.Keywords)),
		pq.Array(arrayOrEmpty(p.Memberships)),
		string(p.Status),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicateID
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	r.logger.Debug("profile inserted",
		slog.String("profile_id", p.ID),
		slog.String("status", string(p.Status)))
	return nil
}

// GetByID retrieves a profile by ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (_ *Profile, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "profiles", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateStatus sets the moderation status of a profile.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status) (err error) {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "profiles", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update profile status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	r.logger.Info("profile status updated",
		slog.String("profile_id", id),
		slog.String("status", string(status)))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var (
		p           Profile
		userID      sql.NullString
		name        sql.NullString
		jobTitle    sql.NullString
		companyName sql.NullString
		nationality sql.NullString
		shortBio    sql.NullString
		longBio     sql.NullString
		picture     sql.NullString
		email       sql.NullString
		phone       sql.NullString
		socialLinks []byte
		status      string

		interestedIn, languages, expertise, keywords, memberships pq.StringArray
	)

	err := row.Scan(
		&p.ID, &userID, &name, &jobTitle, &companyName, &nationality,
		&shortBio, &longBio, &picture, &email, &phone, &socialLinks,
		&interestedIn, &languages, &expertise, &keywords, &memberships,
		&status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}

	p.UserID = userID.String
	p.Name = stringPtr(name)
	p.JobTitle = stringPtr(jobTitle)
	p.CompanyName = stringPtr(companyName)
	p.Nationality = stringPtr(nationality)
	p.ShortBio = stringPtr(shortBio)
	p.LongBio = stringPtr(longBio)
	p.ProfilePicture = stringPtr(picture)
	p.Email = stringPtr(email)
	p.Phone = stringPtr(phone)
	p.Status = Status(status)

	if len(socialLinks) > 0 {
		if err := json.Unmarshal(socialLinks, &p.SocialLinks); err != nil {
			return nil, fmt.Errorf("failed to decode social links for profile %s: %w", p.ID, err)
		}
	}

	p.InterestedIn = arrayOrEmpty(interestedIn)
	p.Languages = arrayOrEmpty(languages)
	p.AreasOfExpertise = arrayOrEmpty(expertise)
	p.Keywords = arrayOrEmpty(keywords)
	p.Memberships = arrayOrEmpty(memberships)
	return &p, nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// arrayOrEmpty coalesces nil to an empty slice; pq encodes nil as NULL.
func arrayOrEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
