package registrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/registration-service/internal/models"
)

const registrationColumns = `id, user_id, event_id, name, email, phone, password, registration_status, created_at`

// Repository is the PostgreSQL Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindByID returns a registration by ID.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Registration, error) {
	q := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	return scanOne(r.pool.QueryRow(ctx, q, id))
}

// FindByEventAndUser returns the oldest registration linking user to event.
func (r *Repository) FindByEventAndUser(ctx context.Context, eventID, userID int64) (*models.Registration, error) {
	q := `SELECT ` + registrationColumns + ` FROM registrations
		WHERE event_id = $1 AND user_id = $2
		ORDER BY created_at ASC, id ASC LIMIT 1`
	return scanOne(r.pool.QueryRow(ctx, q, eventID, userID))
}

// FindEarliestByStatus returns the oldest registration in status, optionally within one event.
func (r *Repository) FindEarliestByStatus(ctx context.Context, status models.Status, eventID *int64) (*models.Registration, error) {
	q := `SELECT ` + registrationColumns + ` FROM registrations
		WHERE registration_status = $1 AND ($2::BIGINT IS NULL OR event_id = $2)
		ORDER BY created_at ASC, id ASC LIMIT 1`
	return scanOne(r.pool.QueryRow(ctx, q, string(status), eventID))
}

// CountByUser counts all registrations of a user.
func (r *Repository) CountByUser(ctx context.Context, userID int64) (int, error) {
	const q = `SELECT COUNT(*) FROM registrations WHERE user_id = $1`
	var n int
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count by user: %w", err)
	}
	return n, nil
}

// CountByEventAndStatuses counts an event's registrations in any of statuses.
func (r *Repository) CountByEventAndStatuses(ctx context.Context, eventID int64, statuses []models.Status) (int, error) {
	const q = `SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND registration_status = ANY($2)`
	var n int
	if err := r.pool.QueryRow(ctx, q, eventID, statusStrings(statuses)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count by event and statuses: %w", err)
	}
	return n, nil
}

// ListByEvent returns one page of an event's registrations.
func (r *Repository) ListByEvent(ctx context.Context, eventID int64, page Page) ([]models.Registration, error) {
	q := `SELECT ` + registrationColumns + ` FROM registrations
		WHERE event_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, eventID, page.Size, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list by event: %w", err)
	}
	return scanAll(rows)
}

// ListByEventAndStatuses returns an event's registrations in any of statuses.
func (r *Repository) ListByEventAndStatuses(ctx context.Context, eventID int64, statuses []models.Status) ([]models.Registration, error) {
	q := `SELECT ` + registrationColumns + ` FROM registrations
		WHERE event_id = $1 AND registration_status = ANY($2)
		ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, q, eventID, statusStrings(statuses))
	if err != nil {
		return nil, fmt.Errorf("list by event and statuses: %w", err)
	}
	return scanAll(rows)
}

// CountGroupedByStatus counts an event's registrations per status.
func (r *Repository) CountGroupedByStatus(ctx context.Context, eventID int64) (map[models.Status]int64, error) {
	const q = `SELECT registration_status, COUNT(*) FROM registrations WHERE event_id = $1 GROUP BY registration_status`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, fmt.Errorf("count grouped by status: %w", err)
	}
	defer rows.Close()
	out := make(map[models.Status]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[models.Status(status)] = n
	}
	return out, rows.Err()
}

// Save inserts a new registration or updates the mutable columns of an existing one.
func (r *Repository) Save(ctx context.Context, reg *models.Registration) error {
	if reg.ID == 0 {
		const q = `INSERT INTO registrations (user_id, event_id, name, email, phone, password, registration_status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`
		err := r.pool.QueryRow(ctx, q, reg.UserID, reg.EventID, reg.Name, reg.Email, reg.Phone, reg.Secret, string(reg.Status), reg.CreatedAt).
			Scan(&reg.ID)
		if err != nil {
			return fmt.Errorf("insert registration: %w", err)
		}
		return nil
	}
	const q = `UPDATE registrations SET user_id = $2, name = $3, email = $4, phone = $5, registration_status = $6, updated_at = NOW()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, reg.ID, reg.UserID, reg.Name, reg.Email, reg.Phone, string(reg.Status))
	if err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update registration %d: %w", reg.ID, pgx.ErrNoRows)
	}
	return nil
}

// DeleteByID removes a registration. Deleting a missing row is not an error.
func (r *Repository) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM registrations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	return nil
}

func scanOne(row pgx.Row) (*models.Registration, error) {
	var reg models.Registration
	var status string
	err := row.Scan(&reg.ID, &reg.UserID, &reg.EventID, &reg.Name, &reg.Email, &reg.Phone, &reg.Secret, &status, &reg.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	reg.Status = models.Status(status)
	return &reg, nil
}

func scanAll(rows pgx.Rows) ([]models.Registration, error) {
	defer rows.Close()
	var list []models.Registration
	for rows.Next() {
		var reg models.Registration
		var status string
		if err := rows.Scan(&reg.ID, &reg.UserID, &reg.EventID, &reg.Name, &reg.Email, &reg.Phone, &reg.Secret, &status, &reg.CreatedAt); err != nil {
			return nil, err
		}
		reg.Status = models.Status(status)
		list = append(list, reg)
	}
	return list, rows.Err()
}

func statusStrings(statuses []models.Status) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}
