package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/courtside/ladder-system/models"
	"github.com/lib/pq"
)

var (
	ErrCourtNotFound     = errors.New("court not found")
	ErrCourtNameConflict = errors.New("court name already exists in this city")
)

type ListCourtsFilter struct {
	City  *string
	State *string
	Sport *models.Sport
}

type CourtRepository interface {
	Create(ctx context.Context, court *models.Court) error
	GetByID(ctx context.Context, id int) (*models.Court, error)
	List(ctx context.Context, filter ListCourtsFilter) ([]models.Court, error)
	ListByIDs(ctx context.Context, ids []int64) ([]models.Court, error)
	Update(ctx context.Context, court *models.Court) error
	UpdatePhotoKey(ctx context.Context, courtID int, photoKey *string) error
	Delete(ctx context.Context, id int) error
}

type postgresCourtRepository struct {
	db *sql.DB
}

func NewPostgresCourtRepository(db *sql.DB) CourtRepository {
	return &postgresCourtRepository{db: db}
}

const courtColumns = `id, name, address, city, state, sport, surface, has_lights, created_at, photo_key`

func (r *postgresCourtRepository) Create(ctx context.Context, c *models.Court) error {
	query := `
		INSERT INTO courts (name, address, city, state, sport, surface, has_lights, photo_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		c.Name, c.Address, c.City, c.State, c.Sport, c.Surface, c.HasLights, c.PhotoKey,
	).Scan(&c.ID, &c.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "courts_name_city_key" {
				return ErrCourtNameConflict
			}
		}
		return fmt.Errorf("failed to create court: %w", err)
	}
	return nil
}

func (r *postgresCourtRepository) GetByID(ctx context.Context, id int) (*models.Court, error) {
	query := `SELECT ` + courtColumns + ` FROM courts WHERE id = $1`

	c := &models.Court{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Address, &c.City, &c.State, &c.Sport, &c.Surface, &c.HasLights, &c.CreatedAt, &c.PhotoKey,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCourtNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *postgresCourtRepository) List(ctx context.Context, filter ListCourtsFilter) ([]models.Court, error) {
	query := `SELECT ` + courtColumns + ` FROM courts WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.City != nil {
		query += fmt.Sprintf(" AND city = $%d", argID)
		args = append(args, *filter.City)
		argID++
	}
	if filter.State != nil {
		query += fmt.Sprintf(" AND state = $%d", argID)
		args = append(args, *filter.State)
		argID++
	}
	if filter.Sport != nil {
		query += fmt.Sprintf(" AND sport = $%d", argID)
		args = append(args, *filter.Sport)
	}

	query += " ORDER BY city ASC, name ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCourtRows(rows)
}

func (r *postgresCourtRepository) ListByIDs(ctx context.Context, ids []int64) ([]models.Court, error) {
	if len(ids) == 0 {
		return []models.Court{}, nil
	}

	query := `SELECT ` + courtColumns + ` FROM courts WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query courts by ids: %w", err)
	}
	defer rows.Close()

	return scanCourtRows(rows)
}

func (r *postgresCourtRepository) Update(ctx context.Context, c *models.Court) error {
	query := `
		UPDATE courts SET
			name = $1, address = $2, city = $3, state = $4,
			sport = $5, surface = $6, has_lights = $7
		WHERE id = $8`

	result, err := r.db.ExecContext(ctx, query,
		c.Name, c.Address, c.City, c.State, c.Sport, c.Surface, c.HasLights, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update court %d: %w", c.ID, err)
	}
	return checkAffectedRows(result, ErrCourtNotFound)
}

func (r *postgresCourtRepository) UpdatePhotoKey(ctx context.Context, courtID int, photoKey *string) error {
	query := `UPDATE courts SET photo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, photoKey, courtID)
	if err != nil {
		return fmt.Errorf("failed to update court photo key: %w", err)
	}
	return checkAffectedRows(result, ErrCourtNotFound)
}

func (r *postgresCourtRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM courts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrCourtNotFound)
}

func scanCourtRows(rows *sql.Rows) ([]models.Court, error) {
	courts := make([]models.Court, 0)
	for rows.Next() {
		var c models.Court
		if scanErr := rows.Scan(
			&c.ID, &c.Name, &c.Address, &c.City, &c.State, &c.Sport, &c.Surface, &c.HasLights, &c.CreatedAt, &c.PhotoKey,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan court row: %w", scanErr)
		}
		courts = append(courts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return courts, nil
}
