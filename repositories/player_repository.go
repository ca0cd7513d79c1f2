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
	ErrPlayerNotFound      = errors.New("player not found")
	ErrPlayerEmailConflict = errors.New("player email already registered")
)

type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	GetByID(ctx context.Context, id int) (*models.Player, error)
	GetByEmail(ctx context.Context, email string) (*models.Player, error)
	Update(ctx context.Context, player *models.Player) error
	UpdateRole(ctx context.Context, id int, role models.PlayerRole) error
	ListByIDs(ctx context.Context, ids []int) ([]*models.Player, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) Create(ctx context.Context, p *models.Player) error {
	query := `
		INSERT INTO players (first_name, last_name, email, password_hash, role, ntrp_rating, city, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		p.FirstName, p.LastName, p.Email, p.PasswordHash, p.Role, p.NTRPRating, p.City, p.State,
	).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "players_email_key" {
				return ErrPlayerEmailConflict
			}
		}
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	query := `
		SELECT id, first_name, last_name, email, password_hash, role, ntrp_rating, city, state, created_at
		FROM players
		WHERE id = $1`

	return r.scanPlayer(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresPlayerRepository) GetByEmail(ctx context.Context, email string) (*models.Player, error) {
	query := `
		SELECT id, first_name, last_name, email, password_hash, role, ntrp_rating, city, state, created_at
		FROM players
		WHERE email = $1`

	return r.scanPlayer(r.db.QueryRowContext(ctx, query, email))
}

func (r *postgresPlayerRepository) Update(ctx context.Context, p *models.Player) error {
	query := `
		UPDATE players SET
			first_name = $1,
			last_name = $2,
			ntrp_rating = $3,
			city = $4,
			state = $5
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		p.FirstName, p.LastName, p.NTRPRating, p.City, p.State, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update player %d: %w", p.ID, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) UpdateRole(ctx context.Context, id int, role models.PlayerRole) error {
	query := `UPDATE players SET role = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, role, id)
	if err != nil {
		return fmt.Errorf("failed to update player role: %w", err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) ListByIDs(ctx context.Context, ids []int) ([]*models.Player, error) {
	if len(ids) == 0 {
		return []*models.Player{}, nil
	}

	query := `
		SELECT id, first_name, last_name, email, password_hash, role, ntrp_rating, city, state, created_at
		FROM players
		WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query players by ids: %w", err)
	}
	defer rows.Close()

	players := make([]*models.Player, 0, len(ids))
	for rows.Next() {
		var p models.Player
		if scanErr := rows.Scan(
			&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.PasswordHash,
			&p.Role, &p.NTRPRating, &p.City, &p.State, &p.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", scanErr)
		}
		players = append(players, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return players, nil
}

func (r *postgresPlayerRepository) scanPlayer(row *sql.Row) (*models.Player, error) {
	p := &models.Player{}
	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.PasswordHash,
		&p.Role, &p.NTRPRating, &p.City, &p.State, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return p, nil
}
