package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/courtside/ladder-system/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentInvalidOrg   = errors.New("invalid organizer reference")
	ErrTournamentInUse        = errors.New("tournament is in use (participants/matches exist)")
	ErrTournamentNameConflict = errors.New("tournament name conflict for this location and level")
)

type ListTournamentsFilter struct {
	Sport       *models.Sport
	Type        *models.TournamentType
	Status      *models.TournamentStatus
	City        *string
	State       *string
	OrganizerID *int
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	UpdateLogoKey(ctx context.Context, tournamentID int, logoKey *string) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	// CountByNameLevelLocation считает турниры с полностью совпадающей
	// четвёркой (name, ntrp_level, city, state) для анти-дубликата.
	CountByNameLevelLocation(ctx context.Context, name string, ntrpLevel float64, city, state string) (int, error)
	// ListOpenActiveByLocationLevel возвращает open/active турниры той же
	// локации и уровня; пересечение дат считает сервис.
	ListOpenActiveByLocationLevel(ctx context.Context, city, state string, ntrpLevel float64) ([]models.Tournament, error)
	GetTournamentsForAutoStatusUpdate(ctx context.Context, exec SQLExecutor, currentTime time.Time) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, sport, tournament_format, tournament_type, ntrp_level,
	city, state, start_date, end_date, entry_fee, status, organizer_id,
	max_participants, created_at, logo_key`

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			name, sport, tournament_format, tournament_type, ntrp_level,
			city, state, start_date, end_date, entry_fee, status, organizer_id,
			max_participants, logo_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Sport, t.Format, t.Type, t.NTRPLevel,
		t.City, t.State, t.StartDate, t.EndDate, t.EntryFee, t.Status, t.OrganizerID,
		t.MaxParticipants, t.LogoKey,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Sport, &t.Format, &t.Type, &t.NTRPLevel,
		&t.City, &t.State, &t.StartDate, &t.EndDate, &t.EntryFee, &t.Status, &t.OrganizerID,
		&t.MaxParticipants, &t.CreatedAt, &t.LogoKey,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Sport != nil {
		query += fmt.Sprintf(" AND sport = $%d", argID)
		args = append(args, *filter.Sport)
		argID++
	}
	if filter.Type != nil {
		query += fmt.Sprintf(" AND tournament_type = $%d", argID)
		args = append(args, *filter.Type)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
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
	if filter.OrganizerID != nil {
		query += fmt.Sprintf(" AND organizer_id = $%d", argID)
		args = append(args, *filter.OrganizerID)
		argID++
	}

	query += " ORDER BY start_date DESC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTournamentRows(rows)
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	query := `
		UPDATE tournaments SET
			name = $1,
			sport = $2,
			tournament_format = $3,
			tournament_type = $4,
			ntrp_level = $5,
			city = $6,
			state = $7,
			start_date = $8,
			end_date = $9,
			entry_fee = $10,
			status = $11,
			max_participants = $12
		WHERE id = $13`

	result, err := r.db.ExecContext(ctx, query,
		t.Name, t.Sport, t.Format, t.Type, t.NTRPLevel,
		t.City, t.State, t.StartDate, t.EndDate, t.EntryFee, t.Status,
		t.MaxParticipants, t.ID,
	)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateLogoKey(ctx context.Context, tournamentID int, logoKey *string) error {
	query := `UPDATE tournaments SET logo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, logoKey, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to update tournament logo key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) CountByNameLevelLocation(ctx context.Context, name string, ntrpLevel float64, city, state string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tournaments
		WHERE name = $1 AND ntrp_level = $2 AND city = $3 AND state = $4`

	var count int
	if err := r.db.QueryRowContext(ctx, query, name, ntrpLevel, city, state).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tournaments by name/level/location: %w", err)
	}
	return count, nil
}

func (r *postgresTournamentRepository) ListOpenActiveByLocationLevel(ctx context.Context, city, state string, ntrpLevel float64) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE city = $1 AND state = $2 AND ntrp_level = $3 AND status IN ($4, $5)`

	rows, err := r.db.QueryContext(ctx, query, city, state, ntrpLevel, models.StatusOpen, models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query open/active tournaments for %s, %s: %w", city, state, err)
	}
	defer rows.Close()

	return scanTournamentRows(rows)
}

func (r *postgresTournamentRepository) GetTournamentsForAutoStatusUpdate(ctx context.Context, exec SQLExecutor, currentTime time.Time) ([]*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE (status = $1 AND start_date <= $3)
		   OR (status = $2 AND end_date <= $3)`

	rows, err := executor.QueryContext(ctx, query, models.StatusOpen, models.StatusActive, currentTime)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments for auto status update: %w", err)
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament for auto status update: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration for auto status update: %w", err)
	}
	return tournaments, nil
}

func scanTournament(rows *sql.Rows) (*models.Tournament, error) {
	var t models.Tournament
	err := rows.Scan(
		&t.ID, &t.Name, &t.Sport, &t.Format, &t.Type, &t.NTRPLevel,
		&t.City, &t.State, &t.StartDate, &t.EndDate, &t.EntryFee, &t.Status, &t.OrganizerID,
		&t.MaxParticipants, &t.CreatedAt, &t.LogoKey,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTournamentRows(rows *sql.Rows) ([]models.Tournament, error) {
	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, err
		}
		tournaments = append(tournaments, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "tournaments_name_level_location_key" {
				return ErrTournamentNameConflict
			}
		case "23503":
			switch pqErr.Constraint {
			case "tournaments_organizer_id_fkey":
				return ErrTournamentInvalidOrg
			default:
				// FK со стороны participants/matches при попытке удаления.
				return ErrTournamentInUse
			}
		}
	}
	return err
}
