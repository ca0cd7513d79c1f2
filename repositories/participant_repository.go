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
	ErrParticipantNotFound          = errors.New("participant not found")
	ErrParticipantConflict          = errors.New("participant conflict: player already joined this tournament")
	ErrParticipantPlayerInvalid     = errors.New("participant player conflict or invalid")
	ErrParticipantTournamentInvalid = errors.New("participant tournament conflict or invalid")
)

type ParticipantRepository interface {
	Create(ctx context.Context, p *models.Participant) error
	FindByID(ctx context.Context, id int) (*models.Participant, error)
	FindByPlayerAndTournament(ctx context.Context, playerID, tournamentID int) (*models.Participant, error)
	ListByTournament(ctx context.Context, tournamentID int, includePlayers bool) ([]*models.Participant, error)
	CountByTournament(ctx context.Context, tournamentID int) (int, error)
	// UpdateRankingFields перезаписывает поля, которыми управляет жизненный
	// цикл матча: позицию, очки, победы и поражения. Одна запись - один UPDATE.
	UpdateRankingFields(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	query := `
		INSERT INTO participants (tournament_id, player_id, current_position, initial_position, points, wins, losses)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		p.TournamentID, p.PlayerID, p.CurrentPosition, p.InitialPosition, p.Points, p.Wins, p.Losses,
	).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				if pqErr.Constraint == "participants_tournament_id_player_id_key" {
					return ErrParticipantConflict
				}
			case "23503": // foreign_key_violation
				switch pqErr.Constraint {
				case "participants_player_id_fkey":
					return ErrParticipantPlayerInvalid
				case "participants_tournament_id_fkey":
					return ErrParticipantTournamentInvalid
				}
			}
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

const participantColumns = `
	id, tournament_id, player_id, current_position, initial_position, points, wins, losses, created_at`

func (r *postgresParticipantRepository) FindByID(ctx context.Context, id int) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresParticipantRepository) FindByPlayerAndTournament(ctx context.Context, playerID, tournamentID int) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE player_id = $1 AND tournament_id = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, playerID, tournamentID))
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, tournamentID int, includePlayers bool) ([]*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE tournament_id = $1 ORDER BY current_position ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if scanErr := rows.Scan(
			&p.ID, &p.TournamentID, &p.PlayerID, &p.CurrentPosition, &p.InitialPosition,
			&p.Points, &p.Wins, &p.Losses, &p.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", scanErr)
		}
		participants = append(participants, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if includePlayers && len(participants) > 0 {
		if err := r.attachPlayers(ctx, participants); err != nil {
			return nil, err
		}
	}
	return participants, nil
}

func (r *postgresParticipantRepository) attachPlayers(ctx context.Context, participants []*models.Participant) error {
	ids := make([]int, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.PlayerID)
	}

	query := `
		SELECT id, first_name, last_name, email, role, ntrp_rating, created_at
		FROM players
		WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query players for participants: %w", err)
	}
	defer rows.Close()

	byID := make(map[int]*models.Player, len(ids))
	for rows.Next() {
		var pl models.Player
		if scanErr := rows.Scan(&pl.ID, &pl.FirstName, &pl.LastName, &pl.Email, &pl.Role, &pl.NTRPRating, &pl.CreatedAt); scanErr != nil {
			return fmt.Errorf("failed to scan player row: %w", scanErr)
		}
		byID[pl.ID] = &pl
	}
	if err = rows.Err(); err != nil {
		return err
	}

	for _, p := range participants {
		p.Player = byID[p.PlayerID]
	}
	return nil
}

func (r *postgresParticipantRepository) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participants WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresParticipantRepository) UpdateRankingFields(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE participants
		SET current_position = $1, points = $2, wins = $3, losses = $4
		WHERE id = $5`

	result, err := executor.ExecContext(ctx, query,
		p.CurrentPosition, p.Points, p.Wins, p.Losses, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update ranking fields for participant %d: %w", p.ID, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM participants WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete participants for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresParticipantRepository) scanOne(row *sql.Row) (*models.Participant, error) {
	p := &models.Participant{}
	err := row.Scan(
		&p.ID, &p.TournamentID, &p.PlayerID, &p.CurrentPosition, &p.InitialPosition,
		&p.Points, &p.Wins, &p.Losses, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return p, nil
}
