package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/courtside/ladder-system/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchPlayerInvalid     = errors.New("match player conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.MatchStatus) ([]*models.Match, error)
	ListByPlayer(ctx context.Context, playerID int, statusFilter *models.MatchStatus) ([]*models.Match, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus, confirmedDate *time.Time) error
	CompleteWithScore(ctx context.Context, exec SQLExecutor, id int, winnerID int, score string, confirmed bool) error
	CompleteWithGameScores(ctx context.Context, exec SQLExecutor, id int, winnerID int, reporterID int, gameScores []models.GameScore) error
	SetConfirmed(ctx context.Context, exec SQLExecutor, id int, confirmedAt time.Time) error
	MarkRankingApplied(ctx context.Context, exec SQLExecutor, id int, appliedAt time.Time) error
	// CancelStaleProposals отменяет предложения, созданные раньше cutoff
	// либо с уже прошедшей предложенной датой. Возвращает число отменённых.
	CancelStaleProposals(ctx context.Context, exec SQLExecutor, cutoff, currentTime time.Time) (int, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, challenger_id, opponent_id, status, proposed_date,
	proposed_court_ids, challenger_position_before, opponent_position_before,
	winner_id, score, game_scores, reported_by, confirmed, confirmed_date, ranking_applied_at, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, m *models.Match) error {
	query := `
		INSERT INTO matches (
			tournament_id, challenger_id, opponent_id, status, proposed_date,
			proposed_court_ids, challenger_position_before, opponent_position_before, confirmed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		m.TournamentID, m.ChallengerID, m.OpponentID, m.Status, m.ProposedDate,
		pq.Array(m.ProposedCourtIDs), m.ChallengerPositionBefore, m.OpponentPositionBefore, m.Confirmed,
	).Scan(&m.ID, &m.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	m, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(len(args) + 1))
		args = append(args, *statusFilter)
	}
	queryBuilder.WriteString(" ORDER BY proposed_date ASC, id ASC")

	return r.queryMatches(ctx, queryBuilder.String(), args...)
}

func (r *postgresMatchRepository) ListByPlayer(ctx context.Context, playerID int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE (challenger_id = $1 OR opponent_id = $1)`)

	args := []interface{}{playerID}
	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(len(args) + 1))
		args = append(args, *statusFilter)
	}
	queryBuilder.WriteString(" ORDER BY proposed_date DESC, id DESC")

	return r.queryMatches(ctx, queryBuilder.String(), args...)
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus, confirmedDate *time.Time) error {
	executor := r.getExecutor(exec)
	query := `UPDATE matches SET status = $1, confirmed_date = COALESCE($2, confirmed_date) WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, status, confirmedDate, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CompleteWithScore(ctx context.Context, exec SQLExecutor, id int, winnerID int, score string, confirmed bool) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE matches
		SET status = $1, winner_id = $2, score = $3, confirmed = $4
		WHERE id = $5`

	result, err := executor.ExecContext(ctx, query, models.MatchStatusCompleted, winnerID, score, confirmed, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CompleteWithGameScores(ctx context.Context, exec SQLExecutor, id int, winnerID int, reporterID int, gameScores []models.GameScore) error {
	executor := r.getExecutor(exec)

	payload, err := json.Marshal(gameScores)
	if err != nil {
		return fmt.Errorf("failed to encode game scores for match %d: %w", id, err)
	}

	query := `
		UPDATE matches
		SET status = $1, winner_id = $2, game_scores = $3, reported_by = $4, confirmed = FALSE
		WHERE id = $5`

	result, err := executor.ExecContext(ctx, query, models.MatchStatusCompleted, winnerID, payload, reporterID, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SetConfirmed(ctx context.Context, exec SQLExecutor, id int, confirmedAt time.Time) error {
	executor := r.getExecutor(exec)
	query := `UPDATE matches SET confirmed = TRUE, confirmed_date = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, confirmedAt, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) MarkRankingApplied(ctx context.Context, exec SQLExecutor, id int, appliedAt time.Time) error {
	executor := r.getExecutor(exec)
	query := `UPDATE matches SET ranking_applied_at = $1 WHERE id = $2 AND ranking_applied_at IS NULL`
	_, err := executor.ExecContext(ctx, query, appliedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark ranking applied for match %d: %w", id, err)
	}
	// 0 строк означает, что рейтинг уже применён - не ошибка.
	return nil
}

func (r *postgresMatchRepository) CancelStaleProposals(ctx context.Context, exec SQLExecutor, cutoff, currentTime time.Time) (int, error) {
	executor := r.getExecutor(exec)
	query := `
		UPDATE matches
		SET status = $1
		WHERE status = $2 AND (created_at <= $3 OR proposed_date <= $4)`

	result, err := executor.ExecContext(ctx, query,
		models.MatchStatusCancelled, models.MatchStatusProposed, cutoff, currentTime,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel stale match proposals: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return int(rowsAffected), nil
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete matches for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	var courtIDs pq.Int64Array
	var gameScores []byte

	err := rowScanner.Scan(
		&m.ID, &m.TournamentID, &m.ChallengerID, &m.OpponentID, &m.Status, &m.ProposedDate,
		&courtIDs, &m.ChallengerPositionBefore, &m.OpponentPositionBefore,
		&m.WinnerID, &m.Score, &gameScores, &m.ReportedBy, &m.Confirmed, &m.ConfirmedDate, &m.RankingAppliedAt, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.ProposedCourtIDs = []int64(courtIDs)
	if len(gameScores) > 0 {
		if err := json.Unmarshal(gameScores, &m.GameScores); err != nil {
			return nil, fmt.Errorf("failed to decode game scores for match %d: %w", m.ID, err)
		}
	}
	return &m, nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
		switch pqErr.Constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_challenger_id_fkey", "matches_opponent_id_fkey", "matches_winner_id_fkey":
			return ErrMatchPlayerInvalid
		}
	}
	return err
}
