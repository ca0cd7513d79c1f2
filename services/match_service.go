package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/courtside/ladder-system/models"
	"github.com/courtside/ladder-system/repositories"
)

const (
	// Границы окна предложения матча: не раньше чем через час и не позже
	// чем через 30 дней.
	minProposalLead   = time.Hour
	maxProposalWindow = 30 * 24 * time.Hour

	// Предел дальности вызова в позиционной лестнице.
	maxChallengeRange = 3

	// Очки points_robin: проигравший тоже получает очки за участие.
	winnerPoints = 20
	loserPoints  = 10
)

type ProposeMatchInput struct {
	OpponentID        int       `json:"opponent_id"`
	ProposedDate      time.Time `json:"proposed_date"`
	PreferredCourtIDs []int64   `json:"preferred_court_ids,omitempty"`
}

type ReportScoreInput struct {
	WinnerID int    `json:"winner_id"`
	Score    string `json:"score"`
}

// Broadcaster рассылает событие всем подписчикам комнаты турнира.
type Broadcaster interface {
	BroadcastEvent(roomID, eventType string, payload interface{})
}

// Tx - транзакция, в которой выполняются завершение матча и обновление
// записей участников.
type Tx interface {
	repositories.SQLExecutor
	Commit() error
	Rollback() error
}

// TxBeginner открывает транзакции. Абстракция над *sql.DB, чтобы
// транзакционный слой можно было подменить в тестах.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
}

type sqlTxBeginner struct {
	db *sql.DB
}

// NewSQLTxBeginner оборачивает *sql.DB в TxBeginner.
func NewSQLTxBeginner(db *sql.DB) TxBeginner {
	return sqlTxBeginner{db: db}
}

func (b sqlTxBeginner) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	return b.db.BeginTx(ctx, opts)
}

type MatchService interface {
	Propose(ctx context.Context, tournamentID, challengerPlayerID int, input ProposeMatchInput) (*models.Match, error)
	Respond(ctx context.Context, matchID, responderPlayerID int, decision string) (*models.Match, error)
	ReportScore(ctx context.Context, matchID, reporterPlayerID int, input ReportScoreInput) (*models.Match, error)
	ReportGameScores(ctx context.Context, matchID, reporterPlayerID int, gameScores []models.GameScore) (*models.Match, error)
	ConfirmResult(ctx context.Context, matchID, confirmerPlayerID int) (*models.Match, error)
	GetMatchByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, status *models.MatchStatus) ([]*models.Match, error)
	ListByPlayer(ctx context.Context, playerID int, status *models.MatchStatus) ([]*models.Match, error)
	ExpireStaleProposals(ctx context.Context) (int, error)
}

type matchService struct {
	db              TxBeginner
	matchRepo       repositories.MatchRepository
	participantRepo repositories.ParticipantRepository
	tournamentRepo  repositories.TournamentRepository
	playerRepo      repositories.PlayerRepository
	courtRepo       repositories.CourtRepository
	emailService    *EmailService
	hub             Broadcaster
	challengeTTL    time.Duration
}

func NewMatchService(
	db TxBeginner,
	matchRepo repositories.MatchRepository,
	participantRepo repositories.ParticipantRepository,
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	courtRepo repositories.CourtRepository,
	emailService *EmailService,
	hub Broadcaster,
	challengeTTL time.Duration,
) MatchService {
	return &matchService{
		db:              db,
		matchRepo:       matchRepo,
		participantRepo: participantRepo,
		tournamentRepo:  tournamentRepo,
		playerRepo:      playerRepo,
		courtRepo:       courtRepo,
		emailService:    emailService,
		hub:             hub,
		challengeTTL:    challengeTTL,
	}
}

// Propose создаёт вызов. Позиции обоих участников снапшотятся на момент
// предложения: позиционный своп при завершении считается именно от них.
func (s *matchService) Propose(ctx context.Context, tournamentID, challengerPlayerID int, input ProposeMatchInput) (*models.Match, error) {
	if input.OpponentID == challengerPlayerID {
		return nil, ErrSelfChallenge
	}

	now := time.Now()
	if input.ProposedDate.Before(now.Add(minProposalLead)) {
		return nil, ErrProposedDateTooSoon
	}
	if input.ProposedDate.After(now.Add(maxProposalWindow)) {
		return nil, ErrProposedDateTooFar
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}

	challenger, err := s.participantRepo.FindByPlayerAndTournament(ctx, challengerPlayerID, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to load challenger registration: %w", err)
	}
	opponent, err := s.participantRepo.FindByPlayerAndTournament(ctx, input.OpponentID, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to load opponent registration: %w", err)
	}

	// В позиционной лестнице вызвать можно только того, кто стоит выше
	// на 1-3 позиции; в points_robin ограничений нет.
	if tournament.IsPositional() {
		diff := challenger.CurrentPosition - opponent.CurrentPosition
		if diff <= 0 || diff > maxChallengeRange {
			return nil, ErrOpponentNotEligible
		}
	}

	if len(input.PreferredCourtIDs) > 0 {
		courts, err := s.courtRepo.ListByIDs(ctx, input.PreferredCourtIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to validate preferred courts: %w", err)
		}
		if len(courts) != len(input.PreferredCourtIDs) {
			return nil, ErrCourtNotFound
		}
	}

	challengerPos := challenger.CurrentPosition
	opponentPos := opponent.CurrentPosition

	match := &models.Match{
		TournamentID:             tournamentID,
		ChallengerID:             challengerPlayerID,
		OpponentID:               input.OpponentID,
		Status:                   models.MatchStatusProposed,
		ProposedDate:             input.ProposedDate,
		ProposedCourtIDs:         input.PreferredCourtIDs,
		ChallengerPositionBefore: &challengerPos,
		OpponentPositionBefore:   &opponentPos,
	}

	if err := s.matchRepo.Create(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to create match proposal: %w", err)
	}

	s.notifyChallengeProposed(tournament, match)
	s.broadcast(tournamentID, "MATCH_PROPOSED", match)
	return match, nil
}

// Respond принимает решение вызванного игрока: accept или decline.
func (s *matchService) Respond(ctx context.Context, matchID, responderPlayerID int, decision string) (*models.Match, error) {
	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if match.Status != models.MatchStatusProposed {
		return nil, ErrMatchNotProposed
	}
	if responderPlayerID != match.OpponentID {
		return nil, ErrNotChallengedPlayer
	}

	switch decision {
	case "accept":
		confirmed := match.ProposedDate
		if err := s.matchRepo.UpdateStatus(ctx, nil, matchID, models.MatchStatusAccepted, &confirmed); err != nil {
			return nil, fmt.Errorf("failed to accept match: %w", err)
		}
		match.Status = models.MatchStatusAccepted
		match.ConfirmedDate = &confirmed
	case "decline":
		if err := s.matchRepo.UpdateStatus(ctx, nil, matchID, models.MatchStatusCancelled, nil); err != nil {
			return nil, fmt.Errorf("failed to decline match: %w", err)
		}
		match.Status = models.MatchStatusCancelled
	default:
		return nil, ErrInvalidDecision
	}

	s.broadcast(match.TournamentID, "MATCH_UPDATED", match)
	return match, nil
}

// ReportScore завершает принятый матч и применяет обновление рейтинга.
// Завершение матча и записи участников выполняются в одной транзакции;
// повторное применение по уже обработанному матчу - no-op.
func (s *matchService) ReportScore(ctx context.Context, matchID, reporterPlayerID int, input ReportScoreInput) (*models.Match, error) {
	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if match.Status != models.MatchStatusAccepted {
		return nil, ErrMatchNotAccepted
	}
	if !match.HasPlayer(reporterPlayerID) {
		return nil, ErrNotMatchParticipant
	}
	if !match.HasPlayer(input.WinnerID) {
		return nil, ErrInvalidWinner
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin score report transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.matchRepo.CompleteWithScore(ctx, tx, matchID, input.WinnerID, input.Score, true); err != nil {
		return nil, fmt.Errorf("failed to complete match: %w", err)
	}
	if err := s.applyRankingUpdate(ctx, tx, tournament, match, input.WinnerID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit score report: %w", err)
	}

	match.Status = models.MatchStatusCompleted
	match.WinnerID = &input.WinnerID
	match.Score = &input.Score
	match.Confirmed = true

	s.broadcast(match.TournamentID, "MATCH_COMPLETED", match)
	s.broadcast(match.TournamentID, "STANDINGS_UPDATED", map[string]int{"tournament_id": match.TournamentID})
	return match, nil
}

// ReportGameScores - погеймовый репортинг для парного round-robin варианта:
// победитель определяется большинством геймов, результат помечается
// неподтверждённым и ждёт подтверждения второй стороной. Рейтинг
// применяется только после подтверждения.
func (s *matchService) ReportGameScores(ctx context.Context, matchID, reporterPlayerID int, gameScores []models.GameScore) (*models.Match, error) {
	if len(gameScores) == 0 {
		return nil, ErrNoGameScores
	}

	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if match.Status != models.MatchStatusAccepted {
		return nil, ErrMatchNotAccepted
	}
	if !match.HasPlayer(reporterPlayerID) {
		return nil, ErrNotMatchParticipant
	}

	team1Games, team2Games := 0, 0
	for _, g := range gameScores {
		if g.Team1Score > g.Team2Score {
			team1Games++
		} else if g.Team2Score > g.Team1Score {
			team2Games++
		}
	}

	var winnerID int
	switch {
	case team1Games > team2Games:
		winnerID = match.ChallengerID
	case team2Games > team1Games:
		winnerID = match.OpponentID
	default:
		return nil, ErrTiedGameScores
	}

	if err := s.matchRepo.CompleteWithGameScores(ctx, nil, matchID, winnerID, reporterPlayerID, gameScores); err != nil {
		return nil, fmt.Errorf("failed to record game scores: %w", err)
	}

	match.Status = models.MatchStatusCompleted
	match.WinnerID = &winnerID
	match.GameScores = gameScores
	match.ReportedBy = &reporterPlayerID
	match.Confirmed = false

	s.broadcast(match.TournamentID, "MATCH_UPDATED", match)
	return match, nil
}

// ConfirmResult подтверждает погеймовый результат второй стороной и
// применяет обновление рейтинга. Тот, кто внёс результат, подтвердить
// его не может.
func (s *matchService) ConfirmResult(ctx context.Context, matchID, confirmerPlayerID int) (*models.Match, error) {
	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if match.Status != models.MatchStatusCompleted || match.WinnerID == nil {
		return nil, ErrMatchNotAwaitingConfirm
	}
	if match.Confirmed {
		return nil, ErrMatchAlreadyConfirmed
	}
	if !match.HasPlayer(confirmerPlayerID) {
		return nil, ErrNotMatchParticipant
	}
	if match.ReportedBy != nil && confirmerPlayerID == *match.ReportedBy {
		return nil, ErrSelfConfirmation
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}

	now := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin confirmation transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.matchRepo.SetConfirmed(ctx, tx, matchID, now); err != nil {
		return nil, fmt.Errorf("failed to confirm match result: %w", err)
	}
	if err := s.applyRankingUpdate(ctx, tx, tournament, match, *match.WinnerID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit confirmation: %w", err)
	}

	match.Confirmed = true
	match.ConfirmedDate = &now

	s.broadcast(match.TournamentID, "MATCH_COMPLETED", match)
	s.broadcast(match.TournamentID, "STANDINGS_UPDATED", map[string]int{"tournament_id": match.TournamentID})
	return match, nil
}

// applyRankingUpdate - единственное место, где матч меняет записи
// участников. Идемпотентность обеспечивается маркером ranking_applied_at на
// матче: уже обработанный матч пропускается, поэтому операцию безопасно
// повторять после частичного сбоя.
func (s *matchService) applyRankingUpdate(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, match *models.Match, winnerID int) error {
	if match.RankingAppliedAt != nil {
		return nil
	}

	challenger, err := s.participantRepo.FindByPlayerAndTournament(ctx, match.ChallengerID, match.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to load challenger for ranking update: %w", err)
	}
	opponent, err := s.participantRepo.FindByPlayerAndTournament(ctx, match.OpponentID, match.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to load opponent for ranking update: %w", err)
	}

	challengerWon := winnerID == match.ChallengerID

	switch tournament.Type {
	case models.TypePointsRobin:
		if challengerWon {
			challenger.Points += winnerPoints
			challenger.Wins++
			opponent.Points += loserPoints
			opponent.Losses++
		} else {
			opponent.Points += winnerPoints
			opponent.Wins++
			challenger.Points += loserPoints
			challenger.Losses++
		}

	case models.TypePositional:
		if challengerWon {
			challenger.Wins++
			opponent.Losses++
			// Своп считается от позиций на момент вызова: успешный вызов
			// снизу вверх меняет стороны местами, даже если позиции
			// успели измениться.
			if match.ChallengerPositionBefore != nil && match.OpponentPositionBefore != nil &&
				*match.ChallengerPositionBefore > *match.OpponentPositionBefore {
				challenger.CurrentPosition = *match.OpponentPositionBefore
				opponent.CurrentPosition = *match.ChallengerPositionBefore
			}
		} else {
			// Успешная защита: позиции не меняются.
			opponent.Wins++
			challenger.Losses++
		}

	default:
		return fmt.Errorf("%w: unknown tournament type %q", ErrValidationFailed, tournament.Type)
	}

	if err := s.participantRepo.UpdateRankingFields(ctx, exec, challenger); err != nil {
		return fmt.Errorf("failed to update challenger ranking: %w", err)
	}
	if err := s.participantRepo.UpdateRankingFields(ctx, exec, opponent); err != nil {
		return fmt.Errorf("failed to update opponent ranking: %w", err)
	}
	if err := s.matchRepo.MarkRankingApplied(ctx, exec, match.ID, time.Now()); err != nil {
		return err
	}
	return nil
}

func (s *matchService) GetMatchByID(ctx context.Context, id int) (*models.Match, error) {
	return s.getMatch(ctx, id)
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int, status *models.MatchStatus) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}
	return matches, nil
}

func (s *matchService) ListByPlayer(ctx context.Context, playerID int, status *models.MatchStatus) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByPlayer(ctx, playerID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for player %d: %w", playerID, err)
	}
	return matches, nil
}

// ExpireStaleProposals отменяет вызовы, которые провисели без ответа дольше
// challengeTTL либо чья предложенная дата уже прошла. Вызывается планировщиком.
func (s *matchService) ExpireStaleProposals(ctx context.Context) (int, error) {
	now := time.Now()
	return s.matchRepo.CancelStaleProposals(ctx, nil, now.Add(-s.challengeTTL), now)
}

func (s *matchService) getMatch(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) broadcast(tournamentID int, eventType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastEvent("tournament_"+strconv.Itoa(tournamentID), eventType, payload)
}

// notifyChallengeProposed шлёт письмо вызванному игроку. Отправка -
// fire-and-forget: ошибка логируется и не влияет на результат операции.
func (s *matchService) notifyChallengeProposed(tournament *models.Tournament, match *models.Match) {
	if s.emailService == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		opponent, err := s.playerRepo.GetByID(ctx, match.OpponentID)
		if err != nil {
			log.Printf("challenge email: failed to load opponent %d: %v", match.OpponentID, err)
			return
		}
		challenger, err := s.playerRepo.GetByID(ctx, match.ChallengerID)
		if err != nil {
			log.Printf("challenge email: failed to load challenger %d: %v", match.ChallengerID, err)
			return
		}
		if err := s.emailService.SendChallengeEmail(opponent.Email, challenger, tournament, match); err != nil {
			log.Printf("challenge email: failed to send to %s: %v", opponent.Email, err)
		}
	}()
}
