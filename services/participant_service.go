package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/courtside/ladder-system/db"
	"github.com/courtside/ladder-system/models"
	"github.com/courtside/ladder-system/repositories"
)

// maxNTRPGap - рекомендательный порог расхождения рейтинга игрока и уровня
// турнира. Превышение не запрещает участие, но требует явного подтверждения.
const maxNTRPGap = 0.5

type JoinTournamentInput struct {
	// ConfirmSkillGap подтверждает участие при расхождении рейтинга
	// более чем на maxNTRPGap.
	ConfirmSkillGap bool `json:"confirm_skill_gap"`
}

// ParticipantService инкапсулирует бизнес-логику состава турниров.
type ParticipantService interface {
	Join(ctx context.Context, tournamentID, playerID int, input JoinTournamentInput) (*models.Participant, error)
	GetParticipantByID(ctx context.Context, id int) (*models.Participant, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Participant, error)
}

type participantService struct {
	participantRepo repositories.ParticipantRepository
	tournamentRepo  repositories.TournamentRepository
	playerRepo      repositories.PlayerRepository
}

func NewParticipantService(
	participantRepo repositories.ParticipantRepository,
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
) ParticipantService {
	return &participantService{
		participantRepo: participantRepo,
		tournamentRepo:  tournamentRepo,
		playerRepo:      playerRepo,
	}
}

// Join регистрирует игрока в турнире. Позиция нового участника - размер
// состава плюс один; очки и счётчики побед обнуляются.
func (s *participantService) Join(ctx context.Context, tournamentID, playerID int, input JoinTournamentInput) (*models.Participant, error) {
	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to load player: %w", err)
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}

	if tournament.Status != models.StatusOpen && tournament.Status != models.StatusActive {
		return nil, ErrJoinNotOpen
	}

	// Проверка на повторную регистрацию (read-then-decide; гонка
	// перекрывается уникальным индексом на (tournament_id, player_id)).
	existing, err := s.participantRepo.FindByPlayerAndTournament(ctx, playerID, tournamentID)
	if err != nil && !errors.Is(err, repositories.ErrParticipantNotFound) {
		return nil, fmt.Errorf("failed to check existing registration: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyJoined
	}

	if math.Abs(player.NTRPRating-tournament.NTRPLevel) > maxNTRPGap && !input.ConfirmSkillGap {
		return nil, ErrSkillGapConfirmation
	}

	rosterSize, err := s.participantRepo.CountByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count roster: %w", err)
	}

	// Лимит действует только для позиционных турниров с конечной вместимостью.
	if tournament.IsPositional() && tournament.MaxParticipants != nil && rosterSize >= *tournament.MaxParticipants {
		return nil, ErrTournamentFull
	}

	participant := &models.Participant{
		TournamentID:    tournamentID,
		PlayerID:        playerID,
		CurrentPosition: rosterSize + 1,
		InitialPosition: rosterSize + 1,
		Points:          0,
		Wins:            0,
		Losses:          0,
	}

	if err := s.participantRepo.Create(ctx, participant); err != nil {
		if errors.Is(err, repositories.ErrParticipantConflict) {
			return nil, ErrAlreadyJoined
		}
		return nil, fmt.Errorf("failed to create participant: %w", err)
	}
	return participant, nil
}

func (s *participantService) GetParticipantByID(ctx context.Context, id int) (*models.Participant, error) {
	participant, err := s.participantRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return participant, nil
}

func (s *participantService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	participants, err := db.RetryRead(ctx, func(ctx context.Context) ([]*models.Participant, error) {
		return s.participantRepo.ListByTournament(ctx, tournamentID, true)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", tournamentID, err)
	}
	return participants, nil
}
