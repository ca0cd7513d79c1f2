package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/courtside/ladder-system/db"
	"github.com/courtside/ladder-system/models"
	"github.com/courtside/ladder-system/repositories"
	"github.com/courtside/ladder-system/storage"
)

// maxOverlappingTournaments - политика анти-насыщения: не более трёх
// open/active турниров одного уровня в одной локации с пересекающимися датами.
const maxOverlappingTournaments = 3

const defaultPositionalCapacity = 16

type CreateTournamentInput struct {
	Name            string                  `json:"name"`
	Sport           models.Sport            `json:"sport"`
	Format          models.TournamentFormat `json:"tournament_format"`
	Type            models.TournamentType   `json:"tournament_type"`
	NTRPLevel       float64                 `json:"ntrp_level"`
	City            string                  `json:"city"`
	State           string                  `json:"state"`
	StartDate       time.Time               `json:"start_date"`
	EndDate         time.Time               `json:"end_date"`
	EntryFee        *float64                `json:"entry_fee,omitempty"`
	MaxParticipants *int                    `json:"max_participants,omitempty"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	UpdateTournamentStatus(ctx context.Context, id, currentPlayerID int, status models.TournamentStatus) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id, currentPlayerID int) error
	UploadLogo(ctx context.Context, tournamentID, currentPlayerID int, contentType string, file io.Reader) (*models.Tournament, error)
	InvitePlayer(ctx context.Context, tournamentID, currentPlayerID int, email string) error
	AutoUpdateTournamentStatusesByDates(ctx context.Context) error
}

type tournamentService struct {
	dbConn          *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	playerRepo      repositories.PlayerRepository
	uploader        storage.FileUploader
	emailService    *EmailService
	logger          *slog.Logger
}

func NewTournamentService(
	dbConn *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	playerRepo repositories.PlayerRepository,
	uploader storage.FileUploader,
	emailService *EmailService,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		dbConn:          dbConn,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		playerRepo:      playerRepo,
		uploader:        uploader,
		emailService:    emailService,
		logger:          logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	// Порядок проверок фиксирован: даты, дубликат, насыщение.
	if !input.EndDate.After(input.StartDate) {
		return nil, ErrTournamentInvalidDateRange
	}

	duplicates, err := s.tournamentRepo.CountByNameLevelLocation(ctx, input.Name, input.NTRPLevel, input.City, input.State)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate tournaments: %w", err)
	}
	if duplicates > 0 {
		return nil, ErrTournamentDuplicate
	}

	existing, err := s.tournamentRepo.ListOpenActiveByLocationLevel(ctx, input.City, input.State, input.NTRPLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to check for overlapping tournaments: %w", err)
	}
	overlapping := 0
	for _, t := range existing {
		if datesOverlap(input.StartDate, input.EndDate, t.StartDate, t.EndDate) {
			overlapping++
		}
	}
	if overlapping >= maxOverlappingTournaments {
		return nil, ErrTournamentCapacity
	}

	entryFee := 0.0
	if input.EntryFee != nil {
		entryFee = *input.EntryFee
	}

	maxParticipants := input.MaxParticipants
	if maxParticipants == nil && input.Type == models.TypePositional {
		capacity := defaultPositionalCapacity
		maxParticipants = &capacity
	}
	if maxParticipants != nil && *maxParticipants <= 0 {
		return nil, ErrTournamentInvalidCapacity
	}

	tournament := &models.Tournament{
		Name:            input.Name,
		Sport:           input.Sport,
		Format:          input.Format,
		Type:            input.Type,
		NTRPLevel:       input.NTRPLevel,
		City:            input.City,
		State:           input.State,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		EntryFee:        entryFee,
		Status:          models.StatusOpen,
		OrganizerID:     organizerID,
		MaxParticipants: maxParticipants,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentDuplicate
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return tournament, nil
}

// datesOverlap: newStart <= oldEnd AND newEnd >= oldStart.
func datesOverlap(newStart, newEnd, oldStart, oldEnd time.Time) bool {
	return !newStart.After(oldEnd) && !newEnd.Before(oldStart)
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := db.RetryRead(ctx, func(ctx context.Context) (*models.Tournament, error) {
		return s.tournamentRepo.GetByID(ctx, id)
	}, repositories.ErrTournamentNotFound)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	if tournament.LogoKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*tournament.LogoKey)
		tournament.LogoURL = &url
	}
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := db.RetryRead(ctx, func(ctx context.Context) ([]models.Tournament, error) {
		return s.tournamentRepo.List(ctx, filter)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for i := range tournaments {
		if tournaments[i].LogoKey != nil && s.uploader != nil {
			url := s.uploader.GetPublicURL(*tournaments[i].LogoKey)
			tournaments[i].LogoURL = &url
		}
	}
	return tournaments, nil
}

// validStatusTransitions: open -> active|cancelled, active -> completed|cancelled.
var validStatusTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.StatusOpen:   {models.StatusActive, models.StatusCancelled},
	models.StatusActive: {models.StatusCompleted, models.StatusCancelled},
}

func (s *tournamentService) UpdateTournamentStatus(ctx context.Context, id, currentPlayerID int, status models.TournamentStatus) (*models.Tournament, error) {
	switch status {
	case models.StatusOpen, models.StatusActive, models.StatusCompleted, models.StatusCancelled:
	default:
		return nil, ErrTournamentInvalidStatus
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	if err := s.requireOrganizerOrAdmin(ctx, tournament, currentPlayerID); err != nil {
		return nil, err
	}

	allowed := false
	for _, next := range validStatusTransitions[tournament.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, tournament.Status, status)
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, status); err != nil {
		return nil, fmt.Errorf("failed to update tournament status: %w", err)
	}
	tournament.Status = status
	return tournament, nil
}

// DeleteTournament удаляет турнир каскадно: матчи, участники, сам турнир.
// Доступно только администратору. Выполняется в одной транзакции.
func (s *tournamentService) DeleteTournament(ctx context.Context, id, currentPlayerID int) error {
	player, err := s.playerRepo.GetByID(ctx, currentPlayerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return ErrPlayerNotFound
		}
		return err
	}
	if player.Role != models.RoleAdmin {
		return ErrForbiddenOperation
	}

	if _, err := s.tournamentRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}

	tx, err := s.dbConn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cascade delete transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.matchRepo.DeleteByTournament(ctx, tx, id); err != nil {
		return err
	}
	if err := s.participantRepo.DeleteByTournament(ctx, tx, id); err != nil {
		return err
	}
	if err := s.tournamentRepo.Delete(ctx, tx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cascade delete: %w", err)
	}
	return nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, tournamentID, currentPlayerID int, contentType string, file io.Reader) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	if err := s.requireOrganizerOrAdmin(ctx, tournament, currentPlayerID); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tournaments/%d/logo", tournamentID)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload tournament logo: %w", err)
	}

	if err := s.tournamentRepo.UpdateLogoKey(ctx, tournamentID, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to persist tournament logo key: %w", err)
	}

	tournament.LogoKey = &result.Key
	tournament.LogoURL = &result.Location
	return tournament, nil
}

// InvitePlayer отправляет приглашение в турнир на указанный адрес.
// Письмо шлётся синхронно, но его доставка не влияет на состояние турнира.
func (s *tournamentService) InvitePlayer(ctx context.Context, tournamentID, currentPlayerID int, email string) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}

	if err := s.requireOrganizerOrAdmin(ctx, tournament, currentPlayerID); err != nil {
		return err
	}

	if s.emailService == nil {
		return nil
	}
	if err := s.emailService.SendTournamentInviteEmail(email, tournament); err != nil {
		return fmt.Errorf("failed to send tournament invite: %w", err)
	}
	return nil
}

// AutoUpdateTournamentStatusesByDates переводит open-турниры с наступившей
// датой старта в active, а active с прошедшей датой окончания - в completed.
// Вызывается планировщиком из main.
func (s *tournamentService) AutoUpdateTournamentStatusesByDates(ctx context.Context) error {
	now := time.Now()
	tournaments, err := s.tournamentRepo.GetTournamentsForAutoStatusUpdate(ctx, nil, now)
	if err != nil {
		return fmt.Errorf("failed to load tournaments for status sweep: %w", err)
	}

	for _, t := range tournaments {
		var next models.TournamentStatus
		switch {
		case t.Status == models.StatusOpen && !t.StartDate.After(now):
			next = models.StatusActive
		case t.Status == models.StatusActive && !t.EndDate.After(now):
			next = models.StatusCompleted
		default:
			continue
		}

		if err := s.tournamentRepo.UpdateStatus(ctx, nil, t.ID, next); err != nil {
			s.logger.Error("status sweep: failed to update tournament",
				slog.Int("tournament_id", t.ID),
				slog.String("next_status", string(next)),
				slog.Any("error", err))
			continue
		}
		s.logger.Info("status sweep: tournament status updated",
			slog.Int("tournament_id", t.ID),
			slog.String("from", string(t.Status)),
			slog.String("to", string(next)))
	}
	return nil
}

func (s *tournamentService) requireOrganizerOrAdmin(ctx context.Context, tournament *models.Tournament, playerID int) error {
	if tournament.OrganizerID == playerID {
		return nil
	}
	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return ErrForbiddenOperation
		}
		return err
	}
	if player.Role != models.RoleAdmin {
		return ErrForbiddenOperation
	}
	return nil
}
