package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/courtside/ladder-system/db"
	"github.com/courtside/ladder-system/models"
	"github.com/courtside/ladder-system/repositories"
	"github.com/courtside/ladder-system/storage"
)

type CourtInput struct {
	Name      string              `json:"name"`
	Address   string              `json:"address"`
	City      string              `json:"city"`
	State     string              `json:"state"`
	Sport     models.Sport        `json:"sport"`
	Surface   models.CourtSurface `json:"surface"`
	HasLights bool                `json:"has_lights"`
}

type CourtService interface {
	CreateCourt(ctx context.Context, currentPlayerID int, input CourtInput) (*models.Court, error)
	GetCourtByID(ctx context.Context, id int) (*models.Court, error)
	ListCourts(ctx context.Context, filter repositories.ListCourtsFilter) ([]models.Court, error)
	UpdateCourt(ctx context.Context, id, currentPlayerID int, input CourtInput) (*models.Court, error)
	DeleteCourt(ctx context.Context, id, currentPlayerID int) error
	UploadPhoto(ctx context.Context, courtID, currentPlayerID int, contentType string, file io.Reader) (*models.Court, error)
}

type courtService struct {
	courtRepo  repositories.CourtRepository
	playerRepo repositories.PlayerRepository
	uploader   storage.FileUploader
}

func NewCourtService(
	courtRepo repositories.CourtRepository,
	playerRepo repositories.PlayerRepository,
	uploader storage.FileUploader,
) CourtService {
	return &courtService{
		courtRepo:  courtRepo,
		playerRepo: playerRepo,
		uploader:   uploader,
	}
}

func (s *courtService) CreateCourt(ctx context.Context, currentPlayerID int, input CourtInput) (*models.Court, error) {
	if err := s.requireAdmin(ctx, currentPlayerID); err != nil {
		return nil, err
	}

	court := &models.Court{
		Name:      input.Name,
		Address:   input.Address,
		City:      input.City,
		State:     input.State,
		Sport:     input.Sport,
		Surface:   input.Surface,
		HasLights: input.HasLights,
	}

	if err := s.courtRepo.Create(ctx, court); err != nil {
		if errors.Is(err, repositories.ErrCourtNameConflict) {
			return nil, ErrCourtNameConflict
		}
		return nil, fmt.Errorf("failed to create court: %w", err)
	}
	return court, nil
}

func (s *courtService) GetCourtByID(ctx context.Context, id int) (*models.Court, error) {
	court, err := s.courtRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCourtNotFound) {
			return nil, ErrCourtNotFound
		}
		return nil, err
	}
	s.attachPhotoURL(court)
	return court, nil
}

func (s *courtService) ListCourts(ctx context.Context, filter repositories.ListCourtsFilter) ([]models.Court, error) {
	courts, err := db.RetryRead(ctx, func(ctx context.Context) ([]models.Court, error) {
		return s.courtRepo.List(ctx, filter)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list courts: %w", err)
	}
	for i := range courts {
		s.attachPhotoURL(&courts[i])
	}
	return courts, nil
}

func (s *courtService) UpdateCourt(ctx context.Context, id, currentPlayerID int, input CourtInput) (*models.Court, error) {
	if err := s.requireAdmin(ctx, currentPlayerID); err != nil {
		return nil, err
	}

	court, err := s.courtRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCourtNotFound) {
			return nil, ErrCourtNotFound
		}
		return nil, err
	}

	court.Name = input.Name
	court.Address = input.Address
	court.City = input.City
	court.State = input.State
	court.Sport = input.Sport
	court.Surface = input.Surface
	court.HasLights = input.HasLights

	if err := s.courtRepo.Update(ctx, court); err != nil {
		return nil, fmt.Errorf("failed to update court %d: %w", id, err)
	}
	s.attachPhotoURL(court)
	return court, nil
}

func (s *courtService) DeleteCourt(ctx context.Context, id, currentPlayerID int) error {
	if err := s.requireAdmin(ctx, currentPlayerID); err != nil {
		return err
	}
	if err := s.courtRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrCourtNotFound) {
			return ErrCourtNotFound
		}
		return err
	}
	return nil
}

func (s *courtService) UploadPhoto(ctx context.Context, courtID, currentPlayerID int, contentType string, file io.Reader) (*models.Court, error) {
	if err := s.requireAdmin(ctx, currentPlayerID); err != nil {
		return nil, err
	}

	court, err := s.courtRepo.GetByID(ctx, courtID)
	if err != nil {
		if errors.Is(err, repositories.ErrCourtNotFound) {
			return nil, ErrCourtNotFound
		}
		return nil, err
	}

	key := fmt.Sprintf("courts/%d/photo", courtID)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload court photo: %w", err)
	}

	if err := s.courtRepo.UpdatePhotoKey(ctx, courtID, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to persist court photo key: %w", err)
	}

	court.PhotoKey = &result.Key
	court.PhotoURL = &result.Location
	return court, nil
}

func (s *courtService) attachPhotoURL(court *models.Court) {
	if court.PhotoKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*court.PhotoKey)
		court.PhotoURL = &url
	}
}

func (s *courtService) requireAdmin(ctx context.Context, playerID int) error {
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
