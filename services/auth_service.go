package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/courtside/ladder-system/models"
	"github.com/courtside/ladder-system/repositories"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type RegisterInput struct {
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	NTRPRating float64 `json:"ntrp_rating"`
	City       *string `json:"city,omitempty"`
	State      *string `json:"state,omitempty"`
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.Player, error)
	Login(ctx context.Context, input LoginInput) (*models.Player, error)
	GetPlayerByID(ctx context.Context, id int) (*models.Player, error)
}

type authService struct {
	playerRepo repositories.PlayerRepository
}

func NewAuthService(playerRepo repositories.PlayerRepository) AuthService {
	return &authService{playerRepo: playerRepo}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.Player, error) {
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if !validNTRPRating(input.NTRPRating) {
		return nil, ErrInvalidNTRPRating
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	player := &models.Player{
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: string(hashedPassword),
		Role:         models.RolePlayer,
		NTRPRating:   input.NTRPRating,
		City:         input.City,
		State:        input.State,
	}

	if err := s.playerRepo.Create(ctx, player); err != nil {
		if errors.Is(err, repositories.ErrPlayerEmailConflict) {
			return nil, ErrPlayerEmailConflict
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	player.PasswordHash = ""
	return player, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.Player, error) {
	player, err := s.playerRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find player by email: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(player.PasswordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	player.PasswordHash = ""
	return player, nil
}

func (s *authService) GetPlayerByID(ctx context.Context, id int) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	player.PasswordHash = ""
	return player, nil
}

// validNTRPRating проверяет шкалу NTRP: 1.0-7.0 с шагом 0.5.
func validNTRPRating(rating float64) bool {
	if rating < 1.0 || rating > 7.0 {
		return false
	}
	scaled := rating * 2
	return math.Abs(scaled-math.Round(scaled)) < 1e-9
}
