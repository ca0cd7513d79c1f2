package services

import (
	"context"
	"testing"

	"github.com/courtside/ladder-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegisterInput() RegisterInput {
	return RegisterInput{
		FirstName:  "Rafael",
		LastName:   "Nadal",
		Email:      "Rafa@Example.com",
		Password:   "topspin-heavy",
		NTRPRating: 4.5,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := NewAuthService(newFakePlayerRepo())

	player, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)
	assert.Equal(t, "rafa@example.com", player.Email)
	assert.Equal(t, models.RolePlayer, player.Role)
	assert.Empty(t, player.PasswordHash)

	logged, err := svc.Login(context.Background(), LoginInput{Email: "rafa@example.com", Password: "topspin-heavy"})
	require.NoError(t, err)
	assert.Equal(t, player.ID, logged.ID)

	_, err = svc.Login(context.Background(), LoginInput{Email: "rafa@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := NewAuthService(newFakePlayerRepo())

	input := validRegisterInput()
	input.Password = "short"
	_, err := svc.Register(context.Background(), input)
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestRegisterValidatesNTRPRating(t *testing.T) {
	svc := NewAuthService(newFakePlayerRepo())

	for _, rating := range []float64{0.5, 7.5, 4.3} {
		input := validRegisterInput()
		input.NTRPRating = rating
		_, err := svc.Register(context.Background(), input)
		assert.ErrorIs(t, err, ErrInvalidNTRPRating, "rating %v", rating)
	}

	for _, rating := range []float64{1.0, 3.5, 7.0} {
		input := validRegisterInput()
		input.Email = "unique+" + input.Email
		input.NTRPRating = rating
		svc := NewAuthService(newFakePlayerRepo())
		_, err := svc.Register(context.Background(), input)
		assert.NoError(t, err, "rating %v", rating)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := NewAuthService(newFakePlayerRepo())

	_, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), validRegisterInput())
	assert.ErrorIs(t, err, ErrPlayerEmailConflict)
}
