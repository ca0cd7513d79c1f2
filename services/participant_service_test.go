package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/courtside/ladder-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type participantServiceFixture struct {
	svc             ParticipantService
	playerRepo      *fakePlayerRepo
	tournamentRepo  *fakeTournamentRepo
	participantRepo *fakeParticipantRepo
	tournament      *models.Tournament
}

func newParticipantServiceFixture(t *testing.T) *participantServiceFixture {
	t.Helper()

	playerRepo := newFakePlayerRepo()
	tournamentRepo := newFakeTournamentRepo()
	participantRepo := newFakeParticipantRepo()

	capacity := 3
	tournament := &models.Tournament{
		Name:            "Zilker Ladder",
		Sport:           models.SportTennis,
		Format:          models.FormatSingles,
		Type:            models.TypePositional,
		NTRPLevel:       4.0,
		City:            "Austin",
		State:           "TX",
		StartDate:       time.Now().Add(24 * time.Hour),
		EndDate:         time.Now().Add(30 * 24 * time.Hour),
		Status:          models.StatusOpen,
		MaxParticipants: &capacity,
	}
	require.NoError(t, tournamentRepo.Create(context.Background(), tournament))

	return &participantServiceFixture{
		svc:             NewParticipantService(participantRepo, tournamentRepo, playerRepo),
		playerRepo:      playerRepo,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		tournament:      tournament,
	}
}

func (f *participantServiceFixture) addPlayer(t *testing.T, rating float64) *models.Player {
	t.Helper()
	p := &models.Player{
		FirstName:  "Test",
		LastName:   "Player",
		Email:      fmt.Sprintf("player%d@example.com", len(f.playerRepo.players)+1),
		Role:       models.RolePlayer,
		NTRPRating: rating,
	}
	require.NoError(t, f.playerRepo.Create(context.Background(), p))
	return p
}

func TestJoinAssignsNextPosition(t *testing.T) {
	f := newParticipantServiceFixture(t)
	first := f.addPlayer(t, 4.0)
	second := f.addPlayer(t, 4.0)

	p1, err := f.svc.Join(context.Background(), f.tournament.ID, first.ID, JoinTournamentInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, p1.CurrentPosition)
	assert.Equal(t, 1, p1.InitialPosition)
	assert.Zero(t, p1.Points)

	p2, err := f.svc.Join(context.Background(), f.tournament.ID, second.ID, JoinTournamentInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, p2.CurrentPosition)
}

func TestJoinRejectsDuplicateRegistration(t *testing.T) {
	f := newParticipantServiceFixture(t)
	player := f.addPlayer(t, 4.0)

	_, err := f.svc.Join(context.Background(), f.tournament.ID, player.ID, JoinTournamentInput{})
	require.NoError(t, err)

	_, err = f.svc.Join(context.Background(), f.tournament.ID, player.ID, JoinTournamentInput{})
	assert.ErrorIs(t, err, ErrAlreadyJoined)
}

func TestJoinSkillGapRequiresConfirmation(t *testing.T) {
	f := newParticipantServiceFixture(t)
	// Уровень турнира 4.0, рейтинг игрока 5.0: расхождение больше 0.5.
	player := f.addPlayer(t, 5.0)

	_, err := f.svc.Join(context.Background(), f.tournament.ID, player.ID, JoinTournamentInput{})
	assert.ErrorIs(t, err, ErrSkillGapConfirmation)

	p, err := f.svc.Join(context.Background(), f.tournament.ID, player.ID, JoinTournamentInput{ConfirmSkillGap: true})
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentPosition)
}

func TestJoinWithinGapNeedsNoConfirmation(t *testing.T) {
	f := newParticipantServiceFixture(t)
	player := f.addPlayer(t, 4.5)

	_, err := f.svc.Join(context.Background(), f.tournament.ID, player.ID, JoinTournamentInput{})
	assert.NoError(t, err)
}

func TestJoinEnforcesPositionalCapacity(t *testing.T) {
	f := newParticipantServiceFixture(t)
	for i := 0; i < 3; i++ {
		player := f.addPlayer(t, 4.0)
		_, err := f.svc.Join(context.Background(), f.tournament.ID, player.ID, JoinTournamentInput{})
		require.NoError(t, err)
	}

	extra := f.addPlayer(t, 4.0)
	_, err := f.svc.Join(context.Background(), f.tournament.ID, extra.ID, JoinTournamentInput{})
	assert.ErrorIs(t, err, ErrTournamentFull)
}

func TestJoinRejectsClosedTournament(t *testing.T) {
	f := newParticipantServiceFixture(t)
	player := f.addPlayer(t, 4.0)

	require.NoError(t, f.tournamentRepo.UpdateStatus(context.Background(), nil, f.tournament.ID, models.StatusCompleted))

	_, err := f.svc.Join(context.Background(), f.tournament.ID, player.ID, JoinTournamentInput{})
	assert.ErrorIs(t, err, ErrJoinNotOpen)
}

func TestJoinUnknownTournamentOrPlayer(t *testing.T) {
	f := newParticipantServiceFixture(t)
	player := f.addPlayer(t, 4.0)

	_, err := f.svc.Join(context.Background(), 999, player.ID, JoinTournamentInput{})
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	_, err = f.svc.Join(context.Background(), f.tournament.ID, 999, JoinTournamentInput{})
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}
