package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/courtside/ladder-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tournamentServiceFixture struct {
	svc            TournamentService
	playerRepo     *fakePlayerRepo
	tournamentRepo *fakeTournamentRepo
	organizer      *models.Player
}

func newTournamentServiceFixture(t *testing.T) *tournamentServiceFixture {
	t.Helper()

	playerRepo := newFakePlayerRepo()
	tournamentRepo := newFakeTournamentRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	organizer := &models.Player{
		FirstName:  "Olga",
		LastName:   "Organizer",
		Email:      "organizer@example.com",
		Role:       models.RoleOrganizer,
		NTRPRating: 4.0,
	}
	require.NoError(t, playerRepo.Create(context.Background(), organizer))

	svc := NewTournamentService(
		nil,
		tournamentRepo,
		newFakeParticipantRepo(),
		newFakeMatchRepo(),
		playerRepo,
		nil,
		nil,
		logger,
	)

	return &tournamentServiceFixture{
		svc:            svc,
		playerRepo:     playerRepo,
		tournamentRepo: tournamentRepo,
		organizer:      organizer,
	}
}

func baseCreateInput(name string) CreateTournamentInput {
	return CreateTournamentInput{
		Name:      name,
		Sport:     models.SportTennis,
		Format:    models.FormatSingles,
		Type:      models.TypePositional,
		NTRPLevel: 4.0,
		City:      "Austin",
		State:     "TX",
		StartDate: time.Now().Add(24 * time.Hour),
		EndDate:   time.Now().Add(30 * 24 * time.Hour),
	}
}

func TestCreateTournamentRejectsInvalidDateRange(t *testing.T) {
	f := newTournamentServiceFixture(t)

	input := baseCreateInput("Backwards Dates")
	input.EndDate = input.StartDate.Add(-time.Hour)

	_, err := f.svc.CreateTournament(context.Background(), f.organizer.ID, input)
	assert.ErrorIs(t, err, ErrTournamentInvalidDateRange)
}

func TestCreateTournamentRejectsDuplicate(t *testing.T) {
	f := newTournamentServiceFixture(t)

	_, err := f.svc.CreateTournament(context.Background(), f.organizer.ID, baseCreateInput("Spring Ladder"))
	require.NoError(t, err)

	// Та же четвёрка (name, ntrp_level, city, state) - дубликат.
	_, err = f.svc.CreateTournament(context.Background(), f.organizer.ID, baseCreateInput("Spring Ladder"))
	assert.ErrorIs(t, err, ErrTournamentDuplicate)

	// Другой уровень - уже не дубликат.
	other := baseCreateInput("Spring Ladder")
	other.NTRPLevel = 3.5
	_, err = f.svc.CreateTournament(context.Background(), f.organizer.ID, other)
	assert.NoError(t, err)
}

func TestCreateTournamentOverlapPolicy(t *testing.T) {
	f := newTournamentServiceFixture(t)

	// Три open-турнира одного уровня и локации с пересекающимися датами.
	for _, name := range []string{"Ladder A", "Ladder B", "Ladder C"} {
		_, err := f.svc.CreateTournament(context.Background(), f.organizer.ID, baseCreateInput(name))
		require.NoError(t, err)
	}

	// Четвёртый пересекающийся - сверх лимита.
	_, err := f.svc.CreateTournament(context.Background(), f.organizer.ID, baseCreateInput("Ladder D"))
	assert.ErrorIs(t, err, ErrTournamentCapacity)

	// Непересекающийся по датам проходит.
	later := baseCreateInput("Ladder D")
	later.StartDate = time.Now().Add(60 * 24 * time.Hour)
	later.EndDate = time.Now().Add(90 * 24 * time.Hour)
	_, err = f.svc.CreateTournament(context.Background(), f.organizer.ID, later)
	assert.NoError(t, err)

	// Та же локация, другой уровень: лимит считается отдельно.
	otherLevel := baseCreateInput("Ladder E")
	otherLevel.NTRPLevel = 3.0
	_, err = f.svc.CreateTournament(context.Background(), f.organizer.ID, otherLevel)
	assert.NoError(t, err)
}

func TestCreateTournamentDefaultsPositionalCapacity(t *testing.T) {
	f := newTournamentServiceFixture(t)

	created, err := f.svc.CreateTournament(context.Background(), f.organizer.ID, baseCreateInput("Default Cap"))
	require.NoError(t, err)
	require.NotNil(t, created.MaxParticipants)
	assert.Equal(t, defaultPositionalCapacity, *created.MaxParticipants)

	// points_robin без лимита остаётся безлимитным.
	robin := baseCreateInput("Robin No Cap")
	robin.Type = models.TypePointsRobin
	createdRobin, err := f.svc.CreateTournament(context.Background(), f.organizer.ID, robin)
	require.NoError(t, err)
	assert.Nil(t, createdRobin.MaxParticipants)
}

func TestDatesOverlap(t *testing.T) {
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name             string
		newStart, newEnd time.Time
		oldStart, oldEnd time.Time
		want             bool
	}{
		{"full overlap", base, base.AddDate(0, 1, 0), base, base.AddDate(0, 1, 0), true},
		{"touching boundary", base.AddDate(0, 1, 0), base.AddDate(0, 2, 0), base, base.AddDate(0, 1, 0), true},
		{"disjoint after", base.AddDate(0, 2, 0), base.AddDate(0, 3, 0), base, base.AddDate(0, 1, 0), false},
		{"disjoint before", base.AddDate(0, -2, 0), base.AddDate(0, -1, 0), base, base.AddDate(0, 1, 0), false},
		{"contained", base.AddDate(0, 0, 5), base.AddDate(0, 0, 10), base, base.AddDate(0, 1, 0), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, datesOverlap(tc.newStart, tc.newEnd, tc.oldStart, tc.oldEnd))
		})
	}
}

func TestUpdateTournamentStatusTransitions(t *testing.T) {
	f := newTournamentServiceFixture(t)

	created, err := f.svc.CreateTournament(context.Background(), f.organizer.ID, baseCreateInput("Transitions"))
	require.NoError(t, err)

	// open -> completed запрещён.
	_, err = f.svc.UpdateTournamentStatus(context.Background(), created.ID, f.organizer.ID, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)

	// open -> active -> completed разрешён.
	updated, err := f.svc.UpdateTournamentStatus(context.Background(), created.ID, f.organizer.ID, models.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, updated.Status)

	updated, err = f.svc.UpdateTournamentStatus(context.Background(), created.ID, f.organizer.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)

	// Из терминального статуса переходов нет.
	_, err = f.svc.UpdateTournamentStatus(context.Background(), created.ID, f.organizer.ID, models.StatusActive)
	assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)
}

func TestUpdateTournamentStatusRequiresOrganizerOrAdmin(t *testing.T) {
	f := newTournamentServiceFixture(t)

	created, err := f.svc.CreateTournament(context.Background(), f.organizer.ID, baseCreateInput("Protected"))
	require.NoError(t, err)

	stranger := &models.Player{
		FirstName:  "Sam",
		LastName:   "Stranger",
		Email:      "stranger@example.com",
		Role:       models.RolePlayer,
		NTRPRating: 3.5,
	}
	require.NoError(t, f.playerRepo.Create(context.Background(), stranger))

	_, err = f.svc.UpdateTournamentStatus(context.Background(), created.ID, stranger.ID, models.StatusActive)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	admin := &models.Player{
		FirstName:  "Ada",
		LastName:   "Admin",
		Email:      "admin@example.com",
		Role:       models.RoleAdmin,
		NTRPRating: 4.5,
	}
	require.NoError(t, f.playerRepo.Create(context.Background(), admin))

	_, err = f.svc.UpdateTournamentStatus(context.Background(), created.ID, admin.ID, models.StatusActive)
	assert.NoError(t, err)
}

func TestAutoUpdateTournamentStatusesByDates(t *testing.T) {
	f := newTournamentServiceFixture(t)

	started := baseCreateInput("Already Started")
	started.StartDate = time.Now().Add(-48 * time.Hour)
	started.EndDate = time.Now().Add(24 * time.Hour)
	createdStarted, err := f.svc.CreateTournament(context.Background(), f.organizer.ID, started)
	require.NoError(t, err)

	upcoming := baseCreateInput("Upcoming")
	createdUpcoming, err := f.svc.CreateTournament(context.Background(), f.organizer.ID, upcoming)
	require.NoError(t, err)

	require.NoError(t, f.svc.AutoUpdateTournamentStatusesByDates(context.Background()))

	got, err := f.tournamentRepo.GetByID(context.Background(), createdStarted.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)

	got, err = f.tournamentRepo.GetByID(context.Background(), createdUpcoming.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, got.Status)
}
