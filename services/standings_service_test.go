package services

import (
	"testing"

	"github.com/courtside/ladder-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func participant(id, playerID, position, points, wins, losses int) *models.Participant {
	return &models.Participant{
		ID:              id,
		TournamentID:    1,
		PlayerID:        playerID,
		CurrentPosition: position,
		InitialPosition: position,
		Points:          points,
		Wins:            wins,
		Losses:          losses,
	}
}

func TestComputeStandingsPositionalOrder(t *testing.T) {
	participants := []*models.Participant{
		participant(1, 10, 3, 0, 1, 2),
		participant(2, 20, 1, 0, 3, 0),
		participant(3, 30, 2, 0, 2, 1),
	}

	rows := ComputeStandings(participants, nil, models.TypePositional)
	require.Len(t, rows, 3)
	assert.Equal(t, []int{20, 30, 10}, []int{rows[0].PlayerID, rows[1].PlayerID, rows[2].PlayerID})
	assert.Equal(t, 1, rows[0].Position)
}

func TestComputeStandingsPointsRobinTieBreaks(t *testing.T) {
	participants := []*models.Participant{
		// Одинаковые очки у 10 и 20: решают победы; у 20 и 30 одинаковы и
		// очки, и победы: решает меньший id игрока.
		participant(1, 30, 1, 40, 2, 1),
		participant(2, 10, 2, 40, 3, 0),
		participant(3, 20, 3, 40, 2, 1),
		participant(4, 40, 4, 10, 0, 3),
	}

	rows := ComputeStandings(participants, nil, models.TypePointsRobin)
	require.Len(t, rows, 4)
	got := []int{rows[0].PlayerID, rows[1].PlayerID, rows[2].PlayerID, rows[3].PlayerID}
	assert.Equal(t, []int{10, 20, 30, 40}, got)
}

func TestComputeStandingsIsPureProjection(t *testing.T) {
	participants := []*models.Participant{
		participant(1, 10, 1, 40, 2, 0),
		participant(2, 20, 2, 20, 1, 1),
	}

	first := ComputeStandings(participants, nil, models.TypePointsRobin)
	second := ComputeStandings(participants, nil, models.TypePointsRobin)
	assert.Equal(t, first, second)

	// Проекция не мутирует исходные записи участников.
	assert.Equal(t, 40, participants[0].Points)
	assert.Equal(t, 1, participants[0].CurrentPosition)
}

func TestComputeStandingsPositionDelta(t *testing.T) {
	p := participant(1, 10, 1, 0, 2, 0)
	p.InitialPosition = 4

	rows := ComputeStandings([]*models.Participant{p}, nil, models.TypePositional)
	require.Len(t, rows, 1)
	// Поднялся с 4-й позиции на 1-ю.
	assert.Equal(t, 3, rows[0].PositionDelta)
}

func TestComputeDoublesStandings(t *testing.T) {
	participants := []*models.Participant{
		participant(1, 10, 1, 20, 1, 1),
		participant(2, 20, 2, 20, 1, 1),
	}
	winner10 := 10
	matches := []*models.Match{
		{
			TournamentID: 1,
			ChallengerID: 10,
			OpponentID:   20,
			Status:       models.MatchStatusCompleted,
			WinnerID:     &winner10,
			GameScores: []models.GameScore{
				{GameNumber: 1, Team1Score: 11, Team2Score: 5},
				{GameNumber: 2, Team1Score: 11, Team2Score: 9},
			},
		},
	}

	rows := ComputeDoublesStandings(participants, matches)
	require.Len(t, rows, 2)
	// При равном проценте побед решает разница очков по геймам.
	assert.Equal(t, 10, rows[0].PlayerID)
	assert.Equal(t, 8, rows[0].PointDiff)
	assert.Equal(t, -8, rows[1].PointDiff)
	assert.InDelta(t, 0.5, rows[0].WinPercentage, 1e-9)
}

func TestWinPercentageZeroGames(t *testing.T) {
	assert.Zero(t, winPercentage(0, 0))
	assert.InDelta(t, 0.75, winPercentage(3, 1), 1e-9)
}
