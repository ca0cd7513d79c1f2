package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/courtside/ladder-system/db"
	"github.com/courtside/ladder-system/models"
	"github.com/courtside/ladder-system/repositories"
)

// StandingsService строит таблицу положения. Проекция чистая: пересчитывается
// целиком при каждом вызове, ничего не пишет и не кэширует.
type StandingsService interface {
	ComputeForTournament(ctx context.Context, tournamentID int) ([]models.StandingRow, error)
	ComputeDoublesView(ctx context.Context, tournamentID int) ([]models.StandingRow, error)
}

type standingsService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
}

func NewStandingsService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
) StandingsService {
	return &standingsService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
	}
}

func (s *standingsService) ComputeForTournament(ctx context.Context, tournamentID int) ([]models.StandingRow, error) {
	tournament, participants, matches, err := s.load(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return ComputeStandings(participants, matches, tournament.Type), nil
}

func (s *standingsService) ComputeDoublesView(ctx context.Context, tournamentID int) ([]models.StandingRow, error) {
	_, participants, matches, err := s.load(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return ComputeDoublesStandings(participants, matches), nil
}

func (s *standingsService) load(ctx context.Context, tournamentID int) (*models.Tournament, []*models.Participant, []*models.Match, error) {
	tournament, err := db.RetryRead(ctx, func(ctx context.Context) (*models.Tournament, error) {
		return s.tournamentRepo.GetByID(ctx, tournamentID)
	}, repositories.ErrTournamentNotFound)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, nil, nil, ErrTournamentNotFound
		}
		return nil, nil, nil, err
	}

	participants, err := db.RetryRead(ctx, func(ctx context.Context) ([]*models.Participant, error) {
		return s.participantRepo.ListByTournament(ctx, tournamentID, true)
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load participants for standings: %w", err)
	}

	completed := models.MatchStatusCompleted
	matches, err := db.RetryRead(ctx, func(ctx context.Context) ([]*models.Match, error) {
		return s.matchRepo.ListByTournament(ctx, tournamentID, &completed)
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load matches for standings: %w", err)
	}

	return tournament, participants, matches, nil
}

// ComputeStandings - чистая функция проекции таблицы.
// positional: сортировка по текущей позиции; points_robin: по очкам, затем
// по победам, затем по id игрока (явный тай-брейк, чтобы порядок был
// детерминированным).
func ComputeStandings(participants []*models.Participant, matches []*models.Match, tournamentType models.TournamentType) []models.StandingRow {
	rows := make([]models.StandingRow, 0, len(participants))
	diffs := pointDifferentials(matches)

	for _, p := range participants {
		rows = append(rows, models.StandingRow{
			ParticipantID: p.ID,
			PlayerID:      p.PlayerID,
			Position:      p.CurrentPosition,
			PositionDelta: p.InitialPosition - p.CurrentPosition,
			Points:        p.Points,
			Wins:          p.Wins,
			Losses:        p.Losses,
			WinPercentage: winPercentage(p.Wins, p.Losses),
			PointDiff:     diffs[p.PlayerID],
			Player:        p.Player,
		})
	}

	switch tournamentType {
	case models.TypePositional:
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Position < rows[j].Position
		})
	case models.TypePointsRobin:
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].Points != rows[j].Points {
				return rows[i].Points > rows[j].Points
			}
			if rows[i].Wins != rows[j].Wins {
				return rows[i].Wins > rows[j].Wins
			}
			return rows[i].PlayerID < rows[j].PlayerID
		})
	}
	return rows
}

// ComputeDoublesStandings - альтернативное представление для парного
// round-robin: сортировка по проценту побед, затем по разнице очков в геймах.
func ComputeDoublesStandings(participants []*models.Participant, matches []*models.Match) []models.StandingRow {
	rows := ComputeStandings(participants, matches, models.TypePointsRobin)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].WinPercentage != rows[j].WinPercentage {
			return rows[i].WinPercentage > rows[j].WinPercentage
		}
		if rows[i].PointDiff != rows[j].PointDiff {
			return rows[i].PointDiff > rows[j].PointDiff
		}
		return rows[i].PlayerID < rows[j].PlayerID
	})
	return rows
}

// pointDifferentials агрегирует разницу очков по геймам завершённых матчей:
// challenger - team1, opponent - team2.
func pointDifferentials(matches []*models.Match) map[int]int {
	diffs := make(map[int]int)
	for _, m := range matches {
		if m.Status != models.MatchStatusCompleted {
			continue
		}
		for _, g := range m.GameScores {
			diffs[m.ChallengerID] += g.Team1Score - g.Team2Score
			diffs[m.OpponentID] += g.Team2Score - g.Team1Score
		}
	}
	return diffs
}

func winPercentage(wins, losses int) float64 {
	played := wins + losses
	if played == 0 {
		return 0
	}
	return float64(wins) / float64(played)
}
