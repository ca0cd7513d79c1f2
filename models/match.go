package models

import "time"

type MatchStatus string

const (
	MatchStatusProposed  MatchStatus = "proposed"
	MatchStatusAccepted  MatchStatus = "accepted"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// GameScore - счёт отдельного гейма для погеймового репортинга
// (парный/pickleball round-robin вариант).
type GameScore struct {
	GameNumber int `json:"game_number"`
	Team1Score int `json:"team1_score"`
	Team2Score int `json:"team2_score"`
}

// Match представляет вызов на матч и его жизненный цикл:
// proposed -> {accepted, cancelled}; accepted -> completed.
// Из completed и cancelled переходов нет.
type Match struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	ChallengerID int         `json:"challenger_id" db:"challenger_id"`
	OpponentID   int         `json:"opponent_id" db:"opponent_id"`
	Status       MatchStatus `json:"status" db:"status"`
	ProposedDate time.Time   `json:"proposed_date" db:"proposed_date"`
	// Рекомендательный список кортов, на которых предлагается сыграть.
	ProposedCourtIDs []int64 `json:"proposed_court_ids,omitempty" db:"proposed_court_ids"`

	// Снапшоты позиций на момент вызова. Позиционный своп всегда считается
	// от этих значений, а не от позиций на момент завершения.
	ChallengerPositionBefore *int `json:"challenger_position_before,omitempty" db:"challenger_position_before"`
	OpponentPositionBefore   *int `json:"opponent_position_before,omitempty" db:"opponent_position_before"`

	WinnerID   *int        `json:"winner_id,omitempty" db:"winner_id"`
	Score      *string     `json:"score,omitempty" db:"score"`
	GameScores []GameScore `json:"game_scores,omitempty" db:"game_scores"`
	// ReportedBy - игрок, который внёс погеймовый результат. Подтвердить
	// такой результат может только другой участник матча.
	ReportedBy    *int       `json:"reported_by,omitempty" db:"reported_by"`
	Confirmed     bool       `json:"confirmed" db:"confirmed"`
	ConfirmedDate *time.Time `json:"confirmed_date,omitempty" db:"confirmed_date"`
	// RankingAppliedAt != nil означает, что обновление рейтинга по этому
	// матчу уже применено; повторное применение - no-op.
	RankingAppliedAt *time.Time `json:"-" db:"ranking_applied_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

// OtherPlayer возвращает id второго участника матча относительно playerID.
func (m *Match) OtherPlayer(playerID int) int {
	if playerID == m.ChallengerID {
		return m.OpponentID
	}
	return m.ChallengerID
}

// HasPlayer сообщает, участвует ли игрок в матче.
func (m *Match) HasPlayer(playerID int) bool {
	return playerID == m.ChallengerID || playerID == m.OpponentID
}
