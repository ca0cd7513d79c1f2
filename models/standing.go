package models

// StandingRow - строка таблицы положения, вычисляемая на лету из
// участников и завершённых матчей. В БД не хранится.
type StandingRow struct {
	ParticipantID int     `json:"participant_id"`
	PlayerID      int     `json:"player_id"`
	Position      int     `json:"position,omitempty"`
	PositionDelta int     `json:"position_delta"`
	Points        int     `json:"points"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinPercentage float64 `json:"win_percentage"`
	// PointDiff - разница выигранных и проигранных очков по геймам,
	// используется в парном round-robin представлении.
	PointDiff int `json:"point_diff"`

	Player *Player `json:"player,omitempty"`
}
