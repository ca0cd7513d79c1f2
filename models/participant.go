package models

import "time"

// Participant - запись об участии игрока в турнире.
// CurrentPosition имеет смысл только для positional-турниров,
// Points - только для points_robin; обе колонки присутствуют всегда.
type Participant struct {
	ID              int       `json:"id" db:"id"`
	TournamentID    int       `json:"tournament_id" db:"tournament_id"`
	PlayerID        int       `json:"player_id" db:"player_id"`
	CurrentPosition int       `json:"current_position" db:"current_position"`
	InitialPosition int       `json:"initial_position" db:"initial_position"`
	Points          int       `json:"points" db:"points"`
	Wins            int       `json:"wins" db:"wins"`
	Losses          int       `json:"losses" db:"losses"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`

	Player *Player `json:"player,omitempty" db:"-"`
}
