package models

import "time"

// PlayerRole соответствует ENUM player_role в БД.
type PlayerRole string

const (
	RolePlayer    PlayerRole = "player"
	RoleOrganizer PlayerRole = "organizer"
	RoleAdmin     PlayerRole = "admin"
)

// Player представляет зарегистрированного игрока.
type Player struct {
	ID           int        `json:"id" db:"id"`
	FirstName    string     `json:"first_name" db:"first_name"`
	LastName     string     `json:"last_name" db:"last_name"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         PlayerRole `json:"role" db:"role"`
	// NTRPRating - самооценка уровня игры по шкале NTRP (1.0-7.0, шаг 0.5).
	NTRPRating float64   `json:"ntrp_rating" db:"ntrp_rating"`
	City       *string   `json:"city,omitempty" db:"city"`
	State      *string   `json:"state,omitempty" db:"state"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
