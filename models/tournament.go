package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusOpen      TournamentStatus = "open"
	StatusActive    TournamentStatus = "active"
	StatusCompleted TournamentStatus = "completed"
	StatusCancelled TournamentStatus = "cancelled"
)

type Sport string

const (
	SportTennis     Sport = "tennis"
	SportPickleball Sport = "pickleball"
)

type TournamentFormat string

const (
	FormatSingles TournamentFormat = "singles"
	FormatDoubles TournamentFormat = "doubles"
)

// TournamentType определяет механику лестницы:
// positional - участники занимают позиции и меняются местами по итогам вызовов,
// points_robin - участники копят очки, позиции не ведутся.
type TournamentType string

const (
	TypePositional  TournamentType = "positional"
	TypePointsRobin TournamentType = "points_robin"
)

// Tournament представляет лестничный турнир.
type Tournament struct {
	ID          int              `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Sport       Sport            `json:"sport" db:"sport"`
	Format      TournamentFormat `json:"tournament_format" db:"tournament_format"`
	Type        TournamentType   `json:"tournament_type" db:"tournament_type"`
	NTRPLevel   float64          `json:"ntrp_level" db:"ntrp_level"`
	City        string           `json:"city" db:"city"`
	State       string           `json:"state" db:"state"`
	StartDate   time.Time        `json:"start_date" db:"start_date"`
	EndDate     time.Time        `json:"end_date" db:"end_date"`
	EntryFee    float64          `json:"entry_fee" db:"entry_fee"`
	Status      TournamentStatus `json:"status" db:"status"`
	OrganizerID int              `json:"organizer_id" db:"organizer_id"`
	// MaxParticipants == nil означает отсутствие лимита (points_robin).
	MaxParticipants *int      `json:"max_participants,omitempty" db:"max_participants"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	LogoKey         *string   `json:"-" db:"logo_key"`
	LogoURL         *string   `json:"logo_url,omitempty" db:"-"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Organizer    *Player       `json:"organizer,omitempty" db:"-"`
	Participants []Participant `json:"participants,omitempty" db:"-"`
	Matches      []Match       `json:"matches,omitempty" db:"-"`
}

// IsPositional сообщает, ведётся ли в турнире позиционная лестница.
func (t *Tournament) IsPositional() bool {
	return t.Type == TypePositional
}
