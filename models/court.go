package models

import "time"

type CourtSurface string

const (
	SurfaceHard  CourtSurface = "hard"
	SurfaceClay  CourtSurface = "clay"
	SurfaceGrass CourtSurface = "grass"
)

// Court - муниципальный корт, на котором могут проводиться матчи.
type Court struct {
	ID        int          `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Address   string       `json:"address" db:"address"`
	City      string       `json:"city" db:"city"`
	State     string       `json:"state" db:"state"`
	Sport     Sport        `json:"sport" db:"sport"`
	Surface   CourtSurface `json:"surface" db:"surface"`
	HasLights bool         `json:"has_lights" db:"has_lights"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	PhotoKey  *string      `json:"-" db:"photo_key"`
	PhotoURL  *string      `json:"photo_url,omitempty" db:"-"`
}
