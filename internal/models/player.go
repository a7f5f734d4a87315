package models

import "github.com/google/uuid"

// Player is a catalog entry eligible for nomination.
type Player struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Position string    `json:"position"`
	ADP      float64   `json:"adp"` // average draft position, ascending is better
}
