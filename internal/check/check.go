package check

import (
	"time"

	"splitcheck/internal/parsing"
)

// Check represents one scanned check with its parsed items and the people
// splitting it
type Check struct {
	ID    string         `json:"id"`
	Items []parsing.Item `json:"items"`

	// Participants holds display names, "Person N" by default
	Participants []string `json:"participants"`

	// Assignment has one row per item and one column per participant; true
	// means that participant shares the item. Kept in lock-step with Items
	// and Participants on every mutation.
	Assignment [][]bool `json:"assignment"`

	// PayerIndex is the participant who paid the whole check, or
	// split.NoPayer when nobody has been marked yet
	PayerIndex int `json:"payer_index"`

	ImageFile   string    `json:"image_file,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
