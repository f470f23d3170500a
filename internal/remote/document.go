package remote

import (
	"github.com/2beens/gymplanner/internal/plan"
	"github.com/2beens/gymplanner/internal/stamp"
)

// Identity is the authenticated handle of a signed-in user.
// The zero value means no session.
type Identity struct {
	UserID   string
	Username string
	Token    string
}

func (i Identity) Present() bool {
	return i.UserID != "" && i.Token != ""
}

// Document is the per-account cloud copy of the plan collections.
type Document struct {
	Templates       []plan.Template       `json:"workout_templates"`
	CustomExercises []plan.CustomExercise `json:"custom_exercises"`
	Favorites       plan.Favorites        `json:"exercise_favorites"`
	LastSynced      string                `json:"lastSynced"`
}

func NewDocument(c plan.Collections, lastSynced int64) Document {
	c = c.Clone()
	c.Normalize()
	return Document{
		Templates:       c.Templates,
		CustomExercises: c.CustomExercises,
		Favorites:       c.Favorites,
		LastSynced:      stamp.FormatISO(lastSynced),
	}
}

// Collections returns the normalized plan data held by d.
func (d Document) Collections() plan.Collections {
	c := plan.Collections{
		Templates:       d.Templates,
		CustomExercises: d.CustomExercises,
		Favorites:       d.Favorites,
	}.Clone()
	c.Normalize()
	return c
}

// SyncedAt returns lastSynced as epoch millis; missing means 0.
func (d Document) SyncedAt() (int64, error) {
	return stamp.ParseISO(d.LastSynced)
}
