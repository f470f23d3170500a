package documents

import (
	"errors"

	"github.com/2beens/gymplanner/internal/plan"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrStalePush       = errors.New("stored document is newer")
	ErrInvalidDocument = errors.New("invalid document")
)

// PendingExercise is a custom exercise submitted for global approval, with its owner.
type PendingExercise struct {
	UserID string `json:"userId"`
	plan.CustomExercise
}

func pendingOf(userID string, custom []plan.CustomExercise) []PendingExercise {
	var pending []PendingExercise
	for _, ce := range custom {
		if ce.PendingGlobalApproval {
			pending = append(pending, PendingExercise{UserID: userID, CustomExercise: ce})
		}
	}
	return pending
}
