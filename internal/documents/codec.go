package documents

import (
	"encoding/json"
	"fmt"

	"github.com/2beens/gymplanner/internal/plan"
	"github.com/2beens/gymplanner/internal/remote"
	"github.com/2beens/gymplanner/internal/stamp"
)

// columns holds the JSON encoded collections of one stored document.
type columns struct {
	templates []byte
	custom    []byte
	favorites []byte
}

func encodeColumns(doc remote.Document) (columns, error) {
	c := doc.Collections()

	var (
		cols columns
		err  error
	)
	if cols.templates, err = json.Marshal(c.Templates); err != nil {
		return cols, fmt.Errorf("marshal templates: %w", err)
	}
	if cols.custom, err = json.Marshal(c.CustomExercises); err != nil {
		return cols, fmt.Errorf("marshal custom exercises: %w", err)
	}
	if cols.favorites, err = json.Marshal(c.Favorites); err != nil {
		return cols, fmt.Errorf("marshal favorites: %w", err)
	}
	return cols, nil
}

func decodeColumns(cols columns, lastSynced int64) (*remote.Document, error) {
	var c plan.Collections
	if err := json.Unmarshal(cols.templates, &c.Templates); err != nil {
		return nil, fmt.Errorf("unmarshal templates: %w", err)
	}
	if err := json.Unmarshal(cols.custom, &c.CustomExercises); err != nil {
		return nil, fmt.Errorf("unmarshal custom exercises: %w", err)
	}
	if err := json.Unmarshal(cols.favorites, &c.Favorites); err != nil {
		return nil, fmt.Errorf("unmarshal favorites: %w", err)
	}

	doc := remote.NewDocument(c, lastSynced)
	return &doc, nil
}

// syncedAt validates the lastSynced of a pushed document.
func syncedAt(doc remote.Document) (int64, error) {
	if doc.LastSynced == "" {
		return 0, fmt.Errorf("%w: missing lastSynced", ErrInvalidDocument)
	}
	ms, err := stamp.ParseISO(doc.LastSynced)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return ms, nil
}
