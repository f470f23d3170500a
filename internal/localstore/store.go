package localstore

import (
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/gymplanner/internal/plan"
)

var (
	ErrLocalWrite    = errors.New("local write failed")
	ErrQuotaExceeded = errors.New("local storage quota exceeded")
	ErrCorrupt       = errors.New("local data corrupt")
)

// Record is the stored shape of one collection.
type Record struct {
	Data         json.RawMessage `json:"data"`
	LastModified int64           `json:"lastModified"`
}

// Store is durable on-device persistence for the plan collections.
// Load returns nil (and no error) when the key was never saved.
type Store interface {
	Load(key plan.Key) (*Record, error)
	// Save stamps data with a fresh lastModified and returns it.
	Save(key plan.Key, data any) (int64, error)
	// SaveStamped stores data with a caller provided lastModified.
	SaveStamped(key plan.Key, data any, lastModified int64) error
}

type Synced[T any] struct {
	Data         T
	LastModified int64
}

// Load reads key from s and decodes its data into T.
func Load[T any](s Store, key plan.Key) (*Synced[T], error) {
	rec, err := s.Load(key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	var data T
	if len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %w", ErrCorrupt, key, err)
		}
	}
	return &Synced[T]{Data: data, LastModified: rec.LastModified}, nil
}

// LoadCollections loads all three collections. found is false when no
// templates were ever stored; localTime is the templates lastModified.
//
// An unreadable custom exercise or favorites record is logged and loaded as
// empty. Unreadable templates are returned as an error together with
// whatever else could be read, localTime 0 and found false.
func LoadCollections(s Store) (c plan.Collections, localTime int64, found bool, err error) {
	customs, loadErr := Load[[]plan.CustomExercise](s, plan.KeyCustomExercises)
	if loadErr != nil {
		log.Errorf("local store: ignoring unreadable %s: %s", plan.KeyCustomExercises, loadErr)
	} else if customs != nil {
		c.CustomExercises = customs.Data
	}

	favs, loadErr := Load[plan.Favorites](s, plan.KeyFavorites)
	if loadErr != nil {
		log.Errorf("local store: ignoring unreadable %s: %s", plan.KeyFavorites, loadErr)
	} else if favs != nil {
		c.Favorites = favs.Data
	}

	templates, err := Load[[]plan.Template](s, plan.KeyTemplates)
	if err == nil && templates != nil {
		c.Templates = templates.Data
		localTime = templates.LastModified
		found = len(templates.Data) > 0
	}
	c.Normalize()
	return c, localTime, found, err
}

func encode(key plan.Key, data any, lastModified int64) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %w", ErrLocalWrite, key, err)
	}
	out, err := json.Marshal(Record{Data: raw, LastModified: lastModified})
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %w", ErrLocalWrite, key, err)
	}
	return out, nil
}
