package catalog

import (
	"strings"

	"github.com/2beens/gymplanner/internal/plan"
)

const (
	CategoryFavorites = "favorites"
	CategoryCustom    = "custom"
)

// categoryBodyParts maps library categories to catalog body parts.
var categoryBodyParts = map[string][]string{
	"chest":     {"chest"},
	"back":      {"back"},
	"shoulders": {"shoulders", "neck"},
	"arms":      {"lower arms", "upper arms"},
	"legs":      {"lower legs", "upper legs"},
	"abs":       {"waist"},
	"cardio":    {"cardio"},
}

// Categories lists the library categories in display order.
var Categories = []string{
	CategoryFavorites, CategoryCustom,
	"chest", "back", "shoulders", "arms", "legs", "abs", "cardio",
}

type Filter struct {
	Category string
	// Query is matched case-insensitively against exercise names
	Query string
}

type Entry struct {
	Exercise
	Favorite bool
}

// Library combines the catalog with the user's custom exercises and favorites.
type Library struct {
	catalog   *Catalog
	custom    []plan.CustomExercise
	favorites plan.Favorites
}

func NewLibrary(c *Catalog, data plan.Collections) *Library {
	if c == nil {
		c = Empty()
	}
	return &Library{
		catalog:   c,
		custom:    data.CustomExercises,
		favorites: data.Favorites,
	}
}

// List returns the exercises of a category. An empty category means favorites.
func (l *Library) List(f Filter) []Entry {
	category := strings.ToLower(strings.TrimSpace(f.Category))
	if category == "" {
		category = CategoryFavorites
	}

	var list []Exercise
	switch category {
	case CategoryFavorites:
		for _, ex := range l.catalog.all() {
			if l.favorites.Contains(ex.ID) {
				list = append(list, ex)
			}
		}
		for _, ce := range l.custom {
			if l.favorites.Contains(ce.ID) {
				list = append(list, fromCustom(ce))
			}
		}
	case CategoryCustom:
		for _, ce := range l.custom {
			list = append(list, fromCustom(ce))
		}
	default:
		for _, bodyPart := range categoryBodyParts[category] {
			list = append(list, l.catalog.Exercises(bodyPart)...)
		}
		for _, ce := range l.custom {
			if ce.BodyPart == category {
				list = append(list, fromCustom(ce))
			}
		}
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))
	entries := make([]Entry, 0, len(list))
	for _, ex := range list {
		if query != "" && !strings.Contains(strings.ToLower(ex.Name), query) {
			continue
		}
		entries = append(entries, Entry{Exercise: ex, Favorite: l.favorites.Contains(ex.ID)})
	}
	return entries
}

// Lookup finds an exercise by id among custom exercises and the catalog.
func (l *Library) Lookup(id string) (Exercise, bool) {
	for _, ce := range l.custom {
		if ce.ID == id {
			return fromCustom(ce), true
		}
	}
	return l.catalog.Lookup(id)
}

func fromCustom(ce plan.CustomExercise) Exercise {
	return Exercise{
		ID:       ce.ID,
		Name:     ce.Name,
		Target:   ce.Target,
		BodyPart: ce.BodyPart,
		GifURL:   ce.GifURL,
		IsCustom: true,
	}
}
