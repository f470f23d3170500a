package plan

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// DaysInWeek is the fixed length of a template schedule; index 0 is Monday.
const DaysInWeek = 7

const defaultSetsPerExercise = 3

var Weekdays = [DaysInWeek]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Key names one independently persisted collection.
type Key string

const (
	KeyTemplates       Key = "workout_templates"
	KeyCustomExercises Key = "custom_exercises"
	KeyFavorites       Key = "exercise_favorites"
)

var Keys = []Key{KeyTemplates, KeyCustomExercises, KeyFavorites}

type SetEntry struct {
	Weight float64 `json:"weight"`
	Reps   float64 `json:"reps"`
}

type PlannedExercise struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	SetsData []SetEntry `json:"setsData"`

	// legacy shape, migrated into SetsData on load
	Sets       int         `json:"sets,omitempty"`
	TargetReps LooseString `json:"targetReps,omitempty"`
}

type DayPlan struct {
	IsRest    bool              `json:"isRest"`
	Exercises []PlannedExercise `json:"exercises"`
	DayName   string            `json:"dayName,omitempty"`
}

type Template struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Active   bool                `json:"active"`
	Schedule [DaysInWeek]DayPlan `json:"schedule"`
}

type CustomExercise struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	Target                string `json:"target"`
	BodyPart              string `json:"bodyPart"`
	IsCustom              bool   `json:"isCustom"`
	GifURL                string `json:"gifUrl,omitempty"`
	PendingGlobalApproval bool   `json:"pendingGlobalApproval,omitempty"`
	SubmittedBy           string `json:"submittedBy,omitempty"`
}

// Favorites is an ordered set of exercise ids.
type Favorites []string

func (f Favorites) Contains(id string) bool {
	return f.index(id) >= 0
}

func (f Favorites) index(id string) int {
	for i, fav := range f {
		if fav == id {
			return i
		}
	}
	return -1
}

// Collections is the whole user-owned data set, the unit that is pushed to the cloud.
type Collections struct {
	Templates       []Template       `json:"workout_templates"`
	CustomExercises []CustomExercise `json:"custom_exercises"`
	Favorites       Favorites        `json:"exercise_favorites"`
}

// Collection returns the part of c stored under key.
func (c Collections) Collection(key Key) any {
	switch key {
	case KeyTemplates:
		return c.Templates
	case KeyCustomExercises:
		return c.CustomExercises
	case KeyFavorites:
		return c.Favorites
	default:
		return nil
	}
}

// Clone returns a deep copy, safe to hand to another goroutine.
func (c Collections) Clone() Collections {
	out := Collections{
		Templates:       make([]Template, len(c.Templates)),
		CustomExercises: make([]CustomExercise, len(c.CustomExercises)),
		Favorites:       make(Favorites, len(c.Favorites)),
	}
	for i, t := range c.Templates {
		out.Templates[i] = t.clone()
	}
	copy(out.CustomExercises, c.CustomExercises)
	copy(out.Favorites, c.Favorites)
	return out
}

func (t Template) clone() Template {
	out := t
	for d := range t.Schedule {
		day := t.Schedule[d]
		exercises := make([]PlannedExercise, len(day.Exercises))
		for i, ex := range day.Exercises {
			sets := make([]SetEntry, len(ex.SetsData))
			copy(sets, ex.SetsData)
			ex.SetsData = sets
			exercises[i] = ex
		}
		day.Exercises = exercises
		out.Schedule[d] = day
	}
	return out
}

// DefaultTemplate is the plan synthesized when a device has no stored templates.
func DefaultTemplate() Template {
	return Template{
		ID:       "p1",
		Name:     "Default Plan",
		Active:   true,
		Schedule: emptySchedule(),
	}
}

func emptySchedule() [DaysInWeek]DayPlan {
	var schedule [DaysInWeek]DayPlan
	for i := range schedule {
		schedule[i] = DayPlan{Exercises: []PlannedExercise{}}
	}
	return schedule
}

func defaultSets() []SetEntry {
	return make([]SetEntry, defaultSetsPerExercise)
}

// Normalize repairs documents written by older clients or other producers:
// nil slices become empty, legacy sets/targetReps become setsData,
// ids are trimmed and exercises always carry at least one set.
func (c *Collections) Normalize() {
	if c.Templates == nil {
		c.Templates = []Template{}
	}
	if c.CustomExercises == nil {
		c.CustomExercises = []CustomExercise{}
	}
	if c.Favorites == nil {
		c.Favorites = Favorites{}
	}

	for ti := range c.Templates {
		for d := range c.Templates[ti].Schedule {
			day := &c.Templates[ti].Schedule[d]
			if day.Exercises == nil {
				day.Exercises = []PlannedExercise{}
			}
			for ei := range day.Exercises {
				migrateLegacySets(&day.Exercises[ei])
			}
		}
	}

	for i := range c.CustomExercises {
		c.CustomExercises[i].IsCustom = true
	}

	favs := make(Favorites, 0, len(c.Favorites))
	for _, id := range c.Favorites {
		id = strings.TrimSpace(id)
		if id == "" || favs.Contains(id) {
			continue
		}
		favs = append(favs, id)
	}
	c.Favorites = favs
}

func migrateLegacySets(ex *PlannedExercise) {
	if len(ex.SetsData) > 0 {
		ex.Sets = 0
		ex.TargetReps = ""
		return
	}

	count := ex.Sets
	if count <= 0 {
		count = defaultSetsPerExercise
	}
	reps := ClampValue(string(ex.TargetReps))
	ex.SetsData = make([]SetEntry, count)
	for i := range ex.SetsData {
		ex.SetsData[i] = SetEntry{Weight: 0, Reps: reps}
	}
	ex.Sets = 0
	ex.TargetReps = ""
}

// ClampValue parses raw user input into a non-negative number; anything else becomes 0.
func ClampValue(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return clamp(v)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// UnmarshalJSON accepts ids written as JSON numbers by older clients and
// normalizes every entry to its string form.
func (f *Favorites) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		*f = nil
		return nil
	}

	favs := make(Favorites, 0, len(raw))
	for _, v := range raw {
		if id := NormalizeID(v); id != "" {
			favs = append(favs, id)
		}
	}
	*f = favs
	return nil
}

// NormalizeID renders a decoded JSON id (string or number) as a string.
func NormalizeID(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

// LooseString decodes from either a JSON string or a JSON number.
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*s = LooseString(NormalizeID(v))
	return nil
}
