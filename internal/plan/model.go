package plan

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	ErrLastTemplate           = errors.New("cannot delete the only template")
	ErrLastSet                = errors.New("exercise must keep at least one set")
	ErrOutOfRange             = errors.New("index out of range")
	ErrEmptyName              = errors.New("name is empty")
	ErrEmptyID                = errors.New("exercise id is empty")
	ErrUnknownField           = errors.New("unknown set field")
	ErrCustomExerciseNotFound = errors.New("custom exercise not found")
)

// errUnchanged lets a mutation bail out without persisting anything.
var errUnchanged = errors.New("unchanged")

type SetField string

const (
	FieldWeight SetField = "weight"
	FieldReps   SetField = "reps"
)

// Persister receives every applied mutation together with a snapshot of the model.
// It is called with the model locked, so calls never interleave.
type Persister interface {
	Persist(key Key, snapshot Collections)
}

// Model is the in-memory plan of one session. All mutations are serialized;
// a successful mutation calls the Persister exactly once.
type Model struct {
	// gate is write-locked by Freeze while the session start-up reconciles,
	// mutations hold the read side
	gate sync.RWMutex

	mu        sync.Mutex
	data      Collections
	template  int
	day       int
	persister Persister

	// ability to inject id generation (for unit testing)
	NewIDFunc func(prefix string) string
}

func NewModel(data Collections, persister Persister) *Model {
	m := &Model{
		persister: persister,
		day:       WeekdayIndex(time.Now()),
		NewIDFunc: newID,
	}
	m.data = prepare(data)
	return m
}

// WeekdayIndex maps t to a schedule index, Monday being 0.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % DaysInWeek
}

func newID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return prefix + id.String()
}

func prepare(data Collections) Collections {
	data = data.Clone()
	data.Normalize()
	if len(data.Templates) == 0 {
		data.Templates = []Template{DefaultTemplate()}
	}
	return data
}

// Freeze blocks all mutations until the returned release func is called.
func (m *Model) Freeze() (release func()) {
	m.gate.Lock()
	var once sync.Once
	return func() {
		once.Do(m.gate.Unlock)
	}
}

// Replace swaps the whole model content without persisting it.
// Used by the reconciler when remote data wins.
func (m *Model) Replace(data Collections) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = prepare(data)
	if m.template >= len(m.data.Templates) {
		m.template = 0
	}
}

// Snapshot returns a deep copy of the current data.
func (m *Model) Snapshot() Collections {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.Clone()
}

func (m *Model) Selected() (template, day int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.template, m.day
}

func (m *Model) SelectTemplate(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.data.Templates) {
		return fmt.Errorf("template %d: %w", index, ErrOutOfRange)
	}
	m.template = index
	return nil
}

func (m *Model) SelectDay(index int) error {
	if index < 0 || index >= DaysInWeek {
		return fmt.Errorf("day %d: %w", index, ErrOutOfRange)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.day = index
	return nil
}

func (m *Model) mutate(key Key, fn func(c *Collections) error) error {
	m.gate.RLock()
	defer m.gate.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := fn(&m.data); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}

	if m.persister != nil {
		m.persister.Persist(key, m.data.Clone())
	}
	return nil
}

func (c *Collections) templateAt(t int) (*Template, error) {
	if t < 0 || t >= len(c.Templates) {
		return nil, fmt.Errorf("template %d: %w", t, ErrOutOfRange)
	}
	return &c.Templates[t], nil
}

func (c *Collections) dayAt(t, d int) (*DayPlan, error) {
	tmpl, err := c.templateAt(t)
	if err != nil {
		return nil, err
	}
	if d < 0 || d >= DaysInWeek {
		return nil, fmt.Errorf("day %d: %w", d, ErrOutOfRange)
	}
	return &tmpl.Schedule[d], nil
}

func (c *Collections) exerciseAt(t, d, e int) (*PlannedExercise, error) {
	day, err := c.dayAt(t, d)
	if err != nil {
		return nil, err
	}
	if e < 0 || e >= len(day.Exercises) {
		return nil, fmt.Errorf("exercise %d: %w", e, ErrOutOfRange)
	}
	return &day.Exercises[e], nil
}

// AddTemplate appends a new inactive template and selects it.
func (m *Model) AddTemplate(name string) (Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Template{}, ErrEmptyName
	}

	var added Template
	err := m.mutate(KeyTemplates, func(c *Collections) error {
		added = Template{
			ID:       m.NewIDFunc("p"),
			Name:     name,
			Active:   false,
			Schedule: emptySchedule(),
		}
		c.Templates = append(c.Templates, added)
		m.template = len(c.Templates) - 1
		return nil
	})
	return added, err
}

func (m *Model) RenameTemplate(index int, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	return m.mutate(KeyTemplates, func(c *Collections) error {
		tmpl, err := c.templateAt(index)
		if err != nil {
			return err
		}
		tmpl.Name = name
		return nil
	})
}

// DeleteTemplate removes a template; the last remaining one cannot be deleted.
func (m *Model) DeleteTemplate(index int) error {
	return m.mutate(KeyTemplates, func(c *Collections) error {
		if _, err := c.templateAt(index); err != nil {
			return err
		}
		if len(c.Templates) == 1 {
			return ErrLastTemplate
		}
		c.Templates = append(c.Templates[:index], c.Templates[index+1:]...)
		m.template = 0
		return nil
	})
}

func (m *Model) SetRestDay(t, d int, isRest bool) error {
	return m.mutate(KeyTemplates, func(c *Collections) error {
		day, err := c.dayAt(t, d)
		if err != nil {
			return err
		}
		day.IsRest = isRest
		return nil
	})
}

// SetDayName overrides the weekday label; blank or the default weekday name clears it.
func (m *Model) SetDayName(t, d int, name string) error {
	return m.mutate(KeyTemplates, func(c *Collections) error {
		day, err := c.dayAt(t, d)
		if err != nil {
			return err
		}
		name = strings.TrimSpace(name)
		if name == Weekdays[d] {
			name = ""
		}
		day.DayName = name
		return nil
	})
}

// AddExercise appends an exercise with the default three empty sets.
func (m *Model) AddExercise(t, d int, id, name string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	return m.mutate(KeyTemplates, func(c *Collections) error {
		day, err := c.dayAt(t, d)
		if err != nil {
			return err
		}
		day.Exercises = append(day.Exercises, PlannedExercise{
			ID:       id,
			Name:     name,
			SetsData: defaultSets(),
		})
		return nil
	})
}

func (m *Model) RemoveExercise(t, d, e int) error {
	return m.mutate(KeyTemplates, func(c *Collections) error {
		day, err := c.dayAt(t, d)
		if err != nil {
			return err
		}
		if e < 0 || e >= len(day.Exercises) {
			return fmt.Errorf("exercise %d: %w", e, ErrOutOfRange)
		}
		day.Exercises = append(day.Exercises[:e], day.Exercises[e+1:]...)
		return nil
	})
}

// AddSet appends a copy of the last set.
func (m *Model) AddSet(t, d, e int) error {
	return m.mutate(KeyTemplates, func(c *Collections) error {
		ex, err := c.exerciseAt(t, d, e)
		if err != nil {
			return err
		}
		next := SetEntry{}
		if n := len(ex.SetsData); n > 0 {
			next = ex.SetsData[n-1]
		}
		ex.SetsData = append(ex.SetsData, next)
		return nil
	})
}

// RemoveSet drops the last set; an exercise always keeps one.
func (m *Model) RemoveSet(t, d, e int) error {
	return m.mutate(KeyTemplates, func(c *Collections) error {
		ex, err := c.exerciseAt(t, d, e)
		if err != nil {
			return err
		}
		if len(ex.SetsData) <= 1 {
			return ErrLastSet
		}
		ex.SetsData = ex.SetsData[:len(ex.SetsData)-1]
		return nil
	})
}

// UpdateSet stores raw user input into one set field, returning the stored value.
// Negative, non-numeric and non-finite input is stored as 0.
func (m *Model) UpdateSet(t, d, e, s int, field SetField, raw string) (float64, error) {
	if field != FieldWeight && field != FieldReps {
		return 0, fmt.Errorf("%q: %w", field, ErrUnknownField)
	}

	value := ClampValue(raw)
	err := m.mutate(KeyTemplates, func(c *Collections) error {
		ex, err := c.exerciseAt(t, d, e)
		if err != nil {
			return err
		}
		if s < 0 || s >= len(ex.SetsData) {
			return fmt.Errorf("set %d: %w", s, ErrOutOfRange)
		}
		if field == FieldWeight {
			ex.SetsData[s].Weight = value
		} else {
			ex.SetsData[s].Reps = value
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (m *Model) AddFavorite(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyID
	}
	return m.mutate(KeyFavorites, func(c *Collections) error {
		if c.Favorites.Contains(id) {
			return errUnchanged
		}
		c.Favorites = append(c.Favorites, id)
		return nil
	})
}

func (m *Model) RemoveFavorite(id string) error {
	id = strings.TrimSpace(id)
	return m.mutate(KeyFavorites, func(c *Collections) error {
		i := c.Favorites.index(id)
		if i < 0 {
			return errUnchanged
		}
		c.Favorites = append(c.Favorites[:i], c.Favorites[i+1:]...)
		return nil
	})
}

// ToggleFavorite stars or un-stars id and reports whether it is now a favorite.
func (m *Model) ToggleFavorite(id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, ErrEmptyID
	}

	var starred bool
	err := m.mutate(KeyFavorites, func(c *Collections) error {
		if i := c.Favorites.index(id); i >= 0 {
			c.Favorites = append(c.Favorites[:i], c.Favorites[i+1:]...)
			starred = false
			return nil
		}
		c.Favorites = append(c.Favorites, id)
		starred = true
		return nil
	})
	return starred, err
}

type CustomExerciseFields struct {
	Name     string
	Target   string
	BodyPart string
	GifURL   string
}

func (m *Model) AddCustomExercise(fields CustomExerciseFields) (CustomExercise, error) {
	name := capitalize(strings.TrimSpace(fields.Name))
	if name == "" {
		return CustomExercise{}, ErrEmptyName
	}

	bodyPart := strings.ToLower(strings.TrimSpace(fields.BodyPart))
	if bodyPart == "" {
		bodyPart = "custom"
	}
	target := strings.TrimSpace(fields.Target)
	if target == "" {
		target = "custom"
	}

	var added CustomExercise
	err := m.mutate(KeyCustomExercises, func(c *Collections) error {
		added = CustomExercise{
			ID:       m.NewIDFunc("c"),
			Name:     name,
			Target:   target,
			BodyPart: bodyPart,
			IsCustom: true,
			GifURL:   fields.GifURL,
		}
		c.CustomExercises = append(c.CustomExercises, added)
		return nil
	})
	return added, err
}

func (m *Model) DeleteCustomExercise(id string) error {
	return m.mutate(KeyCustomExercises, func(c *Collections) error {
		for i, ex := range c.CustomExercises {
			if ex.ID == id {
				c.CustomExercises = append(c.CustomExercises[:i], c.CustomExercises[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%s: %w", id, ErrCustomExerciseNotFound)
	})
}

// SubmitCustomExercise flags a custom exercise for inclusion in the shared catalog.
func (m *Model) SubmitCustomExercise(id, submittedBy string) error {
	return m.mutate(KeyCustomExercises, func(c *Collections) error {
		for i := range c.CustomExercises {
			if c.CustomExercises[i].ID == id {
				c.CustomExercises[i].PendingGlobalApproval = true
				c.CustomExercises[i].SubmittedBy = submittedBy
				return nil
			}
		}
		return fmt.Errorf("%s: %w", id, ErrCustomExerciseNotFound)
	})
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
