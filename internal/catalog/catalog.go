package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/gymplanner/internal/plan"
	"github.com/2beens/gymplanner/internal/telemetry/tracing"
)

var ErrCatalogLoad = errors.New("exercise catalog load failed")

// maxCatalogBytes caps remote catalog downloads
const maxCatalogBytes = 64 * 1024 * 1024

type Exercise struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Target   string `json:"target"`
	BodyPart string `json:"bodyPart"`
	GifURL   string `json:"gifUrl,omitempty"`
	IsCustom bool   `json:"isCustom,omitempty"`
}

// catalog files carry numeric ids in places
type rawExercise struct {
	ID     any    `json:"id"`
	Name   string `json:"name"`
	Target string `json:"target"`
	GifURL string `json:"gifUrl"`
}

// Catalog is the static, read-only exercise reference indexed by body part.
type Catalog struct {
	byBodyPart map[string][]Exercise
	byID       map[string]Exercise
}

// Empty is the catalog used when the reference file is unavailable.
func Empty() *Catalog {
	return &Catalog{
		byBodyPart: map[string][]Exercise{},
		byID:       map[string]Exercise{},
	}
}

// Parse reads a {bodyPart: [exercise]} document.
func Parse(r io.Reader) (*Catalog, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw map[string][]rawExercise
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogLoad, err)
	}

	c := Empty()
	for bodyPart, exercises := range raw {
		bodyPart = strings.ToLower(strings.TrimSpace(bodyPart))
		for _, re := range exercises {
			id := plan.NormalizeID(re.ID)
			if id == "" || re.Name == "" {
				log.Tracef("catalog: skipping exercise without id or name in %s", bodyPart)
				continue
			}
			ex := Exercise{
				ID:       id,
				Name:     re.Name,
				Target:   re.Target,
				BodyPart: bodyPart,
				GifURL:   re.GifURL,
			}
			c.byBodyPart[bodyPart] = append(c.byBodyPart[bodyPart], ex)
			c.byID[id] = ex
		}
	}
	return c, nil
}

func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogLoad, err)
	}
	defer f.Close()
	return Parse(f)
}

// Fetch downloads the catalog file from url.
func Fetch(ctx context.Context, httpClient *http.Client, url string) (c *Catalog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalog.fetch")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogLoad, err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogLoad, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrCatalogLoad, resp.StatusCode)
	}
	return Parse(io.LimitReader(resp.Body, maxCatalogBytes))
}

// LoadOrEmpty loads the catalog from a local path or an http(s) url and
// degrades to an empty catalog on any failure.
func LoadOrEmpty(ctx context.Context, httpClient *http.Client, location string) *Catalog {
	if location == "" {
		return Empty()
	}

	var (
		c   *Catalog
		err error
	)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		c, err = Fetch(ctx, httpClient, location)
	} else {
		c, err = Load(location)
	}
	if err != nil {
		log.Warnf("exercise catalog unavailable, continuing without it: %s", err)
		return Empty()
	}
	return c
}

func (c *Catalog) Len() int {
	return len(c.byID)
}

// BodyParts returns the catalog keys, sorted.
func (c *Catalog) BodyParts() []string {
	parts := make([]string, 0, len(c.byBodyPart))
	for p := range c.byBodyPart {
		parts = append(parts, p)
	}
	sort.Strings(parts)
	return parts
}

func (c *Catalog) Exercises(bodyPart string) []Exercise {
	return c.byBodyPart[bodyPart]
}

func (c *Catalog) Lookup(id string) (Exercise, bool) {
	ex, ok := c.byID[id]
	return ex, ok
}

// all returns every exercise in body part order.
func (c *Catalog) all() []Exercise {
	var out []Exercise
	for _, p := range c.BodyParts() {
		out = append(out, c.byBodyPart[p]...)
	}
	return out
}
