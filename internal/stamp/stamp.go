package stamp

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ISOLayout matches the millisecond precision UTC format used for lastSynced.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

var ErrInvalidTimestamp = errors.New("invalid timestamp")

// Clock hands out strictly increasing epoch-millis stamps.
// A single Clock is shared by the local store and the remote pushes of a device,
// so lastModified and lastSynced are always comparable.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func NewClock() *Clock {
	return NewClockWithNow(time.Now)
}

func NewClockWithNow(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Next returns the current wall clock in millis, bumped past the previous stamp if needed.
func (c *Clock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return ms
}

// Observe makes sure later stamps are issued after ms.
// Used when adopting timestamps that came from another device.
func (c *Clock) Observe(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ms > c.last {
		c.last = ms
	}
}

func FormatISO(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(ISOLayout)
}

// ParseISO parses an ISO-8601 timestamp into epoch millis.
// An empty string is treated as the zero time (0).
func ParseISO(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTimestamp, err)
	}
	return t.UnixMilli(), nil
}
