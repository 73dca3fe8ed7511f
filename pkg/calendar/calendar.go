// Package calendar finds the next free appointment slot in working hours.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	"gopkg.in/yaml.v3"
)

const defaultTimezone = "America/Bogota"

// Interval is one busy block on the calendar.
type Interval struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// BusySource lists the busy intervals overlapping [from, to).
type BusySource interface {
	Busy(ctx context.Context, from, to time.Time) ([]Interval, error)
}

// StaticBusy is a fixed list of busy intervals.
type StaticBusy []Interval

func (s StaticBusy) Busy(_ context.Context, from, to time.Time) ([]Interval, error) {
	out := make([]Interval, 0, len(s))
	for _, iv := range s {
		if iv.End.After(from) && iv.Start.Before(to) {
			out = append(out, iv)
		}
	}
	return out, nil
}

// LoadStaticBusy reads a YAML list of {start, end} RFC 3339 timestamps.
func LoadStaticBusy(path string) (StaticBusy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read busy file: %w", err)
	}
	var out StaticBusy
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse busy file: %w", err)
	}
	for i, iv := range out {
		if !iv.End.After(iv.Start) {
			return nil, fmt.Errorf("%w: busy interval %d ends before it starts", contractx.ErrValidation, i)
		}
	}
	return out, nil
}

type Config struct {
	BusyFile     string `envconfig:"BUSY_FILE" split_words:"true"`
	Timezone     string `envconfig:"TIMEZONE" split_words:"true" default:"America/Bogota"`
	DayStartHour int    `envconfig:"DAY_START_HOUR" split_words:"true" default:"8"`
	DayEndHour   int    `envconfig:"DAY_END_HOUR" split_words:"true" default:"17"`
	HorizonDays  int    `envconfig:"HORIZON_DAYS" split_words:"true" default:"7"`
}

func (c Config) Validate() error {
	if c.DayStartHour < 0 || c.DayEndHour > 24 || c.DayStartHour >= c.DayEndHour {
		return fmt.Errorf("%w: invalid working hours %d-%d", contractx.ErrValidation, c.DayStartHour, c.DayEndHour)
	}
	if c.HorizonDays <= 0 {
		return fmt.Errorf("%w: horizon days must be > 0", contractx.ErrValidation)
	}
	return nil
}

// Finder implements contract.Calendar over a BusySource.
type Finder struct {
	src       BusySource
	loc       *time.Location
	startHour int
	endHour   int
	days      int
	now       func() time.Time
}

var _ contractx.Calendar = (*Finder)(nil)

func New(src BusySource, cfg Config) (*Finder, error) {
	if src == nil {
		return nil, errors.New("busy source is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Finder{
		src:       src,
		loc:       Location(cfg.Timezone),
		startHour: cfg.DayStartHour,
		endHour:   cfg.DayEndHour,
		days:      cfg.HorizonDays,
		now:       time.Now,
	}, nil
}

// Location loads name, falling back to Bogotá's fixed UTC-5 offset.
func Location(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("COT", -5*60*60)
	}
	return loc
}

// FindSlot returns the first gap of at least minutes within working hours,
// starting one hour from now rounded up to the hour. It returns nil when the
// horizon has no such gap.
func (f *Finder) FindSlot(ctx context.Context, minutes int) (*contractx.Slot, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be > 0", contractx.ErrValidation)
	}
	duration := time.Duration(minutes) * time.Minute

	earliest := ceilHour(f.now().In(f.loc).Add(time.Hour))
	firstDay := startOfDay(earliest)

	busy, err := f.src.Busy(ctx, firstDay, firstDay.AddDate(0, 0, f.days))
	if err != nil {
		return nil, fmt.Errorf("%w: busy intervals: %v", contractx.ErrCollaborator, err)
	}

	for d := 0; d < f.days; d++ {
		day := firstDay.AddDate(0, 0, d)
		dayStart := day.Add(time.Duration(f.startHour) * time.Hour)
		dayEnd := day.Add(time.Duration(f.endHour) * time.Hour)

		today := clip(busy, dayStart, dayEnd)
		cursor := dayStart
		if d == 0 && cursor.Before(earliest) {
			cursor = earliest
		}
		for _, b := range today {
			if b.Start.Sub(cursor) >= duration {
				return &contractx.Slot{Start: cursor, End: cursor.Add(duration)}, nil
			}
			if cursor.Before(b.End) {
				cursor = b.End
			}
		}
		if dayEnd.Sub(cursor) >= duration {
			return &contractx.Slot{Start: cursor, End: cursor.Add(duration)}, nil
		}
	}
	return nil, nil
}

func clip(busy []Interval, from, to time.Time) []Interval {
	out := make([]Interval, 0, len(busy))
	for _, b := range busy {
		if !b.End.After(from) || !b.Start.Before(to) {
			continue
		}
		s, e := b.Start.In(from.Location()), b.End.In(from.Location())
		if s.Before(from) {
			s = from
		}
		if e.After(to) {
			e = to
		}
		out = append(out, Interval{Start: s, End: e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func ceilHour(t time.Time) time.Time {
	h := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	if h.Equal(t) {
		return h
	}
	return h.Add(time.Hour)
}
