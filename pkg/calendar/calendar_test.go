package calendar

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
)

var bogota = Location("America/Bogota")

func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.March, day, hour, minute, 0, 0, bogota)
}

func newTestFinder(t *testing.T, src BusySource, now time.Time) *Finder {
	t.Helper()
	f, err := New(src, Config{Timezone: "America/Bogota", DayStartHour: 8, DayEndHour: 17, HorizonDays: 7})
	require.NoError(t, err)
	f.now = func() time.Time { return now }
	return f
}

func TestFindSlotStartsOneHourAheadRoundedUp(t *testing.T) {
	t.Parallel()

	f := newTestFinder(t, StaticBusy(nil), at(2, 9, 20))

	slot, err := f.FindSlot(context.Background(), 60)
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.True(t, slot.Start.Equal(at(2, 11, 0)), "start = %s", slot.Start)
	assert.True(t, slot.End.Equal(at(2, 12, 0)), "end = %s", slot.End)
}

func TestFindSlotBeforeWorkingHours(t *testing.T) {
	t.Parallel()

	f := newTestFinder(t, StaticBusy(nil), at(2, 5, 0))

	slot, err := f.FindSlot(context.Background(), 30)
	require.NoError(t, err)
	assert.True(t, slot.Start.Equal(at(2, 8, 0)), "start = %s", slot.Start)
}

func TestFindSlotSkipsBusyBlocks(t *testing.T) {
	t.Parallel()

	busy := StaticBusy{
		{Start: at(2, 10, 0), End: at(2, 11, 30)},
		{Start: at(2, 12, 0), End: at(2, 16, 30)},
		{Start: at(2, 11, 15), End: at(2, 11, 45)},
	}
	f := newTestFinder(t, busy, at(2, 8, 30))

	// 10:00 is the earliest; 11:45-12:00 is too short for 60 minutes and
	// 16:30-17:00 as well, so the next day opens at 08:00.
	slot, err := f.FindSlot(context.Background(), 60)
	require.NoError(t, err)
	assert.True(t, slot.Start.Equal(at(3, 8, 0)), "start = %s", slot.Start)

	slot, err = f.FindSlot(context.Background(), 15)
	require.NoError(t, err)
	assert.True(t, slot.Start.Equal(at(2, 11, 45)), "start = %s", slot.Start)
}

func TestFindSlotNoneInHorizon(t *testing.T) {
	t.Parallel()

	busy := StaticBusy{{Start: at(1, 0, 0), End: at(20, 0, 0)}}
	f := newTestFinder(t, busy, at(2, 9, 0))

	slot, err := f.FindSlot(context.Background(), 60)
	require.NoError(t, err)
	assert.Nil(t, slot)
}

type failingSource struct{}

func (failingSource) Busy(context.Context, time.Time, time.Time) ([]Interval, error) {
	return nil, errors.New("graph unavailable")
}

func TestFindSlotSourceFailure(t *testing.T) {
	t.Parallel()

	f := newTestFinder(t, failingSource{}, at(2, 9, 0))
	_, err := f.FindSlot(context.Background(), 60)
	assert.ErrorIs(t, err, contractx.ErrCollaborator)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	assert.Error(t, Config{DayStartHour: 17, DayEndHour: 8, HorizonDays: 7}.Validate())
	assert.Error(t, Config{DayStartHour: 8, DayEndHour: 17}.Validate())
	assert.NoError(t, Config{DayStartHour: 8, DayEndHour: 17, HorizonDays: 1}.Validate())
}

func TestLoadStaticBusy(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "busy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- start: 2026-03-02T08:00:00-05:00
  end: 2026-03-02T12:00:00-05:00
`), 0o600))

	busy, err := LoadStaticBusy(path)
	require.NoError(t, err)
	require.Len(t, busy, 1)

	f := newTestFinder(t, busy, at(2, 6, 0))
	slot, err := f.FindSlot(context.Background(), 60)
	require.NoError(t, err)
	assert.True(t, slot.Start.Equal(at(2, 12, 0)), "start = %s", slot.Start)

	require.NoError(t, os.WriteFile(path, []byte(`
- start: 2026-03-02T12:00:00-05:00
  end: 2026-03-02T08:00:00-05:00
`), 0o600))
	_, err = LoadStaticBusy(path)
	assert.ErrorIs(t, err, contractx.ErrValidation)
}
