package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// SlotDuration is the fixed length of every bookable slot.
	SlotDuration = time.Hour

	// DefaultHorizonDays is how far ahead slots are offered, counting
	// today as day zero.
	DefaultHorizonDays = 6

	DateLayout = "2006-01-02"
	TimeLayout = "3:04 PM"
)

// ComputeSlots derives the open slots for a provider over the next
// horizonDays days, starting at now. A slot is emitted when it fully
// fits inside the provider's window for that weekday, starts strictly
// in the future (today only) and has no key in taken. Emission order is
// date ascending, then time ascending.
func ComputeSlots(p *Provider, now time.Time, horizonDays int, taken map[SlotKey]struct{}) ([]Slot, error) {
	var slots []Slot

	for i := 0; i < horizonDays; i++ {
		day := now.AddDate(0, 0, i)

		w, ok := windowFor(p, day.Weekday())
		if !ok {
			continue
		}

		starts, err := sliceWindow(day, w)
		if err != nil {
			return nil, fmt.Errorf("provider %s window for %s: %w", p.ID, day.Weekday(), err)
		}

		date := day.Format(DateLayout)
		for _, start := range starts {
			if i == 0 && !start.After(now) {
				continue
			}
			key := SlotKey{Date: date, Time: start.Format(TimeLayout)}
			if _, booked := taken[key]; booked {
				continue
			}
			slots = append(slots, Slot{
				ProviderID: p.ID,
				Date:       key.Date,
				Time:       key.Time,
			})
		}
	}

	return slots, nil
}

// windowFor returns the first window matching the weekday. Providers
// carry at most one window per day.
func windowFor(p *Provider, day time.Weekday) (Window, bool) {
	for _, w := range p.Windows {
		if w.DayOfWeek == int(day) {
			return w, true
		}
	}
	return Window{}, false
}

// sliceWindow cuts [start, end) into SlotDuration intervals on the
// given calendar day. A trailing interval that does not fully fit
// before the window end is dropped.
func sliceWindow(day time.Time, w Window) ([]time.Time, error) {
	sh, sm, err := parseClock(w.StartTime)
	if err != nil {
		return nil, fmt.Errorf("start time %q: %w", w.StartTime, err)
	}
	eh, em, err := parseClock(w.EndTime)
	if err != nil {
		return nil, fmt.Errorf("end time %q: %w", w.EndTime, err)
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), sh, sm, 0, 0, day.Location())
	end := time.Date(day.Year(), day.Month(), day.Day(), eh, em, 0, 0, day.Location())

	var starts []time.Time
	for t := start; !t.Add(SlotDuration).After(end); t = t.Add(SlotDuration) {
		starts = append(starts, t)
	}
	return starts, nil
}

// parseClock parses a wall-clock "HH:MM" string.
func parseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed clock value %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("clock value %q out of range", s)
	}
	return hour, minute, nil
}

// slotKeySet builds the exclusion set for an availability query once,
// from the current reservation snapshot.
func slotKeySet(reservations []Reservation) map[SlotKey]struct{} {
	set := make(map[SlotKey]struct{}, len(reservations))
	for _, r := range reservations {
		set[r.Key()] = struct{}{}
	}
	return set
}
