package scheduling

import (
	"time"

	"github.com/agendavel/agendavel-api/internal/directory"
)

// DefaultSlotMinutes applies when a provider never configured a default
// appointment length.
const DefaultSlotMinutes = 60

// defaultWindows is the legacy two-shift template, used for providers with
// no working_hours rows: 08:00-12:00 and 14:00-18:00, every day.
func defaultWindows() []window {
	return []window{
		{startMinute: 8 * 60, endMinute: 12 * 60},
		{startMinute: 14 * 60, endMinute: 18 * 60},
	}
}

// window is a bookable stretch of a single day, half-open in minutes from
// midnight.
type window struct {
	startMinute int
	endMinute   int
}

// interval is an occupied [start, end) time range.
type interval struct {
	start time.Time
	end   time.Time
}

func (iv interval) overlaps(start, end time.Time) bool {
	// half-open overlap test: max(starts) < min(ends)
	lo := start
	if iv.start.After(lo) {
		lo = iv.start
	}
	hi := end
	if iv.end.Before(hi) {
		hi = iv.end
	}
	return lo.Before(hi)
}

// windowsForDay projects a provider's weekly configuration onto one date,
// falling back to the two-shift template when nothing is configured.
func windowsForDay(cfg *directory.ProviderConfig, weekday time.Weekday) []window {
	if cfg == nil || len(cfg.Windows) == 0 {
		return defaultWindows()
	}

	var out []window
	for _, w := range cfg.Windows {
		if w.Weekday != weekday {
			continue
		}
		out = append(out, window{startMinute: w.StartMinute, endMinute: w.EndMinute})
	}
	return out
}

// computeSlots walks each window in slot-length steps and keeps every
// candidate that fits inside the window, is not already past (when date is
// today), and overlaps no occupied interval. Results are strictly
// increasing by construction.
func computeSlots(date time.Time, now time.Time, slotMinutes int, windows []window, occupied []interval) []time.Time {
	if slotMinutes <= 0 {
		slotMinutes = DefaultSlotMinutes
	}
	step := time.Duration(slotMinutes) * time.Minute

	year, month, day := date.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, date.Location())
	// the calendar comparison only makes sense with both sides in the
	// date's own zone
	now = now.In(date.Location())
	sameDay := isSameDay(date, now)

	var slots []time.Time
	for _, w := range windows {
		cur := midnight.Add(time.Duration(w.startMinute) * time.Minute)
		windowEnd := midnight.Add(time.Duration(w.endMinute) * time.Minute)

		for !cur.Add(step).After(windowEnd) {
			if sameDay && cur.Before(now) {
				cur = cur.Add(step)
				continue
			}

			end := cur.Add(step)
			free := true
			for _, occ := range occupied {
				if occ.overlaps(cur, end) {
					free = false
					break
				}
			}
			if free {
				slots = append(slots, cur)
			}

			cur = cur.Add(step)
		}
	}

	return slots
}

func isSameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
