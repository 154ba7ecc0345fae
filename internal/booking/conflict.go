package booking

import "github.com/postopcare/clinic-scheduling/internal/schedule"

// Slot is one candidate interval on the day grid, annotated with
// whether an existing booking already occupies any part of it.
type Slot struct {
	Start     schedule.MinuteOfDay
	Available bool
}

// MarkConflicts annotates candidate slot starts against existing
// bookings. A slot spanning [s, s+slotMinutes) is occupied iff it
// overlaps any booking interval: slotStart < aptEnd && slotEnd >
// aptStart. A 60-minute booking on a 30-minute grid therefore claims
// two slots, not just the one sharing its start time. Cancelled and
// soft-deleted bookings never block.
func MarkConflicts(starts []schedule.MinuteOfDay, slotMinutes int, existing []Appointment) []Slot {
	slots := make([]Slot, 0, len(starts))
	for _, start := range starts {
		end := start + schedule.MinuteOfDay(slotMinutes)

		available := true
		for i := range existing {
			apt := &existing[i]
			if !apt.Blocking() {
				continue
			}
			aptStart, aptEnd := apt.Interval(slotMinutes)
			if start < aptEnd && end > aptStart {
				available = false
				break
			}
		}
		slots = append(slots, Slot{Start: start, Available: available})
	}
	return slots
}

// overlapsExisting reports whether [start, end) collides with any
// blocking booking. fallbackMinutes covers legacy rows with no stored
// duration.
func overlapsExisting(start, end schedule.MinuteOfDay, fallbackMinutes int, existing []Appointment) bool {
	for i := range existing {
		apt := &existing[i]
		if !apt.Blocking() {
			continue
		}
		aptStart, aptEnd := apt.Interval(fallbackMinutes)
		if start < aptEnd && end > aptStart {
			return true
		}
	}
	return false
}
