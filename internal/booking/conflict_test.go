package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postopcare/clinic-scheduling/internal/schedule"
)

func apt(start schedule.MinuteOfDay, duration *int, status Status) Appointment {
	return Appointment{
		ID:              uuid.New(),
		Start:           start,
		DurationMinutes: duration,
		Status:          status,
	}
}

func intp(v int) *int { return &v }

func availableTimes(slots []Slot) []string {
	var out []string
	for _, s := range slots {
		if s.Available {
			out = append(out, s.Start.Clock())
		}
	}
	return out
}

func occupiedTimes(slots []Slot) []string {
	var out []string
	for _, s := range slots {
		if !s.Available {
			out = append(out, s.Start.Clock())
		}
	}
	return out
}

func TestMarkConflictsLongBookingClaimsMultipleSlots(t *testing.T) {
	// 09:00 booking with 60-minute duration on a 30-minute grid must
	// occupy both 09:00 and 09:30.
	starts := schedule.GenerateSlots(8*60, 12*60, 30, nil)
	existing := []Appointment{apt(9*60, intp(60), StatusConfirmed)}

	slots := MarkConflicts(starts, 30, existing)

	assert.Equal(t, []string{"09:00", "09:30"}, occupiedTimes(slots))
	assert.Contains(t, availableTimes(slots), "08:30")
	assert.Contains(t, availableTimes(slots), "10:00")
}

func TestMarkConflictsAdjacentIntervalsDoNotCollide(t *testing.T) {
	starts := schedule.GenerateSlots(9*60, 11*60, 30, nil)
	existing := []Appointment{apt(9*60+30, intp(30), StatusPending)}

	slots := MarkConflicts(starts, 30, existing)

	// [09:30,10:00) blocks only its own slot; neighbours stay free.
	assert.Equal(t, []string{"09:30"}, occupiedTimes(slots))
}

func TestMarkConflictsLegacyDurationFallback(t *testing.T) {
	// A legacy row with no stored duration spans one current grid slot.
	starts := schedule.GenerateSlots(9*60, 11*60, 30, nil)
	existing := []Appointment{apt(10*60, nil, StatusConfirmed)}

	slots := MarkConflicts(starts, 30, existing)
	assert.Equal(t, []string{"10:00"}, occupiedTimes(slots))

	// On a 60-minute grid the same legacy row swallows the whole hour.
	starts = schedule.GenerateSlots(9*60, 12*60, 60, nil)
	slots = MarkConflicts(starts, 60, existing)
	assert.Equal(t, []string{"10:00"}, occupiedTimes(slots))
}

func TestMarkConflictsIgnoresCancelledAndDeleted(t *testing.T) {
	now := time.Now()
	deleted := apt(9*60, intp(30), StatusConfirmed)
	deleted.DeletedAt = &now

	starts := schedule.GenerateSlots(9*60, 11*60, 30, nil)
	existing := []Appointment{
		apt(9*60, intp(30), StatusCancelled),
		deleted,
	}

	slots := MarkConflicts(starts, 30, existing)
	assert.Empty(t, occupiedTimes(slots))
}

func TestMarkConflictsOffGridBooking(t *testing.T) {
	// A 09:15 booking straddles the 09:00 and 09:30 grid slots.
	starts := schedule.GenerateSlots(9*60, 11*60, 30, nil)
	existing := []Appointment{apt(9*60+15, intp(30), StatusConfirmed)}

	slots := MarkConflicts(starts, 30, existing)
	assert.Equal(t, []string{"09:00", "09:30"}, occupiedTimes(slots))
}

func TestOverlapsExisting(t *testing.T) {
	existing := []Appointment{apt(10*60, intp(45), StatusConfirmed)}

	require.True(t, overlapsExisting(10*60, 10*60+30, 30, existing))
	require.True(t, overlapsExisting(10*60+30, 11*60, 30, existing))  // tail overlap
	require.False(t, overlapsExisting(10*60+45, 11*60, 30, existing)) // adjacent
	require.False(t, overlapsExisting(9*60, 10*60, 30, existing))     // ends at start
}
