package schedule

import (
	"errors"
	"fmt"
)

var ErrBadClock = errors.New("time must be zero-padded 24h HH:MM")

// MinuteOfDay is a clock time expressed as minutes since midnight.
// "HH:MM" strings exist only at the wire and storage boundaries; all
// arithmetic in the engine happens on this type.
type MinuteOfDay int

const minutesPerDay = 24 * 60

// ParseClock parses a strict zero-padded 24-hour "HH:MM" string.
func ParseClock(s string) (MinuteOfDay, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrBadClock
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrBadClock
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, ErrBadClock
	}
	return MinuteOfDay(h*60 + m), nil
}

func (m MinuteOfDay) Clock() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

func (m MinuteOfDay) Valid() bool {
	return m >= 0 && m < minutesPerDay
}

// BreakWindow is a half-open [Start, End) pause in a day's schedule.
type BreakWindow struct {
	Start MinuteOfDay
	End   MinuteOfDay
}

func (b BreakWindow) contains(m MinuteOfDay) bool {
	return m >= b.Start && m < b.End
}

// GenerateSlots walks a minute cursor from open in steps of slotMinutes
// and returns every slot start that still fits before close. A cursor
// landing inside the break window jumps straight to the break's end
// before being re-tested, so no slot starts mid-break.
func GenerateSlots(open, close MinuteOfDay, slotMinutes int, brk *BreakWindow) []MinuteOfDay {
	if slotMinutes <= 0 || close <= open {
		return nil
	}

	var slots []MinuteOfDay
	cur := open
	for cur+MinuteOfDay(slotMinutes) <= close {
		if brk != nil && brk.contains(cur) {
			cur = brk.End
			continue
		}
		slots = append(slots, cur)
		cur += MinuteOfDay(slotMinutes)
	}
	return slots
}
