package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func validWeeklySchedule() *WeeklySchedule {
	return &WeeklySchedule{
		Weekday:        time.Tuesday,
		Specialization: General(),
		OpenMinute:     9 * 60,
		CloseMinute:    17 * 60,
		SlotMinutes:    30,
	}
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WeeklySchedule)
		wantErr bool
	}{
		{"valid", func(*WeeklySchedule) {}, false},
		{"weekday too large", func(ws *WeeklySchedule) { ws.Weekday = 7 }, true},
		{"weekday negative", func(ws *WeeklySchedule) { ws.Weekday = -1 }, true},
		{"close before open", func(ws *WeeklySchedule) { ws.CloseMinute = 8 * 60 }, true},
		{"zero slot duration", func(ws *WeeklySchedule) { ws.SlotMinutes = 0 }, true},
		{"break start without end", func(ws *WeeklySchedule) {
			m := MinuteOfDay(12 * 60)
			ws.BreakStart = &m
		}, true},
		{"break outside hours", func(ws *WeeklySchedule) {
			s, e := MinuteOfDay(8*60), MinuteOfDay(10*60)
			ws.BreakStart, ws.BreakEnd = &s, &e
		}, true},
		{"valid break", func(ws *WeeklySchedule) {
			s, e := MinuteOfDay(12*60), MinuteOfDay(13*60)
			ws.BreakStart, ws.BreakEnd = &s, &e
		}, false},
		{"zero cap", func(ws *WeeklySchedule) {
			c := 0
			ws.MaxAppointments = &c
		}, true},
		{"unknown legacy kind", func(ws *WeeklySchedule) {
			ws.Specialization = ByLegacyKind("surgery")
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := validWeeklySchedule()
			tt.mutate(ws)
			err := validateSchedule(ws)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSchedule)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSpecializationKey(t *testing.T) {
	assert.Equal(t, "general", General().Key())
	assert.Equal(t, "legacy:follow_up", ByLegacyKind(KindFollowUp).Key())

	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.Equal(t, "kind:"+id.String(), ByKindID(id).Key())

	_, isKind := ByKindID(id).KindID()
	assert.True(t, isKind)
	assert.True(t, General().IsGeneral())
	assert.False(t, ByKindID(id).IsGeneral())
}
