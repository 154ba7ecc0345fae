package schedule

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentKind is the legacy appointment-kind enum carried by older
// clinic configurations. New configurations reference a kind row by id
// instead and leave this empty.
type AppointmentKind string

const (
	KindConsultation  AppointmentKind = "consultation"
	KindFollowUp      AppointmentKind = "follow_up"
	KindExamReview    AppointmentKind = "exam_review"
	KindPhysiotherapy AppointmentKind = "physiotherapy"
	KindTelehealth    AppointmentKind = "telehealth"
)

func (k AppointmentKind) Valid() bool {
	switch k {
	case KindConsultation, KindFollowUp, KindExamReview, KindPhysiotherapy, KindTelehealth:
		return true
	}
	return false
}

type specializationTier int

const (
	tierGeneral specializationTier = iota
	tierKindID
	tierLegacyKind
)

// Specialization says which bookings a weekly schedule row applies to:
// a specific appointment kind by id, a legacy kind enum value, or every
// kind (the clinic's general schedule).
type Specialization struct {
	tier   specializationTier
	kindID uuid.UUID
	legacy AppointmentKind
}

func General() Specialization {
	return Specialization{tier: tierGeneral}
}

func ByKindID(id uuid.UUID) Specialization {
	return Specialization{tier: tierKindID, kindID: id}
}

func ByLegacyKind(k AppointmentKind) Specialization {
	return Specialization{tier: tierLegacyKind, legacy: k}
}

func (s Specialization) IsGeneral() bool { return s.tier == tierGeneral }

func (s Specialization) KindID() (uuid.UUID, bool) {
	return s.kindID, s.tier == tierKindID
}

func (s Specialization) LegacyKind() (AppointmentKind, bool) {
	return s.legacy, s.tier == tierLegacyKind
}

// Key returns a stable textual form, used for logging and as the
// uniqueness dimension of the active-schedule index.
func (s Specialization) Key() string {
	switch s.tier {
	case tierKindID:
		return "kind:" + s.kindID.String()
	case tierLegacyKind:
		return "legacy:" + string(s.legacy)
	default:
		return "general"
	}
}

// WeeklySchedule is a clinic's recurring operating-hours definition for
// one weekday, optionally specialized per appointment kind. At most one
// active row exists per (clinic, weekday, specialization).
type WeeklySchedule struct {
	ID              uuid.UUID
	ClinicID        uuid.UUID
	Weekday         time.Weekday
	Specialization  Specialization
	OpenMinute      MinuteOfDay
	CloseMinute     MinuteOfDay
	BreakStart      *MinuteOfDay
	BreakEnd        *MinuteOfDay
	SlotMinutes     int
	MaxAppointments *int
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Break returns the schedule's break window, or nil when none is set.
func (ws *WeeklySchedule) Break() *BreakWindow {
	if ws.BreakStart == nil || ws.BreakEnd == nil {
		return nil
	}
	return &BreakWindow{Start: *ws.BreakStart, End: *ws.BreakEnd}
}

// Slots expands the schedule into its candidate slot starts.
func (ws *WeeklySchedule) Slots() []MinuteOfDay {
	return GenerateSlots(ws.OpenMinute, ws.CloseMinute, ws.SlotMinutes, ws.Break())
}

// BlockedDate excludes a calendar date from booking for a whole clinic.
type BlockedDate struct {
	ID        uuid.UUID
	ClinicID  uuid.UUID
	Day       time.Time // UTC midnight
	Reason    *string
	CreatedAt time.Time
}

// BlockedDateByKind excludes a calendar date for one appointment kind
// only, e.g. the physio is away but the clinic is otherwise open.
type BlockedDateByKind struct {
	ID        uuid.UUID
	ClinicID  uuid.UUID
	Kind      AppointmentKind
	Day       time.Time
	Reason    *string
	CreatedAt time.Time
}

// Day truncates t to its UTC calendar date. All weekday math in this
// package runs on UTC dates, never on a locale-adjusted wall clock.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
