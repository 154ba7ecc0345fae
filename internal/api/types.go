package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/postopcare/clinic-scheduling/internal/booking"
	"github.com/postopcare/clinic-scheduling/internal/schedule"
)

const dateLayout = "2006-01-02"

type CreateAppointmentRequest struct {
	ClinicID        string `json:"clinic_id"`
	PatientID       string `json:"patient_id"`
	Date            string `json:"date"` // YYYY-MM-DD
	Time            string `json:"time"` // HH:MM, 24h zero-padded
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Kind            string `json:"kind"`
	KindID          string `json:"kind_id,omitempty"`
}

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	ClinicID        uuid.UUID `json:"clinic_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	Kind            string    `json:"kind"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		ClinicID:        a.ClinicID,
		PatientID:       a.PatientID,
		Date:            a.Day.Format(dateLayout),
		Time:            a.Start.Clock(),
		DurationMinutes: a.DurationMinutes,
		Kind:            string(a.Kind),
		Status:          string(a.Status),
		CreatedAt:       a.CreatedAt,
	}
}

type SlotResponse struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type AvailabilityResponse struct {
	Available   bool           `json:"available"`
	Reason      string         `json:"reason,omitempty"`
	Slots       []SlotResponse `json:"slots"`
	BookedCount int            `json:"booked_count"`
	ScheduleID  *uuid.UUID     `json:"schedule_id,omitempty"`
}

func toAvailabilityResponse(day *booking.DayAvailability) AvailabilityResponse {
	resp := AvailabilityResponse{
		Available:   day.Available,
		Reason:      day.Reason,
		Slots:       make([]SlotResponse, 0, len(day.Slots)),
		BookedCount: day.BookedCount,
	}
	for _, s := range day.Slots {
		resp.Slots = append(resp.Slots, SlotResponse{Time: s.Start.Clock(), Available: s.Available})
	}
	if day.Schedule != nil {
		id := day.Schedule.ID
		resp.ScheduleID = &id
	}
	return resp
}

type ScheduleRequest struct {
	Weekday         int    `json:"weekday"` // 0=Sunday .. 6=Saturday
	KindID          string `json:"kind_id,omitempty"`
	Kind            string `json:"kind,omitempty"`
	Open            string `json:"open"`
	Close           string `json:"close"`
	BreakStart      string `json:"break_start,omitempty"`
	BreakEnd        string `json:"break_end,omitempty"`
	SlotMinutes     int    `json:"slot_minutes"`
	MaxAppointments *int   `json:"max_appointments,omitempty"`
	Active          *bool  `json:"active,omitempty"`
}

type ScheduleResponse struct {
	ID              uuid.UUID `json:"id"`
	ClinicID        uuid.UUID `json:"clinic_id"`
	Weekday         int       `json:"weekday"`
	Specialization  string    `json:"specialization"`
	Open            string    `json:"open"`
	Close           string    `json:"close"`
	BreakStart      string    `json:"break_start,omitempty"`
	BreakEnd        string    `json:"break_end,omitempty"`
	SlotMinutes     int       `json:"slot_minutes"`
	MaxAppointments *int      `json:"max_appointments,omitempty"`
	Active          bool      `json:"active"`
}

func toScheduleResponse(ws *schedule.WeeklySchedule) ScheduleResponse {
	resp := ScheduleResponse{
		ID:              ws.ID,
		ClinicID:        ws.ClinicID,
		Weekday:         int(ws.Weekday),
		Specialization:  ws.Specialization.Key(),
		Open:            ws.OpenMinute.Clock(),
		Close:           ws.CloseMinute.Clock(),
		SlotMinutes:     ws.SlotMinutes,
		MaxAppointments: ws.MaxAppointments,
		Active:          ws.Active,
	}
	if ws.BreakStart != nil {
		resp.BreakStart = ws.BreakStart.Clock()
	}
	if ws.BreakEnd != nil {
		resp.BreakEnd = ws.BreakEnd.Clock()
	}
	return resp
}

type BlockDateRequest struct {
	Date   string  `json:"date"`
	Kind   string  `json:"kind,omitempty"`
	Reason *string `json:"reason,omitempty"`
}

type BlockedDateResponse struct {
	ID       uuid.UUID `json:"id"`
	ClinicID uuid.UUID `json:"clinic_id"`
	Date     string    `json:"date"`
	Kind     string    `json:"kind,omitempty"`
	Reason   *string   `json:"reason,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
