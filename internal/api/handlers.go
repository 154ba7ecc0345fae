package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/postopcare/clinic-scheduling/internal/booking"
	redisclient "github.com/postopcare/clinic-scheduling/internal/redis"
	"github.com/postopcare/clinic-scheduling/internal/schedule"
)

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// parseKindParams reads the optional kind_id / kind pair shared by the
// availability and booking endpoints.
func parseKindParams(kindIDStr, kindStr string) (*uuid.UUID, *schedule.AppointmentKind, error) {
	var kindID *uuid.UUID
	if kindIDStr != "" {
		id, err := uuid.Parse(kindIDStr)
		if err != nil {
			return nil, nil, errors.New("kind_id must be a valid UUID")
		}
		kindID = &id
	}

	var kind *schedule.AppointmentKind
	if kindStr != "" {
		k := schedule.AppointmentKind(kindStr)
		if !k.Valid() {
			return nil, nil, errors.New("unknown appointment kind")
		}
		kind = &k
	}

	return kindID, kind, nil
}

func availabilityHandler(svc AvailabilityReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, err := uuid.Parse(chi.URLParam(r, "clinicID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinicID must be a valid UUID")
			return
		}

		date, err := parseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		kindID, kind, err := parseKindParams(r.URL.Query().Get("kind_id"), r.URL.Query().Get("kind"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_kind", err.Error())
			return
		}

		day, err := svc.DayAvailability(r.Context(), clinicID, date, kindID, kind)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toAvailabilityResponse(day))
	}
}

func createAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		clinicID, err := uuid.Parse(req.ClinicID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinic_id must be a valid UUID")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		date, err := parseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		start, err := schedule.ParseClock(req.Time)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
			return
		}

		if req.DurationMinutes < 0 {
			writeError(w, http.StatusBadRequest, "invalid_duration", "duration_minutes must not be negative")
			return
		}

		kindID, _, err := parseKindParams(req.KindID, "")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_kind", err.Error())
			return
		}

		appt, err := svc.Create(r.Context(), booking.CreateRequest{
			ClinicID:        clinicID,
			PatientID:       patientID,
			Date:            date,
			Start:           start,
			DurationMinutes: req.DurationMinutes,
			Kind:            schedule.AppointmentKind(req.Kind),
			KindID:          kindID,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func transitionHandler(fn func(r *http.Request, id uuid.UUID) (*booking.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := fn(r, id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listPatientAppointmentsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "patientID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientID must be a valid UUID")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		appts, err := svc.ListByPatient(r.Context(), patientID, limit, offset)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrPatientClinicMismatch):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrInvalidKind):
		writeError(w, http.StatusBadRequest, "invalid_kind", err.Error())
	case errors.Is(err, booking.ErrDateInPast):
		writeError(w, http.StatusBadRequest, "date_in_past", err.Error())
	case errors.Is(err, booking.ErrDateBlocked):
		writeError(w, http.StatusBadRequest, "date_blocked", err.Error())
	case errors.Is(err, schedule.ErrNotOperating):
		writeError(w, http.StatusBadRequest, "clinic_not_operating", err.Error())
	case errors.Is(err, booking.ErrOutsideHours):
		writeError(w, http.StatusBadRequest, "outside_operating_hours", err.Error())
	case errors.Is(err, booking.ErrDayFull):
		writeError(w, http.StatusBadRequest, "day_fully_booked", err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, booking.ErrDayContended),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "day_being_booked", "another booking for this day is in flight, please retry shortly")
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
