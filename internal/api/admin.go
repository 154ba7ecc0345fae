package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/postopcare/clinic-scheduling/internal/schedule"
)

func scheduleFromRequest(clinicID uuid.UUID, req ScheduleRequest) (*schedule.WeeklySchedule, error) {
	open, err := schedule.ParseClock(req.Open)
	if err != nil {
		return nil, errors.New("open must be HH:MM")
	}
	clos, err := schedule.ParseClock(req.Close)
	if err != nil {
		return nil, errors.New("close must be HH:MM")
	}

	ws := &schedule.WeeklySchedule{
		ClinicID:        clinicID,
		Weekday:         time.Weekday(req.Weekday),
		OpenMinute:      open,
		CloseMinute:     clos,
		SlotMinutes:     req.SlotMinutes,
		MaxAppointments: req.MaxAppointments,
		Active:          true,
	}
	if req.Active != nil {
		ws.Active = *req.Active
	}

	if req.BreakStart != "" {
		m, err := schedule.ParseClock(req.BreakStart)
		if err != nil {
			return nil, errors.New("break_start must be HH:MM")
		}
		ws.BreakStart = &m
	}
	if req.BreakEnd != "" {
		m, err := schedule.ParseClock(req.BreakEnd)
		if err != nil {
			return nil, errors.New("break_end must be HH:MM")
		}
		ws.BreakEnd = &m
	}

	switch {
	case req.KindID != "" && req.Kind != "":
		return nil, errors.New("kind_id and kind are mutually exclusive")
	case req.KindID != "":
		id, err := uuid.Parse(req.KindID)
		if err != nil {
			return nil, errors.New("kind_id must be a valid UUID")
		}
		ws.Specialization = schedule.ByKindID(id)
	case req.Kind != "":
		ws.Specialization = schedule.ByLegacyKind(schedule.AppointmentKind(req.Kind))
	default:
		ws.Specialization = schedule.General()
	}

	return ws, nil
}

func createScheduleHandler(svc ScheduleAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, err := uuid.Parse(chi.URLParam(r, "clinicID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinicID must be a valid UUID")
			return
		}

		var req ScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		ws, err := scheduleFromRequest(clinicID, req)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_schedule", err.Error())
			return
		}

		created, err := svc.CreateSchedule(r.Context(), ws)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toScheduleResponse(created))
	}
}

func updateScheduleHandler(svc ScheduleAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, err := uuid.Parse(chi.URLParam(r, "clinicID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinicID must be a valid UUID")
			return
		}

		scheduleID, err := uuid.Parse(chi.URLParam(r, "scheduleID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_schedule_id", "scheduleID must be a valid UUID")
			return
		}

		var req ScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		ws, err := scheduleFromRequest(clinicID, req)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_schedule", err.Error())
			return
		}
		ws.ID = scheduleID

		updated, err := svc.UpdateSchedule(r.Context(), ws)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toScheduleResponse(updated))
	}
}

func deactivateScheduleHandler(svc ScheduleAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheduleID, err := uuid.Parse(chi.URLParam(r, "scheduleID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_schedule_id", "scheduleID must be a valid UUID")
			return
		}

		if err := svc.DeactivateSchedule(r.Context(), scheduleID); err != nil {
			handleScheduleError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listSchedulesHandler(svc ScheduleAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, err := uuid.Parse(chi.URLParam(r, "clinicID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinicID must be a valid UUID")
			return
		}

		schedules, err := svc.ListSchedules(r.Context(), clinicID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := make([]ScheduleResponse, 0, len(schedules))
		for i := range schedules {
			resp = append(resp, toScheduleResponse(&schedules[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func blockDateHandler(svc ScheduleAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, err := uuid.Parse(chi.URLParam(r, "clinicID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinicID must be a valid UUID")
			return
		}

		var req BlockDateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		day, err := parseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		if req.Kind != "" {
			created, err := svc.BlockDateForKind(r.Context(), clinicID, schedule.AppointmentKind(req.Kind), day, req.Reason)
			if err != nil {
				handleScheduleError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, BlockedDateResponse{
				ID:       created.ID,
				ClinicID: created.ClinicID,
				Date:     created.Day.Format(dateLayout),
				Kind:     string(created.Kind),
				Reason:   created.Reason,
			})
			return
		}

		created, err := svc.BlockDate(r.Context(), clinicID, day, req.Reason)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, BlockedDateResponse{
			ID:       created.ID,
			ClinicID: created.ClinicID,
			Date:     created.Day.Format(dateLayout),
			Reason:   created.Reason,
		})
	}
}

func unblockDateHandler(svc ScheduleAdmin, byKind bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "blockedDateID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_blocked_date_id", "blockedDateID must be a valid UUID")
			return
		}

		if byKind {
			err = svc.UnblockDateForKind(r.Context(), id)
		} else {
			err = svc.UnblockDate(r.Context(), id)
		}
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listBlockedDatesHandler(svc ScheduleAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, err := uuid.Parse(chi.URLParam(r, "clinicID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinicID must be a valid UUID")
			return
		}

		from, err := parseDate(r.URL.Query().Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "from must be YYYY-MM-DD")
			return
		}
		to, err := parseDate(r.URL.Query().Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "to must be YYYY-MM-DD")
			return
		}

		global, byKind, err := svc.ListBlockedDates(r.Context(), clinicID, from, to)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := make([]BlockedDateResponse, 0, len(global)+len(byKind))
		for _, b := range global {
			resp = append(resp, BlockedDateResponse{
				ID:       b.ID,
				ClinicID: b.ClinicID,
				Date:     b.Day.Format(dateLayout),
				Reason:   b.Reason,
			})
		}
		for _, b := range byKind {
			resp = append(resp, BlockedDateResponse{
				ID:       b.ID,
				ClinicID: b.ClinicID,
				Date:     b.Day.Format(dateLayout),
				Kind:     string(b.Kind),
				Reason:   b.Reason,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidSchedule):
		writeError(w, http.StatusBadRequest, "invalid_schedule", err.Error())
	case errors.Is(err, schedule.ErrScheduleNotFound):
		writeError(w, http.StatusNotFound, "schedule_not_found", err.Error())
	case errors.Is(err, schedule.ErrBlockedDateNotFound):
		writeError(w, http.StatusNotFound, "blocked_date_not_found", err.Error())
	case errors.Is(err, schedule.ErrDuplicateSchedule):
		writeError(w, http.StatusConflict, "duplicate_schedule", err.Error())
	case errors.Is(err, schedule.ErrDuplicateBlock):
		writeError(w, http.StatusConflict, "duplicate_blocked_date", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
