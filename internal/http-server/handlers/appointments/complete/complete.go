package complete

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"consulat-booking/api"
	"consulat-booking/internal/models"
	"consulat-booking/pkg/response"
	"consulat-booking/pkg/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

// AppointmentCloser records the visit outcome: the citizen showed up and was
// served, or never turned up.
type AppointmentCloser interface {
	CompleteAppointment(ctx context.Context, actorID, apptID string, notes *string) (*models.Appointment, error)
	MarkNoShow(ctx context.Context, actorID, apptID string) (*models.Appointment, error)
}

type Response struct {
	response.Response
	Appointment *api.AppointmentResponse `json:"appointment,omitempty"`
}

func New(log *slog.Logger, closer AppointmentCloser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.complete.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		var req api.CompleteAppointmentRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		if req.ActorID == "" {
			log.Error("actor_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "actor_id is required"))
			return
		}

		appt, err := closer.CompleteAppointment(r.Context(), req.ActorID, id, req.Notes)

		if writeCloseErr(w, r, log, err, "failed to complete appointment", "appointment is not confirmed") {
			return
		}

		log.Info("Appointment completed", slog.String("appointment_id", id))

		resp := api.AppointmentFromModel(appt)
		render.JSON(w, r, Response{Appointment: &resp})
	}
}

func NewNoShow(log *slog.Logger, closer AppointmentCloser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.complete.NewNoShow"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		var req api.NoShowAppointmentRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		if req.ActorID == "" {
			log.Error("actor_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "actor_id is required"))
			return
		}

		appt, err := closer.MarkNoShow(r.Context(), req.ActorID, id)

		if writeCloseErr(w, r, log, err, "failed to mark no-show", "appointment is not open") {
			return
		}

		log.Info("Appointment marked no-show", slog.String("appointment_id", id))

		resp := api.AppointmentFromModel(appt)
		render.JSON(w, r, Response{Appointment: &resp})
	}
}

func writeCloseErr(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, failMsg, conflictMsg string) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, response.ErrNotFound) {
		log.Error("appointment not found")
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error(string(response.NOT_FOUND), "appointment not found"))
		return true
	}

	if errors.Is(err, response.ErrUnauthorized) {
		log.Error("actor is not an org agent")
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "actor may not manage this calendar"))
		return true
	}

	if errors.Is(err, response.ErrAppointmentCancelled) {
		log.Error("appointment is cancelled")
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error(string(response.APPOINTMENT_ALREADY_CANCELLED), "appointment is cancelled"))
		return true
	}

	if errors.Is(err, response.ErrConflict) {
		log.Error(conflictMsg)
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error(string(response.CONFLICT), conflictMsg))
		return true
	}

	log.Error(failMsg, sl.Err(err))
	w.WriteHeader(http.StatusInternalServerError)
	render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), failMsg))
	return true
}
