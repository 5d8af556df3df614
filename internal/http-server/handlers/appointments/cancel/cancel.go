package cancel

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

type AppointmentCanceller interface {
	CancelAppointment(ctx context.Context, actorID, apptID string, reason *string) (*models.Appointment, error)
}

type Response struct {
	response.Response
	Appointment *api.AppointmentResponse `json:"appointment,omitempty"`
}

func New(log *slog.Logger, canceller AppointmentCanceller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.cancel.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		var req api.CancelAppointmentRequest

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

		appt, err := canceller.CancelAppointment(r.Context(), req.ActorID, id, req.Reason)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("appointment not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "appointment not found"))
			return
		}

		if errors.Is(err, response.ErrUnauthorized) {
			log.Error("actor may not cancel this appointment")
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "actor may not cancel this appointment"))
			return
		}

		if errors.Is(err, response.ErrAppointmentCancelled) {
			log.Error("appointment is already cancelled")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.APPOINTMENT_ALREADY_CANCELLED), "appointment is already cancelled"))
			return
		}

		if errors.Is(err, response.ErrConflict) {
			log.Error("appointment can no longer be cancelled")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.CONFLICT), "appointment can no longer be cancelled"))
			return
		}

		if err != nil {
			log.Error("Failed to cancel appointment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to cancel appointment"))
			return
		}

		log.Info("Appointment cancelled", slog.String("appointment_id", id))

		resp := api.AppointmentFromModel(appt)
		render.JSON(w, r, Response{Appointment: &resp})
	}
}
