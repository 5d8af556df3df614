package confirm

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

type AppointmentConfirmer interface {
	ConfirmAppointment(ctx context.Context, actorID, apptID string) (*models.Appointment, error)
}

type Response struct {
	response.Response
	Appointment *api.AppointmentResponse `json:"appointment,omitempty"`
}

func New(log *slog.Logger, confirmer AppointmentConfirmer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.confirm.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		var req api.ConfirmAppointmentRequest

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

		appt, err := confirmer.ConfirmAppointment(r.Context(), req.ActorID, id)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("appointment not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "appointment not found"))
			return
		}

		if errors.Is(err, response.ErrUnauthorized) {
			log.Error("actor is not an org agent")
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "actor may not manage this calendar"))
			return
		}

		if errors.Is(err, response.ErrAppointmentCancelled) {
			log.Error("appointment is cancelled")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.APPOINTMENT_ALREADY_CANCELLED), "appointment is cancelled"))
			return
		}

		if errors.Is(err, response.ErrConflict) {
			log.Error("appointment is not awaiting confirmation")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.CONFLICT), "appointment is not awaiting confirmation"))
			return
		}

		if err != nil {
			log.Error("Failed to confirm appointment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to confirm appointment"))
			return
		}

		log.Info("Appointment confirmed", slog.String("appointment_id", id))

		resp := api.AppointmentFromModel(appt)
		render.JSON(w, r, Response{Appointment: &resp})
	}
}
