package reschedule

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"consulat-booking/api"
	"consulat-booking/internal/models"
	"consulat-booking/internal/service"
	"consulat-booking/pkg/response"
	"consulat-booking/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type AppointmentRescheduler interface {
	RescheduleAppointment(ctx context.Context, actorID string, p service.RescheduleParams) (*models.Appointment, error)
}

type Response struct {
	response.Response
	Appointment *api.AppointmentResponse `json:"appointment,omitempty"`
}

func New(log *slog.Logger, rescheduler AppointmentRescheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.reschedule.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.RescheduleAppointmentRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		if req.ActorID == "" || req.AppointmentID == "" {
			log.Error("actor_id or appointment_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "actor_id and appointment_id are required"))
			return
		}

		appt, err := rescheduler.RescheduleAppointment(r.Context(), req.ActorID, service.RescheduleParams{
			AppointmentID: req.AppointmentID,
			NewSlotID:     req.NewSlotID,
			NewDate:       req.NewDate,
			NewStartTime:  req.NewStartTime,
			NewEndTime:    req.NewEndTime,
		})

		if errors.Is(err, response.ErrNotFound) {
			log.Error("appointment or target slot not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "appointment or target slot not found"))
			return
		}

		if errors.Is(err, response.ErrUnauthorized) {
			log.Error("actor may not reschedule this appointment")
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "actor may not reschedule this appointment"))
			return
		}

		if errors.Is(err, response.ErrCannotReschedule) {
			log.Error("appointment can no longer be rescheduled")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.CANNOT_RESCHEDULE), "appointment can no longer be rescheduled"))
			return
		}

		if errors.Is(err, response.ErrLocked) {
			log.Error("target is locked")
			w.WriteHeader(http.StatusLocked)
			render.JSON(w, r, response.Error(string(response.LOCKED), "target is locked, try again"))
			return
		}

		if errors.Is(err, response.ErrSlotFullyBooked) {
			log.Error("target slot is fully booked")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.SLOT_FULLY_BOOKED), "target slot is fully booked"))
			return
		}

		if errors.Is(err, response.ErrSlotNotAvailable) {
			log.Error("target is not available")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.SLOT_NOT_AVAILABLE), "target is not available"))
			return
		}

		if errors.Is(err, response.ErrAppointmentExists) {
			log.Error("user already booked the target slot")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.APPOINTMENT_ALREADY_EXISTS), "an active appointment already exists for the target slot"))
			return
		}

		if errors.Is(err, response.ErrInvalidTimeFormat) || errors.Is(err, response.ErrInvalidRange) || errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid reschedule target", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid reschedule target"))
			return
		}

		if err != nil {
			log.Error("Failed to reschedule appointment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to reschedule appointment"))
			return
		}

		log.Info("Appointment rescheduled", slog.String("appointment_id", appt.ID))

		resp := api.AppointmentFromModel(appt)
		render.JSON(w, r, Response{Appointment: &resp})
	}
}
