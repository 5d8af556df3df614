package create

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

type AppointmentBooker interface {
	BookAppointment(ctx context.Context, p service.BookSlotParams) (*models.Appointment, error)
}

type Response struct {
	response.Response
	Appointment *api.AppointmentResponse `json:"appointment,omitempty"`
}

func New(log *slog.Logger, booker AppointmentBooker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.create.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.BookAppointmentRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		if req.SlotID == "" {
			log.Error("slot_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "slot_id is required"))
			return
		}

		if req.UserID == "" {
			log.Error("user_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "user_id is required"))
			return
		}

		appt, err := booker.BookAppointment(r.Context(), service.BookSlotParams{
			OrgID:          req.OrgID,
			UserID:         req.UserID,
			SlotID:         req.SlotID,
			Notes:          req.Notes,
			RequestID:      req.RequestID,
			IdempotencyKey: r.Header.Get("Idempotency-Key"),
		})

		if errors.Is(err, response.ErrLocked) {
			log.Error("slot is locked")
			w.WriteHeader(http.StatusLocked)
			render.JSON(w, r, response.Error(string(response.LOCKED), "slot is locked, try again"))
			return
		}

		if errors.Is(err, response.ErrSlotFullyBooked) {
			log.Error("slot is fully booked")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.SLOT_FULLY_BOOKED), "slot is fully booked"))
			return
		}

		if errors.Is(err, response.ErrSlotNotAvailable) {
			log.Error("slot is not available")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.SLOT_NOT_AVAILABLE), "slot is not available"))
			return
		}

		if errors.Is(err, response.ErrAppointmentExists) {
			log.Error("user already booked this slot")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.APPOINTMENT_ALREADY_EXISTS), "an active appointment already exists for this slot"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("slot not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "slot not found"))
			return
		}

		if errors.Is(err, response.ErrConflict) {
			log.Error("idempotency key already used for a different booking")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.CONFLICT), "idempotency key already used for a different booking"))
			return
		}

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid booking request", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid booking request"))
			return
		}

		if err != nil {
			log.Error("Failed to book appointment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to book appointment"))
			return
		}

		log.Info("Appointment booked", slog.String("appointment_id", appt.ID))

		resp := api.AppointmentFromModel(appt)
		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{Appointment: &resp})
	}
}
