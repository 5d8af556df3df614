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

type RangeBooker interface {
	BookRange(ctx context.Context, p service.BookRangeParams) (*models.Appointment, error)
}

type Response struct {
	response.Response
	Appointment *api.AppointmentResponse `json:"appointment,omitempty"`
}

func New(log *slog.Logger, booker RangeBooker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.rangebookings.create.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.BookRangeRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		if req.UserID == "" || req.OrgID == "" {
			log.Error("user_id or org_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "user_id and org_id are required"))
			return
		}

		appt, err := booker.BookRange(r.Context(), service.BookRangeParams{
			OrgID:          req.OrgID,
			UserID:         req.UserID,
			Date:           req.Date,
			StartTime:      req.StartTime,
			EndTime:        req.EndTime,
			ServiceID:      req.ServiceID,
			Notes:          req.Notes,
			RequestID:      req.RequestID,
			IdempotencyKey: r.Header.Get("Idempotency-Key"),
		})

		if errors.Is(err, response.ErrLocked) {
			log.Error("day is locked")
			w.WriteHeader(http.StatusLocked)
			render.JSON(w, r, response.Error(string(response.LOCKED), "day is locked, try again"))
			return
		}

		if errors.Is(err, response.ErrSlotNotAvailable) {
			log.Error("range overlaps an existing booking")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.SLOT_NOT_AVAILABLE), "range overlaps an existing booking"))
			return
		}

		if errors.Is(err, response.ErrConflict) {
			log.Error("idempotency key already used for a different booking")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.CONFLICT), "idempotency key already used for a different booking"))
			return
		}

		if errors.Is(err, response.ErrInvalidTimeFormat) || errors.Is(err, response.ErrInvalidRange) || errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid range request", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid range request"))
			return
		}

		if err != nil {
			log.Error("Failed to book range", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to book range"))
			return
		}

		log.Info("Range booked", slog.String("appointment_id", appt.ID))

		resp := api.AppointmentFromModel(appt)
		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{Appointment: &resp})
	}
}
