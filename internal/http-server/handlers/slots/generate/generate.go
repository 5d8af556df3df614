package generate

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

type SlotGenerator interface {
	GenerateSlots(ctx context.Context, actorID string, p service.GenerateParams) ([]*models.Slot, error)
}

type Response struct {
	response.Response
	Slots []api.SlotResponse `json:"slots,omitempty"`
	Count int                `json:"count"`
}

func New(log *slog.Logger, generator SlotGenerator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.generate.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.GenerateSlotsRequest

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

		slots, err := generator.GenerateSlots(r.Context(), req.ActorID, service.GenerateParams{
			OrgID:           req.OrgID,
			ServiceID:       req.ServiceID,
			Dates:           req.Dates,
			StartTime:       req.StartTime,
			EndTime:         req.EndTime,
			DurationMinutes: req.DurationMinutes,
			BreakMinutes:    req.BreakMinutes,
			Capacity:        req.Capacity,
		})

		if errors.Is(err, response.ErrUnauthorized) {
			log.Error("actor is not an org agent")
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "actor may not manage this calendar"))
			return
		}

		if errors.Is(err, response.ErrInvalidTimeFormat) || errors.Is(err, response.ErrInvalidRange) || errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid generation parameters", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid generation parameters"))
			return
		}

		if err != nil {
			log.Error("Failed to generate slots", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to generate slots"))
			return
		}

		log.Info("Slots generated", slog.Int("count", len(slots)))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{
			Slots: api.SlotsFromModels(slots),
			Count: len(slots),
		})
	}
}
