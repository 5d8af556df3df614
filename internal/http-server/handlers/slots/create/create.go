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

type SlotCreator interface {
	CreateSlot(ctx context.Context, actorID string, p service.CreateSlotParams) (*models.Slot, error)
	CreateSlotsBulk(ctx context.Context, actorID, orgID string, batch []service.CreateSlotParams) ([]*models.Slot, error)
}

type Response struct {
	response.Response
	Slot *api.SlotResponse `json:"slot,omitempty"`
}

type BulkResponse struct {
	response.Response
	Slots []api.SlotResponse `json:"slots,omitempty"`
}

func New(log *slog.Logger, creator SlotCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.create.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.CreateSlotRequest

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

		slot, err := creator.CreateSlot(r.Context(), req.ActorID, service.CreateSlotParams{
			OrgID:     req.OrgID,
			ServiceID: req.ServiceID,
			Date:      req.Date,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Capacity:  req.Capacity,
		})

		if errors.Is(err, response.ErrUnauthorized) {
			log.Error("actor is not an org agent")
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "actor may not manage this calendar"))
			return
		}

		if errors.Is(err, response.ErrInvalidTimeFormat) || errors.Is(err, response.ErrInvalidRange) || errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid slot parameters", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid slot parameters"))
			return
		}

		if err != nil {
			log.Error("Failed to create slot", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to create slot"))
			return
		}

		log.Info("Slot created", slog.String("slot_id", slot.ID))

		resp := api.SlotFromModel(slot)
		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{Slot: &resp})
	}
}

func NewBulk(log *slog.Logger, creator SlotCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.create.NewBulk"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req api.CreateSlotsBulkRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		if req.ActorID == "" || req.OrgID == "" {
			log.Error("actor_id or org_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "actor_id and org_id are required"))
			return
		}

		batch := make([]service.CreateSlotParams, len(req.Slots))
		for i, in := range req.Slots {
			batch[i] = service.CreateSlotParams{
				OrgID:     req.OrgID,
				ServiceID: in.ServiceID,
				Date:      in.Date,
				StartTime: in.StartTime,
				EndTime:   in.EndTime,
				Capacity:  in.Capacity,
			}
		}

		slots, err := creator.CreateSlotsBulk(r.Context(), req.ActorID, req.OrgID, batch)

		if errors.Is(err, response.ErrUnauthorized) {
			log.Error("actor is not an org agent")
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "actor may not manage this calendar"))
			return
		}

		if errors.Is(err, response.ErrInvalidTimeFormat) || errors.Is(err, response.ErrInvalidRange) || errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid slot batch", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid slot batch"))
			return
		}

		if err != nil {
			log.Error("Failed to create slots", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to create slots"))
			return
		}

		log.Info("Slots created", slog.Int("count", len(slots)))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, BulkResponse{Slots: api.SlotsFromModels(slots)})
	}
}
