package block

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"consulat-booking/api"
	"consulat-booking/pkg/response"
	"consulat-booking/pkg/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type SlotBlocker interface {
	BlockSlot(ctx context.Context, actorID, slotID string, reason *string) error
	UnblockSlot(ctx context.Context, actorID, slotID string) error
}

func New(log *slog.Logger, blocker SlotBlocker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.block.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		slotID := chi.URLParam(r, "id")

		var req api.BlockSlotRequest

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

		err := blocker.BlockSlot(r.Context(), req.ActorID, slotID, req.Reason)

		if writeBlockErr(w, r, log, err, "failed to block slot") {
			return
		}

		log.Info("Slot blocked", slog.String("slot_id", slotID))
		render.JSON(w, r, response.Response{})
	}
}

func NewUnblock(log *slog.Logger, blocker SlotBlocker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.block.NewUnblock"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		slotID := chi.URLParam(r, "id")

		var req api.UnblockSlotRequest

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

		err := blocker.UnblockSlot(r.Context(), req.ActorID, slotID)

		if writeBlockErr(w, r, log, err, "failed to unblock slot") {
			return
		}

		log.Info("Slot unblocked", slog.String("slot_id", slotID))
		render.JSON(w, r, response.Response{})
	}
}

func writeBlockErr(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, failMsg string) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, response.ErrNotFound) {
		log.Error("slot not found")
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error(string(response.NOT_FOUND), "slot not found"))
		return true
	}

	if errors.Is(err, response.ErrUnauthorized) {
		log.Error("actor is not an org agent")
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "actor may not manage this calendar"))
		return true
	}

	log.Error(failMsg, sl.Err(err))
	w.WriteHeader(http.StatusInternalServerError)
	render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), failMsg))
	return true
}
