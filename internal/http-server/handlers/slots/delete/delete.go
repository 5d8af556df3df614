package delete

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"consulat-booking/pkg/response"
	"consulat-booking/pkg/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type SlotDeleter interface {
	DeleteSlot(ctx context.Context, actorID, slotID string) error
}

func New(log *slog.Logger, deleter SlotDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.delete.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		slotID := chi.URLParam(r, "id")
		actorID := r.URL.Query().Get("actor_id")

		if actorID == "" {
			log.Error("actor_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "actor_id is required"))
			return
		}

		err := deleter.DeleteSlot(r.Context(), actorID, slotID)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("slot not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "slot not found"))
			return
		}

		if errors.Is(err, response.ErrUnauthorized) {
			log.Error("actor is not an org agent")
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "actor may not manage this calendar"))
			return
		}

		if errors.Is(err, response.ErrSlotHasBookings) {
			log.Error("slot still has bookings")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.SLOT_HAS_BOOKINGS), "slot still has active bookings"))
			return
		}

		if err != nil {
			log.Error("Failed to delete slot", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to delete slot"))
			return
		}

		log.Info("Slot deleted", slog.String("slot_id", slotID))
		render.JSON(w, r, response.Response{})
	}
}
