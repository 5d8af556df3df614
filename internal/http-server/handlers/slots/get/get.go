package get

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

type SlotLister interface {
	ListSlots(ctx context.Context, actorID string, f service.SlotFilter) ([]*models.Slot, error)
	ListAvailableSlots(ctx context.Context, f service.SlotFilter) ([]*models.Slot, error)
	ListAvailableDates(ctx context.Context, orgID string, serviceID *string, month string) ([]string, error)
}

type Response struct {
	response.Response
	Slots []api.SlotResponse `json:"slots,omitempty"`
}

type DatesResponse struct {
	response.Response
	Dates []string `json:"dates"`
}

func filterFromQuery(r *http.Request) service.SlotFilter {
	f := service.SlotFilter{OrgID: r.URL.Query().Get("org_id")}

	if v := r.URL.Query().Get("service_id"); v != "" {
		f.ServiceID = &v
	}
	if v := r.URL.Query().Get("date"); v != "" {
		f.Date = &v
	}
	if v := r.URL.Query().Get("month"); v != "" {
		f.Month = &v
	}

	return f
}

// New lists the staff calendar view, blocked and full slots included.
func New(log *slog.Logger, lister SlotLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		actorID := r.URL.Query().Get("actor_id")
		if actorID == "" {
			log.Error("actor_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "actor_id is required"))
			return
		}

		slots, err := lister.ListSlots(r.Context(), actorID, filterFromQuery(r))

		if errors.Is(err, response.ErrUnauthorized) {
			log.Error("actor is not an org agent")
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "actor may not manage this calendar"))
			return
		}

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid query", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "org_id is required"))
			return
		}

		if err != nil {
			log.Error("Failed to list slots", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list slots"))
			return
		}

		log.Info("Slots retrieved", slog.Int("count", len(slots)))
		render.JSON(w, r, Response{Slots: api.SlotsFromModels(slots)})
	}
}

// NewAvailable is the public availability feed.
func NewAvailable(log *slog.Logger, lister SlotLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.get.NewAvailable"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		slots, err := lister.ListAvailableSlots(r.Context(), filterFromQuery(r))

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid query", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "org_id is required"))
			return
		}

		if err != nil {
			log.Error("Failed to list available slots", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list available slots"))
			return
		}

		log.Info("Available slots retrieved", slog.Int("count", len(slots)))
		render.JSON(w, r, Response{Slots: api.SlotsFromModels(slots)})
	}
}

// NewAvailableDates feeds the calendar widget: the dates in a month that
// still have an open seat.
func NewAvailableDates(log *slog.Logger, lister SlotLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.get.NewAvailableDates"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		orgID := r.URL.Query().Get("org_id")
		month := r.URL.Query().Get("month")

		var serviceID *string
		if v := r.URL.Query().Get("service_id"); v != "" {
			serviceID = &v
		}

		dates, err := lister.ListAvailableDates(r.Context(), orgID, serviceID, month)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid query", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "org_id and month are required"))
			return
		}

		if err != nil {
			log.Error("Failed to list available dates", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list available dates"))
			return
		}

		log.Info("Available dates retrieved", slog.Int("count", len(dates)))
		render.JSON(w, r, DatesResponse{Dates: dates})
	}
}
