package available

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"consulat-booking/api"
	"consulat-booking/internal/service"
	"consulat-booking/pkg/response"
	"consulat-booking/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type RangeLister interface {
	ListAvailableRanges(ctx context.Context, orgID, date string, durationMinutes int) ([]service.RangeWindow, error)
}

type Response struct {
	response.Response
	Ranges []api.RangeWindowResponse `json:"ranges"`
}

func New(log *slog.Logger, lister RangeLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.rangebookings.available.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		orgID := r.URL.Query().Get("org_id")
		date := r.URL.Query().Get("date")

		duration := 0
		if v := r.URL.Query().Get("duration"); v != "" {
			d, err := strconv.Atoi(v)
			if err != nil || d < 0 {
				log.Error("invalid duration")
				w.WriteHeader(http.StatusBadRequest)
				render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "duration must be a non-negative number of minutes"))
				return
			}
			duration = d
		}

		windows, err := lister.ListAvailableRanges(r.Context(), orgID, date, duration)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid query", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "org_id and date are required"))
			return
		}

		if err != nil {
			log.Error("Failed to list available ranges", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list available ranges"))
			return
		}

		ranges := make([]api.RangeWindowResponse, len(windows))
		for i, win := range windows {
			ranges[i] = api.RangeWindowResponse{StartTime: win.StartTime, EndTime: win.EndTime}
		}

		log.Info("Available ranges retrieved", slog.Int("count", len(ranges)))
		render.JSON(w, r, Response{Ranges: ranges})
	}
}
