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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type AppointmentGetter interface {
	GetAppointment(ctx context.Context, actorID, apptID string) (*models.Appointment, error)
	ListMyAppointments(ctx context.Context, userID string, status *models.AppointmentStatus) ([]*models.Appointment, error)
	ListOrgAppointments(ctx context.Context, actorID string, f service.OrgAppointmentFilter) ([]*models.Appointment, error)
	ListDaySchedule(ctx context.Context, actorID, orgID, date string) ([]*models.Appointment, error)
}

type Response struct {
	response.Response
	Appointment  *api.AppointmentResponse  `json:"appointment,omitempty"`
	Appointments []api.AppointmentResponse `json:"appointments,omitempty"`
}

func statusFromQuery(r *http.Request) *models.AppointmentStatus {
	if v := r.URL.Query().Get("status"); v != "" {
		status := models.AppointmentStatus(v)
		return &status
	}
	return nil
}

func New(log *slog.Logger, getter AppointmentGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")
		actorID := r.URL.Query().Get("actor_id")

		if actorID == "" {
			log.Error("actor_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "actor_id is required"))
			return
		}

		appt, err := getter.GetAppointment(r.Context(), actorID, id)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("appointment not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "appointment not found"))
			return
		}

		if errors.Is(err, response.ErrUnauthorized) {
			log.Error("actor may not view this appointment")
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "actor may not view this appointment"))
			return
		}

		if err != nil {
			log.Error("Failed to get appointment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to get appointment"))
			return
		}

		log.Info("Appointment retrieved", slog.String("appointment_id", appt.ID))

		resp := api.AppointmentFromModel(appt)
		render.JSON(w, r, Response{Appointment: &resp})
	}
}

// NewMy lists the citizen's own appointments.
func NewMy(log *slog.Logger, getter AppointmentGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.get.NewMy"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			log.Error("user_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "user_id is required"))
			return
		}

		appts, err := getter.ListMyAppointments(r.Context(), userID, statusFromQuery(r))

		if err != nil {
			log.Error("Failed to list appointments", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list appointments"))
			return
		}

		log.Info("Appointments retrieved", slog.Int("count", len(appts)))
		render.JSON(w, r, Response{Appointments: api.AppointmentsFromModels(appts)})
	}
}

// NewByOrg lists an org's appointment backlog for staff.
func NewByOrg(log *slog.Logger, getter AppointmentGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.get.NewByOrg"

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

		f := service.OrgAppointmentFilter{
			OrgID:  r.URL.Query().Get("org_id"),
			Status: statusFromQuery(r),
		}
		if v := r.URL.Query().Get("date"); v != "" {
			f.Date = &v
		}
		if v := r.URL.Query().Get("month"); v != "" {
			f.Month = &v
		}

		appts, err := getter.ListOrgAppointments(r.Context(), actorID, f)

		if errors.Is(err, response.ErrUnauthorized) {
			log.Error("actor is not an org agent")
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "actor may not view this org"))
			return
		}

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid query", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "org_id is required"))
			return
		}

		if err != nil {
			log.Error("Failed to list appointments", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list appointments"))
			return
		}

		log.Info("Appointments retrieved", slog.Int("count", len(appts)))
		render.JSON(w, r, Response{Appointments: api.AppointmentsFromModels(appts)})
	}
}

// NewDay is the front-desk schedule for one date, in visit order.
func NewDay(log *slog.Logger, getter AppointmentGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.appointments.get.NewDay"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		actorID := r.URL.Query().Get("actor_id")
		orgID := r.URL.Query().Get("org_id")
		date := r.URL.Query().Get("date")

		if actorID == "" {
			log.Error("actor_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "actor_id is required"))
			return
		}

		appts, err := getter.ListDaySchedule(r.Context(), actorID, orgID, date)

		if errors.Is(err, response.ErrUnauthorized) {
			log.Error("actor is not an org agent")
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(string(response.UNAUTHORIZED), "actor may not view this org"))
			return
		}

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid query", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "org_id and date are required"))
			return
		}

		if err != nil {
			log.Error("Failed to list day schedule", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list day schedule"))
			return
		}

		log.Info("Day schedule retrieved", slog.Int("count", len(appts)))
		render.JSON(w, r, Response{Appointments: api.AppointmentsFromModels(appts)})
	}
}
