package scheduler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/orsched/orsched/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	runGroup := api.Group("", auth.RequireRole("admin", "scheduler"))
	runGroup.POST("/scheduler/run", h.Run)
	runGroup.POST("/scheduler/emergency", h.Emergency)
	runGroup.PATCH("/schedule/:id/reschedule", h.Reschedule)
	runGroup.POST("/schedule/:id/complete", h.Complete)
	runGroup.POST("/schedule/:id/cancel", h.Cancel)

	readGroup := api.Group("", auth.RequireRole("admin", "scheduler", "surgeon", "nurse"))
	readGroup.GET("/priority-queue", h.PriorityQueue)
	readGroup.GET("/calendar/day", h.CalendarDay)
	readGroup.GET("/calendar/week", h.CalendarWeek)
}

func schedulerError(err error) error {
	var infeasible *InfeasibleError
	var violation *ConstraintViolationError
	switch {
	case errors.Is(err, ErrRunInFlight):
		return echo.NewHTTPError(http.StatusConflict, map[string]string{
			"error": err.Error(),
			"hint":  "retry later",
		})
	case errors.As(err, &infeasible):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]string{
			"error":      infeasible.Error(),
			"constraint": infeasible.Constraint,
			"request_id": infeasible.RequestID.String(),
		})
	case errors.As(err, &violation):
		return echo.NewHTTPError(http.StatusConflict, map[string]string{
			"error":      violation.Error(),
			"constraint": violation.Constraint,
			"entry_id":   violation.EntryID.String(),
		})
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

type runBody struct {
	HospitalID uuid.UUID `json:"hospital_id"`
}

func (h *Handler) Run(c echo.Context) error {
	var body runBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.HospitalID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "hospital_id is required")
	}
	report, err := h.svc.Run(c.Request().Context(), body.HospitalID, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return schedulerError(err)
	}
	return c.JSON(http.StatusOK, report)
}

type emergencyBody struct {
	HospitalID       uuid.UUID `json:"hospital_id"`
	SurgeryRequestID uuid.UUID `json:"surgery_request_id"`
}

func (h *Handler) Emergency(c echo.Context) error {
	var body emergencyBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.HospitalID == uuid.Nil || body.SurgeryRequestID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "hospital_id and surgery_request_id are required")
	}
	report, err := h.svc.Emergency(c.Request().Context(), body.HospitalID, body.SurgeryRequestID, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return schedulerError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) PriorityQueue(c echo.Context) error {
	hospitalID, err := uuid.Parse(c.QueryParam("hospital_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital_id")
	}
	items, err := h.svc.PriorityQueue(c.Request().Context(), hospitalID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CalendarDay(c echo.Context) error {
	hospitalID, err := uuid.Parse(c.QueryParam("hospital_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital_id")
	}
	date, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	view, err := h.svc.Day(c.Request().Context(), hospitalID, date)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) CalendarWeek(c echo.Context) error {
	hospitalID, err := uuid.Parse(c.QueryParam("hospital_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital_id")
	}
	start, err := time.Parse("2006-01-02", c.QueryParam("start_date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "start_date must be YYYY-MM-DD")
	}
	days, err := h.svc.Week(c.Request().Context(), hospitalID, start)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, days)
}

type rescheduleBody struct {
	StartTime time.Time `json:"start_time"`
}

func (h *Handler) Reschedule(c echo.Context) error {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body rescheduleBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.StartTime.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "start_time is required")
	}
	entry, err := h.svc.Reschedule(c.Request().Context(), entryID, body.StartTime, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return schedulerError(err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) Complete(c echo.Context) error {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	entry, err := h.svc.Complete(c.Request().Context(), entryID, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return schedulerError(err)
	}
	return c.JSON(http.StatusOK, entry)
}

type cancelBody struct {
	Reason string `json:"reason"`
}

func (h *Handler) Cancel(c echo.Context) error {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body cancelBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.svc.Cancel(c.Request().Context(), entryID, auth.UserIDFromContext(c.Request().Context()), body.Reason)
	if err != nil {
		return schedulerError(err)
	}
	return c.JSON(http.StatusOK, entry)
}
