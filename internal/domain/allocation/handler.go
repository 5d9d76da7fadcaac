package allocation

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/domain/bed"
	"github.com/hms/hms/internal/domain/nurse"
	"github.com/hms/hms/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	readGroup.GET("/wards/:ward/best-nurse", h.BestNurse)

	writeGroup := api.Group("", auth.RequireRole("admin", "nurse"))
	writeGroup.POST("/beds/:id/assign", h.AssignBed)
	writeGroup.POST("/beds/:id/discharge", h.Discharge)
	writeGroup.PUT("/nurses/:id/roster", h.SetRoster)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, bed.ErrNotFound), errors.Is(err, nurse.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, bed.ErrConflict), errors.Is(err, bed.ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, bed.ErrUnavailable), errors.Is(err, bed.ErrInvalidState),
		errors.Is(err, nurse.ErrInvalidState), errors.Is(err, nurse.ErrCapacityExceeded),
		errors.Is(err, ErrNoBedAssigned), errors.Is(err, ErrWardMismatch):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, bed.ErrValidation), errors.Is(err, nurse.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type assignBedRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
}

func (h *Handler) AssignBed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req assignBedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.AssignPatientToBed(c.Request().Context(), id, req.PatientID, auth.ActorID(c.Request().Context()))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

type dischargeResponse struct {
	Bed       *bed.Bed  `json:"bed"`
	PatientID uuid.UUID `json:"patient_id"`
}

func (h *Handler) Discharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, patientID, err := h.svc.DischargePatient(c.Request().Context(), id, auth.ActorID(c.Request().Context()))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dischargeResponse{Bed: b, PatientID: patientID})
}

type bestNurseResponse struct {
	Nurse *nurse.Nurse `json:"nurse"`
}

// BestNurse proposes the most suitable nurse for the ward without
// committing anything; an empty proposal is a 200 with a null nurse.
func (h *Handler) BestNurse(c echo.Context) error {
	n, err := h.svc.SelectBestNurse(c.Request().Context(), c.Param("ward"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, bestNurseResponse{Nurse: n})
}

type setRosterRequest struct {
	PatientIDs []uuid.UUID `json:"patient_ids"`
}

func (h *Handler) SetRoster(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req setRosterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n, err := h.svc.SetNurseRoster(c.Request().Context(), id, req.PatientIDs)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, n)
}
