package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/qldp/registry/common/filter"
	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/models"
)

// TempAbsentService is what TempAbsentHandler needs from the service layer
type TempAbsentService interface {
	CreateTempAbsent(ctx context.Context, req models.TempAbsentRequest) (*models.TempAbsent, error)
	GetTempAbsent(ctx context.Context, id int64) (*models.TempAbsent, error)
	GetTempAbsentsByFilters(ctx context.Context, dateExpr, where string) ([]*models.TempAbsent, error)
}

// TempAbsentHandler handles temporary absence requests
type TempAbsentHandler struct {
	absents TempAbsentService
	log     *logger.Logger
}

// NewTempAbsentHandler creates a new temp absent handler
func NewTempAbsentHandler(absents TempAbsentService, log *logger.Logger) *TempAbsentHandler {
	return &TempAbsentHandler{
		absents: absents,
		log:     log,
	}
}

type createTempAbsentRequest struct {
	IDCardNumber       string `json:"id_card_number"`
	From               string `json:"from"`
	To                 string `json:"to"`
	TempResidencePlace string `json:"temp_residence_place"`
	Reason             string `json:"reason"`
}

// toModel parses the request dates into a validated interval
func (r createTempAbsentRequest) toModel() (models.TempAbsentRequest, error) {
	from, err := filter.ParseDate(r.From)
	if err != nil {
		return models.TempAbsentRequest{}, fmt.Errorf("%w: from: %v", models.ErrInvalidDateInterval, err)
	}
	to, err := filter.ParseDate(r.To)
	if err != nil {
		return models.TempAbsentRequest{}, fmt.Errorf("%w: to: %v", models.ErrInvalidDateInterval, err)
	}
	interval, err := models.NewDateInterval(from, to)
	if err != nil {
		return models.TempAbsentRequest{}, err
	}

	return models.TempAbsentRequest{
		IDCardNumber: strings.TrimSpace(r.IDCardNumber),
		Interval:     interval,
		Place:        r.TempResidencePlace,
		Reason:       r.Reason,
	}, nil
}

// CreateTempAbsent records an absence for the person holding the id card
// POST /api/v1/temp-absents
func (h *TempAbsentHandler) CreateTempAbsent(c echo.Context) error {
	var body createTempAbsentRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid_request", "request body must be JSON")
	}
	if strings.TrimSpace(body.IDCardNumber) == "" {
		return badRequest(c, "invalid_request", "id_card_number is required")
	}

	req, err := body.toModel()
	if err != nil {
		return respondError(c, h.log, err)
	}

	absent, err := h.absents.CreateTempAbsent(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusCreated, absent)
}

// GetTempAbsent returns one absence
// GET /api/v1/temp-absents/:id
func (h *TempAbsentHandler) GetTempAbsent(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid_id", "temp absent id must be a positive integer")
	}

	absent, err := h.absents.GetTempAbsent(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, absent)
}

// ListTempAbsents lists absences overlapping a date range
// GET /api/v1/temp-absents?date=2024-01-01,2024-02-01&where=reason=="work"
func (h *TempAbsentHandler) ListTempAbsents(c echo.Context) error {
	absents, err := h.absents.GetTempAbsentsByFilters(c.Request().Context(),
		c.QueryParam("date"), c.QueryParam("where"))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"temp_absents": absents,
		"count":        len(absents),
	})
}
