package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/models"
)

// errorMapping ties a domain error to its HTTP status and machine code
type errorMapping struct {
	target error
	status int
	code   string
}

// Checked in order, first match wins
var errorMappings = []errorMapping{
	{models.ErrPersonNotFound, http.StatusNotFound, "person_not_found"},
	{models.ErrHouseholdNotFound, http.StatusNotFound, "household_not_found"},
	{models.ErrPetitionNotFound, http.StatusNotFound, "petition_not_found"},
	{models.ErrReplyNotFound, http.StatusNotFound, "reply_not_found"},
	{models.ErrTempAbsentNotFound, http.StatusNotFound, "temp_absent_not_found"},
	{models.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{models.ErrInvalidPetitionStatus, http.StatusConflict, "invalid_petition_status"},
	{models.ErrInvalidReplyUpdateStatus, http.StatusConflict, "invalid_reply_update_status"},
	{models.ErrPersonAlreadyInHousehold, http.StatusConflict, "person_already_in_household"},
	{models.ErrDuplicateTempAbsentCode, http.StatusConflict, "duplicate_temp_absent_code"},
	{models.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
	{models.ErrInvalidDateInterval, http.StatusBadRequest, "invalid_date_interval"},
	{models.ErrInvalidDateRange, http.StatusBadRequest, "invalid_date_range"},
	{models.ErrInvalidFilterExpression, http.StatusBadRequest, "invalid_filter_expression"},
}

// respondError writes the JSON error response for err
func respondError(c echo.Context, log *logger.Logger, err error) error {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}

		body := map[string]interface{}{
			"error":   m.code,
			"message": err.Error(),
		}
		var statusErr *models.InvalidReplyUpdateStatusError
		if errors.As(err, &statusErr) {
			body["status"] = statusErr.Status
		}
		return c.JSON(m.status, body)
	}

	log.WithContext(c.Request().Context()).Error("request failed",
		"method", c.Request().Method,
		"path", c.Path(),
		"error", err,
	)
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error":   "internal_error",
		"message": "internal server error",
	})
}

func badRequest(c echo.Context, code, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// parseID reads a positive int64 path parameter
func parseID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
