package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/models"
)

// FamilyMemberService is what HouseholdHandler needs from the service layer
type FamilyMemberService interface {
	AddFamilyMembers(ctx context.Context, householdID int64, members []models.NewMember) ([]*models.FamilyMember, error)
	GetFamilyMembers(ctx context.Context, householdID int64) ([]*models.FamilyMember, error)
	GetHouseholdHistory(ctx context.Context, householdID int64) ([]*models.HouseholdHistory, error)
}

// HouseholdHandler handles household membership and history requests
type HouseholdHandler struct {
	members FamilyMemberService
	log     *logger.Logger
}

// NewHouseholdHandler creates a new household handler
func NewHouseholdHandler(members FamilyMemberService, log *logger.Logger) *HouseholdHandler {
	return &HouseholdHandler{
		members: members,
		log:     log,
	}
}

type addMembersRequest struct {
	Members []models.NewMember `json:"members"`
}

// AddMembers links persons to a household
// POST /api/v1/households/:id/members
func (h *HouseholdHandler) AddMembers(c echo.Context) error {
	householdID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid_id", "household id must be a positive integer")
	}

	var req addMembersRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_request", "request body must be JSON")
	}
	if len(req.Members) == 0 {
		return badRequest(c, "invalid_request", "members must not be empty")
	}

	created, err := h.members.AddFamilyMembers(c.Request().Context(), householdID, req.Members)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"household_id": householdID,
		"members":      created,
		"count":        len(created),
	})
}

// ListMembers returns a household's members
// GET /api/v1/households/:id/members
func (h *HouseholdHandler) ListMembers(c echo.Context) error {
	householdID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid_id", "household id must be a positive integer")
	}

	members, err := h.members.GetFamilyMembers(c.Request().Context(), householdID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"household_id": householdID,
		"members":      members,
		"count":        len(members),
	})
}

// GetHistory returns a household's ledger, oldest first
// GET /api/v1/households/:id/history
func (h *HouseholdHandler) GetHistory(c echo.Context) error {
	householdID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid_id", "household id must be a positive integer")
	}

	entries, err := h.members.GetHouseholdHistory(c.Request().Context(), householdID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"household_id": householdID,
		"history":      entries,
		"count":        len(entries),
	})
}
