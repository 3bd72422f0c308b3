package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/qldp/registry/cmd/registry/middleware"
	"github.com/qldp/registry/common/filter"
	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/models"
)

// ReplyService is what ReplyHandler needs from the service layer
type ReplyService interface {
	CreateReply(ctx context.Context, identity string, content models.ReplyContent) (*models.Reply, error)
	GetReply(ctx context.Context, id int64) (*models.Reply, error)
	AcceptReply(ctx context.Context, id int64) (*models.Reply, error)
}

// ReplyHandler handles petition reply requests
type ReplyHandler struct {
	replies ReplyService
	log     *logger.Logger
	now     func() time.Time
}

// NewReplyHandler creates a new reply handler
func NewReplyHandler(replies ReplyService, log *logger.Logger) *ReplyHandler {
	return &ReplyHandler{
		replies: replies,
		log:     log,
		now:     time.Now,
	}
}

type createReplyRequest struct {
	PetitionID int64  `json:"petition_id"`
	Subject    string `json:"subject"`
	Content    string `json:"content"`
	Date       string `json:"date"`
}

// CreateReply creates a PENDING reply authored by the caller.
// Mounted behind middleware.ExtractIdentityStrict.
// POST /api/v1/replies
func (h *ReplyHandler) CreateReply(c echo.Context) error {
	identity := middleware.GetIdentity(c)

	var req createReplyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_request", "request body must be JSON")
	}
	if req.PetitionID < 1 {
		return badRequest(c, "invalid_request", "petition_id is required")
	}

	date := h.now().UTC()
	if req.Date != "" {
		parsed, err := filter.ParseDate(req.Date)
		if err != nil {
			return respondError(c, h.log, fmt.Errorf("%w: %v", models.ErrInvalidDate, err))
		}
		date = parsed
	}

	reply, err := h.replies.CreateReply(c.Request().Context(), identity, models.ReplyContent{
		PetitionID: req.PetitionID,
		Subject:    req.Subject,
		Content:    req.Content,
		Date:       date,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusCreated, reply)
}

// GetReply returns a reply with its petition and replier
// GET /api/v1/replies/:id
func (h *ReplyHandler) GetReply(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid_id", "reply id must be a positive integer")
	}

	reply, err := h.replies.GetReply(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, reply)
}

// AcceptReply sends a PENDING reply to the petitioner
// POST /api/v1/replies/:id/accept
func (h *ReplyHandler) AcceptReply(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid_id", "reply id must be a positive integer")
	}

	reply, err := h.replies.AcceptReply(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, reply)
}
