package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/qldp/registry/cmd/registry/container"
	"github.com/qldp/registry/cmd/registry/handlers"
	"github.com/qldp/registry/cmd/registry/middleware"
)

// apiGroup returns an /api/v1 sub group with identity extraction and,
// when configured, write rate limiting
func apiGroup(e *echo.Echo, c *container.Container, prefix string) *echo.Group {
	g := e.Group("/api/v1" + prefix)
	g.Use(middleware.ExtractIdentity())
	if c.Limiter != nil {
		cfg := c.Components.Config.RateLimit
		g.Use(middleware.WriteRateLimit(c.Limiter, cfg.Limit, cfg.Window, c.Components.Logger))
	}
	return g
}

// RegisterHouseholdRoutes registers household membership and history routes
func RegisterHouseholdRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewHouseholdHandler(c.FamilyMembers, c.Components.Logger)

	households := apiGroup(e, c, "/households")
	{
		households.POST("/:id/members", h.AddMembers) // POST /api/v1/households/7/members
		households.GET("/:id/members", h.ListMembers) // GET /api/v1/households/7/members
		households.GET("/:id/history", h.GetHistory)  // GET /api/v1/households/7/history
	}
}

// RegisterTempAbsentRoutes registers temporary absence routes
func RegisterTempAbsentRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewTempAbsentHandler(c.TempAbsents, c.Components.Logger)

	absents := apiGroup(e, c, "/temp-absents")
	{
		absents.POST("", h.CreateTempAbsent) // POST /api/v1/temp-absents
		absents.GET("", h.ListTempAbsents)   // GET /api/v1/temp-absents?date=2024-01-01,&where=...
		absents.GET("/:id", h.GetTempAbsent) // GET /api/v1/temp-absents/12
	}
}

// RegisterReplyRoutes registers petition reply routes
func RegisterReplyRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewReplyHandler(c.Replies, c.Components.Logger)

	replies := apiGroup(e, c, "/replies")
	{
		replies.POST("", h.CreateReply, middleware.ExtractIdentityStrict()) // POST /api/v1/replies (X-User-ID required)
		replies.GET("/:id", h.GetReply)                                     // GET /api/v1/replies/3
		replies.POST("/:id/accept", h.AcceptReply)                          // POST /api/v1/replies/3/accept
	}
}
