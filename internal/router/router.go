package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/medstats/postop-followup/internal/handler"
	"github.com/medstats/postop-followup/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints and returns the
// protected /v1 group every other handler hangs off. Unauthenticated
// operations live under /v1/auth; everything on the returned group runs the
// JWT middleware first.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) *echo.Group {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout takes a refresh_token body or a bearer token, so it lives
	// outside the JWT middleware.
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	return auth
}

// RegisterMetrics mounts one metric handler per follow-up table on the
// protected group: list/create on the collection, delete by id, and the
// rpc-style rollup endpoints.
func RegisterMetrics(auth *echo.Group, handlers []*handler.MetricHandler) {
	for _, h := range handlers {
		route := h.Schema().Route
		auth.GET("/"+route, h.List)
		auth.POST("/"+route, h.Create)
		auth.DELETE("/"+route+"/:id", h.Delete)
		auth.POST("/rpc/"+route+"-monthly", h.Monthly)
		auth.POST("/rpc/"+route+"-quarterly", h.Quarterly)
	}
}

// RegisterJoined mounts the read-only cross-table overview.
func RegisterJoined(auth *echo.Group, h *handler.JoinedHandler) {
	auth.GET("/table-joined", h.List)
}

// RegisterRecords mounts the legacy surgery record endpoints.
func RegisterRecords(auth *echo.Group, h *handler.RecordHandler) {
	auth.GET("/records", h.List)
	auth.POST("/records", h.Create)
	auth.PATCH("/records/:id", h.Update)
	auth.DELETE("/records/:id", h.Delete)
}
