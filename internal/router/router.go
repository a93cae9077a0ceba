package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/versefeed/versefeed/internal/handler"    // import the handlers that implement business logic
	"github.com/versefeed/versefeed/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// Handlers bundles the handler set the routes dispatch to.
type Handlers struct {
	Auth          *handler.AuthHandler
	Verses        *handler.VerseHandler
	Comments      *handler.CommentHandler
	Admin         *handler.AdminHandler
	Audit         *handler.AuditHandler
	Announcements *handler.AnnouncementHandler
	Settings      *handler.SettingsHandler
}

// Middlewares bundles the cross-cutting middleware applied to the
// authenticated surface.  RateLimit and Cache are optional (nil when Redis
// is not configured); the rest are required.
type Middlewares struct {
	JWTSecret   string
	Maintenance echo.MiddlewareFunc
	BanGate     echo.MiddlewareFunc
	RateLimit   echo.MiddlewareFunc
	Cache       echo.MiddlewareFunc
}

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: the health check and the OAuth sign-in flow.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	// Load balancers and monitors poll this to verify the service is up.
	e.GET("/healthz", handler.Health)

	// The sign-in flow is necessarily unauthenticated: /login redirects to
	// the provider and /callback completes the code exchange.
	g := e.Group("/v1/auth")
	g.GET("/login", h.Auth.Login)
	g.GET("/callback", h.Auth.Callback)
}

// RegisterAPI registers the authenticated user surface under /v1.  Every
// route in this group runs JWT verification, the maintenance gate, the ban
// gate and (when configured) the rate limiter, in that order.
func RegisterAPI(e *echo.Echo, h Handlers, mw Middlewares) {
	api := e.Group("/v1")
	api.Use(middleware.JWTAuth(mw.JWTSecret))
	if mw.Maintenance != nil {
		api.Use(mw.Maintenance)
	}
	if mw.BanGate != nil {
		api.Use(mw.BanGate)
	}
	if mw.RateLimit != nil {
		api.Use(mw.RateLimit)
	}

	// Profile, own activity and role elevation.
	api.GET("/me", h.Auth.Me)
	api.GET("/me/activity", h.Auth.Activity)
	api.POST("/auth/elevate", h.Auth.ElevateRole)

	// The verse read path.  The feed serves the same payload to everyone,
	// so it alone sits behind the response cache.
	api.GET("/verse/current", h.Verses.Current)
	api.GET("/verse/time-left", h.Verses.TimeLeft)
	if mw.Cache != nil {
		api.GET("/verses", h.Verses.Feed, mw.Cache)
	} else {
		api.GET("/verses", h.Verses.Feed)
	}
	api.GET("/verses/random", h.Verses.Random)

	// Likes and saves.
	api.POST("/verses/:id/like", h.Verses.Like)
	api.DELETE("/verses/:id/like", h.Verses.Unlike)
	api.GET("/verses/:id/likes", h.Verses.Likes)
	api.POST("/verses/:id/save", h.Verses.Save)
	api.DELETE("/verses/:id/save", h.Verses.Unsave)
	api.GET("/me/saved", h.Verses.Saved)

	// Comments, replies and reactions.
	api.POST("/verses/:id/comments", h.Comments.Create)
	api.GET("/verses/:id/comments", h.Comments.List)
	api.POST("/comments/:id/replies", h.Comments.Reply)
	api.GET("/comments/:id/replies", h.Comments.Replies)
	api.POST("/comments/:id/reactions", h.Comments.React)
	api.DELETE("/comments/:id/reactions", h.Comments.Unreact)
	api.GET("/comments/:id/reactions", h.Comments.Reactions)
}

// RegisterAdmin registers the staff-only surface under /v1/admin.  The
// group repeats the authenticated stack and adds the staff-role gate; the
// maintenance gate is deliberately absent so staff can administer the
// service while it is down for users.
func RegisterAdmin(e *echo.Echo, h Handlers, mw Middlewares) {
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(mw.JWTSecret))
	if mw.BanGate != nil {
		admin.Use(mw.BanGate)
	}
	admin.Use(middleware.RequireStaff())

	admin.GET("/dashboard", h.Admin.Dashboard)

	admin.GET("/users", h.Admin.ListUsers)
	admin.POST("/users/:id/ban", h.Admin.BanUser)
	admin.DELETE("/users/:id/ban", h.Admin.UnbanUser)
	admin.POST("/users/:id/restrict", h.Admin.RestrictUser)
	admin.DELETE("/users/:id/restrict", h.Admin.UnrestrictUser)
	admin.PUT("/users/:id/role", h.Admin.ChangeRole)

	admin.DELETE("/comments/:id", h.Admin.DeleteComment)

	admin.GET("/audit", h.Audit.List)

	admin.GET("/announcements", h.Announcements.List)
	admin.POST("/announcements", h.Announcements.Create)
	admin.PUT("/announcements/:id", h.Announcements.Update)
	admin.POST("/announcements/:id/schedule", h.Announcements.Schedule)

	admin.GET("/settings", h.Settings.All)
	admin.PUT("/settings/:key", h.Settings.Update)
}
