// Package router wires the HTTP handlers onto echo route groups together
// with their authentication, role, cache and rate limit middleware.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// Handlers groups every HTTP handler the API exposes.
type Handlers struct {
	Auth           *handler.AuthHandler
	Users          *handler.UserHandler
	Events         *handler.EventHandler
	Bookings       *handler.BookingHandler
	Advertisements *handler.AdvertisementHandler
	Logo           *handler.LogoHandler
}

// Options carries the shared middleware. Nil entries are skipped.
type Options struct {
	JWTSecret string
	Cache     echo.MiddlewareFunc // public GET responses
	RateLimit echo.MiddlewareFunc // login, register and booking creation
	// Invalidate builds middleware that drops cached responses of the named
	// scopes after a successful write.
	Invalidate func(scopes ...string) echo.MiddlewareFunc
}

func (o Options) auth(roles ...string) []echo.MiddlewareFunc {
	m := []echo.MiddlewareFunc{middleware.JWTAuth(o.JWTSecret)}
	if len(roles) > 0 {
		m = append(m, middleware.RequireRole(roles...))
	}
	return m
}

func (o Options) cached() []echo.MiddlewareFunc {
	if o.Cache == nil {
		return nil
	}
	return []echo.MiddlewareFunc{o.Cache}
}

func (o Options) limited(m ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if o.RateLimit == nil {
		return m
	}
	return append([]echo.MiddlewareFunc{o.RateLimit}, m...)
}

// purging appends cache invalidation for scopes to m.
func (o Options) purging(m []echo.MiddlewareFunc, scopes ...string) []echo.MiddlewareFunc {
	if o.Invalidate == nil {
		return m
	}
	return append(m[:len(m):len(m)], o.Invalidate(scopes...))
}

// New builds the echo instance with the global middleware and every route.
func New(h Handlers, o Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(echomw.CORS())

	RegisterRoutes(e)
	RegisterAuth(e, h.Auth, o)
	RegisterUsers(e, h.Users, o)
	RegisterEvents(e, h.Events, o)
	RegisterBookings(e, h.Bookings, o)
	RegisterContent(e, h.Advertisements, h.Logo, o)
	return e
}

// RegisterRoutes registers the health check and the page redirects.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	handler.RegisterPages(e)
}

// RegisterAuth registers the token flow under /api/auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, o Options) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register, o.limited()...)
	g.POST("/login", a.Login, o.limited()...)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// logout parses the bearer itself so a refresh token alone is enough
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, o.auth()...)
}

// RegisterUsers registers /api/users. Management is admin only; password
// changes are open to the signed-in user and resets to anyone with the
// email.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, o Options) {
	e.POST("/api/users/change-password", u.ChangePassword, o.auth()...)
	// Unauthenticated on purpose: knowing the email is enough to reset. The
	// rate limiter is the only guard.
	e.POST("/api/users/reset-password", u.ResetPassword, o.limited()...)

	g := e.Group("/api/users", o.auth(model.RoleAdmin)...)
	g.GET("", u.List)
	g.GET("/search", u.Search)
	g.GET("/email/:email", u.GetByEmail)
	g.GET("/:id", u.Get)
	g.POST("", u.Create)
	g.PUT("/:id", u.Update)
	g.DELETE("/:id", u.Delete)
}

// RegisterEvents registers /api/events. Reads are public and cached.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, o Options) {
	g := e.Group("/api/events")
	g.GET("", h.List, o.cached()...)
	g.GET("/search", h.Search, o.cached()...)
	g.GET("/organizer/:organizerId", h.ListByOrganizer, o.cached()...)
	g.GET("/:id", h.Get, o.cached()...)

	staff := o.purging(o.auth(model.RoleOrganizer, model.RoleAdmin), "events")
	g.POST("", h.Create, staff...)
	g.PUT("/:id", h.Update, staff...)
	g.DELETE("/:id", h.Delete, staff...)
}

// RegisterBookings registers /api/bookings. Only booked-seats is public.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, o Options) {
	g := e.Group("/api/bookings")
	g.GET("/event/:eventId/booked-seats", h.BookedSeats)

	anyone := o.auth()
	staff := o.auth(model.RoleOrganizer, model.RoleAdmin)
	admin := o.auth(model.RoleAdmin)

	// bookings move seat counts, which cached event reads expose
	g.POST("", h.Create, o.purging(o.limited(anyone...), "events")...)
	g.GET("", h.List, admin...)
	g.GET("/user/:userId", h.ListByUser, anyone...)
	g.GET("/event/:eventId", h.ListByEvent, staff...)
	g.GET("/:id", h.Get, anyone...)
	g.PUT("/:id/cancel", h.Cancel, o.purging(anyone, "events")...)
	g.PUT("/:id/use", h.MarkUsed, staff...)
	g.PUT("/:id/status", h.SetStatus, o.purging(admin, "events")...)
}

// RegisterContent registers the advertisement banners and the site logo.
func RegisterContent(e *echo.Echo, a *handler.AdvertisementHandler, l *handler.LogoHandler, o Options) {
	admin := o.auth(model.RoleAdmin)
	adWrites := o.purging(admin, "advertisements")

	ads := e.Group("/api/advertisements")
	ads.GET("", a.List, o.cached()...)
	ads.GET("/active", a.ListActive, o.cached()...)
	ads.GET("/:id", a.Get)
	ads.POST("", a.Create, adWrites...)
	ads.POST("/batch", a.CreateBatch, adWrites...)
	ads.PUT("/reorder", a.Reorder, adWrites...)
	ads.PUT("/:id", a.Update, adWrites...)
	ads.DELETE("", a.DeleteAll, adWrites...)
	ads.DELETE("/:id", a.Delete, adWrites...)

	logo := e.Group("/api/logo")
	logo.GET("", l.Get)
	logo.POST("", l.Upload, admin...)
	logo.DELETE("", l.Delete, admin...)
}
