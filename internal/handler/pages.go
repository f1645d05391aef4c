package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pages are the front-end routes that map onto "<name>.html". The HTML
// itself is served elsewhere.
var Pages = []string{
	"AllEvents", "login", "register", "admin-dashboard", "customer-dashboard",
	"organizer-dashboard", "userProfile", "ApproveOrg", "ViewEvent", "booking",
	"MyBooking", "tracksales", "report", "reset-password", "change-password",
}

// RedirectTo returns a handler answering 302 to target.
func RedirectTo(target string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.Redirect(http.StatusFound, target)
	}
}

// RegisterPages mounts "/" and every page route.
func RegisterPages(e *echo.Echo) {
	e.GET("/", RedirectTo("/AllEvents.html"))
	for _, p := range Pages {
		e.GET("/"+p, RedirectTo("/"+p+".html"))
	}
}
