package auth

import "github.com/mealbox/mealbox/internal/models"

// Screens the UI navigates to once the session resolves.
const (
	RouteLogin               = "/login"
	RouteHome                = "/home"
	RouteMobileHome          = "/mobile/home"
	RouteRestaurantSetup     = "/restaurant/setup"
	RouteRestaurantDashboard = "/restaurant/dashboard"
	RouteAdmin               = "/admin"
)

// Destination picks the landing screen for u. source is the origin of the
// login that produced u; it only matters for customers.
func Destination(u *models.User, source models.LoginSource) string {
	if u == nil {
		return RouteLogin
	}
	switch u.UserType {
	case models.UserTypeAdmin:
		return RouteAdmin
	case models.UserTypeRestaurant:
		if u.SetupCompleted == nil || !*u.SetupCompleted {
			return RouteRestaurantSetup
		}
		return RouteRestaurantDashboard
	}
	if source == models.SourceMobile {
		return RouteMobileHome
	}
	return RouteHome
}
