package server

// Route path constants
// All screen and action routes are defined here to ensure consistency and prevent typos
const (
	// Entry screen
	RouteEntry      = "/"
	RouteAuthMode   = "/auth/mode"
	RouteAuthLogout = "/auth/logout"

	// Signup wizard
	RouteSignupFields = "/signup/fields"
	RouteSignupSubmit = "/signup/submit"
	RouteSignupBack   = "/signup/back"

	// Login form
	RouteLoginFields = "/login/fields"
	RouteLoginSubmit = "/login/submit"

	// Protected screens
	RouteHome            = "/home"
	RouteProfile         = "/profile"
	RouteProfileBusiness = "/profile/business"
)
