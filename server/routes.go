package server

func (s *Server) initRoutes() {
	// Entry screen. "{$}" keeps "/" from matching every path.
	s.RegisterRouteHandler("GET "+RouteEntry+"{$}", ChainMiddleware(s.EntryHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthMode, ChainMiddleware(s.SwitchModeHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// SIGNUP
	s.RegisterRouteHandler("POST "+RouteSignupFields, ChainMiddleware(s.SignupFieldsHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSignupSubmit, ChainMiddleware(s.SignupSubmitHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSignupBack, ChainMiddleware(s.SignupBackHandler(), s.APIMiddleware()...))

	// LOGIN
	s.RegisterRouteHandler("POST "+RouteLoginFields, ChainMiddleware(s.LoginFieldsHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLoginSubmit, ChainMiddleware(s.LoginSubmitHandler(), s.APIMiddleware()...))

	// Protected screens (require a live session)
	s.RegisterRouteHandler("GET "+RouteHome, ChainMiddleware(s.HomeHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("GET "+RouteProfile, ChainMiddleware(s.ProfileGetHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("POST "+RouteProfile, ChainMiddleware(s.ProfilePostHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("POST "+RouteProfileBusiness, ChainMiddleware(s.ProfileBusinessHandler(), s.APIMiddleware(s.RequireSession())...))

	// CORS preflight for every route
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
}
