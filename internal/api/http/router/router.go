package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dtroode/assoc-server/internal/api/http/handler"
	"github.com/dtroode/assoc-server/internal/api/http/middleware"
	"github.com/dtroode/assoc-server/internal/logger"
	"github.com/dtroode/assoc-server/internal/observability"
)

// Guards are the route guards of the protected areas.
type Guards struct {
	Admin     *middleware.Guard
	Moderator *middleware.Guard
	Member    *middleware.Guard
}

// Router assembles the HTTP surface of the site.
type Router struct {
	handler  *handler.Handler
	identity *middleware.Identity
	guards   Guards
	metrics  *observability.Metrics
	health   *observability.HealthChecker
	logger   *logger.Logger
}

// New creates a Router. metrics and health may be nil.
func New(
	h *handler.Handler,
	identity *middleware.Identity,
	guards Guards,
	metrics *observability.Metrics,
	health *observability.HealthChecker,
	logger *logger.Logger,
) *Router {
	return &Router{
		handler:  h,
		identity: identity,
		guards:   guards,
		metrics:  metrics,
		health:   health,
		logger:   logger,
	}
}

// Register builds the route tree.
func (rt *Router) Register() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.NewRecovery(rt.logger).Handle)
	r.Use(middleware.NewLogging(rt.logger).Handle)
	if rt.metrics != nil {
		r.Use(rt.metrics.HTTPMiddleware)
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}
	if rt.health != nil {
		r.Get("/healthz", rt.health.Liveness)
		r.Get("/readyz", rt.health.Readiness)
	}

	r.Group(func(r chi.Router) {
		r.Use(rt.identity.Handle)

		r.Get("/", rt.handler.Index)
		r.Get("/signin", rt.handler.SignInPage)
		r.Post("/signin", rt.handler.SignIn)
		r.Post("/signup", rt.handler.SignUp)
		r.Post("/signout", rt.handler.SignOut)
		r.Get("/unauthorized", rt.handler.Unauthorized)
		r.Get("/me", rt.handler.Me)

		r.Route("/member", func(r chi.Router) {
			r.Use(rt.guards.Member.Handle)
			r.Get("/dashboard", rt.handler.MemberDashboard)
		})

		r.Route("/moderator", func(r chi.Router) {
			r.Use(rt.guards.Moderator.Handle)
			r.Get("/queue", rt.handler.ModeratorQueue)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(rt.guards.Admin.Handle)
			r.Get("/users", rt.handler.ListUsers)
			r.Post("/users/{id}/role", rt.handler.SetRole)
			r.Post("/users/{id}/ban", rt.handler.SetBanned)
			r.Post("/roles/{role}/permissions/{permission}", rt.handler.GrantPermission)
			r.Delete("/roles/{role}/permissions/{permission}", rt.handler.RevokePermission)
			r.Get("/incidents/{date}/{id}", rt.handler.GetIncident)
		})
	})

	return r
}
