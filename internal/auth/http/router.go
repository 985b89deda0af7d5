package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tasklist/internal/auth/metrics"
	"github.com/aussiebroadwan/tasklist/internal/auth/service"
	"github.com/aussiebroadwan/tasklist/internal/auth/store"
	"github.com/aussiebroadwan/tasklist/pkg/httpx"
	"github.com/aussiebroadwan/tasklist/pkg/jwtx"
	"github.com/aussiebroadwan/tasklist/pkg/limitx"
	"github.com/aussiebroadwan/tasklist/pkg/slogx"

	_ "github.com/aussiebroadwan/tasklist/api/auth" // Swagger docs
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	cookies      refreshCookies
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store         store.Store
	defaultLimits *limitx.Registry
	authLimits    *limitx.Registry

	AuthService *service.AuthService
	UserService *service.UserService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	refreshTTL time.Duration,
	secureCookies bool,
	limits limitx.Config,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		cookies:      refreshCookies{ttl: refreshTTL, secure: secureCookies},
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// One registry per endpoint class so auth abuse cannot starve the
	// general API limit, and vice versa.
	r.defaultLimits = limitx.NewRegistry(limitx.Config{
		Capacity:   httpx.DefaultLimit.Requests,
		Window:     httpx.DefaultLimit.Window,
		IdleTTL:    limits.IdleTTL,
		MaxEntries: limits.MaxEntries,
	})
	r.authLimits = limitx.NewRegistry(limitx.Config{
		Capacity:   httpx.AuthLimit.Requests,
		Window:     httpx.AuthLimit.Window,
		IdleTTL:    limits.IdleTTL,
		MaxEntries: limits.MaxEntries,
	})

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// StartJanitors begins background eviction of idle rate limit buckets.
func (r *Router) StartJanitors(interval time.Duration) {
	r.defaultLimits.StartJanitor(interval, func(live int) {
		metrics.SetActiveBuckets("default", live)
	})
	r.authLimits.StartJanitor(interval, func(live int) {
		metrics.SetActiveBuckets("auth", live)
	})
}

// StopJanitors halts the background eviction goroutines.
func (r *Router) StopJanitors() {
	r.defaultLimits.StopJanitor()
	r.authLimits.StopJanitor()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			TaskList Session Service API
//	@version		0.1.0
//	@description	Session credential service issuing short-lived JWT access tokens alongside
//	@description	long-lived rotating refresh tokens. Web clients carry the refresh token in an
//	@description	HttpOnly cookie; mobile clients carry it in the response body.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/tasklist
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	observe := metrics.ObserveRateLimit("auth")

	// POST /login - strict rate limit by IP (credential guessing target)
	loginHandler := &LoginHandler{AuthService: r.AuthService, Cookies: r.cookies}
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(r.authLimits, observe),
		),
	)

	// POST /refresh - strict rate limit by IP (token guessing target)
	refreshHandler := &RefreshHandler{AuthService: r.AuthService, Cookies: r.cookies}
	r.Mux.Handle("POST /api/auth/refresh",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(r.authLimits, observe),
		),
	)

	// POST /logout - rate limit decided before the bearer check so a
	// throttled caller learns nothing about their credentials
	logoutHandler := &LogoutHandler{AuthService: r.AuthService, Cookies: r.cookies}
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(r.authLimits, observe),
			httpx.AuthnMiddleware(r.verifier),
		),
	)
}

func (r *Router) registerUsers() {
	observe := metrics.ObserveRateLimit("default")

	// POST /users - public signup endpoint, limited by IP
	registerHandler := &RegisterHandler{UserService: r.UserService}
	r.Mux.Handle("POST /api/users",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(r.defaultLimits, observe),
		),
	)

	meHandler := &MeHandler{UserService: r.UserService}
	r.Mux.Handle("GET /api/users/me",
		httpx.Chain(meHandler,
			httpx.RateLimitByIP(r.defaultLimits, observe),
			httpx.AuthnMiddleware(r.verifier),
		),
	)

	updateMeHandler := &UpdateMeHandler{UserService: r.UserService}
	r.Mux.Handle("PATCH /api/users/me",
		httpx.Chain(updateMeHandler,
			httpx.RateLimitByIP(r.defaultLimits, observe),
			httpx.AuthnMiddleware(r.verifier),
		),
	)

	deleteMeHandler := &DeleteMeHandler{UserService: r.UserService, Cookies: r.cookies}
	r.Mux.Handle("DELETE /api/users/me",
		httpx.Chain(deleteMeHandler,
			httpx.RateLimitByIP(r.defaultLimits, observe),
			httpx.AuthnMiddleware(r.verifier),
		),
	)
}

func (r *Router) registerSystem() {
	observe := metrics.ObserveRateLimit("default")

	// Health check endpoints - monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.defaultLimits, observe),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(r.defaultLimits, observe),
		),
	)

	r.Mux.Handle("GET /metrics",
		httpx.Chain(promhttp.Handler(),
			httpx.RateLimitByIP(r.defaultLimits, observe),
		),
	)
}
