package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cipherpool/cipherpool/log"
	"github.com/cipherpool/cipherpool/pool"
)

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port and the pool state machine to expose.
type APIConfig struct {
	Host  string
	Port  int
	Pools *pool.Pools
}

// API type represents the API HTTP server exposing the pool operations.
type API struct {
	router   *chi.Mux
	pools    *pool.Pools
	validate *validator.Validate
}

// New creates a new API instance with the given configuration and starts the
// HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Pools == nil {
		return nil, fmt.Errorf("missing pools instance")
	}
	a := &API{
		pools:    conf.Pools,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	// Initialize router
	a.initRouter()
	go func() {
		log.Infow("starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// NewForTest creates an API instance without starting the HTTP server, so
// tests can drive the router directly.
func NewForTest(pools *pool.Pools) *API {
	a := &API{
		pools:    pools,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	a.initRouter()
	return a
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", PoolEndpoint, "method", "GET")
	a.router.Get(PoolEndpoint, a.poolInfo)
	log.Infow("register handler", "endpoint", OwnerEndpoint, "method", "POST")
	a.router.Post(OwnerEndpoint, a.setOwner)
	log.Infow("register handler", "endpoint", ScoresEndpoint, "method", "POST")
	a.router.Post(ScoresEndpoint, a.submitScore)
	log.Infow("register handler", "endpoint", AverageEndpoint, "method", "POST")
	a.router.Post(AverageEndpoint, a.recomputeAverage)
	log.Infow("register handler", "endpoint", AccessEndpoint, "method", "POST")
	a.router.Post(AccessEndpoint, a.grantAccess)
	log.Infow("register handler", "endpoint", PublicEndpoint, "method", "POST")
	a.router.Post(PublicEndpoint, a.makePublic)
	log.Infow("register handler", "endpoint", MetricsEndpoint, "method", "GET")
	a.router.Get(MetricsEndpoint, promhttp.Handler().ServeHTTP)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}
