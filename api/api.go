// Package api exposes the aggregation node over HTTP: registry
// administration, batch lifecycle, encrypted score submission, decryption
// requests and the audit journal.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cipherscore/cipherscore-node/aggregator"
	"github.com/cipherscore/cipherscore-node/log"
)

const (
	maxRequestBodyLog = 512 // Maximum length of request body to log
)

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host       string
	Port       int
	Aggregator *aggregator.Aggregator
}

// API type represents the API HTTP server.
type API struct {
	router     *chi.Mux
	aggregator *aggregator.Aggregator
}

// New creates a new API instance with the given configuration and starts
// the HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Aggregator == nil {
		return nil, fmt.Errorf("missing aggregator instance")
	}
	a := &API{
		aggregator: conf.Aggregator,
	}
	a.initRouter()
	go func() {
		log.Infow("starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the HTTP handlers for the API endpoints.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	// registry endpoints
	log.Infow("register handler", "endpoint", RegistryEndpoint, "method", "GET")
	a.router.Get(RegistryEndpoint, a.registry)
	log.Infow("register handler", "endpoint", AdministratorEndpoint, "method", "POST")
	a.router.Post(AdministratorEndpoint, a.transferAdministrator)
	log.Infow("register handler", "endpoint", SubmittersEndpoint, "method", "GET")
	a.router.Get(SubmittersEndpoint, a.listSubmitters)
	log.Infow("register handler", "endpoint", SubmittersEndpoint, "method", "POST")
	a.router.Post(SubmittersEndpoint, a.addSubmitter)
	log.Infow("register handler", "endpoint", SubmitterEndpoint, "method", "DELETE")
	a.router.Delete(SubmitterEndpoint, a.removeSubmitter)
	log.Infow("register handler", "endpoint", PauseEndpoint, "method", "POST")
	a.router.Post(PauseEndpoint, a.setPaused)
	log.Infow("register handler", "endpoint", CooldownEndpoint, "method", "POST")
	a.router.Post(CooldownEndpoint, a.setCooldown)
	// batch endpoints
	log.Infow("register handler", "endpoint", BatchesEndpoint, "method", "POST")
	a.router.Post(BatchesEndpoint, a.openBatch)
	log.Infow("register handler", "endpoint", CurrentBatchEndpoint, "method", "GET")
	a.router.Get(CurrentBatchEndpoint, a.currentBatch)
	log.Infow("register handler", "endpoint", CloseBatchEndpoint, "method", "POST")
	a.router.Post(CloseBatchEndpoint, a.closeBatch)
	log.Infow("register handler", "endpoint", BatchEndpoint, "method", "GET")
	a.router.Get(BatchEndpoint, a.batch)
	// score endpoints
	log.Infow("register handler", "endpoint", ScoresEndpoint, "method", "POST")
	a.router.Post(ScoresEndpoint, a.submitScore)
	// decryption endpoints
	log.Infow("register handler", "endpoint", DecryptionsEndpoint, "method", "POST")
	a.router.Post(DecryptionsEndpoint, a.requestDecryption)
	log.Infow("register handler", "endpoint", DecryptionsEndpoint, "method", "GET")
	a.router.Get(DecryptionsEndpoint, a.listDecryptions)
	log.Infow("register handler", "endpoint", DecryptionEndpoint, "method", "GET")
	a.router.Get(DecryptionEndpoint, a.decryption)
	log.Infow("register handler", "endpoint", DecryptionResultEndpoint, "method", "POST")
	a.router.Post(DecryptionResultEndpoint, a.decryptionResult)
	// event journal
	log.Infow("register handler", "endpoint", EventsEndpoint, "method", "GET", "parameters", "from,limit")
	a.router.Get(EventsEndpoint, a.events)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	a.router.Use(loggingMiddleware(maxRequestBodyLog))
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	a.registerHandlers()
}
