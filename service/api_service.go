package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/cipherscore/cipherscore-node/aggregator"
	"github.com/cipherscore/cipherscore-node/api"
	"github.com/cipherscore/cipherscore-node/log"
)

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	aggregator *aggregator.Aggregator
	API        *api.API
	mu         sync.Mutex
	cancel     context.CancelFunc
	host       string
	port       int
}

// NewAPI creates a new APIService instance.
func NewAPI(agg *aggregator.Aggregator, host string, port int, disableLogging bool) *APIService {
	if disableLogging {
		api.DisabledLogging = disableLogging
		log.Debugw("API logging is disabled")
	}
	return &APIService{
		aggregator: agg,
		host:       host,
		port:       port,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}

	_, as.cancel = context.WithCancel(ctx)

	var err error
	as.API, err = api.New(&api.APIConfig{
		Host:       as.host,
		Port:       as.port,
		Aggregator: as.aggregator,
	})
	if err != nil {
		as.cancel = nil
		return fmt.Errorf("could not start API server: %w", err)
	}
	return nil
}

// Stop halts the API service.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		as.cancel()
		as.cancel = nil
		log.Infow("API service stopped")
	}
}
