package service

import (
	"context"
	"fmt"

	"github.com/cipherscore/cipherscore-node/aggregator"
	"github.com/cipherscore/cipherscore-node/log"
	"github.com/cipherscore/cipherscore-node/oracle"
)

// OracleService represents a service that runs the local decryption
// oracle and delivers its results into the aggregator.
type OracleService struct {
	*oracle.Oracle
	cancel context.CancelFunc
}

// NewOracle creates a local oracle wired to the aggregator: results are
// delivered through HandleDecryptionResult and the oracle's signing
// address becomes the trusted oracle identity of the registry.
func NewOracle(agg *aggregator.Aggregator, maxValue uint64) (*OracleService, error) {
	orc, err := oracle.New(oracle.Config{
		MaxValue: maxValue,
		Callback: agg.HandleDecryptionResult,
	})
	if err != nil {
		return nil, err
	}
	agg.SetOracle(orc)
	return &OracleService{Oracle: orc}, nil
}

// Start begins the oracle service. It returns an error if the service is
// already running.
func (os *OracleService) Start(ctx context.Context) error {
	if os.cancel != nil {
		return fmt.Errorf("service already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	os.cancel = cancel

	os.Oracle.Start(ctx)

	log.Infow("oracle service started")
	return nil
}

// Stop halts the oracle service and waits for its goroutines to exit
// before resources like the database are closed.
func (os *OracleService) Stop() {
	if os.cancel != nil {
		os.cancel()
		os.cancel = nil

		if os.Oracle != nil {
			os.Close()
		}

		log.Infow("oracle service stopped")
	}
}
