// Package service composes the node's components: persistent storage, the
// aggregator core, the local decryption oracle and the HTTP API, each with
// its own lifecycle.
package service

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherscore/cipherscore-node/aggregator"
	"github.com/cipherscore/cipherscore-node/db/metadb"
	"github.com/cipherscore/cipherscore-node/log"
	"github.com/cipherscore/cipherscore-node/storage"
)

// NodeConfig holds the parameters to assemble a node.
type NodeConfig struct {
	DataDir         string
	DBType          string
	Identity        common.Address
	Administrator   common.Address
	CooldownSeconds uint64
	MaxTotal        uint64
	APIHost         string
	APIPort         int
	DisableAPILogs  bool
}

// Node owns every component of a running aggregation node.
type Node struct {
	Storage    *storage.Storage
	Aggregator *aggregator.Aggregator
	Oracle     *OracleService
	API        *APIService
}

// NewNode assembles storage, aggregator, oracle and API from the config.
// Nothing is started yet; call Start.
func NewNode(cfg *NodeConfig) (*Node, error) {
	database, err := metadb.New(cfg.DBType, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	stg := storage.New(database)

	agg, err := aggregator.New(stg, aggregator.Config{
		Identity:        cfg.Identity,
		Administrator:   cfg.Administrator,
		CooldownSeconds: cfg.CooldownSeconds,
	})
	if err != nil {
		stg.Close()
		return nil, fmt.Errorf("could not create aggregator: %w", err)
	}

	orc, err := NewOracle(agg, cfg.MaxTotal)
	if err != nil {
		stg.Close()
		return nil, fmt.Errorf("could not create oracle: %w", err)
	}

	// Register the oracle identity so its result signatures verify. Kept
	// in sync on every start since the oracle key is generated fresh.
	reg, err := stg.Registry()
	if err != nil {
		stg.Close()
		return nil, err
	}
	if reg.OracleAddress != orc.Address() {
		reg.OracleAddress = orc.Address()
		if err := stg.SetRegistry(reg); err != nil {
			stg.Close()
			return nil, err
		}
	}

	return &Node{
		Storage:    stg,
		Aggregator: agg,
		Oracle:     orc,
		API:        NewAPI(agg, cfg.APIHost, cfg.APIPort, cfg.DisableAPILogs),
	}, nil
}

// Start launches the oracle and the API server.
func (n *Node) Start(ctx context.Context) error {
	if err := n.Oracle.Start(ctx); err != nil {
		return err
	}
	if err := n.API.Start(ctx); err != nil {
		n.Oracle.Stop()
		return err
	}
	log.Infow("node started", "identity", n.Aggregator.Identity().Hex())
	return nil
}

// Stop halts every component in reverse start order and closes storage.
func (n *Node) Stop() {
	n.API.Stop()
	n.Oracle.Stop()
	n.Storage.Close()
	log.Infow("node stopped")
}
