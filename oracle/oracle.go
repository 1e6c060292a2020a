// Package oracle implements a local decryption oracle. It holds the
// ElGamal decryption key and an ECDSA signing key, processes decryption
// requests asynchronously and delivers each plaintext total back through a
// callback together with a signature binding the result to its request.
package oracle

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/cipherscore/cipherscore-node/crypto"
	"github.com/cipherscore/cipherscore-node/crypto/ecc"
	"github.com/cipherscore/cipherscore-node/crypto/ecc/bjj"
	"github.com/cipherscore/cipherscore-node/crypto/elgamal"
	"github.com/cipherscore/cipherscore-node/log"
	"github.com/cipherscore/cipherscore-node/types"
)

const (
	failbackMaxValue = 2 << 24 // 2^24

	// stuckAfter is how long a request may stay pending before it is
	// reported by the monitor goroutine.
	stuckAfter = 30 * time.Second
)

// ResultCallback delivers a decrypted batch total. The proof is an ECDSA
// signature over the result digest of (requestID, batchID, total).
type ResultCallback func(requestID types.RequestID, total *big.Int, proof []byte) error

type job struct {
	requestID  types.RequestID
	batchID    types.BatchID
	ciphertext *elgamal.Ciphertext
}

// Oracle is a local asynchronous decryption service.
type Oracle struct {
	signingKey *ecdsa.PrivateKey
	decryptKey *big.Int
	encryptKey ecc.Point
	callback   ResultCallback
	maxValue   uint64
	jobs       chan job
	pending    map[string]time.Time
	pendingMu  sync.Mutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// Config holds the oracle construction parameters. Zero values fall back
// to freshly generated keys and the default plaintext bound.
type Config struct {
	// SigningKey signs result digests. Generated if nil.
	SigningKey *ecdsa.PrivateKey
	// MaxValue is the inclusive upper bound for decrypted totals, used by
	// the bounded discrete log search. Defaults to failbackMaxValue.
	MaxValue uint64
	// Callback receives decrypted results. Required.
	Callback ResultCallback
}

// New creates an Oracle with a fresh ElGamal key pair.
func New(cfg Config) (*Oracle, error) {
	if cfg.Callback == nil {
		return nil, fmt.Errorf("oracle callback is required")
	}
	signingKey := cfg.SigningKey
	if signingKey == nil {
		var err error
		signingKey, err = ethcrypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("could not generate signing key: %w", err)
		}
	}
	encryptKey, decryptKey, err := elgamal.GenerateKey(bjj.New())
	if err != nil {
		return nil, fmt.Errorf("could not generate encryption key: %w", err)
	}
	maxValue := cfg.MaxValue
	if maxValue == 0 {
		maxValue = failbackMaxValue
	}
	return &Oracle{
		signingKey: signingKey,
		decryptKey: decryptKey,
		encryptKey: encryptKey,
		callback:   cfg.Callback,
		maxValue:   maxValue,
		jobs:       make(chan job, 10),
		pending:    make(map[string]time.Time),
	}, nil
}

// Address returns the address matching the oracle's signing key. Results
// are only accepted when signed by this identity.
func (o *Oracle) Address() common.Address {
	return ethcrypto.PubkeyToAddress(o.signingKey.PublicKey)
}

// EncryptionKey returns the public key submitters must encrypt scores to.
func (o *Oracle) EncryptionKey() ecc.Point {
	return o.encryptKey
}

// Start launches the worker and monitor goroutines.
func (o *Oracle) Start(ctx context.Context) {
	o.ctx, o.cancel = context.WithCancel(ctx)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for {
			select {
			case j := <-o.jobs:
				if err := o.process(j); err != nil {
					log.Errorw(err, fmt.Sprintf("processing decryption request %s", j.requestID.String()))
				}
				o.pendingMu.Lock()
				delete(o.pending, string(j.requestID))
				o.pendingMu.Unlock()
			case <-o.ctx.Done():
				return
			}
		}
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(stuckAfter)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				o.reportStuck(time.Now())
			case <-o.ctx.Done():
				return
			}
		}
	}()

	log.Infow("decryption oracle started", "address", o.Address().Hex())
}

// Close gracefully shuts down the oracle, draining pending jobs and
// waiting for the goroutines to exit.
func (o *Oracle) Close() {
	if o.cancel == nil {
		return
	}
	o.cancel()
	o.cancel = nil

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-o.jobs:
			case <-time.After(100 * time.Millisecond):
				close(done)
				return
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		log.Warnw("timeout while draining oracle job channel")
	}

	waitCh := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
		log.Infow("decryption oracle closed successfully")
	case <-time.After(5 * time.Second):
		log.Warnw("some oracle goroutines did not exit cleanly")
	}
}

// RequestDecryption enqueues a ciphertext for asynchronous decryption and
// returns the identifier the result will carry.
func (o *Oracle) RequestDecryption(ctx context.Context, batchID types.BatchID, ciphertext *elgamal.Ciphertext) (types.RequestID, error) {
	if ciphertext == nil || !ciphertext.Valid() {
		return nil, elgamal.ErrInvalidCiphertext
	}
	id := uuid.New()
	requestID := types.RequestID(id[:])

	o.pendingMu.Lock()
	o.pending[string(requestID)] = time.Now()
	o.pendingMu.Unlock()

	select {
	case o.jobs <- job{requestID: requestID, batchID: batchID, ciphertext: ciphertext.Clone()}:
	case <-ctx.Done():
		o.pendingMu.Lock()
		delete(o.pending, string(requestID))
		o.pendingMu.Unlock()
		return nil, ctx.Err()
	}
	log.Debugw("decryption request enqueued", "requestId", requestID.String(), "batchId", batchID)
	return requestID, nil
}

// process decrypts the ciphertext, signs the result digest and delivers
// both through the callback.
func (o *Oracle) process(j job) error {
	startTime := time.Now()
	_, total, err := elgamal.Decrypt(o.encryptKey, o.decryptKey, j.ciphertext.C1, j.ciphertext.C2, o.maxValue)
	if err != nil {
		return fmt.Errorf("could not decrypt accumulator for batch %d: %w", j.batchID, err)
	}
	log.Debugw("accumulator decrypted", "requestId", j.requestID.String(),
		"batchId", j.batchID, "duration", time.Since(startTime).String(), "total", total.String())

	digest := crypto.ResultDigest(j.requestID, j.batchID, total)
	proof, err := ethcrypto.Sign(digest, o.signingKey)
	if err != nil {
		return fmt.Errorf("could not sign result digest: %w", err)
	}
	if err := o.callback(j.requestID, total, proof); err != nil {
		return fmt.Errorf("result rejected by callback: %w", err)
	}
	return nil
}

// reportStuck logs requests pending for longer than stuckAfter. They are
// kept in the queue; nothing is retired automatically.
func (o *Oracle) reportStuck(now time.Time) {
	o.pendingMu.Lock()
	defer o.pendingMu.Unlock()
	for id, enqueued := range o.pending {
		if now.Sub(enqueued) > stuckAfter {
			rid := types.RequestID(id)
			log.Warnw("decryption request pending for too long",
				"requestId", rid.String(), "since", enqueued.String())
		}
	}
}
