// Package aggregator implements the confidential score aggregation core:
// the access-control registry, the per-identity rate limiter, the batch
// ledger, the encrypted accumulator and the decryption request/callback
// broker. Every state-mutating operation executes atomically under a
// single lock and either applies completely or not at all.
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherscore/cipherscore-node/crypto/elgamal"
	"github.com/cipherscore/cipherscore-node/log"
	"github.com/cipherscore/cipherscore-node/storage"
	"github.com/cipherscore/cipherscore-node/types"
)

// DefaultCooldown is the cooldown applied to rate-limited actions unless
// the administrator configures another value.
const DefaultCooldown = 60 * time.Second

// Oracle is the outbound interface to the external decryption service.
// RequestDecryption hands over a ciphertext and returns an opaque request
// identifier immediately; the decrypted result arrives later through
// HandleDecryptionResult.
type Oracle interface {
	RequestDecryption(ctx context.Context, batchID types.BatchID, ciphertext *elgamal.Ciphertext) (types.RequestID, error)
}

// Config holds the parameters to construct an Aggregator.
type Config struct {
	// Identity is the node's own address. It keys the global decryption
	// request throttle and is bound into every state fingerprint.
	Identity common.Address
	// Administrator bootstraps the registry on first start. Ignored if a
	// registry already exists in storage.
	Administrator common.Address
	// OracleAddress is the identity whose signatures over decryption
	// results are accepted. Ignored if a registry already exists.
	OracleAddress common.Address
	// CooldownSeconds bootstraps the rate-limiter cooldown. Zero means
	// DefaultCooldown. Ignored if a registry already exists.
	CooldownSeconds uint64
	// TimeFunc provides the current time; defaults to time.Now. Used by
	// tests to control the rate limiter clock.
	TimeFunc func() time.Time
}

// Aggregator is the core state machine of the node.
type Aggregator struct {
	stg        *storage.Storage
	oracle     Oracle
	identity   common.Address
	dispatcher *eventDispatcher
	now        func() time.Time
	mu         sync.Mutex
}

// New creates an Aggregator on top of the given storage. If the storage
// holds no registry yet, one is bootstrapped from the config.
func New(stg *storage.Storage, cfg Config) (*Aggregator, error) {
	a := &Aggregator{
		stg:        stg,
		identity:   cfg.Identity,
		dispatcher: newEventDispatcher(),
		now:        cfg.TimeFunc,
	}
	if a.now == nil {
		a.now = time.Now
	}
	stg.SetEventSink(a.dispatcher.publish)

	if _, err := stg.Registry(); err != nil {
		cooldown := cfg.CooldownSeconds
		if cooldown == 0 {
			cooldown = uint64(DefaultCooldown.Seconds())
		}
		reg := &types.Registry{
			Administrator:   cfg.Administrator,
			OracleAddress:   cfg.OracleAddress,
			CooldownSeconds: cooldown,
		}
		if err := stg.SetRegistry(reg); err != nil {
			return nil, err
		}
		log.Infow("registry bootstrapped",
			"administrator", reg.Administrator.Hex(),
			"oracle", reg.OracleAddress.Hex(),
			"cooldownSeconds", reg.CooldownSeconds)
	}
	return a, nil
}

// SetOracle wires the outbound decryption oracle. It must be called before
// RequestBatchTotalDecryption.
func (a *Aggregator) SetOracle(oracle Oracle) {
	a.oracle = oracle
}

// Identity returns the node's own address.
func (a *Aggregator) Identity() common.Address {
	return a.identity
}

// Registry returns the current access-control registry.
func (a *Aggregator) Registry() (*types.Registry, error) {
	return a.stg.Registry()
}

// requireAdmin loads the registry and checks that caller is the
// administrator.
func (a *Aggregator) requireAdmin(caller common.Address) (*types.Registry, error) {
	reg, err := a.stg.Registry()
	if err != nil {
		return nil, err
	}
	if caller != reg.Administrator {
		return nil, ErrNotAdministrator
	}
	return reg, nil
}

// TransferAdministrator reassigns the administrator role. Only the current
// administrator may call it. Note that a zero target address is accepted,
// which permanently locks out administration; callers are expected to know
// what they are doing.
func (a *Aggregator) TransferAdministrator(caller, newAdmin common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	reg, err := a.requireAdmin(caller)
	if err != nil {
		return err
	}
	if newAdmin == (common.Address{}) {
		log.Warnw("transferring administration to the zero address", "caller", caller.Hex())
	}
	old := reg.Administrator
	reg.Administrator = newAdmin
	if err := a.stg.SetRegistry(reg); err != nil {
		return err
	}
	return a.stg.AppendEvent(&types.Event{
		Type:      types.EventAdministratorChanged,
		Timestamp: a.now(),
		Actor:     &old,
		Subject:   &newAdmin,
	})
}

// AddSubmitter grants submission rights to an identity. Idempotent.
func (a *Aggregator) AddSubmitter(caller, submitter common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.requireAdmin(caller); err != nil {
		return err
	}
	if err := a.stg.AddSubmitter(submitter); err != nil {
		return err
	}
	return a.stg.AppendEvent(&types.Event{
		Type:      types.EventSubmitterAdded,
		Timestamp: a.now(),
		Actor:     &caller,
		Subject:   &submitter,
	})
}

// RemoveSubmitter revokes submission rights from an identity. Idempotent.
func (a *Aggregator) RemoveSubmitter(caller, submitter common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.requireAdmin(caller); err != nil {
		return err
	}
	if err := a.stg.RemoveSubmitter(submitter); err != nil {
		return err
	}
	return a.stg.AppendEvent(&types.Event{
		Type:      types.EventSubmitterRemoved,
		Timestamp: a.now(),
		Actor:     &caller,
		Subject:   &submitter,
	})
}

// IsSubmitter reports whether an identity holds submission rights.
func (a *Aggregator) IsSubmitter(identity common.Address) bool {
	return a.stg.IsSubmitter(identity)
}

// ListSubmitters returns the submitter set.
func (a *Aggregator) ListSubmitters() ([]common.Address, error) {
	return a.stg.ListSubmitters()
}

// SetPaused engages or releases the global kill-switch. While paused,
// every batch-mutating and decryption-request operation fails with
// ErrPaused; read operations remain available.
func (a *Aggregator) SetPaused(caller common.Address, paused bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	reg, err := a.requireAdmin(caller)
	if err != nil {
		return err
	}
	if reg.Paused == paused {
		return nil
	}
	reg.Paused = paused
	if err := a.stg.SetRegistry(reg); err != nil {
		return err
	}
	return a.stg.AppendEvent(&types.Event{
		Type:      types.EventPausedChanged,
		Timestamp: a.now(),
		Actor:     &caller,
		Paused:    &paused,
	})
}

// SetCooldown updates the rate-limiter cooldown, in seconds, applied
// uniformly to all rate-limited action categories.
func (a *Aggregator) SetCooldown(caller common.Address, seconds uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	reg, err := a.requireAdmin(caller)
	if err != nil {
		return err
	}
	reg.CooldownSeconds = seconds
	if err := a.stg.SetRegistry(reg); err != nil {
		return err
	}
	return a.stg.AppendEvent(&types.Event{
		Type:      types.EventCooldownChanged,
		Timestamp: a.now(),
		Actor:     &caller,
		Cooldown:  &seconds,
	})
}

// checkCooldown returns ErrCooldownActive if the identity's last action of
// the given category is more recent than the configured cooldown.
func (a *Aggregator) checkCooldown(reg *types.Registry, category string, identity []byte) error {
	last, ok := a.stg.LastAction(category, identity)
	if !ok {
		return nil
	}
	if a.now().Before(last.Add(time.Duration(reg.CooldownSeconds) * time.Second)) {
		return ErrCooldownActive
	}
	return nil
}

// Events returns up to limit journal events starting at sequence from.
func (a *Aggregator) Events(from uint64, limit int) ([]*types.Event, error) {
	return a.stg.Events(from, limit)
}
