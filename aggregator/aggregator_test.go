package aggregator

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	qt "github.com/frankban/quicktest"

	"github.com/cipherscore/cipherscore-node/crypto"
	"github.com/cipherscore/cipherscore-node/crypto/ecc"
	"github.com/cipherscore/cipherscore-node/crypto/ecc/bjj"
	"github.com/cipherscore/cipherscore-node/crypto/elgamal"
	"github.com/cipherscore/cipherscore-node/db/metadb"
	"github.com/cipherscore/cipherscore-node/storage"
	"github.com/cipherscore/cipherscore-node/types"
)

var (
	testAdmin    = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testIdentity = common.HexToAddress("0x2000000000000000000000000000000000000002")
	alice        = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob          = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	mallory      = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
)

// fakeClock is an adjustable time source for cooldown tests.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

// stubOracle decrypts synchronously on demand and signs results with its
// own key, assigning sequential request IDs.
type stubOracle struct {
	c          *qt.C
	signingKey *ecdsa.PrivateKey
	pubKey     ecc.Point
	privKey    *big.Int
	nextID     int
	captured   map[string]*elgamal.Ciphertext
}

func newStubOracle(c *qt.C) *stubOracle {
	signingKey, err := ethcrypto.GenerateKey()
	c.Assert(err, qt.IsNil)
	pubKey, privKey, err := elgamal.GenerateKey(bjj.New())
	c.Assert(err, qt.IsNil)
	return &stubOracle{
		c:          c,
		signingKey: signingKey,
		pubKey:     pubKey,
		privKey:    privKey,
		captured:   make(map[string]*elgamal.Ciphertext),
	}
}

func (o *stubOracle) address() common.Address {
	return ethcrypto.PubkeyToAddress(o.signingKey.PublicKey)
}

func (o *stubOracle) RequestDecryption(_ context.Context, _ types.BatchID, ct *elgamal.Ciphertext) (types.RequestID, error) {
	o.nextID++
	id := types.RequestID(fmt.Sprintf("req-%04d", o.nextID))
	o.captured[string(id)] = ct.Clone()
	return id, nil
}

// resolve decrypts a captured request and returns the total with a valid
// signature over the result digest.
func (o *stubOracle) resolve(id types.RequestID, batchID types.BatchID) (*big.Int, []byte) {
	ct, ok := o.captured[string(id)]
	o.c.Assert(ok, qt.IsTrue)
	_, total, err := elgamal.Decrypt(o.pubKey, o.privKey, ct.C1, ct.C2, 1<<18)
	o.c.Assert(err, qt.IsNil)
	proof, err := ethcrypto.Sign(crypto.ResultDigest(id, batchID, total), o.signingKey)
	o.c.Assert(err, qt.IsNil)
	return total, proof
}

func (o *stubOracle) encrypt(value int64) *elgamal.Ciphertext {
	ct := elgamal.NewCiphertext(bjj.New())
	_, err := ct.Encrypt(big.NewInt(value), o.pubKey, nil)
	o.c.Assert(err, qt.IsNil)
	return ct
}

func newTestAggregator(t *testing.T, cooldown uint64) (*Aggregator, *stubOracle, *fakeClock) {
	c := qt.New(t)
	stg := storage.New(metadb.NewTest(t))
	t.Cleanup(stg.Close)

	orc := newStubOracle(c)
	clock := &fakeClock{now: time.Now()}
	agg, err := New(stg, Config{
		Identity:        testIdentity,
		Administrator:   testAdmin,
		OracleAddress:   orc.address(),
		CooldownSeconds: cooldown,
		TimeFunc:        clock.Now,
	})
	c.Assert(err, qt.IsNil)
	agg.SetOracle(orc)
	// a zero cooldown falls back to the default at bootstrap, so tests
	// wanting no throttle must set it explicitly
	if cooldown == 0 {
		c.Assert(agg.SetCooldown(testAdmin, 0), qt.IsNil)
	}
	return agg, orc, clock
}

func TestAdministratorGovernance(t *testing.T) {
	c := qt.New(t)
	agg, _, _ := newTestAggregator(t, 60)

	// non-admin attempts are rejected with the authorization error family
	err := agg.AddSubmitter(mallory, alice)
	c.Assert(err, qt.ErrorIs, ErrNotAuthorized)
	c.Assert(err, qt.Equals, ErrNotAdministrator)

	c.Assert(agg.AddSubmitter(testAdmin, alice), qt.IsNil)
	c.Assert(agg.IsSubmitter(alice), qt.IsTrue)

	// transfer and verify the old administrator lost the role
	c.Assert(agg.TransferAdministrator(testAdmin, bob), qt.IsNil)
	c.Assert(agg.AddSubmitter(testAdmin, bob), qt.ErrorIs, ErrNotAuthorized)
	c.Assert(agg.AddSubmitter(bob, bob), qt.IsNil)

	c.Assert(agg.RemoveSubmitter(bob, alice), qt.IsNil)
	c.Assert(agg.IsSubmitter(alice), qt.IsFalse)
}

func TestAdministratorHasNoSubmitRights(t *testing.T) {
	c := qt.New(t)
	agg, orc, _ := newTestAggregator(t, 0)

	_, err := agg.OpenBatch(testAdmin)
	c.Assert(err, qt.IsNil)
	_, err = agg.Submit(testAdmin, orc.encrypt(1))
	c.Assert(err, qt.Equals, ErrNotSubmitter)
}

func TestBatchLifecycle(t *testing.T) {
	c := qt.New(t)
	agg, _, _ := newTestAggregator(t, 0)

	_, err := agg.CurrentBatch()
	c.Assert(err, qt.Equals, ErrBatchNotOpen)

	_, err = agg.OpenBatch(mallory)
	c.Assert(err, qt.ErrorIs, ErrNotAuthorized)

	b1, err := agg.OpenBatch(testAdmin)
	c.Assert(err, qt.IsNil)
	c.Assert(b1.ID, qt.Equals, types.BatchID(1))

	// opening on top of an open batch abandons it and advances the ID
	b2, err := agg.OpenBatch(testAdmin)
	c.Assert(err, qt.IsNil)
	c.Assert(b2.ID, qt.Equals, types.BatchID(2))

	closed, err := agg.CloseBatch(testAdmin)
	c.Assert(err, qt.IsNil)
	c.Assert(closed.Open, qt.IsFalse)

	// closing twice is a no-op
	_, err = agg.CloseBatch(testAdmin)
	c.Assert(err, qt.IsNil)

	// IDs keep growing after close, never reused
	b3, err := agg.OpenBatch(testAdmin)
	c.Assert(err, qt.IsNil)
	c.Assert(b3.ID, qt.Equals, types.BatchID(3))
}

func TestSubmitPreconditions(t *testing.T) {
	c := qt.New(t)
	agg, orc, _ := newTestAggregator(t, 0)

	// unknown submitter
	_, err := agg.Submit(alice, orc.encrypt(1))
	c.Assert(err, qt.Equals, ErrNotSubmitter)
	c.Assert(agg.AddSubmitter(testAdmin, alice), qt.IsNil)

	// no batch yet
	_, err = agg.Submit(alice, orc.encrypt(1))
	c.Assert(err, qt.Equals, ErrBatchNotOpen)

	_, err = agg.OpenBatch(testAdmin)
	c.Assert(err, qt.IsNil)
	_, err = agg.CloseBatch(testAdmin)
	c.Assert(err, qt.IsNil)

	// closed batch
	_, err = agg.Submit(alice, orc.encrypt(1))
	c.Assert(err, qt.Equals, ErrBatchNotOpen)

	_, err = agg.OpenBatch(testAdmin)
	c.Assert(err, qt.IsNil)

	// invalid ciphertext
	_, err = agg.Submit(alice, nil)
	c.Assert(err, qt.ErrorIs, elgamal.ErrInvalidCiphertext)

	batch, err := agg.Submit(alice, orc.encrypt(30))
	c.Assert(err, qt.IsNil)
	c.Assert(batch.SubmissionCount, qt.Equals, uint64(1))

	// one submission per batch per identity
	_, err = agg.Submit(alice, orc.encrypt(30))
	c.Assert(err, qt.Equals, ErrAlreadySubmitted)
}

func TestPauseBlocksMutations(t *testing.T) {
	c := qt.New(t)
	agg, orc, _ := newTestAggregator(t, 0)

	c.Assert(agg.AddSubmitter(testAdmin, alice), qt.IsNil)
	_, err := agg.OpenBatch(testAdmin)
	c.Assert(err, qt.IsNil)

	c.Assert(agg.SetPaused(mallory, true), qt.ErrorIs, ErrNotAuthorized)
	c.Assert(agg.SetPaused(testAdmin, true), qt.IsNil)

	_, err = agg.Submit(alice, orc.encrypt(1))
	c.Assert(err, qt.Equals, ErrPaused)
	_, err = agg.OpenBatch(testAdmin)
	c.Assert(err, qt.Equals, ErrPaused)
	_, err = agg.CloseBatch(testAdmin)
	c.Assert(err, qt.Equals, ErrPaused)
	_, err = agg.RequestBatchTotalDecryption(context.Background(), testAdmin)
	c.Assert(err, qt.Equals, ErrPaused)

	// reads still work while paused
	batch, err := agg.CurrentBatch()
	c.Assert(err, qt.IsNil)
	c.Assert(batch.Open, qt.IsTrue)

	// governance still works while paused, so it can be released
	c.Assert(agg.SetPaused(testAdmin, false), qt.IsNil)
	_, err = agg.Submit(alice, orc.encrypt(1))
	c.Assert(err, qt.IsNil)
}

func TestSubmitCooldown(t *testing.T) {
	c := qt.New(t)
	agg, orc, clock := newTestAggregator(t, 60)

	c.Assert(agg.AddSubmitter(testAdmin, alice), qt.IsNil)
	_, err := agg.OpenBatch(testAdmin)
	c.Assert(err, qt.IsNil)
	_, err = agg.Submit(alice, orc.encrypt(1))
	c.Assert(err, qt.IsNil)

	// a fresh batch does not reset the per-identity cooldown
	_, err = agg.OpenBatch(testAdmin)
	c.Assert(err, qt.IsNil)
	_, err = agg.Submit(alice, orc.encrypt(1))
	c.Assert(err, qt.Equals, ErrCooldownActive)

	clock.advance(59 * time.Second)
	_, err = agg.Submit(alice, orc.encrypt(1))
	c.Assert(err, qt.Equals, ErrCooldownActive)

	clock.advance(2 * time.Second)
	_, err = agg.Submit(alice, orc.encrypt(1))
	c.Assert(err, qt.IsNil)
}

func TestCooldownIsAdministratorSettable(t *testing.T) {
	c := qt.New(t)
	agg, orc, clock := newTestAggregator(t, 60)

	c.Assert(agg.SetCooldown(mallory, 0), qt.ErrorIs, ErrNotAuthorized)
	c.Assert(agg.SetCooldown(testAdmin, 10), qt.IsNil)

	c.Assert(agg.AddSubmitter(testAdmin, alice), qt.IsNil)
	_, err := agg.OpenBatch(testAdmin)
	c.Assert(err, qt.IsNil)
	_, err = agg.Submit(alice, orc.encrypt(1))
	c.Assert(err, qt.IsNil)

	_, err = agg.OpenBatch(testAdmin)
	c.Assert(err, qt.IsNil)
	clock.advance(11 * time.Second)
	_, err = agg.Submit(alice, orc.encrypt(1))
	c.Assert(err, qt.IsNil)
}

func TestDecryptionRoundTrip(t *testing.T) {
	c := qt.New(t)
	agg, orc, _ := newTestAggregator(t, 0)

	c.Assert(agg.AddSubmitter(testAdmin, alice), qt.IsNil)
	c.Assert(agg.AddSubmitter(testAdmin, bob), qt.IsNil)

	batch, err := agg.OpenBatch(testAdmin)
	c.Assert(err, qt.IsNil)
	_, err = agg.Submit(alice, orc.encrypt(30))
	c.Assert(err, qt.IsNil)
	_, err = agg.Submit(bob, orc.encrypt(55))
	c.Assert(err, qt.IsNil)
	_, err = agg.CloseBatch(testAdmin)
	c.Assert(err, qt.IsNil)

	req, err := agg.RequestBatchTotalDecryption(context.Background(), testAdmin)
	c.Assert(err, qt.IsNil)
	c.Assert(req.BatchID, qt.Equals, batch.ID)
	c.Assert(req.Consumed, qt.IsFalse)

	total, proof := orc.resolve(req.ID, req.BatchID)
	c.Assert(total.Int64(), qt.Equals, int64(85), qt.Commentf("only the batch total is ever revealed"))

	c.Assert(agg.HandleDecryptionResult(req.ID, total, proof), qt.IsNil)

	done, err := agg.DecryptionRequest(req.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(done.Consumed, qt.IsTrue)
	c.Assert(done.Total.MathBigInt().Int64(), qt.Equals, int64(85))

	// second delivery of the same result is a replay
	c.Assert(agg.HandleDecryptionResult(req.ID, total, proof), qt.Equals, ErrReplayDetected)
}

func TestDecryptionPreconditions(t *testing.T) {
	c := qt.New(t)
	agg, orc, clock := newTestAggregator(t, 60)

	_, err := agg.RequestBatchTotalDecryption(context.Background(), mallory)
	c.Assert(err, qt.ErrorIs, ErrNotAuthorized)

	// no batch
	_, err = agg.RequestBatchTotalDecryption(context.Background(), testAdmin)
	c.Assert(err, qt.Equals, ErrBatchNotOpen)

	c.Assert(agg.AddSubmitter(testAdmin, alice), qt.IsNil)
	_, err = agg.OpenBatch(testAdmin)
	c.Assert(err, qt.IsNil)

	// empty batch
	_, err = agg.RequestBatchTotalDecryption(context.Background(), testAdmin)
	c.Assert(err, qt.Equals, ErrNoSubmissions)

	_, err = agg.Submit(alice, orc.encrypt(7))
	c.Assert(err, qt.IsNil)

	_, err = agg.RequestBatchTotalDecryption(context.Background(), testAdmin)
	c.Assert(err, qt.IsNil)

	// node-wide decryption throttle
	_, err = agg.RequestBatchTotalDecryption(context.Background(), testAdmin)
	c.Assert(err, qt.Equals, ErrCooldownActive)

	clock.advance(61 * time.Second)
	_, err = agg.RequestBatchTotalDecryption(context.Background(), testAdmin)
	c.Assert(err, qt.IsNil)
}

func TestDecryptionStateMismatch(t *testing.T) {
	c := qt.New(t)
	agg, orc, _ := newTestAggregator(t, 0)

	c.Assert(agg.AddSubmitter(testAdmin, alice), qt.IsNil)
	c.Assert(agg.AddSubmitter(testAdmin, bob), qt.IsNil)
	_, err := agg.OpenBatch(testAdmin)
	c.Assert(err, qt.IsNil)
	_, err = agg.Submit(alice, orc.encrypt(30))
	c.Assert(err, qt.IsNil)

	req, err := agg.RequestBatchTotalDecryption(context.Background(), testAdmin)
	c.Assert(err, qt.IsNil)

	// the accumulator changes while the request is in flight
	_, err = agg.Submit(bob, orc.encrypt(55))
	c.Assert(err, qt.IsNil)

	total, proof := orc.resolve(req.ID, req.BatchID)
	c.Assert(agg.HandleDecryptionResult(req.ID, total, proof), qt.Equals, ErrStateMismatch)

	// the request stays pending after a rejected delivery
	pending, err := agg.DecryptionRequest(req.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(pending.Consumed, qt.IsFalse)
}

func TestDecryptionVerification(t *testing.T) {
	c := qt.New(t)
	agg, orc, _ := newTestAggregator(t, 0)

	c.Assert(agg.AddSubmitter(testAdmin, alice), qt.IsNil)
	_, err := agg.OpenBatch(testAdmin)
	c.Assert(err, qt.IsNil)
	_, err = agg.Submit(alice, orc.encrypt(30))
	c.Assert(err, qt.IsNil)

	req, err := agg.RequestBatchTotalDecryption(context.Background(), testAdmin)
	c.Assert(err, qt.IsNil)
	total, proof := orc.resolve(req.ID, req.BatchID)

	// an unknown request ID is treated exactly like a consumed one
	err = agg.HandleDecryptionResult(types.RequestID("bogus"), total, proof)
	c.Assert(err, qt.Equals, ErrReplayDetected)

	// tampered total no longer matches the signed digest
	err = agg.HandleDecryptionResult(req.ID, new(big.Int).Add(total, big.NewInt(1)), proof)
	c.Assert(err, qt.Equals, ErrDecryptionVerificationFailed)

	// signature from a key that is not the registered oracle
	rogueKey, err := ethcrypto.GenerateKey()
	c.Assert(err, qt.IsNil)
	rogueProof, err := ethcrypto.Sign(crypto.ResultDigest(req.ID, req.BatchID, total), rogueKey)
	c.Assert(err, qt.IsNil)
	err = agg.HandleDecryptionResult(req.ID, total, rogueProof)
	c.Assert(err, qt.Equals, ErrDecryptionVerificationFailed)

	// the genuine result still goes through afterwards
	c.Assert(agg.HandleDecryptionResult(req.ID, total, proof), qt.IsNil)
}

func TestEventSubscription(t *testing.T) {
	c := qt.New(t)
	agg, orc, _ := newTestAggregator(t, 0)

	sub := agg.SubscribeEvents(16)
	defer sub.Close()

	c.Assert(agg.AddSubmitter(testAdmin, alice), qt.IsNil)
	_, err := agg.OpenBatch(testAdmin)
	c.Assert(err, qt.IsNil)
	_, err = agg.Submit(alice, orc.encrypt(3))
	c.Assert(err, qt.IsNil)

	expect := []types.EventType{
		types.EventSubmitterAdded,
		types.EventBatchOpened,
		types.EventScoreSubmitted,
	}
	for _, want := range expect {
		select {
		case ev := <-sub.C:
			c.Assert(ev.Type, qt.Equals, want)
		case <-time.After(time.Second):
			c.Fatalf("timed out waiting for %s event", want)
		}
	}

	// the journal carries the same trail with increasing sequence numbers
	events, err := agg.Events(1, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(len(events) >= len(expect), qt.IsTrue)
	for i := 1; i < len(events); i++ {
		c.Assert(events[i].Seq > events[i-1].Seq, qt.IsTrue)
	}
}

func TestSubmissionEventCarriesScore(t *testing.T) {
	c := qt.New(t)
	agg, orc, _ := newTestAggregator(t, 0)

	c.Assert(agg.AddSubmitter(testAdmin, alice), qt.IsNil)
	c.Assert(agg.AddSubmitter(testAdmin, bob), qt.IsNil)
	_, err := agg.OpenBatch(testAdmin)
	c.Assert(err, qt.IsNil)

	score1 := orc.encrypt(3)
	score2 := orc.encrypt(5)
	_, err = agg.Submit(alice, score1)
	c.Assert(err, qt.IsNil)
	_, err = agg.Submit(bob, score2)
	c.Assert(err, qt.IsNil)

	events, err := agg.Events(1, 0)
	c.Assert(err, qt.IsNil)
	var submitted []*types.Event
	for _, ev := range events {
		if ev.Type == types.EventScoreSubmitted {
			submitted = append(submitted, ev)
		}
	}
	c.Assert(submitted, qt.HasLen, 2)

	// each event records the ciphertext that was submitted, not the
	// running total it was folded into
	c.Assert([]byte(submitted[0].Ciphertext), qt.DeepEquals, score1.Serialize())
	c.Assert([]byte(submitted[1].Ciphertext), qt.DeepEquals, score2.Serialize())
}
