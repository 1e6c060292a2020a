package storage

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"

	"github.com/cipherscore/cipherscore-node/crypto/ecc/bjj"
	"github.com/cipherscore/cipherscore-node/crypto/elgamal"
	"github.com/cipherscore/cipherscore-node/db/metadb"
	"github.com/cipherscore/cipherscore-node/types"
	"github.com/cipherscore/cipherscore-node/util"
)

func newTestStorage(t *testing.T) *Storage {
	st := New(metadb.NewTest(t))
	t.Cleanup(st.Close)
	return st
}

func testCiphertext(t *testing.T, value int64) *elgamal.Ciphertext {
	c := qt.New(t)
	curve := bjj.New()
	pubKey, _, err := elgamal.GenerateKey(curve)
	c.Assert(err, qt.IsNil)
	ct := elgamal.NewCiphertext(curve)
	_, err = ct.Encrypt(big.NewInt(value), pubKey, nil)
	c.Assert(err, qt.IsNil)
	return ct
}

func TestRegistry(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)

	_, err := st.Registry()
	c.Assert(err, qt.Equals, ErrNotFound)

	admin := common.HexToAddress("0x1111111111111111111111111111111111111111")
	reg := &types.Registry{Administrator: admin, CooldownSeconds: 60}
	c.Assert(st.SetRegistry(reg), qt.IsNil)

	got, err := st.Registry()
	c.Assert(err, qt.IsNil)
	c.Assert(got.Administrator, qt.Equals, admin)
	c.Assert(got.Paused, qt.IsFalse)
	c.Assert(got.CooldownSeconds, qt.Equals, uint64(60))
}

func TestSubmitterSet(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)

	alice := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	c.Assert(st.IsSubmitter(alice), qt.IsFalse)
	c.Assert(st.AddSubmitter(alice), qt.IsNil)
	c.Assert(st.AddSubmitter(alice), qt.IsNil, qt.Commentf("adding twice must be idempotent"))
	c.Assert(st.AddSubmitter(bob), qt.IsNil)
	c.Assert(st.IsSubmitter(alice), qt.IsTrue)
	c.Assert(st.IsSubmitter(bob), qt.IsTrue)

	submitters, err := st.ListSubmitters()
	c.Assert(err, qt.IsNil)
	c.Assert(submitters, qt.HasLen, 2)

	c.Assert(st.RemoveSubmitter(alice), qt.IsNil)
	c.Assert(st.RemoveSubmitter(alice), qt.IsNil, qt.Commentf("removing twice must be idempotent"))
	c.Assert(st.IsSubmitter(alice), qt.IsFalse)
	c.Assert(st.IsSubmitter(bob), qt.IsTrue)
}

func TestBatchLifecycle(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)
	now := time.Now()

	id, err := st.CurrentBatchID()
	c.Assert(err, qt.IsNil)
	c.Assert(id.IsZero(), qt.IsTrue)
	_, err = st.CurrentBatch()
	c.Assert(err, qt.Equals, ErrNotFound)

	b1, err := st.OpenBatch(now)
	c.Assert(err, qt.IsNil)
	c.Assert(b1.ID, qt.Equals, types.BatchID(1))
	c.Assert(b1.Open, qt.IsTrue)

	closed, err := st.CloseBatch(now.Add(time.Minute))
	c.Assert(err, qt.IsNil)
	c.Assert(closed.ID, qt.Equals, types.BatchID(1))
	c.Assert(closed.Open, qt.IsFalse)
	c.Assert(closed.ClosedAt, qt.IsNotNil)

	// closing again is a no-op
	again, err := st.CloseBatch(now.Add(2 * time.Minute))
	c.Assert(err, qt.IsNil)
	c.Assert(again.Open, qt.IsFalse)
	c.Assert(again.ClosedAt.Equal(*closed.ClosedAt), qt.IsTrue)

	b2, err := st.OpenBatch(now.Add(3 * time.Minute))
	c.Assert(err, qt.IsNil)
	c.Assert(b2.ID, qt.Equals, types.BatchID(2), qt.Commentf("IDs must grow monotonically"))

	// a batch record survives being superseded
	old, err := st.Batch(1)
	c.Assert(err, qt.IsNil)
	c.Assert(old.ID, qt.Equals, types.BatchID(1))

	cur, err := st.CurrentBatch()
	c.Assert(err, qt.IsNil)
	c.Assert(cur.ID, qt.Equals, types.BatchID(2))
}

func TestBatchIDsNeverReused(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)
	now := time.Now()

	seen := map[types.BatchID]bool{}
	for i := 0; i < 5; i++ {
		b, err := st.OpenBatch(now)
		c.Assert(err, qt.IsNil)
		c.Assert(seen[b.ID], qt.IsFalse)
		seen[b.ID] = true
		_, err = st.CloseBatch(now)
		c.Assert(err, qt.IsNil)
	}
}

func TestAddSubmission(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)
	now := time.Now()

	alice := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	batch, err := st.OpenBatch(now)
	c.Assert(err, qt.IsNil)

	_, err = st.Accumulator(batch.ID)
	c.Assert(err, qt.Equals, ErrNotFound, qt.Commentf("accumulator must be unseeded before the first submission"))

	ct := testCiphertext(t, 30)
	updated, err := st.AddSubmission(batch.ID, alice, ct, ct, now)
	c.Assert(err, qt.IsNil)
	c.Assert(updated.SubmissionCount, qt.Equals, uint64(1))
	c.Assert(st.HasSubmitted(batch.ID, alice), qt.IsTrue)

	acc, err := st.Accumulator(batch.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(acc.C1.Equal(ct.C1), qt.IsTrue)
	c.Assert(acc.C2.Equal(ct.C2), qt.IsTrue)

	// duplicate flag
	_, err = st.AddSubmission(batch.ID, alice, ct, ct, now)
	c.Assert(err, qt.Equals, ErrAlreadyExists)

	// the rate limit timestamp was refreshed in the same transaction
	last, ok := st.LastAction(ActionSubmit, alice.Bytes())
	c.Assert(ok, qt.IsTrue)
	c.Assert(last.Unix(), qt.Equals, now.Unix())
}

func TestDecryptionRequests(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)
	now := time.Now()

	identity := util.RandomBytes(20)
	req := &types.DecryptionRequest{
		ID:               types.RequestID(util.RandomBytes(16)),
		BatchID:          1,
		StateFingerprint: util.RandomBytes(32),
		RequestedAt:      now,
	}
	c.Assert(st.PushDecryptionRequest(req, identity), qt.IsNil)
	c.Assert(st.PushDecryptionRequest(req, identity), qt.Equals, ErrAlreadyExists)

	got, err := st.DecryptionRequest(req.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Consumed, qt.IsFalse)
	c.Assert(got.BatchID, qt.Equals, types.BatchID(1))

	// the global decryption throttle was refreshed in the same transaction
	_, ok := st.LastAction(ActionDecrypt, identity)
	c.Assert(ok, qt.IsTrue)

	total := new(types.BigInt).SetUint64(85)
	c.Assert(st.ConsumeDecryptionRequest(got, total, now), qt.IsNil)

	consumed, err := st.DecryptionRequest(req.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(consumed.Consumed, qt.IsTrue)
	c.Assert(consumed.Total.MathBigInt().Uint64(), qt.Equals, uint64(85))
	c.Assert(consumed.CompletedAt, qt.IsNotNil)

	// consumed requests are kept, never deleted
	all, err := st.ListDecryptionRequests()
	c.Assert(err, qt.IsNil)
	c.Assert(all, qt.HasLen, 1)
}

func TestEventJournal(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)
	now := time.Now()

	c.Assert(st.LastEventSeq(), qt.Equals, uint64(0))

	_, err := st.OpenBatch(now)
	c.Assert(err, qt.IsNil)
	_, err = st.CloseBatch(now)
	c.Assert(err, qt.IsNil)

	c.Assert(st.LastEventSeq(), qt.Equals, uint64(2))

	events, err := st.Events(1, 10)
	c.Assert(err, qt.IsNil)
	c.Assert(events, qt.HasLen, 2)
	c.Assert(events[0].Seq, qt.Equals, uint64(1))
	c.Assert(events[0].Type, qt.Equals, types.EventBatchOpened)
	c.Assert(events[1].Seq, qt.Equals, uint64(2))
	c.Assert(events[1].Type, qt.Equals, types.EventBatchClosed)

	// paging
	page, err := st.Events(2, 10)
	c.Assert(err, qt.IsNil)
	c.Assert(page, qt.HasLen, 1)
	c.Assert(page[0].Type, qt.Equals, types.EventBatchClosed)
}

func TestEventSink(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)

	var received []*types.Event
	st.SetEventSink(func(ev *types.Event) { received = append(received, ev) })

	_, err := st.OpenBatch(time.Now())
	c.Assert(err, qt.IsNil)
	c.Assert(st.AppendEvent(&types.Event{Type: types.EventPausedChanged}), qt.IsNil)

	c.Assert(received, qt.HasLen, 2)
	c.Assert(received[0].Type, qt.Equals, types.EventBatchOpened)
	c.Assert(received[1].Type, qt.Equals, types.EventPausedChanged)
}
