package crypto

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"

	"github.com/cipherscore/cipherscore-node/types"
)

func TestStateFingerprint(t *testing.T) {
	c := qt.New(t)

	identity := common.HexToAddress("0x2000000000000000000000000000000000000002")
	ciphertext := []byte("serialized-accumulator")

	fp := StateFingerprint(ciphertext, identity, 1)
	c.Assert(fp, qt.HasLen, 32)

	// deterministic
	c.Assert(StateFingerprint(ciphertext, identity, 1).Equal(fp), qt.IsTrue)

	// sensitive to every input
	c.Assert(StateFingerprint([]byte("other"), identity, 1).Equal(fp), qt.IsFalse)
	c.Assert(StateFingerprint(ciphertext, common.Address{}, 1).Equal(fp), qt.IsFalse)
	c.Assert(StateFingerprint(ciphertext, identity, 2).Equal(fp), qt.IsFalse)
}

func TestResultDigest(t *testing.T) {
	c := qt.New(t)

	id := types.RequestID("req-0001")
	digest := ResultDigest(id, 1, big.NewInt(85))
	c.Assert(digest, qt.HasLen, 32)

	// any change to request, batch or total changes the digest
	c.Assert(ResultDigest(types.RequestID("req-0002"), 1, big.NewInt(85)), qt.Not(qt.DeepEquals), digest)
	c.Assert(ResultDigest(id, 2, big.NewInt(85)), qt.Not(qt.DeepEquals), digest)
	c.Assert(ResultDigest(id, 1, big.NewInt(86)), qt.Not(qt.DeepEquals), digest)
}
