package oracle

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	qt "github.com/frankban/quicktest"

	"github.com/cipherscore/cipherscore-node/crypto"
	"github.com/cipherscore/cipherscore-node/crypto/elgamal"
	"github.com/cipherscore/cipherscore-node/types"
)

type capturedResult struct {
	requestID types.RequestID
	total     *big.Int
	proof     []byte
}

func TestOracleDecryptsAndSigns(t *testing.T) {
	c := qt.New(t)

	var mu sync.Mutex
	var results []capturedResult
	done := make(chan struct{}, 1)

	orc, err := New(Config{
		MaxValue: 1 << 18,
		Callback: func(requestID types.RequestID, total *big.Int, proof []byte) error {
			mu.Lock()
			results = append(results, capturedResult{requestID, total, proof})
			mu.Unlock()
			done <- struct{}{}
			return nil
		},
	})
	c.Assert(err, qt.IsNil)

	orc.Start(context.Background())
	defer orc.Close()

	// build an accumulator of two scores with the oracle's encryption key
	acc := elgamal.NewCiphertext(orc.EncryptionKey())
	_, err = acc.Encrypt(big.NewInt(30), orc.EncryptionKey(), nil)
	c.Assert(err, qt.IsNil)
	second := elgamal.NewCiphertext(orc.EncryptionKey())
	_, err = second.Encrypt(big.NewInt(55), orc.EncryptionKey(), nil)
	c.Assert(err, qt.IsNil)
	acc.Add(acc, second)

	requestID, err := orc.RequestDecryption(context.Background(), 1, acc)
	c.Assert(err, qt.IsNil)
	c.Assert(requestID, qt.Not(qt.HasLen), 0)

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		c.Fatal("timed out waiting for the oracle result")
	}

	mu.Lock()
	defer mu.Unlock()
	c.Assert(results, qt.HasLen, 1)
	res := results[0]
	c.Assert(res.requestID.Equal(requestID), qt.IsTrue)
	c.Assert(res.total.Int64(), qt.Equals, int64(85))

	// the proof is a signature over the result digest by the oracle key
	digest := crypto.ResultDigest(res.requestID, 1, res.total)
	pub, err := ethcrypto.SigToPub(digest, res.proof)
	c.Assert(err, qt.IsNil)
	c.Assert(ethcrypto.PubkeyToAddress(*pub), qt.Equals, orc.Address())
}

func TestOracleRejectsInvalidCiphertext(t *testing.T) {
	c := qt.New(t)

	orc, err := New(Config{
		Callback: func(types.RequestID, *big.Int, []byte) error { return nil },
	})
	c.Assert(err, qt.IsNil)

	_, err = orc.RequestDecryption(context.Background(), 1, nil)
	c.Assert(err, qt.ErrorIs, elgamal.ErrInvalidCiphertext)
}

func TestOracleRequiresCallback(t *testing.T) {
	c := qt.New(t)
	_, err := New(Config{})
	c.Assert(err, qt.IsNotNil)
}
