// Package crypto provides hashing helpers shared by the decryption broker
// and the oracle: the state fingerprint binding a decryption request to an
// exact accumulator state, and the digest the oracle signs over its
// plaintext result.
package crypto

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/cipherscore/cipherscore-node/types"
)

// StateFingerprint computes the hash binding a decryption request to the
// exact encrypted accumulator state at request time. It covers the
// serialized ciphertext, the node's own identity and the batch identifier,
// so a result produced for one state (or one node) can never be accepted
// against another.
func StateFingerprint(ciphertext []byte, identity common.Address, batchID types.BatchID) types.HexBytes {
	return ethcrypto.Keccak256(ciphertext, identity.Bytes(), batchID.Bytes())
}

// ResultDigest computes the digest the oracle signs over a decrypted batch
// total. It binds the plaintext to the request identifier and the batch,
// so a signature for one request can never be replayed for another.
func ResultDigest(requestID types.RequestID, batchID types.BatchID, total *big.Int) []byte {
	totalBuf := make([]byte, 32)
	total.FillBytes(totalBuf)
	return ethcrypto.Keccak256(requestID, batchID.Bytes(), totalBuf)
}
