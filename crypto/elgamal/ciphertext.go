package elgamal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"

	"github.com/cipherscore/cipherscore-node/crypto/ecc"
	"github.com/cipherscore/cipherscore-node/crypto/ecc/bjj"
)

const (
	sizeCoord = 32
	// SerializedSize is the byte length of a serialized Ciphertext:
	// C1.X, C1.Y, C2.X, C2.Y as 32-byte big-endian coordinates.
	SerializedSize = 4 * sizeCoord
)

// ErrInvalidCiphertext is returned when deserializing malformed data.
var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// Ciphertext is an ElGamal encrypted value (C1, C2) on the BabyJubJub
// curve. The zero value is not usable; use NewCiphertext.
type Ciphertext struct {
	C1 ecc.Point `json:"c1"`
	C2 ecc.Point `json:"c2"`
}

// NewCiphertext creates a new Ciphertext on the given curve, with both
// points set to the identity element.
func NewCiphertext(curve ecc.Point) *Ciphertext {
	return &Ciphertext{C1: curve.New(), C2: curve.New()}
}

// Encrypt encrypts a message using the public key and the k value
// provided. It stores the result in the receiver and returns it.
func (z *Ciphertext) Encrypt(message *big.Int, publicKey ecc.Point, k *big.Int) (*Ciphertext, error) {
	var err error
	if k == nil {
		k, err = RandK(publicKey)
		if err != nil {
			return nil, fmt.Errorf("elgamal encryption failed: %w", err)
		}
	}
	z.C1, z.C2 = EncryptWithK(publicKey, message, k)
	return z, nil
}

// Add adds two Ciphertexts homomorphically and stores the result in the
// receiver, which is also returned.
func (z *Ciphertext) Add(x, y *Ciphertext) *Ciphertext {
	z.C1.Add(x.C1, y.C1)
	z.C2.Add(x.C2, y.C2)
	return z
}

// Clone returns a deep copy of the Ciphertext.
func (z *Ciphertext) Clone() *Ciphertext {
	c := NewCiphertext(z.C1)
	c.C1.Set(z.C1)
	c.C2.Set(z.C2)
	return c
}

// Valid reports whether the Ciphertext has both points set.
func (z *Ciphertext) Valid() bool {
	return z != nil && z.C1 != nil && z.C2 != nil
}

// Serialize returns a slice of SerializedSize bytes, representing
// C1.X, C1.Y, C2.X, C2.Y as 32-byte big-endian coordinates.
func (z *Ciphertext) Serialize() []byte {
	var buf bytes.Buffer
	for _, p := range []ecc.Point{z.C1, z.C2} {
		x, y := p.Point()
		for _, coord := range []*big.Int{x, y} {
			b := make([]byte, sizeCoord)
			coord.FillBytes(b)
			buf.Write(b)
		}
	}
	return buf.Bytes()
}

// Deserialize reconstructs a Ciphertext from its serialized form. The
// input must be of len SerializedSize, otherwise it returns an error.
func (z *Ciphertext) Deserialize(data []byte) error {
	if len(data) != SerializedSize {
		return fmt.Errorf("%w: got %d bytes, expected %d", ErrInvalidCiphertext, len(data), SerializedSize)
	}
	coords := make([]*big.Int, 4)
	for i := range coords {
		coords[i] = new(big.Int).SetBytes(data[i*sizeCoord : (i+1)*sizeCoord])
	}
	z.C1 = bjj.New().SetPoint(coords[0], coords[1])
	z.C2 = bjj.New().SetPoint(coords[2], coords[3])
	return nil
}

// DeserializeCiphertext reconstructs a Ciphertext from its serialized form.
func DeserializeCiphertext(data []byte) (*Ciphertext, error) {
	z := NewCiphertext(bjj.New())
	if err := z.Deserialize(data); err != nil {
		return nil, err
	}
	return z, nil
}

// MarshalCBOR serializes the Ciphertext to its compact byte form.
func (z *Ciphertext) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(z.Serialize())
}

// UnmarshalCBOR deserializes the Ciphertext from its compact byte form.
func (z *Ciphertext) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	return z.Deserialize(raw)
}

type ciphertextJSON struct {
	C1 *bjj.BJJ `json:"c1"`
	C2 *bjj.BJJ `json:"c2"`
}

// UnmarshalJSON decodes the Ciphertext from its JSON coordinate form,
// assuming the BabyJubJub curve.
func (z *Ciphertext) UnmarshalJSON(data []byte) error {
	aux := &ciphertextJSON{}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if aux.C1 == nil || aux.C2 == nil {
		return ErrInvalidCiphertext
	}
	z.C1, z.C2 = aux.C1, aux.C2
	return nil
}

// String returns a string representation of the Ciphertext.
func (z *Ciphertext) String() string {
	b, err := json.Marshal(z)
	if b == nil || err != nil {
		return ""
	}
	return string(b)
}
