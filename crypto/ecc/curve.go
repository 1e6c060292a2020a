// Package ecc defines the elliptic curve group element interface used by the
// homomorphic encryption layer. Concrete curves implement it in
// subpackages.
package ecc

import "math/big"

// Point is a generic elliptic curve group element. Implementations are
// mutable: operations store their result in the receiver.
type Point interface {
	// New returns a fresh point on the same curve (identity element).
	New() Point
	// Order returns the order of the curve subgroup.
	Order() *big.Int
	// Add computes a+b and stores the result in the receiver.
	Add(a, b Point)
	// SafeAdd is a thread-safe variant of Add.
	SafeAdd(a, b Point)
	// ScalarMult computes scalar*a and stores the result in the receiver.
	ScalarMult(a Point, scalar *big.Int)
	// ScalarBaseMult computes scalar*G and stores the result in the receiver.
	ScalarBaseMult(scalar *big.Int)
	// Neg stores -a in the receiver.
	Neg(a Point)
	// Equal reports whether the receiver and a are the same point.
	Equal(a Point) bool
	// Set copies a into the receiver.
	Set(a Point)
	// SetZero sets the receiver to the identity element.
	SetZero()
	// SetGenerator sets the receiver to the curve base point.
	SetGenerator()
	// SetPoint sets the receiver to the given affine coordinates and
	// returns it.
	SetPoint(x, y *big.Int) Point
	// Point returns the affine coordinates of the point.
	Point() (*big.Int, *big.Int)
	// Marshal serializes the point to its compressed byte form.
	Marshal() []byte
	// Unmarshal deserializes the point from its compressed byte form.
	Unmarshal(buf []byte) error
	// String returns a human-readable representation of the point.
	String() string
	// Type returns the curve type identifier.
	Type() string
}
