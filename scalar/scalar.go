// Package scalar implements arithmetic in Fn, the field of integers
// modulo n, the prime order of the base point's prime-order subgroup.
// Per the design's allowance for a generic multi-precision library on
// the order field (unlike the base field, which is a dense, fully
// unrolled primitive in package fp), this package is a thin wrapper
// around math/big.
package scalar

import "math/big"

// n is the prime order of the base point's prime-order subgroup:
// 2^252 + 27742317777372353535851937790883648493.
var n = mustBig("7237005577332262213973186563042994240857116359379907606001950938285454250989")

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("scalar: bad constant")
	}
	return v
}

// Elem is a value in [0, n), backed by math/big.
type Elem struct {
	v *big.Int
}

// Zero returns the additive identity.
func Zero() Elem { return Elem{v: new(big.Int)} }

// FromBytes interprets 32 little-endian bytes as an integer and
// reduces it modulo n.
func FromBytes(b [32]byte) Elem {
	be := make([]byte, 32)
	for i := 0; i < 32; i++ {
		be[i] = b[31-i]
	}
	v := new(big.Int).SetBytes(be)
	v.Mod(v, n)
	return Elem{v: v}
}

// ToBytes serializes the element as 32 little-endian bytes.
func (e Elem) ToBytes() [32]byte {
	be := e.v.Bytes()
	var out [32]byte
	for i := 0; i < len(be) && i < 32; i++ {
		out[i] = be[len(be)-1-i]
	}
	return out
}

// Add returns a+b mod n.
func Add(a, b Elem) Elem {
	v := new(big.Int).Add(a.v, b.v)
	v.Mod(v, n)
	return Elem{v: v}
}

// Mul returns a*b mod n.
func Mul(a, b Elem) Elem {
	v := new(big.Int).Mul(a.v, b.v)
	v.Mod(v, n)
	return Elem{v: v}
}

// Equal reports whether a and b denote the same residue.
func Equal(a, b Elem) bool {
	return a.v.Cmp(b.v) == 0
}
