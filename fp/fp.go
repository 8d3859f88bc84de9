// Package fp implements arithmetic in the prime field of integers
// modulo p = 2^255 - 19. Elements are represented as sixteen limbs of
// roughly sixteen bits each to defer carry propagation across a chain
// of additions and multiplications; callers that need a canonical
// value call Carry (or Pack, which carries internally) before
// inspecting or comparing limbs directly.
package fp

// Elem is a field element in loose (possibly non-canonical, possibly
// negative-limb) representation. Zero value is the additive identity.
type Elem [16]int64

// limbMask selects the low 16 bits of a limb.
const limbMask = 0xffff

// p25519Bytes is 2^255-19 as little-endian bytes, kept for reference
// only (nothing in the package reads it); arithmetic never
// materializes p as a big integer.
var p25519Bytes = [32]byte{
	0xed, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f,
}

// One is the multiplicative identity.
func One() Elem {
	var e Elem
	e[0] = 1
	return e
}

// Zero is the additive identity.
func Zero() Elem { return Elem{} }

// Add returns a+b without carrying.
func Add(a, b Elem) Elem {
	var o Elem
	for i := 0; i < 16; i++ {
		o[i] = a[i] + b[i]
	}
	return o
}

// Sub returns a-b without carrying.
func Sub(a, b Elem) Elem {
	var o Elem
	for i := 0; i < 16; i++ {
		o[i] = a[i] - b[i]
	}
	return o
}

// Carry propagates overflow out of each limb into the next, folding
// overflow out of the top limb back into limb 0 multiplied by 38
// (since 2^256 = 2 * 2^255 = 2*(p+19) = 2p + 38, i.e. 2^256 = 38 mod p
// once the field's 255-bit width is accounted for). Limbs are left in
// [0, 2^16) except possibly limb 0 and the carry-out of the top limb,
// which is why Mul carries twice and Pack carries three times before
// its conditional subtraction.
func Carry(e Elem) Elem {
	var c int64
	for i := 0; i < 16; i++ {
		e[i] += 1 << 16
		c = e[i] >> 16
		if i < 15 {
			e[i+1] += c - 1
		} else {
			e[0] += 38 * (c - 1)
		}
		e[i] -= c << 16
	}
	return e
}

// swapMask returns an all-ones or all-zero mask depending on bit,
// without branching on bit's value.
func swapMask(bit int64) int64 {
	return -bit
}

// Swap conditionally exchanges a and b when bit==1, and leaves them
// unchanged when bit==0, using only bitwise operations so the branch
// taken never depends on the secret bit.
func Swap(a, b *Elem, bit uint) {
	mask := swapMask(int64(bit & 1))
	for i := 0; i < 16; i++ {
		t := mask & (a[i] ^ b[i])
		a[i] ^= t
		b[i] ^= t
	}
}

// Mul returns a*b, fully carried and ready for further arithmetic.
func Mul(a, b Elem) Elem {
	var t [31]int64
	for i := 0; i < 16; i++ {
		for j := 0; j < 16; j++ {
			t[i+j] += a[i] * b[j]
		}
	}
	for i := 0; i < 15; i++ {
		t[i] += 38 * t[i+16]
	}
	var o Elem
	copy(o[:], t[:16])
	o = Carry(o)
	o = Carry(o)
	return o
}

// Square returns a*a.
func Square(a Elem) Elem { return Mul(a, a) }

// Invert returns a^(p-2), the multiplicative inverse of a, via a fixed
// 254-step addition chain that squares at every step and multiplies by
// a at every step except bit positions 2 and 4 of the exponent p-2
// (whose bits are zero there).
func Invert(a Elem) Elem {
	c := a
	for i := 253; i >= 0; i-- {
		c = Square(c)
		if i != 2 && i != 4 {
			c = Mul(c, a)
		}
	}
	return c
}

// pow2523 returns a^((p-5)/8), the building block for Sqrt.
func pow2523(a Elem) Elem {
	c := a
	for i := 250; i >= 0; i-- {
		c = Square(c)
		if i != 1 {
			c = Mul(c, a)
		}
	}
	return c
}

// sqrtMinus1 is a fixed field element equal to a square root of -1 mod p,
// i.e. 2^((p-1)/4). Its packed constant is the standard curve25519 value.
var sqrtMinus1 = unpackConst([32]byte{
	0xb0, 0xa0, 0x0e, 0x4a, 0x27, 0x1b, 0xee, 0xc4,
	0x78, 0xe4, 0x2f, 0xad, 0x06, 0x18, 0x43, 0x2f,
	0xa7, 0xd7, 0xfb, 0x3d, 0x99, 0x00, 0x4d, 0x2b,
	0x0b, 0xdf, 0xc1, 0x4f, 0x80, 0x24, 0x83, 0x2b,
})

func unpackConst(b [32]byte) Elem { return Unpack(b) }

// Sqrt returns r such that r*r == a, along with its negation p-r, when
// a is a quadratic residue. ok is false when a is not a residue (and
// the returned values are unspecified in that case).
func Sqrt(a Elem) (r Elem, rNeg Elem, ok bool) {
	x := pow2523(a)     // a^((p-5)/8)
	cand := Mul(a, x)   // a^((p+3)/8)
	check := Square(cand)
	if !Equal(check, a) {
		cand = Mul(cand, sqrtMinus1)
		check = Square(cand)
		if !Equal(check, a) {
			return Elem{}, Elem{}, false
		}
	}
	neg := Sub(Zero(), cand)
	return cand, neg, true
}

// Equal reports whether a and b represent the same canonical value.
func Equal(a, b Elem) bool {
	pa := Pack(a)
	pb := Pack(b)
	var diff byte
	for i := range pa {
		diff |= pa[i] ^ pb[i]
	}
	return diff == 0
}

// IsZero reports whether a is canonically zero.
func IsZero(a Elem) bool {
	return Equal(a, Zero())
}

// Pack serializes a to 32 little-endian bytes in canonical form
// (strictly less than p). It carries three times, then performs two
// passes of conditional subtraction: first against p, then against the
// same bound again (the second pass only has an effect when the first
// pass's conditional subtraction itself overflowed back into non-
// canonical range), guaranteeing a result in [0, p).
func Pack(e Elem) [32]byte {
	t := Carry(Carry(Carry(e)))
	for pass := 0; pass < 2; pass++ {
		m := t
		m[0] = t[0] - 0xffed
		for i := 1; i < 15; i++ {
			m[i] = t[i] - 0xffff - ((m[i-1] >> 16) & 1)
			m[i-1] &= 0xffff
		}
		m[15] = t[15] - 0x7fff - ((m[14] >> 16) & 1)
		borrow := (m[15] >> 16) & 1
		m[14] &= 0xffff
		Swap(&t, &m, uint(1-borrow))
	}
	var out [32]byte
	for i := 0; i < 16; i++ {
		out[2*i] = byte(t[i] & 0xff)
		out[2*i+1] = byte((t[i] >> 8) & 0xff)
	}
	return out
}

// Unpack deserializes any 32-byte string into a field element, taking
// it modulo p (the top bit of the last byte, which would otherwise
// push the value above 2^255, is simply dropped, matching the
// compressed-point encoding's use of that bit for a sign flag).
func Unpack(b [32]byte) Elem {
	var o Elem
	for i := 0; i < 16; i++ {
		o[i] = int64(b[2*i]) + int64(b[2*i+1])<<8
	}
	o[15] &= 0x7fff
	return o
}
