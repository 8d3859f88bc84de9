package edwards

import (
	"crypto/rand"
	"testing"

	"github.com/pomoke/cryptx/fp"
)

func randScalar(t *testing.T) [32]byte {
	t.Helper()
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return b
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	for i := 0; i < 10; i++ {
		k := randScalar(t)
		p := ScalarMul(G, k)
		c1 := Compress(p)
		q, ok := Decompress(c1)
		if !ok {
			t.Fatalf("decompress failed on iteration %d", i)
		}
		c2 := Compress(q)
		if c1 != c2 {
			t.Fatalf("compress(decompress(compress(P))) != compress(P) on iteration %d", i)
		}
	}
}

func TestDoubleMatchesAddition(t *testing.T) {
	g := ToExtended(G)
	viaDouble := ToAffine(Double(g))
	viaAdd := ToAffine(Add(g, g))
	if Compress(viaDouble) != Compress(viaAdd) {
		t.Fatal("2*G via double != G+G via add")
	}
}

func TestAdditionAssociative(t *testing.T) {
	g := ToExtended(G)
	gg := Add(g, g)
	left := ToAffine(Add(gg, g))               // (G+G)+G
	rightAssoc := ToAffine(Add(g, Add(g, g))) // G+(G+G)
	if Compress(left) != Compress(rightAssoc) {
		t.Fatal("(G+G)+G != G+(G+G)")
	}
}

func TestScalarLinearity(t *testing.T) {
	for a := uint64(1); a < 6; a++ {
		for b := uint64(1); b < 6; b++ {
			var ab, bb [32]byte
			ab[0] = byte(a)
			bb[0] = byte(b)
			var sum [32]byte
			sum[0] = byte(a + b)

			lhs := ScalarMul(G, sum)
			rhs := AddAffine(ScalarMul(G, ab), ScalarMul(G, bb))
			if Compress(lhs) != Compress(rhs) {
				t.Fatalf("(a+b)*G != a*G+b*G for a=%d b=%d", a, b)
			}
		}
	}
}

func TestCofactorFilter(t *testing.T) {
	// 8*G has order n (prime-order subgroup), so cofactor_check on
	// random multiples of G should be false.
	for i := 0; i < 5; i++ {
		k := randScalar(t)
		p := ScalarMul(G, k)
		if CofactorCheck(p) {
			t.Fatalf("cofactor_check(k*G) reported true on iteration %d", i)
		}
	}

	// The identity is always accepted as cofactor-small (8*O == O).
	if !CofactorCheck(Identity()) {
		t.Fatal("cofactor_check(identity) reported false")
	}
}

func TestECDHConsistency(t *testing.T) {
	a := randScalar(t)
	b := randScalar(t)
	left := ScalarMul(ScalarMul(G, a), b)
	right := ScalarMul(ScalarMul(G, b), a)
	if Compress(left) != Compress(right) {
		t.Fatal("scalar_mul(scalar_mul(G,a),b) != scalar_mul(scalar_mul(G,b),a)")
	}
}

func TestIdentityIsNeutral(t *testing.T) {
	sum := AddAffine(G, Identity())
	if Compress(sum) != Compress(G) {
		t.Fatal("G + identity != G")
	}
	if !fp.Equal(Identity().X, fp.Zero()) {
		t.Fatal("identity X not zero")
	}
}
