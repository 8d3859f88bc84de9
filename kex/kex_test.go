package kex

import (
	"crypto/rand"
	"testing"
)

func randKey(t *testing.T) [32]byte {
	t.Helper()
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return b
}

func TestMutualAgreement(t *testing.T) {
	for i := 0; i < 10; i++ {
		privA := randKey(t)
		privB := randKey(t)

		initiator, err := New(Initiator, privA)
		if err != nil {
			t.Fatalf("iteration %d: new initiator: %v", i, err)
		}
		responder, err := New(Responder, privB)
		if err != nil {
			t.Fatalf("iteration %d: new responder: %v", i, err)
		}

		if err := initiator.SetRemote(responder.Identity(), responder.Ephemeral(), nil); err != nil {
			t.Fatalf("iteration %d: initiator.SetRemote: %v", i, err)
		}
		if err := responder.SetRemote(initiator.Identity(), initiator.Ephemeral(), nil); err != nil {
			t.Fatalf("iteration %d: responder.SetRemote: %v", i, err)
		}

		keyA, err := initiator.Derive()
		if err != nil {
			t.Fatalf("iteration %d: initiator.Derive: %v", i, err)
		}
		keyB, err := responder.Derive()
		if err != nil {
			t.Fatalf("iteration %d: responder.Derive: %v", i, err)
		}
		if keyA != keyB {
			t.Fatalf("iteration %d: shared secrets differ: %x vs %x", i, keyA, keyB)
		}
	}
}

func TestMismatchOnWrongIdentity(t *testing.T) {
	privA := randKey(t)
	privB := randKey(t)
	privC := randKey(t)

	initiator, _ := New(Initiator, privA)
	responder, _ := New(Responder, privB)
	impostor, _ := New(Responder, privC)

	if err := initiator.SetRemote(impostor.Identity(), responder.Ephemeral(), nil); err != nil {
		t.Fatalf("SetRemote: %v", err)
	}
	if err := responder.SetRemote(initiator.Identity(), initiator.Ephemeral(), nil); err != nil {
		t.Fatalf("SetRemote: %v", err)
	}

	keyA, _ := initiator.Derive()
	keyB, _ := responder.Derive()
	if keyA == keyB {
		t.Fatal("swapping identity produced matching secrets")
	}
}

func TestNoExchangeBeforeSetRemote(t *testing.T) {
	h, _ := New(Initiator, randKey(t))
	if _, err := h.Derive(); err == nil {
		t.Fatal("expected NoExchange error before SetRemote")
	}
}

func TestPinOverridesReceivedIdentity(t *testing.T) {
	privA := randKey(t)
	privB := randKey(t)
	privPinned := randKey(t)

	initiator, _ := New(Initiator, privA)
	responder, _ := New(Responder, privB)
	pinnedHolder, _ := New(Responder, privPinned)

	pin := pinnedHolder.Identity()
	if err := initiator.SetRemote(responder.Identity(), responder.Ephemeral(), &pin); err != nil {
		t.Fatalf("SetRemote with pin: %v", err)
	}
	if err := responder.SetRemote(initiator.Identity(), initiator.Ephemeral(), nil); err != nil {
		t.Fatalf("SetRemote: %v", err)
	}

	keyA, _ := initiator.Derive()
	keyB, _ := responder.Derive()
	if keyA == keyB {
		t.Fatal("pin mismatch should have produced different secrets")
	}
}
