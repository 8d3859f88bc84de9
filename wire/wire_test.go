package wire

import (
	"bytes"
	"testing"
)

func TestHandshakeRoundTrip(t *testing.T) {
	var id, eph, mac [32]byte
	id[0] = 1
	eph[0] = 2
	mac[0] = 3
	cert := []Certificate{{Owner: "agent-a", Note: "test cert"}}

	out := NewLink(NewHandshake(id, eph, cert, mac))
	b, err := Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	in, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if in.Kind != WireLink || in.Link.Kind != LinkFHMQVHandshake {
		t.Fatalf("wrong kinds: %+v", in)
	}
	if in.Link.Identity != id || in.Link.EphemeralKey != eph || in.Link.Mac != mac {
		t.Fatalf("field mismatch: %+v", in.Link)
	}
	if len(in.Link.Certification) != 1 || in.Link.Certification[0].Owner != "agent-a" {
		t.Fatalf("certification mismatch: %+v", in.Link.Certification)
	}
}

func TestShutdownRoundTrip(t *testing.T) {
	b, err := Marshal(NewLink(NewShutdown()))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	in, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if in.Link.Kind != LinkShutdown {
		t.Fatalf("expected Shutdown, got %+v", in.Link)
	}
}

func TestDataPacketRoundTrip(t *testing.T) {
	payload := []byte("hello over the tunnel")
	msg := NewData(Packet{StreamType: StreamTCP, Stream: 7, Payload: payload})
	b, err := MarshalMessage(msg)
	if err != nil {
		t.Fatalf("marshal inner: %v", err)
	}
	out, err := UnmarshalMessage(b)
	if err != nil {
		t.Fatalf("unmarshal inner: %v", err)
	}
	if out.Kind != MessageData || out.Data.StreamType != StreamTCP || out.Data.Stream != 7 {
		t.Fatalf("field mismatch: %+v", out)
	}
	if !bytes.Equal(out.Data.Payload, payload) {
		t.Fatalf("payload mismatch: got %q", out.Data.Payload)
	}
}

func TestEncryptedEnvelopeRoundTrip(t *testing.T) {
	blob := []byte{1, 2, 3, 4, 5}
	b, err := Marshal(NewEncrypted(blob))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	in, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if in.Kind != WireEncrypted || !bytes.Equal(in.Encrypted, blob) {
		t.Fatalf("mismatch: %+v", in)
	}
}

func TestFatalRoundTrip(t *testing.T) {
	var mac [32]byte
	mac[5] = 9
	b, err := Marshal(NewFatal(42, mac))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	in, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if in.Kind != WireFatal || in.FatalCode != 42 || in.FatalMac != mac {
		t.Fatalf("mismatch: %+v", in)
	}
}
