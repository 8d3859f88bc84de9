// Package wire defines the tagged-union messages exchanged over the
// tunnel's WebSocket link and their msgpack encoding. Every outer
// message sent on the wire is a WireMessage; handshake traffic rides
// inside Link, data traffic inside Encrypted.
package wire

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// StreamType identifies the kind of payload carried in a Packet.
type StreamType uint8

const (
	StreamTCP StreamType = iota
	StreamUDP
	StreamIP
	StreamEthernet
	StreamRAW
)

// Certificate is carried opaquely: its fields round-trip across the
// wire but are never interpreted or validated here. A future
// certificate-chain validation hook would consume these fields.
type Certificate struct {
	ExchangePubkey [32]byte `msgpack:"exchange_pubkey"`
	SignPubkey     [32]byte `msgpack:"sign_pubkey"`
	Owner          string   `msgpack:"owner"`
	ValidThru      int64    `msgpack:"valid_thru"`
	Note           string   `msgpack:"note"`
	SignedBy       [32]byte `msgpack:"signed_by"`
}

// LinkMsg is the unencrypted link-control payload carried by a Link
// WireMessage. The fields below are meaningful only when Kind is
// LinkFHMQVHandshake; a Shutdown carries none of them.
type LinkMsg struct {
	Kind LinkMsgKind `msgpack:"kind"`

	Identity      [32]byte      `msgpack:"identity,omitempty"`
	EphemeralKey  [32]byte      `msgpack:"ephemeral_key,omitempty"`
	Certification []Certificate `msgpack:"certification,omitempty"`
	Mac           [32]byte      `msgpack:"mac,omitempty"`
}

type LinkMsgKind uint8

const (
	LinkFHMQVHandshake LinkMsgKind = iota
	LinkShutdown
)

// NewHandshake builds a FHMQVHandshake LinkMsg.
func NewHandshake(identity, ephemeral [32]byte, cert []Certificate, mac [32]byte) LinkMsg {
	return LinkMsg{
		Kind:          LinkFHMQVHandshake,
		Identity:      identity,
		EphemeralKey:  ephemeral,
		Certification: cert,
		Mac:           mac,
	}
}

// NewShutdown builds the peer-driven orderly-close control message.
func NewShutdown() LinkMsg {
	return LinkMsg{Kind: LinkShutdown}
}

// Packet carries one chunk of forwarded application payload, tagged
// with the stream it belongs to.
type Packet struct {
	StreamType StreamType `msgpack:"stream_type"`
	Stream     uint16     `msgpack:"stream"`
	Payload    []byte     `msgpack:"payload"`
}

// Message is the inner, record-layer-encrypted payload.
type Message struct {
	Kind MessageKind `msgpack:"kind"`

	Data    Packet `msgpack:"data,omitempty"`
	FatalNo uint32 `msgpack:"fatal_no,omitempty"`
}

type MessageKind uint8

const (
	MessageReKey MessageKind = iota
	MessageData
	MessageFatal
)

func NewData(p Packet) Message { return Message{Kind: MessageData, Data: p} }
func NewReKey() Message        { return Message{Kind: MessageReKey} }
func NewInnerFatal(code uint32) Message {
	return Message{Kind: MessageFatal, FatalNo: code}
}

// WireMessage is the outer tagged union carried on every WebSocket
// binary frame.
type WireMessage struct {
	Kind WireMessageKind `msgpack:"kind"`

	Link      LinkMsg  `msgpack:"link,omitempty"`
	Encrypted []byte   `msgpack:"encrypted,omitempty"`
	FatalCode uint32   `msgpack:"fatal_code,omitempty"`
	FatalMac  [32]byte `msgpack:"fatal_mac,omitempty"`
}

type WireMessageKind uint8

const (
	WireLink WireMessageKind = iota
	WireEncrypted
	WireFatal
)

func NewLink(msg LinkMsg) WireMessage {
	return WireMessage{Kind: WireLink, Link: msg}
}

func NewEncrypted(blob []byte) WireMessage {
	return WireMessage{Kind: WireEncrypted, Encrypted: blob}
}

func NewFatal(code uint32, mac [32]byte) WireMessage {
	return WireMessage{Kind: WireFatal, FatalCode: code, FatalMac: mac}
}

// Marshal encodes a WireMessage as a self-describing msgpack blob
// suitable for a single WebSocket binary frame.
func Marshal(m WireMessage) ([]byte, error) {
	b, err := msgpack.Marshal(&m)
	if err != nil {
		return nil, fmt.Errorf("marshal wire message: %w", err)
	}
	return b, nil
}

// Unmarshal decodes a WebSocket binary frame into a WireMessage.
func Unmarshal(b []byte) (WireMessage, error) {
	var m WireMessage
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return WireMessage{}, fmt.Errorf("unmarshal wire message: %w", err)
	}
	return m, nil
}

// MarshalMessage encodes an inner Message — the plaintext that the
// record layer encrypts into a WireMessage's Encrypted field.
func MarshalMessage(m Message) ([]byte, error) {
	b, err := msgpack.Marshal(&m)
	if err != nil {
		return nil, fmt.Errorf("marshal inner message: %w", err)
	}
	return b, nil
}

// UnmarshalMessage decodes a record-layer plaintext into an inner
// Message.
func UnmarshalMessage(b []byte) (Message, error) {
	var m Message
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return Message{}, fmt.Errorf("unmarshal inner message: %w", err)
	}
	return m, nil
}
