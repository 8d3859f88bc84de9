// Package tunnel drives the session state machine that performs the
// FHMQV handshake over a WebSocket link, derives record-layer keys,
// and relays bytes between a local TCP peer and the WebSocket peer in
// both directions.
package tunnel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pomoke/cryptx/cryptxerr"
	"github.com/pomoke/cryptx/kex"
	"github.com/pomoke/cryptx/record"
	"github.com/pomoke/cryptx/wire"
)

// forwardBufferSize is the fixed read buffer used by the TCP-to-WebSocket
// forwarder.
const forwardBufferSize = 1 << 20 // 1 MiB

// maxConcurrentSessions bounds how many client sessions may be
// in-flight at once, so a burst of local connections cannot spawn an
// unbounded number of outstanding handshakes and forwarders.
const maxConcurrentSessions = 256

// handshakeDeadline bounds how long a single handshake may take before
// the session is abandoned.
const handshakeDeadline = 30 * time.Second

// State is the session's lifecycle stage.
type State int

const (
	StateHandshake State = iota
	StateEstablished
	StateFinished
	StateAborted
)

// Config collects the knobs a session needs, independent of role.
type Config struct {
	PrivateKey     [32]byte
	PinnedIdentity *[32]byte
	Logger         *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// RunClient listens on localAddr for TCP connections and, for each
// one, dials remoteURL as a WebSocket peer, runs the initiator side of
// the handshake, and relays bytes until the connection or the link
// closes.
func RunClient(ctx context.Context, localAddr, remoteURL string, cfg Config) error {
	ln, err := net.Listen("tcp", localAddr)
	if err != nil {
		return fmt.Errorf("listen on local endpoint: %w", err)
	}
	defer ln.Close()
	cfg.logger().Info("tunnel client listening", "addr", localAddr, "remote", remoteURL)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	sem := make(chan struct{}, maxConcurrentSessions)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept local connection: %w", err)
		}
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			if err := serveClientConn(ctx, conn, remoteURL, cfg); err != nil {
				cfg.logger().Warn("client session ended", "error", err)
			}
		}()
	}
}

func serveClientConn(ctx context.Context, localConn net.Conn, remoteURL string, cfg Config) error {
	defer localConn.Close()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, remoteURL, nil)
	if err != nil {
		return fmt.Errorf("dial remote endpoint: %w", err)
	}
	defer ws.Close()

	cipherKey, macKey, err := handshake(ws, kex.Initiator, cfg)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	return runForwarders(ctx, cfg.logger(), ws, localConn, cipherKey, macKey)
}

// RunServer accepts WebSocket upgrades on localAddr, runs the
// responder side of the handshake, dials targetAddr as the plaintext
// TCP target, and relays bytes until the connection or the link
// closes.
func RunServer(ctx context.Context, localAddr, targetAddr string, cfg Config) error {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  forwardBufferSize,
		WriteBufferSize: forwardBufferSize,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			cfg.logger().Warn("websocket upgrade failed", "error", err)
			return
		}
		go func() {
			if err := serveServerConn(ctx, ws, targetAddr, cfg); err != nil {
				cfg.logger().Warn("server session ended", "error", err)
			}
		}()
	})

	srv := &http.Server{Addr: localAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	cfg.logger().Info("tunnel server listening", "addr", localAddr, "target", targetAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func serveServerConn(ctx context.Context, ws *websocket.Conn, targetAddr string, cfg Config) error {
	defer ws.Close()

	cipherKey, macKey, err := handshake(ws, kex.Responder, cfg)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	targetConn, err := net.Dial("tcp", targetAddr)
	if err != nil {
		return fmt.Errorf("dial target: %w", err)
	}
	defer targetConn.Close()

	return runForwarders(ctx, cfg.logger(), ws, targetConn, cipherKey, macKey)
}

// handshake runs one FHMQV exchange over ws and returns the derived
// record-layer keys. The mac field carried on the wire is a fixed
// placeholder: authentication is achieved by the derived shared secret
// itself (a mismatched peer derives a different secret and every
// subsequent record fails its MAC), not by a standalone signature over
// the handshake frame.
func handshake(ws *websocket.Conn, role kex.Role, cfg Config) (cipherKey, macKey [16]byte, err error) {
	deadline := time.Now().Add(handshakeDeadline)
	_ = ws.SetReadDeadline(deadline)
	_ = ws.SetWriteDeadline(deadline)
	defer func() {
		_ = ws.SetReadDeadline(time.Time{})
		_ = ws.SetWriteDeadline(time.Time{})
	}()

	hs, err := kex.New(role, cfg.PrivateKey)
	if err != nil {
		return cipherKey, macKey, fmt.Errorf("init handshake: %w", err)
	}

	var macPlaceholder [32]byte
	out := wire.NewLink(wire.NewHandshake(hs.Identity(), hs.Ephemeral(), nil, macPlaceholder))
	outBytes, err := wire.Marshal(out)
	if err != nil {
		return cipherKey, macKey, fmt.Errorf("marshal handshake: %w", err)
	}
	if err := ws.WriteMessage(websocket.BinaryMessage, outBytes); err != nil {
		return cipherKey, macKey, fmt.Errorf("send handshake: %w", err)
	}

	_, inBytes, err := ws.ReadMessage()
	if err != nil {
		return cipherKey, macKey, fmt.Errorf("receive handshake: %w", err)
	}
	in, err := wire.Unmarshal(inBytes)
	if err != nil {
		return cipherKey, macKey, fmt.Errorf("unmarshal handshake: %w", err)
	}
	if in.Kind != wire.WireLink || in.Link.Kind != wire.LinkFHMQVHandshake {
		return cipherKey, macKey, cryptxerr.New(cryptxerr.InvalidState, "expected FHMQVHandshake link message")
	}

	if err := hs.SetRemote(in.Link.Identity, in.Link.EphemeralKey, cfg.PinnedIdentity); err != nil {
		return cipherKey, macKey, fmt.Errorf("validate remote: %w", err)
	}

	shared, err := hs.Derive()
	if err != nil {
		return cipherKey, macKey, fmt.Errorf("derive shared secret: %w", err)
	}
	cipherKey, macKey = kex.SplitKeys(shared)
	return cipherKey, macKey, nil
}

// runForwarders drives the Established-state dual forwarders: one
// decrypts WebSocket frames onto the TCP peer, the other encrypts TCP
// reads onto the WebSocket peer. Each owns its own record.State so
// neither forwarder ever touches the other's counters. The first
// forwarder to stop closes both peers, unblocking the other.
func runForwarders(ctx context.Context, logger *slog.Logger, ws *websocket.Conn, tcpConn net.Conn, cipherKey, macKey [16]byte) error {
	recvState := record.New(cipherKey, macKey)
	sendState := record.New(cipherKey, macKey)

	errCh := make(chan error, 2)
	go func() { errCh <- forwardFromWS(ws, tcpConn, recvState, logger) }()
	go func() { errCh <- forwardToWS(tcpConn, ws, sendState, logger) }()

	err := <-errCh
	_ = ws.Close()
	_ = tcpConn.Close()
	<-errCh // wait for the other forwarder to notice closure and exit

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// forwardFromWS reads encrypted WireMessages off ws, decrypts them,
// and writes the plaintext payload to tcpConn. A nil return means an
// orderly Shutdown or TCP/WS peer close; a non-nil return means the
// session aborted.
func forwardFromWS(ws *websocket.Conn, tcpConn net.Conn, recvState *record.State, logger *slog.Logger) error {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("websocket read: %w", err)
		}

		msg, err := wire.Unmarshal(data)
		if err != nil {
			return fmt.Errorf("unmarshal frame: %w", err)
		}

		switch msg.Kind {
		case wire.WireLink:
			if msg.Link.Kind == wire.LinkShutdown {
				return nil
			}
			return cryptxerr.New(cryptxerr.InvalidState, "unexpected link message in established state")
		case wire.WireFatal:
			return fmt.Errorf("peer sent fatal (code %d)", msg.FatalCode)
		case wire.WireEncrypted:
			plaintext, err := recvState.Decrypt(msg.Encrypted)
			if err != nil {
				var cerr *cryptxerr.Error
				if errors.As(err, &cerr) && cerr.Kind == cryptxerr.ReplayAttack {
					return fmt.Errorf("aborting on replay: %w", err)
				}
				if recvState.ExhaustedIntegrityBudget() {
					return fmt.Errorf("aborting on integrity budget exhaustion: %w", err)
				}
				logger.Warn("dropping record with bad MAC", "error", err)
				continue
			}

			inner, err := wire.UnmarshalMessage(plaintext)
			if err != nil {
				return fmt.Errorf("unmarshal inner message: %w", err)
			}
			switch inner.Kind {
			case wire.MessageData:
				if _, err := tcpConn.Write(inner.Data.Payload); err != nil {
					return fmt.Errorf("write to tcp peer: %w", err)
				}
			case wire.MessageFatal:
				return fmt.Errorf("peer reported inner fatal (code %d)", inner.FatalNo)
			case wire.MessageReKey:
				// ReKey frames are ignored: nothing is sent back and the
				// record keys stay unchanged.
			}
		}
	}
}

// forwardToWS reads plaintext off tcpConn into a fixed buffer,
// encrypts it, wraps it in a Data Packet, and sends it as a
// WebSocket binary message.
func forwardToWS(tcpConn net.Conn, ws *websocket.Conn, sendState *record.State, logger *slog.Logger) error {
	buf := make([]byte, forwardBufferSize)
	for {
		n, err := tcpConn.Read(buf)
		if n > 0 {
			inner := wire.NewData(wire.Packet{StreamType: wire.StreamTCP, Stream: 0, Payload: buf[:n]})
			plain, merr := wire.MarshalMessage(inner)
			if merr != nil {
				return fmt.Errorf("marshal inner message: %w", merr)
			}
			ciphertext := sendState.Encrypt(plain)
			outer, merr := wire.Marshal(wire.NewEncrypted(ciphertext))
			if merr != nil {
				return fmt.Errorf("marshal frame: %w", merr)
			}
			if werr := ws.WriteMessage(websocket.BinaryMessage, outer); werr != nil {
				return fmt.Errorf("websocket write: %w", werr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("tcp read: %w", err)
		}
	}
}
