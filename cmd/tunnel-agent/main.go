// Command tunnel-agent runs one side of the authenticated TCP tunnel:
// as a client it listens on a local TCP endpoint and forwards
// connections over a WebSocket link; as a server it accepts WebSocket
// links and forwards them to a local TCP target.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pomoke/cryptx/config"
	"github.com/pomoke/cryptx/tunnel"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	role, local, remote, pin, configPath := parseFlags()

	logger, logFile := setupLogging()
	defer func() { _ = logFile.Close() }()

	fmt.Printf("=== tunnel-agent %s ===\n", Version)

	cfgFile := loadConfig(configPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tunnelCfg := tunnel.Config{
		PrivateKey:     cfgFile.PrivKey,
		PinnedIdentity: pin,
		Logger:         logger,
	}

	runAgent(ctx, role, local, remote, tunnelCfg, logger)
}

func parseFlags() (role, local, remote string, pin *[32]byte, configPath string) {
	flag.StringVar(&role, "role", "", `agent role: "client" or "server"`)
	flag.StringVar(&local, "local", "", "local TCP endpoint (client) or local WebSocket listen address (server)")
	flag.StringVar(&remote, "remote", "", "remote WebSocket URL to dial (client) or local TCP target (server)")
	pinHex := flag.String("pin", "", "optional pinned remote identity key, 32-byte hex")
	flag.StringVar(&configPath, "config", "", "path to the identity configuration file")
	flag.Parse()

	if role != "client" && role != "server" {
		fmt.Fprintln(os.Stderr, `--role must be "client" or "server"`)
		os.Exit(1)
	}
	if local == "" || remote == "" {
		fmt.Fprintln(os.Stderr, "--local and --remote are required")
		os.Exit(1)
	}

	if *pinHex != "" {
		b, err := hex.DecodeString(*pinHex)
		if err != nil || len(b) != 32 {
			fmt.Fprintln(os.Stderr, "--pin must be 32 bytes of hex")
			os.Exit(1)
		}
		var k [32]byte
		copy(k[:], b)
		pin = &k
	}

	return role, local, remote, pin, configPath
}

func setupLogging() (*slog.Logger, *os.File) {
	logFile, err := os.OpenFile("tunnel-agent.log", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log file: %v\n", err)
		os.Exit(1)
	}
	fileHandler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug})
	stdoutHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(&multiHandler{handlers: []slog.Handler{fileHandler, stdoutHandler}})
	return logger, logFile
}

func loadConfig(configPath string) *config.File {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath("tunnel-agent")
		if err != nil {
			fmt.Fprintf(os.Stderr, "resolve config path: %v\n", err)
			os.Exit(1)
		}
		path = p
	}

	cfgFile, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config %s: %v\n", path, err)
		os.Exit(1)
	}
	return cfgFile
}

func runAgent(ctx context.Context, role, local, remote string, cfg tunnel.Config, logger *slog.Logger) {
	var err error
	switch role {
	case "client":
		err = tunnel.RunClient(ctx, local, remote, cfg)
	case "server":
		err = tunnel.RunServer(ctx, local, remote, cfg)
	}
	if err != nil {
		logger.Error("agent exited with error", "error", err)
		os.Exit(1)
	}
}

// multiHandler fans out slog records to multiple handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: hs}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: hs}
}
