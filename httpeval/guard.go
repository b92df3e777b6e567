package httpeval

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/bpcreech/http-eval/internal/helpers"
	"github.com/bpcreech/http-eval/internal/observability"
)

// Guard refuses service while the listening socket is writable by "other".
// The check runs until it first succeeds and never again afterwards, so
// permissions loosened after that point go unnoticed.
type Guard struct {
	mu      sync.Mutex
	checked bool
	skip    bool

	metrics *observability.MetricsCollector
	logger  *slog.Logger
}

// NewGuard creates a Guard. With skip set every check passes without
// inspecting the socket.
func NewGuard(handler slog.Handler, skip bool, metrics *observability.MetricsCollector) *Guard {
	_, logger := helpers.SetupLogger(handler, "httpeval", "Guard")
	return &Guard{skip: skip, metrics: metrics, logger: logger}
}

// Checked reports whether a check has succeeded.
func (g *Guard) Checked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checked
}

// CheckOnce inspects addr unless skipped or already checked. It fails with a
// KindConfiguration *Error when addr is not a filesystem Unix socket or when
// the socket file is world-writable.
func (g *Guard) CheckOnce(addr net.Addr) error {
	if g.skip {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.checked {
		return nil
	}

	if err := inspectSocket(addr); err != nil {
		g.metrics.RecordGuardCheck("rejected")
		g.logger.Error("Socket permission check failed", "error", err)
		return err
	}

	g.checked = true
	g.metrics.RecordGuardCheck("ok")
	g.logger.Debug("Socket permission check passed", "addr", addr.String())
	return nil
}

func inspectSocket(addr net.Addr) error {
	ua, ok := addr.(*net.UnixAddr)
	if !ok || ua == nil || ua.Name == "" || ua.Name[0] == '@' {
		return NewConfigurationError(
			fmt.Sprintf("eval server path %s does not appear to be a Unix domain socket.", quoteAddr(addr)))
	}

	info, err := os.Stat(ua.Name)
	if err != nil {
		return NewConfigurationError(fmt.Sprintf("eval server path %s cannot be inspected: %v", ua.Name, err))
	}
	if info.Mode().Perm()&0o002 != 0 {
		return NewConfigurationError(
			fmt.Sprintf("eval server path %s is world-writable! Set umask to at least 0002 before running.", ua.Name))
	}
	return nil
}

func quoteAddr(addr net.Addr) string {
	if addr == nil {
		return "null"
	}
	b, err := json.Marshal(addr.String())
	if err != nil {
		return addr.String()
	}
	return string(b)
}
