package httpeval

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bpcreech/http-eval/engines"
	"github.com/bpcreech/http-eval/engines/types"
)

func quietHandler() slog.Handler {
	return slog.NewTextHandler(io.Discard, nil)
}

// socketDir returns a short directory for sockets; t.TempDir paths can
// exceed the Unix socket path limit for long test names.
func socketDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "he")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func newMachine(t *testing.T, engine types.Type) *engines.Machine {
	t.Helper()
	m, err := engines.New(context.Background(), engine, engines.WithLogHandler(quietHandler()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

type testServer struct {
	path    string
	server  *Server
	handler *Handler
	client  *http.Client
}

// startServer serves runner on a fresh socket with permissions perm.
func startServer(t *testing.T, runner Runner, perm os.FileMode, opts ...Option) *testServer {
	t.Helper()

	path := filepath.Join(socketDir(t), "eval.sock")
	h, err := NewHandler(runner, append([]Option{WithLogHandler(quietHandler())}, opts...)...)
	require.NoError(t, err)

	srv, err := NewServer(path, h, quietHandler())
	require.NoError(t, err)
	require.NoError(t, srv.Listen())
	require.NoError(t, os.Chmod(path, perm))

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		<-done
	})

	return &testServer{
		path:    path,
		server:  srv,
		handler: h,
		client:  unixClient(path),
	}
}

func unixClient(path string) *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", path)
			},
		},
	}
}

type reply struct {
	status int
	raw    string
	header http.Header
}

func (r reply) decode(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.raw), &m), r.raw)
	return m
}

func (ts *testServer) run(t *testing.T, target, code string) reply {
	t.Helper()
	body, err := json.Marshal(map[string]string{"code": code})
	require.NoError(t, err)
	return doRequest(t, ts.client, http.MethodPost, "http://unix"+target, string(body), "application/json")
}

func doRequest(t *testing.T, client *http.Client, method, url, body, encoding string) reply {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if encoding != "" {
		req.Header.Set("Accept-Encoding", encoding)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return reply{status: resp.StatusCode, raw: string(raw), header: resp.Header}
}
