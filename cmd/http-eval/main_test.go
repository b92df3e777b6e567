package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpcreech/http-eval/internal/config"
)

func unixGet(t *testing.T, socket, method, target, body string) (int, string) {
	t.Helper()
	client := &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socket)
			},
		},
	}
	req, err := http.NewRequest(method, "http://unix"+target, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "application/json")
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "http-eval dev (commit: unknown)\n", out.String())
}

func TestServeRequiresSocketPath(t *testing.T) {
	t.Setenv(config.EnvSocketPath, "")
	t.Setenv(config.EnvConfig, "")
	configPath = ""

	err := runServe(rootCmd, nil)
	require.ErrorIs(t, err, config.ErrMissingSocketPath)
}

func TestServe(t *testing.T) {
	dir, err := os.MkdirTemp("", "he")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	socket := filepath.Join(dir, "eval.sock")
	metricsSocket := filepath.Join(dir, "metrics.sock")
	cfgFile := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("initial_context:\n  answer: 41\n"), 0o600))

	t.Setenv(config.EnvConfig, cfgFile)
	t.Setenv(config.EnvSocketPath, socket)
	t.Setenv(config.EnvMetricsSocketPath, metricsSocket)
	t.Setenv(config.EnvIgnoreInsecure, "true")
	t.Setenv(config.EnvEngine, "javascript")
	t.Setenv(config.EnvLogLevel, "error")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rootCmd.SetArgs([]string{})
	done := make(chan error, 1)
	go func() { done <- rootCmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		_, errEval := os.Stat(socket)
		_, errMetrics := os.Stat(metricsSocket)
		return errEval == nil && errMetrics == nil
	}, 5*time.Second, 20*time.Millisecond)

	status, body := unixGet(t, socket, http.MethodPost, "/run", `{"code":"return this.answer + 1"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `{"result":42}`, body)

	status, body = unixGet(t, metricsSocket, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `http_eval_eval_evaluations_total{engine="javascript",mode="sync",outcome="ok"} 1`)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not stop")
	}
	_, err = os.Stat(socket)
	assert.True(t, os.IsNotExist(err))
}
