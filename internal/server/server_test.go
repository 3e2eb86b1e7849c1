package server

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_ServeAndShutdown(t *testing.T) {
	server := newTestServer(t, Config{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx, ln, Config{TimeoutSec: 5, ShutdownTimeoutSec: 2})
	}()

	url := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNewServer_Defaults(t *testing.T) {
	server := NewServer(Config{TimeoutSec: 7}, nil)
	assert.Equal(t, int64(20), server.maxUploadMB)
	assert.Equal(t, 7*time.Second, server.timeout)
	assert.Nil(t, server.rateLimiter)

	limited := NewServer(Config{RateLimitPerMinute: 5}, nil)
	require.NotNil(t, limited.rateLimiter)
	assert.Equal(t, 5, limited.rateLimiter.limit)
}
