package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle(t *testing.T) {
	conf := NewConfig()
	s, err := NewServer(&conf)
	require.NoError(t, err)

	s.Handle("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("events_total 1\n")) // nolint:errcheck
	})

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "events_total 1\n", rr.Body.String())

	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest("GET", "/unknown", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleRecoversFromPanic(t *testing.T) {
	conf := NewConfig()
	s, err := NewServer(&conf)
	require.NoError(t, err)

	s.Handle("/boom", func(w http.ResponseWriter, _ *http.Request) {
		panic("boom")
	})

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest("GET", "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestStartAndShutdown(t *testing.T) {
	conf := NewConfig()
	conf.Host = "127.0.0.1"
	conf.Port = 0
	conf.HealthPath = "/healthz"

	s, err := NewServer(&conf)
	require.NoError(t, err)

	errCh := make(chan error, 1)

	go func() {
		errCh <- s.Start()
	}()

	require.Eventually(t, func() bool {
		return s.Address() != "127.0.0.1:0"
	}, time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + s.Address() + "/healthz")
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body)

	require.NoError(t, s.Shutdown(context.Background()))
	require.NoError(t, s.Shutdown(context.Background()))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}
}

func TestInvalidSSL(t *testing.T) {
	conf := NewConfig()
	conf.SSL.CertPath = "/no/such/cert"
	conf.SSL.KeyPath = "/no/such/key"

	_, err := NewServer(&conf)

	assert.Error(t, err)
}
