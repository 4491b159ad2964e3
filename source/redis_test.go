package source

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	redisAvailable = false
	redisURL       = os.Getenv("REDIS_URL")
)

// Check if Redis is available and skip tests otherwise
func init() {
	if redisURL == "" {
		redisURL = NewRedisConfig().URL
	}

	c, err := redis.DialURL(redisURL, redis.DialConnectTimeout(500*time.Millisecond))

	if err != nil {
		fmt.Printf("No Redis detected at %s: %v\n", redisURL, err)
		return
	}

	defer c.Close()

	_, err = c.Do("PING")

	redisAvailable = err == nil
}

func TestRedisSource(t *testing.T) {
	if !redisAvailable {
		t.Skip("Skipping Redis tests: no Redis available")
		return
	}

	h, packets := newTestHandler()

	conf := NewRedisConfig()
	conf.URL = redisURL
	conf.Channel = "_test_statsd_"

	s := NewRedisSource(h, &conf)
	done := make(chan error, 1)

	require.NoError(t, s.Start(done))
	defer s.Shutdown(context.Background()) // nolint:errcheck

	pub, err := redis.DialURL(redisURL)
	require.NoError(t, err)
	defer pub.Close()

	// Wait for the subscription to be established
	require.Eventually(t, func() bool {
		n, err := redis.Int(pub.Do("PUBLISH", "_test_statsd_", "db.latency:320|ms"))
		return err == nil && n > 0
	}, 2*time.Second, 50*time.Millisecond)

	select {
	case p := <-packets:
		assert.Equal(t, "db.latency:320|ms", string(p.data))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the packet")
	}
}

func TestRedisSourceInvalidURL(t *testing.T) {
	h, _ := newTestHandler()

	conf := NewRedisConfig()
	conf.URL = "://nope"

	s := NewRedisSource(h, &conf)

	assert.Error(t, s.Start(make(chan error, 1)))
}

func TestRedisSourceReconnectAttemptsExceeded(t *testing.T) {
	h, _ := newTestHandler()

	conf := NewRedisConfig()
	conf.URL = "redis://127.0.0.1:1/0"
	conf.MaxReconnectAttempts = 1

	s := NewRedisSource(h, &conf)
	done := make(chan error, 1)

	require.NoError(t, s.Start(done))
	defer s.Shutdown(context.Background()) // nolint:errcheck

	select {
	case err := <-done:
		assert.Contains(t, err.Error(), "reconnect attempts exceeded")
	case <-time.After(2 * time.Second):
		t.Fatal("expected the source to give up")
	}
}

func TestRedisSourceReconnectAttemptsExceeded_NoReader(t *testing.T) {
	h, _ := newTestHandler()

	conf := NewRedisConfig()
	conf.URL = "redis://127.0.0.1:1/0"
	conf.MaxReconnectAttempts = 1

	before := runtime.NumGoroutine()

	s := NewRedisSource(h, &conf)

	// Nobody reads the error; giving up must not block
	require.NoError(t, s.Start(make(chan error)))
	defer s.Shutdown(context.Background()) // nolint:errcheck

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 20*time.Millisecond)
}
