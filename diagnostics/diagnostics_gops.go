//go:build gops
// +build gops

package diagnostics

import (
	"net/http"
	_ "net/http/pprof" // nolint:gosec
	"os"
	"runtime"
	"strconv"

	"github.com/apex/log"
	"github.com/google/gops/agent"
)

const defaultPprofAddr = "localhost:6060"

func init() {
	ctx := log.WithField("context", "diagnostics")

	if err := agent.Listen(agent.Options{}); err != nil {
		ctx.Fatalf("Failed to start gops agent: %v", err)
	}

	pprofRequired := false

	if rate := profileSetting(ctx, "STATSD_RIEMANN_BLOCK_PROFILE_RATE"); rate > 0 {
		runtime.SetBlockProfileRate(rate)
		pprofRequired = true
		ctx.Info("Block profiling enabled")
	}

	if fraction := profileSetting(ctx, "STATSD_RIEMANN_MUTEX_PROFILE_FRACTION"); fraction > 0 {
		runtime.SetMutexProfileFraction(fraction)
		pprofRequired = true
		ctx.Info("Mutex profiling enabled")
	}

	// gops cannot capture block and mutex profiles
	if pprofRequired {
		addr := os.Getenv("STATSD_RIEMANN_PPROF_ADDR")
		if addr == "" {
			addr = defaultPprofAddr
		}

		go func() {
			ctx.Infof("Serving pprof at http://%s/debug/pprof", addr)

			if err := http.ListenAndServe(addr, nil); err != nil { // nolint:gosec
				ctx.Errorf("pprof server failed: %v", err)
			}
		}()
	}
}

func profileSetting(ctx *log.Entry, env string) int {
	vals := os.Getenv(env)

	if vals == "" {
		return 0
	}

	val, err := strconv.Atoi(vals)

	if err != nil {
		ctx.Fatalf("Invalid value for %s: %s", env, vals)
	}

	return val
}
