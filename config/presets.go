package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/joomcode/errorx"
)

func (c *Config) Presets() []string {
	if c.UserPresets != nil {
		return c.UserPresets
	}

	return detectPresetsFromEnv()
}

func (c *Config) LoadPresets() error {
	presets := c.Presets()

	if len(presets) == 0 {
		return nil
	}

	log.WithField("context", "config").Infof("Load presets: %s", strings.Join(presets, ","))

	defaults := NewConfig()

	for _, preset := range presets {
		switch preset {
		case "fly":
			if err := c.loadFlyPreset(&defaults); err != nil {
				return err
			}
		case "heroku":
			if err := c.loadHerokuPreset(&defaults); err != nil {
				return err
			}
		default:
			return errorx.IllegalArgument.New("unknown preset: %s", preset)
		}
	}

	return nil
}

func (c *Config) loadFlyPreset(defaults *Config) error {
	region, ok := os.LookupEnv("FLY_REGION")

	if !ok {
		return errorx.IllegalArgument.New("FLY_REGION env is missing")
	}

	if _, ok := os.LookupEnv("FLY_APP_NAME"); !ok {
		return errorx.IllegalArgument.New("FLY_APP_NAME env is missing")
	}

	if c.HTTP.Host == defaults.HTTP.Host {
		c.HTTP.Host = "0.0.0.0"
	}

	// Fly only routes UDP traffic to this address
	if c.Source.UDP.Addr == defaults.Source.UDP.Addr {
		_, port, err := net.SplitHostPort(c.Source.UDP.Addr)

		if err != nil {
			return errorx.Decorate(err, "invalid UDP address")
		}

		c.Source.UDP.Addr = net.JoinHostPort("fly-global-services", port)
	}

	if riemannApp, ok := os.LookupEnv("STATSD_RIEMANN_FLY_RIEMANN_APP_NAME"); ok {
		if c.Riemann.Host == defaults.Riemann.Host {
			c.Riemann.Host = fmt.Sprintf("%s.%s.internal", region, riemannApp)
		}
	}

	return nil
}

func (c *Config) loadHerokuPreset(defaults *Config) error {
	if c.HTTP.Host == defaults.HTTP.Host {
		c.HTTP.Host = "0.0.0.0"
	}

	if c.HTTP.Port == defaults.HTTP.Port {
		if herokuPortStr := os.Getenv("PORT"); herokuPortStr != "" {
			herokuPort, err := strconv.Atoi(herokuPortStr)
			if err != nil {
				return errorx.Decorate(err, "invalid PORT")
			}

			c.HTTP.Port = herokuPort
		}
	}

	return nil
}

func detectPresetsFromEnv() []string {
	presets := []string{}

	if isFlyEnv() {
		presets = append(presets, "fly")
	}

	if isHerokuEnv() {
		presets = append(presets, "heroku")
	}

	return presets
}

func isFlyEnv() bool {
	if _, ok := os.LookupEnv("FLY_APP_NAME"); !ok {
		return false
	}

	if _, ok := os.LookupEnv("FLY_ALLOC_ID"); !ok {
		return false
	}

	if _, ok := os.LookupEnv("FLY_REGION"); !ok {
		return false
	}

	return true
}

func isHerokuEnv() bool {
	if _, ok := os.LookupEnv("HEROKU_APP_ID"); !ok {
		return false
	}

	if _, ok := os.LookupEnv("HEROKU_DYNO_ID"); !ok {
		return false
	}

	return true
}
