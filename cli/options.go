package cli

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v2"

	"github.com/riemann-bridge/statsd-riemann/config"
	"github.com/riemann-bridge/statsd-riemann/version"
)

type cliOption func(*cli.App) error

type customOptionsFactory = func() ([]cli.Flag, error)

func WithCLIName(name string) cliOption {
	return func(app *cli.App) error {
		app.Name = name
		return nil
	}
}

func WithCLIVersion(str string) cliOption {
	return func(app *cli.App) error {
		app.Version = str
		return nil
	}
}

func WithCLIUsageHeader(desc string) cliOption {
	return func(app *cli.App) error {
		app.Usage = desc
		return nil
	}
}

func WithCLICustomOptions(factory customOptionsFactory) cliOption {
	return func(app *cli.App) error {
		custom, err := factory()
		if err != nil {
			return err
		}

		app.Flags = append(app.Flags, custom...)
		return nil
	}
}

// NewConfigFromCLI reads config from os.Args. It returns config, error (if any) and a bool value
// indicating that the usage message, version or config was shown, no further action required.
//
// Priority (lowest first): defaults, config file, env vars, CLI flags.
func NewConfigFromCLI(args []string, opts ...cliOption) (*config.Config, error, bool) {
	c := config.NewConfig()

	// The config file must be loaded before flags are built,
	// so its values become flags defaults
	if path := configPathFromArgs(args); path != "" {
		if err := c.LoadFile(path); err != nil {
			return &config.Config{}, err, false
		}
	}

	var configPath, tags, metricsFilter, mtags, presets string
	var helpOrVersionWereShown = true
	var printConfig bool

	// Print raw version without prefix
	cli.VersionPrinter = func(cCtx *cli.Context) {
		_, _ = fmt.Fprintf(cCtx.App.Writer, "%v\n", cCtx.App.Version)
	}

	flags := []cli.Flag{}
	flags = append(flags, riemannCLIFlags(&c)...)
	flags = append(flags, eventsCLIFlags(&c, &tags)...)
	flags = append(flags, sourceCLIFlags(&c)...)
	flags = append(flags, natsCLIFlags(&c)...)
	flags = append(flags, redisCLIFlags(&c)...)
	flags = append(flags, embeddedNatsCLIFlags(&c)...)
	flags = append(flags, httpCLIFlags(&c)...)
	flags = append(flags, logCLIFlags(&c)...)
	flags = append(flags, metricsCLIFlags(&c, &metricsFilter, &mtags)...)
	flags = append(flags, statsdCLIFlags(&c)...)
	flags = append(flags, miscCLIFlags(&c, &configPath, &presets, &printConfig)...)

	app := &cli.App{
		Name:            "statsd-riemann",
		Version:         version.Version(),
		Usage:           "Forwards statsd packets to Riemann as events",
		HideHelpCommand: true,
		Flags:           flags,
		Action: func(nc *cli.Context) error {
			helpOrVersionWereShown = false
			return nil
		},
	}

	for _, o := range opts {
		err := o(app)
		if err != nil {
			return &config.Config{}, err, false
		}
	}

	err := app.Run(args)
	if err != nil {
		return &config.Config{}, err, false
	}

	// helpOrVersionWereShown = false indicates that the default action has been run.
	// true means that help/version message was displayed.
	if helpOrVersionWereShown {
		return &config.Config{}, nil, true
	}

	if tags != "" {
		c.Events.Tags = splitList(tags)
	}

	if c.Debug {
		c.Riemann.Debug = true
	}

	// Riemann diagnostics are logged at the debug level
	if c.Riemann.Debug {
		c.LogLevel = "debug"
	}

	if mtags != "" {
		c.Metrics.Tags = parseTags(mtags)
	}

	if metricsFilter != "" {
		c.Metrics.LogFilter = splitList(metricsFilter)
	}

	if presets != "" {
		c.UserPresets = splitList(presets)
	}

	// Automatically set the URL of the embedded NATS as the source server URL
	if c.EmbeddedNats.Enabled && c.Source.NATS.Servers == nats.DefaultURL {
		c.Source.NATS.Servers = c.EmbeddedNats.ServiceAddr
	}

	if printConfig {
		out, err := c.ToToml()
		if err != nil {
			return &config.Config{}, err, false
		}

		_, _ = fmt.Fprint(app.Writer, out)

		return &c, nil, true
	}

	return &c, nil, false
}

// Flags ordering issue: https://github.com/urfave/cli/pull/1430

const (
	riemannCategoryDescription = "RIEMANN:"
	eventsCategoryDescription  = "EVENTS:"
	sourceCategoryDescription  = "PACKET SOURCE:"
	natsCategoryDescription    = "NATS SOURCE:"
	redisCategoryDescription   = "REDIS SOURCE:"
	enatsCategoryDescription   = "EMBEDDED NATS:"
	httpCategoryDescription    = "HTTP SERVER:"
	logCategoryDescription     = "LOG:"
	metricsCategoryDescription = "METRICS:"
	statsdCategoryDescription  = "STATSD:"
	miscCategoryDescription    = "MISC:"

	envPrefix     = "STATSD_RIEMANN_"
	configFlag    = "config"
	configEnvName = envPrefix + "CONFIG"
)

var (
	splitFlagName = regexp.MustCompile("[_-]")
)

// riemannCLIFlags returns Riemann connection flags
func riemannCLIFlags(c *config.Config) []cli.Flag {
	return withDefaults(riemannCategoryDescription, []cli.Flag{
		&cli.StringFlag{
			Name:        "riemann_host",
			Usage:       "Riemann server host",
			Value:       c.Riemann.Host,
			Destination: &c.Riemann.Host,
		},

		&cli.IntFlag{
			Name:        "riemann_port",
			Usage:       "Riemann server port",
			Value:       c.Riemann.Port,
			Destination: &c.Riemann.Port,
		},

		&cli.StringFlag{
			Name:        "riemann_transport",
			Usage:       "Riemann transport (udp/tcp), anything but tcp means udp",
			Value:       c.Riemann.Transport,
			Destination: &c.Riemann.Transport,
		},

		&cli.IntFlag{
			Name:        "riemann_reconnect_interval",
			Usage:       "How often to check the TCP connection and reconnect if needed (in milliseconds)",
			Value:       c.Riemann.ReconnectInterval,
			Destination: &c.Riemann.ReconnectInterval,
		},

		&cli.IntFlag{
			Name:        "riemann_connect_timeout",
			Usage:       "Riemann connect and write timeout (in milliseconds)",
			Value:       c.Riemann.ConnectTimeout,
			Destination: &c.Riemann.ConnectTimeout,
		},
	})
}

// eventsCLIFlags returns event building flags
func eventsCLIFlags(c *config.Config, tags *string) []cli.Flag {
	return withDefaults(eventsCategoryDescription, []cli.Flag{
		&cli.BoolFlag{
			Name:        "parse_namespace",
			Usage:       "Use the first dot-separated segment of a metric name as a service and the rest as a description",
			Value:       c.Events.ParseNamespace,
			Destination: &c.Events.ParseNamespace,
		},

		&cli.BoolFlag{
			Name:        "tag_with_event_parts",
			Usage:       "Add dot-separated segments of a metric name to event tags",
			Value:       c.Events.TagWithEventParts,
			Destination: &c.Events.TagWithEventParts,
		},

		&cli.StringFlag{
			Name:        "tags",
			Usage:       "Comma-separated list of tags to add to every event",
			Value:       strings.Join(c.Events.Tags, ","),
			Destination: tags,
		},

		&cli.Float64Flag{
			Name:        "ttl",
			Usage:       "Event TTL (in seconds)",
			Value:       c.Events.TTL,
			Destination: &c.Events.TTL,
		},
	})
}

// sourceCLIFlags returns packet source flags
func sourceCLIFlags(c *config.Config) []cli.Flag {
	return withDefaults(sourceCategoryDescription, []cli.Flag{
		&cli.StringFlag{
			Name:        "source",
			Usage:       "Packet source (udp/nats/redis)",
			Value:       c.Source.Adapter,
			Destination: &c.Source.Adapter,
		},

		&cli.StringFlag{
			Name:        "udp_addr",
			Usage:       "Address to listen for statsd packets on",
			Value:       c.Source.UDP.Addr,
			Destination: &c.Source.UDP.Addr,
		},

		&cli.IntFlag{
			Name:        "udp_max_packet_size",
			Usage:       "Maximum size of an incoming packet (in bytes)",
			Value:       c.Source.UDP.MaxPacketSize,
			Destination: &c.Source.UDP.MaxPacketSize,
		},
	})
}

// natsCLIFlags returns NATS source flags
func natsCLIFlags(c *config.Config) []cli.Flag {
	return withDefaults(natsCategoryDescription, []cli.Flag{
		&cli.StringFlag{
			Name:        "nats_servers",
			Usage:       "Comma separated list of NATS cluster servers",
			Value:       c.Source.NATS.Servers,
			Destination: &c.Source.NATS.Servers,
		},

		&cli.StringFlag{
			Name:        "nats_subject",
			Usage:       "NATS subject to receive packets from",
			Value:       c.Source.NATS.Subject,
			Destination: &c.Source.NATS.Subject,
		},

		&cli.BoolFlag{
			Name:        "nats_dont_randomize_servers",
			Usage:       "Pass this option to disable NATS servers randomization during (re-)connect",
			Value:       c.Source.NATS.DontRandomizeServers,
			Destination: &c.Source.NATS.DontRandomizeServers,
		},

		&cli.IntFlag{
			Name:        "nats_max_reconnect_attempts",
			Usage:       "Maximum number of NATS reconnect attempts",
			Value:       c.Source.NATS.MaxReconnectAttempts,
			Destination: &c.Source.NATS.MaxReconnectAttempts,
		},
	})
}

// redisCLIFlags returns Redis source flags
func redisCLIFlags(c *config.Config) []cli.Flag {
	return withDefaults(redisCategoryDescription, []cli.Flag{
		&cli.StringFlag{
			Name:        "redis_url",
			Usage:       "Redis url",
			Value:       c.Source.Redis.URL,
			Destination: &c.Source.Redis.URL,
			EnvVars:     []string{envPrefix + "REDIS_URL", "REDIS_URL"},
		},

		&cli.StringFlag{
			Name:        "redis_channel",
			Usage:       "Redis channel to receive packets from",
			Value:       c.Source.Redis.Channel,
			Destination: &c.Source.Redis.Channel,
		},

		&cli.IntFlag{
			Name:        "redis_keepalive_interval",
			Usage:       "Interval to periodically ping Redis to make sure it's alive (in seconds)",
			Value:       c.Source.Redis.KeepalivePingInterval,
			Destination: &c.Source.Redis.KeepalivePingInterval,
		},

		&cli.IntFlag{
			Name:        "redis_max_reconnect_attempts",
			Usage:       "Maximum number of Redis reconnect attempts",
			Value:       c.Source.Redis.MaxReconnectAttempts,
			Destination: &c.Source.Redis.MaxReconnectAttempts,
		},
	})
}

// embeddedNatsCLIFlags returns embedded NATS server flags
func embeddedNatsCLIFlags(c *config.Config) []cli.Flag {
	return withDefaults(enatsCategoryDescription, []cli.Flag{
		&cli.BoolFlag{
			Name:        "embed_nats",
			Usage:       "Run an embedded NATS server to receive packets from (use with --source=nats)",
			Value:       c.EmbeddedNats.Enabled,
			Destination: &c.EmbeddedNats.Enabled,
		},

		&cli.StringFlag{
			Name:        "enats_addr",
			Usage:       "Embedded NATS server service address",
			Value:       c.EmbeddedNats.ServiceAddr,
			Destination: &c.EmbeddedNats.ServiceAddr,
		},

		&cli.BoolFlag{
			Name:        "enats_debug",
			Usage:       "Enable embedded NATS server logs",
			Value:       c.EmbeddedNats.Debug,
			Destination: &c.EmbeddedNats.Debug,
		},

		&cli.BoolFlag{
			Name:        "enats_trace",
			Usage:       "Enable embedded NATS server protocol tracing",
			Value:       c.EmbeddedNats.Trace,
			Destination: &c.EmbeddedNats.Trace,
		},
	})
}

// httpCLIFlags returns HTTP server flags
func httpCLIFlags(c *config.Config) []cli.Flag {
	return withDefaults(httpCategoryDescription, []cli.Flag{
		&cli.StringFlag{
			Name:        "http_host",
			Usage:       "HTTP server host",
			Value:       c.HTTP.Host,
			Destination: &c.HTTP.Host,
		},

		&cli.IntFlag{
			Name:        "http_port",
			Usage:       "HTTP server port (the server is disabled when zero)",
			Value:       c.HTTP.Port,
			Destination: &c.HTTP.Port,
		},

		&cli.StringFlag{
			Name:        "health_path",
			Usage:       "HTTP health endpoint path",
			Value:       c.HTTP.HealthPath,
			Destination: &c.HTTP.HealthPath,
		},

		&cli.PathFlag{
			Name:        "ssl_cert",
			Usage:       "SSL certificate path",
			Value:       c.HTTP.SSL.CertPath,
			Destination: &c.HTTP.SSL.CertPath,
		},

		&cli.PathFlag{
			Name:        "ssl_key",
			Usage:       "SSL private key path",
			Value:       c.HTTP.SSL.KeyPath,
			Destination: &c.HTTP.SSL.KeyPath,
		},
	})
}

// logCLIFlags returns logging flags
func logCLIFlags(c *config.Config) []cli.Flag {
	return withDefaults(logCategoryDescription, []cli.Flag{
		&cli.StringFlag{
			Name:        "log_level",
			Usage:       "Set logging level (debug/info/warn/error/fatal)",
			Value:       c.LogLevel,
			Destination: &c.LogLevel,
		},

		&cli.StringFlag{
			Name:        "log_format",
			Usage:       "Set logging format (text/json)",
			Value:       c.LogFormat,
			Destination: &c.LogFormat,
		},

		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "Enable debug mode (more verbose logging, Riemann send errors are logged)",
			Value:       c.Debug,
			Destination: &c.Debug,
		},
	})
}

// metricsCLIFlags returns CLI flags for metrics
func metricsCLIFlags(c *config.Config, filter *string, mtags *string) []cli.Flag {
	return withDefaults(metricsCategoryDescription, []cli.Flag{
		&cli.BoolFlag{
			Name:        "metrics_log",
			Usage:       "Enable metrics logging (with info level)",
			Value:       c.Metrics.Log,
			Destination: &c.Metrics.Log,
		},

		&cli.IntFlag{
			Name:        "metrics_rotate_interval",
			Usage:       "Specify how often flush metrics to writers (logs, statsd) (in seconds)",
			Value:       c.Metrics.RotateInterval,
			Destination: &c.Metrics.RotateInterval,
		},

		&cli.StringFlag{
			Name:        "metrics_log_filter",
			Usage:       "Specify list of metrics to print to log (to reduce the output)",
			Destination: filter,
		},

		&cli.StringFlag{
			Name:        "metrics_http",
			Usage:       "Enable HTTP metrics endpoint at the specified path (requires http_port)",
			Value:       c.Metrics.HTTP,
			Destination: &c.Metrics.HTTP,
		},

		&cli.StringFlag{
			Name:        "metrics_tags",
			Usage:       "Comma-separated list of default (global) tags to add to every metric",
			Destination: mtags,
		},
	})
}

// statsdCLIFlags returns CLI flags for the metrics statsd writer
func statsdCLIFlags(c *config.Config) []cli.Flag {
	return withDefaults(statsdCategoryDescription, []cli.Flag{
		&cli.StringFlag{
			Name:        "statsd_host",
			Usage:       "Server host for metrics sent to statsd server in the format <host>:<port>",
			Value:       c.Metrics.Statsd.Host,
			Destination: &c.Metrics.Statsd.Host,
		},
		&cli.StringFlag{
			Name:        "statsd_prefix",
			Usage:       "Statsd metrics prefix",
			Value:       c.Metrics.Statsd.Prefix,
			Destination: &c.Metrics.Statsd.Prefix,
		},
		&cli.IntFlag{
			Name:        "statsd_max_packet_size",
			Usage:       "Statsd client maximum UDP packet size",
			Value:       c.Metrics.Statsd.MaxPacketSize,
			Destination: &c.Metrics.Statsd.MaxPacketSize,
		},
		&cli.StringFlag{
			Name:        "statsd_tags_format",
			Usage:       `One of "datadog", "influxdb", or "graphite"`,
			Value:       c.Metrics.Statsd.TagFormat,
			Destination: &c.Metrics.Statsd.TagFormat,
		},
	})
}

// miscCLIFlags returns uncategorized flags
func miscCLIFlags(c *config.Config, configPath *string, presets *string, printConfig *bool) []cli.Flag {
	return withDefaults(miscCategoryDescription, []cli.Flag{
		&cli.PathFlag{
			Name:        configFlag,
			Usage:       "Path to the TOML configuration file",
			Value:       c.ConfigFilePath,
			Destination: configPath,
		},

		&cli.StringFlag{
			Name:        "presets",
			Usage:       "Configuration presets, comma-separated (none, fly, heroku). Inferred automatically",
			Destination: presets,
		},

		&cli.BoolFlag{
			Name:        "print_config",
			Usage:       "Print the resulting configuration in TOML format and exit",
			Destination: printConfig,
		},
	})
}

// withDefaults sets category and env var name a flags passed as the arument
func withDefaults(category string, flags []cli.Flag) []cli.Flag {
	for _, f := range flags {
		switch v := f.(type) {
		case *cli.IntFlag:
			v.Category = category
			if len(v.EnvVars) == 0 {
				v.EnvVars = []string{nameToEnvVarName(v.Name)}
			}
		case *cli.Float64Flag:
			v.Category = category
			if len(v.EnvVars) == 0 {
				v.EnvVars = []string{nameToEnvVarName(v.Name)}
			}
		case *cli.BoolFlag:
			v.Category = category
			if len(v.EnvVars) == 0 {
				v.EnvVars = []string{nameToEnvVarName(v.Name)}
			}
		case *cli.StringFlag:
			v.Category = category
			if len(v.EnvVars) == 0 {
				v.EnvVars = []string{nameToEnvVarName(v.Name)}
			}
		case *cli.PathFlag:
			v.Category = category
			if len(v.EnvVars) == 0 {
				v.EnvVars = []string{nameToEnvVarName(v.Name)}
			}
		}
	}
	return flags
}

// nameToEnvVarName converts flag name to env variable
func nameToEnvVarName(name string) string {
	split := splitFlagName.Split(name, -1)
	set := []string{}

	for i := range split {
		set = append(set, strings.ToUpper(split[i]))
	}

	return envPrefix + strings.Join(set, "_")
}

// configPathFromArgs looks up the config file path in args and env
// before the flags are parsed
func configPathFromArgs(args []string) string {
	for i := 1; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			break
		}

		name := strings.TrimLeft(arg, "-")

		if name == arg {
			continue
		}

		if name == configFlag && i+1 < len(args) {
			return args[i+1]
		}

		if strings.HasPrefix(name, configFlag+"=") {
			return strings.TrimPrefix(name, configFlag+"=")
		}
	}

	return os.Getenv(configEnvName)
}

func splitList(str string) []string {
	parts := strings.Split(str, ",")
	res := make([]string, 0, len(parts))

	for _, v := range parts {
		v = strings.TrimSpace(v)

		if v != "" {
			res = append(res, v)
		}
	}

	return res
}

func parseTags(str string) map[string]string {
	tags := strings.Split(str, ",")

	res := make(map[string]string, len(tags))

	for _, v := range tags {
		parts := strings.SplitN(v, ":", 2)

		if len(parts) != 2 {
			continue
		}

		res[parts[0]] = parts[1]
	}

	return res
}
