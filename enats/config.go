package enats

// Config represents embedded NATS server configuration
type Config struct {
	Enabled     bool   `toml:"enabled"`
	Debug       bool   `toml:"debug"`
	Trace       bool   `toml:"trace"`
	ServiceAddr string `toml:"service_addr"`
}
