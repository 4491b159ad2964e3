package packet

// Config contains event-building options
type Config struct {
	// Use the first dot-separated segment of a metric name as a service
	// and the rest as a description
	ParseNamespace bool `toml:"parse_namespace"`
	// Add dot-separated segments of a metric name to event tags
	TagWithEventParts bool `toml:"tag_with_event_parts"`
	// Static tags added to every event
	Tags []string `toml:"tags"`
	// Event TTL in seconds (0 means no TTL)
	TTL float64 `toml:"ttl"`
}

// NewConfig builds a new config with defaults
func NewConfig() Config {
	return Config{}
}
