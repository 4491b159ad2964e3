package packet

// StateOK is the only state we report
const StateOK = "ok"

// Event is a structured metric event built from a single event-string
type Event struct {
	Service     string
	State       string
	Description string
	Tags        []string
	// Metric value as it appears in the packet
	Metric string
	// TTL in seconds
	TTL float64
}
