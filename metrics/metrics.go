package metrics

import (
	"sync"
	"time"

	"github.com/apex/log"
)

// Instrumenter is the interface components use to report their stats
type Instrumenter interface {
	CounterIncrement(name string)
	CounterAdd(name string, val uint64)
	GaugeSet(name string, val uint64)
	GaugeIncrement(name string)
	GaugeDecrement(name string)
	RegisterCounter(name string, desc string)
	RegisterGauge(name string, desc string)
}

// IntervalWriter describes a periodical metrics writer interface
type IntervalWriter interface {
	Run(interval int) error
	Stop()
	Write(m *Metrics) error
}

// Metrics stores some useful stats about the bridge
type Metrics struct {
	mu             sync.RWMutex
	writers        []IntervalWriter
	tags           map[string]string
	rotateInterval time.Duration
	counters       map[string]*Counter
	gauges         map[string]*Gauge
	shutdownCh     chan struct{}
	log            *log.Entry
}

var _ Instrumenter = (*Metrics)(nil)

// NewFromConfig creates a new metrics instance from the provided configuration
func NewFromConfig(config *Config) (*Metrics, error) {
	writers := []IntervalWriter{}

	if config.LogEnabled() {
		writers = append(writers, NewBasePrinter(config.LogFilter))
	}

	if config.Statsd.Enabled() {
		writers = append(writers, NewStatsdWriter(config.Statsd, config.Tags))
	}

	instance := NewMetrics(writers, config.RotateInterval)

	if config.Tags != nil {
		instance.DefaultTags(config.Tags)
	}

	return instance, nil
}

// NewMetrics builds new metrics struct
func NewMetrics(writers []IntervalWriter, rotateIntervalSeconds int) *Metrics {
	rotateInterval := time.Duration(rotateIntervalSeconds) * time.Second

	return &Metrics{
		writers:        writers,
		rotateInterval: rotateInterval,
		counters:       make(map[string]*Counter),
		gauges:         make(map[string]*Gauge),
		shutdownCh:     make(chan struct{}),
		log:            log.WithField("context", "metrics"),
	}
}

// DefaultTags sets tags attached to every metric
func (m *Metrics) DefaultTags(tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tags = tags
}

// Run periodically updates counters delta and flushes metrics to writers
func (m *Metrics) Run() error {
	interval := int(m.rotateInterval.Seconds())

	for _, writer := range m.writers {
		if err := writer.Run(interval); err != nil {
			return err
		}
	}

	if len(m.writers) == 0 || m.rotateInterval <= 0 {
		m.log.Debug("No metrics writers configured")
		return nil
	}

	m.mu.RLock()
	shutdownCh := m.shutdownCh
	m.mu.RUnlock()

	if shutdownCh == nil {
		return nil
	}

	ticker := time.NewTicker(m.rotateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-shutdownCh:
			return nil
		case <-ticker.C:
			m.rotate()

			for _, writer := range m.writers {
				if err := writer.Write(m); err != nil {
					m.log.Errorf("Metrics writer failed to write: %v", err)
				}
			}
		}
	}
}

// Shutdown stops metrics updates
func (m *Metrics) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdownCh == nil {
		return
	}

	close(m.shutdownCh)
	m.shutdownCh = nil

	for _, writer := range m.writers {
		writer.Stop()
	}
}

// RegisterCounter adds new counter to the registry
func (m *Metrics) RegisterCounter(name string, desc string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.counters[name]; ok {
		return
	}

	m.counters[name] = NewCounter(name, desc)
}

// RegisterGauge adds new gauge to the registry
func (m *Metrics) RegisterGauge(name string, desc string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.gauges[name]; ok {
		return
	}

	m.gauges[name] = NewGauge(name, desc)
}

// Counter returns counter by name
func (m *Metrics) Counter(name string) *Counter {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.counters[name]
}

// Gauge returns gauge by name
func (m *Metrics) Gauge(name string) *Gauge {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.gauges[name]
}

// CounterIncrement increments the named counter (if registered)
func (m *Metrics) CounterIncrement(name string) {
	if c := m.Counter(name); c != nil {
		c.Inc()
	}
}

// CounterAdd adds the value to the named counter (if registered)
func (m *Metrics) CounterAdd(name string, val uint64) {
	if c := m.Counter(name); c != nil {
		c.Add(val)
	}
}

// GaugeSet sets the named gauge value (if registered)
func (m *Metrics) GaugeSet(name string, val uint64) {
	if g := m.Gauge(name); g != nil {
		g.Set(val)
	}
}

// GaugeIncrement increments the named gauge (if registered)
func (m *Metrics) GaugeIncrement(name string) {
	if g := m.Gauge(name); g != nil {
		g.Inc()
	}
}

// GaugeDecrement decrements the named gauge (if registered)
func (m *Metrics) GaugeDecrement(name string) {
	if g := m.Gauge(name); g != nil {
		g.Dec()
	}
}

// EachCounter applies function f(*Counter) to each counter in a set
func (m *Metrics) EachCounter(f func(c *Counter)) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, counter := range m.counters {
		f(counter)
	}
}

// EachGauge applies function f(*Gauge) to each gauge in a set
func (m *Metrics) EachGauge(f func(g *Gauge)) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, gauge := range m.gauges {
		f(gauge)
	}
}

// IntervalSnapshot returns recorded interval metrics snapshot
func (m *Metrics) IntervalSnapshot() map[string]uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := make(map[string]uint64)

	for name, c := range m.counters {
		snapshot[name] = c.IntervalValue()
	}

	for name, g := range m.gauges {
		snapshot[name] = g.Value()
	}

	return snapshot
}

func (m *Metrics) rotate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.counters {
		c.UpdateDelta()
	}
}
