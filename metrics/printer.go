package metrics

import "github.com/apex/log"

// BasePrinter simply logs stats as structured log
type BasePrinter struct {
	filter map[string]struct{}
	log    *log.Entry
}

var _ IntervalWriter = (*BasePrinter)(nil)

// NewBasePrinter returns new base printer struct
func NewBasePrinter(filterList []string) *BasePrinter {
	var filter map[string]struct{}

	if filterList != nil {
		filter = make(map[string]struct{}, len(filterList))

		for _, k := range filterList {
			filter[k] = struct{}{}
		}
	}

	return &BasePrinter{filter: filter, log: log.WithField("context", "metrics")}
}

// Run prints a message to the log with metrics logging details
func (p *BasePrinter) Run(interval int) error {
	if p.filter != nil {
		p.log.Infof("Log metrics every %ds (only selected fields: %v)", interval, p.filterNames())
	} else {
		p.log.Infof("Log metrics every %ds", interval)
	}

	return nil
}

func (p *BasePrinter) Stop() {
}

// Write prints formatted snapshot to the log
func (p *BasePrinter) Write(m *Metrics) error {
	p.Print(m.IntervalSnapshot())
	return nil
}

// Print logs stats data using global logger with info level
func (p *BasePrinter) Print(snapshot map[string]uint64) {
	fields := make(log.Fields, len(snapshot))

	for k, v := range snapshot {
		if p.filter != nil {
			if _, ok := p.filter[k]; !ok {
				continue
			}
		}

		fields[k] = v
	}

	p.log.WithFields(fields).Info("")
}

func (p *BasePrinter) filterNames() []string {
	names := make([]string, 0, len(p.filter))

	for k := range p.filter {
		names = append(names, k)
	}

	return names
}
