package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

const (
	prometheusNamespace = "statsd_riemann"
)

// Prometheus returns metrics info in Prometheus format
func (m *Metrics) Prometheus() string {
	var buf strings.Builder

	m.mu.RLock()
	tags := toPromTags(m.tags)
	m.mu.RUnlock()

	m.EachCounter(func(counter *Counter) {
		name := prometheusNamespace + `_` + counter.Name()

		buf.WriteString(
			"\n# HELP " + name + " " + counter.Desc() + "\n",
		)
		buf.WriteString("# TYPE " + name + " counter\n")
		buf.WriteString(name + tags + " " + strconv.FormatUint(counter.Value(), 10) + "\n")
	})

	m.EachGauge(func(gauge *Gauge) {
		name := prometheusNamespace + `_` + gauge.Name()

		buf.WriteString(
			"\n# HELP " + name + " " + gauge.Desc() + "\n",
		)
		buf.WriteString("# TYPE " + name + " gauge\n")
		buf.WriteString(name + tags + " " + strconv.FormatUint(gauge.Value(), 10) + "\n")
	})

	return buf.String()
}

// PrometheusHandler provides metrics to the world
func (m *Metrics) PrometheusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprint(w, m.Prometheus())
}

func toPromTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}

	buf := make([]string, 0, len(tags))

	for k, v := range tags {
		buf = append(buf, fmt.Sprintf("%s=\"%s\"", k, v))
	}

	sort.Strings(buf)

	return fmt.Sprintf("{%s}", strings.Join(buf, ", "))
}
