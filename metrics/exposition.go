// exposition.go renders a Registry in the Prometheus text exposition
// format for the --metrics flag.

package metrics

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// WriteText writes every metric in r to w in the Prometheus text exposition
// format, sorted by name. Dots in metric names become underscores and
// namespace, when not empty, is prepended.
func WriteText(w io.Writer, r *Registry, namespace string) error {
	var b strings.Builder
	for _, name := range r.Names() {
		pn := promName(namespace, name)
		switch m := r.get(name).(type) {
		case *Counter:
			writeHeader(&b, pn, "counter", name)
			fmt.Fprintf(&b, "%s %d\n", pn, m.Value())
		case *Gauge:
			writeHeader(&b, pn, "gauge", name)
			fmt.Fprintf(&b, "%s %d\n", pn, m.Value())
		case *Histogram:
			s := m.Summary()
			writeHeader(&b, pn, "summary", name)
			fmt.Fprintf(&b, "%s_count %d\n", pn, s.Count)
			fmt.Fprintf(&b, "%s_sum %s\n", pn, formatFloat(s.Sum))
			if s.Count > 0 {
				fmt.Fprintf(&b, "%s_min %s\n", pn, formatFloat(s.Min))
				fmt.Fprintf(&b, "%s_max %s\n", pn, formatFloat(s.Max))
				fmt.Fprintf(&b, "%s_mean %s\n", pn, formatFloat(s.Mean()))
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// promName converts a dot-separated metric name to Prometheus format.
func promName(namespace, name string) string {
	sanitized := strings.NewReplacer(".", "_", "-", "_").Replace(name)
	if namespace != "" {
		return namespace + "_" + sanitized
	}
	return sanitized
}

// formatFloat formats a float64 for Prometheus output, handling special values.
func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case math.IsNaN(v):
		return "NaN"
	}
	return fmt.Sprintf("%g", v)
}

func writeHeader(b *strings.Builder, name, metricType, help string) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, metricType)
}
