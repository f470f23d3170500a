package cli

import (
	"io"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

// printSyncSummary writes the sync counters of this run, e.g.
//
//	sync_pushes{result="ok"} 2
func (a *app) printSyncSummary(w io.Writer) {
	families, err := a.registry.Gather()
	if err != nil {
		log.Errorf("gather sync metrics: %s", err)
		return
	}

	var lines []string
	for _, family := range families {
		name := strings.TrimPrefix(family.GetName(), "gymplanner_device_")
		for _, m := range family.GetMetric() {
			value, ok := metricValue(family.GetType(), m)
			if !ok {
				continue
			}
			lines = append(lines, name+labelsOf(m)+" "+value)
		}
	}
	sort.Strings(lines)

	printf(w, "-- sync summary --\n")
	for _, line := range lines {
		printf(w, "%s\n", line)
	}
}

func metricValue(t dto.MetricType, m *dto.Metric) (string, bool) {
	switch t {
	case dto.MetricType_COUNTER:
		return formatFloat(m.GetCounter().GetValue()), true
	case dto.MetricType_GAUGE:
		return formatFloat(m.GetGauge().GetValue()), true
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		if h.GetSampleCount() == 0 {
			return "", false
		}
		return formatFloat(float64(h.GetSampleCount())) + " samples, " + formatFloat(h.GetSampleSum()) + "s total", true
	default:
		return "", false
	}
}

func labelsOf(m *dto.Metric) string {
	if len(m.GetLabel()) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(m.GetLabel()))
	for _, l := range m.GetLabel() {
		pairs = append(pairs, l.GetName()+`="`+l.GetValue()+`"`)
	}
	return "{" + strings.Join(pairs, ",") + "}"
}
