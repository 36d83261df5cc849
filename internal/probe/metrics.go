package probe

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	temperatureMetric = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ferm_probe_temperature_fahrenheit",
			Help: "The latest successful temperature read from the probe",
		},
		[]string{"name", "position", "id"},
	)

	readingsMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferm_probe_readings_total",
			Help: "The number of readings recorded per class",
		},
		[]string{"name", "class"},
	)

	readErrorsMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferm_probe_read_errors_total",
			Help: "The number of failed readings per error kind",
		},
		[]string{"name", "kind"},
	)

	rangePercentMetric = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ferm_probe_range_percent",
			Help: "The share of readings spent in each class",
		},
		[]string{"name", "class"},
	)
)

func init() {
	prometheus.MustRegister(temperatureMetric)
	prometheus.MustRegister(readingsMetric)
	prometheus.MustRegister(readErrorsMetric)
	prometheus.MustRegister(rangePercentMetric)
}

func observe(snap Snapshot) {
	readingsMetric.WithLabelValues(snap.Name, snap.Class.String()).Inc()

	if snap.Latest.OK() {
		temperatureMetric.WithLabelValues(snap.Name, strconv.Itoa(snap.Position), snap.ID).Set(snap.Latest.Fahrenheit)
	} else {
		readErrorsMetric.WithLabelValues(snap.Name, errorKind(snap.Latest.Err)).Inc()
	}

	pct := snap.Percentages
	rangePercentMetric.WithLabelValues(snap.Name, Above.String()).Set(pct.Above)
	rangePercentMetric.WithLabelValues(snap.Name, Within.String()).Set(pct.Within)
	rangePercentMetric.WithLabelValues(snap.Name, Below.String()).Set(pct.Below)
	rangePercentMetric.WithLabelValues(snap.Name, Error.String()).Set(pct.Error)
}
