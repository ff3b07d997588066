package walletmgr

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "dcrwalletmgr"
	metricsSubsystem = "wallets"
)

// Metrics holds the prometheus collectors updated by the manager. A nil
// *Metrics disables metrics.
type Metrics struct {
	loaded          prometheus.Gauge
	maintenanceRuns prometheus.Counter
	errors          *prometheus.CounterVec
}

// NewMetrics creates the manager collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		loaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "loaded",
			Help:      "Number of wallets in the registry.",
		}),
		maintenanceRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "maintenance_runs_total",
			Help:      "Number of periodic maintenance passes.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "errors_total",
			Help:      "Number of failed wallet operations.",
		}, []string{"op"}),
	}

	for _, c := range []prometheus.Collector{
		m.loaded, m.maintenanceRuns, m.errors,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) setLoaded(n int) {
	if m == nil {
		return
	}
	m.loaded.Set(float64(n))
}

func (m *Metrics) maintenanceRun() {
	if m == nil {
		return
	}
	m.maintenanceRuns.Inc()
}

func (m *Metrics) walletError(op string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(op).Inc()
}
