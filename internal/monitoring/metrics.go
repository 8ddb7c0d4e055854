package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the pipeline metrics. It is separate from the default
// registry so binaries choose whether to expose it.
var Registry = prometheus.NewRegistry()

var (
	// OperatorBuilds counts operator builds by method and result ("ok", "error").
	OperatorBuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gridmap",
		Name:      "operator_builds_total",
		Help:      "Regrid operator builds by method and result.",
	}, []string{"method", "result"})

	// OperatorBuildSeconds records wall time spent building operators.
	OperatorBuildSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gridmap",
		Name:      "operator_build_seconds",
		Help:      "Time spent building regrid operators.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"method"})

	// Applies counts operator applications by method.
	Applies = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gridmap",
		Name:      "apply_total",
		Help:      "Regrid operator applications by method.",
	}, []string{"method"})

	// EngineHandlesLive tracks weight-engine handles that have been created
	// but not yet destroyed. It returns to zero after every build.
	EngineHandlesLive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gridmap",
		Name:      "engine_handles_live",
		Help:      "Weight engine grid, field and regrid handles currently alive.",
	})
)

func init() {
	Registry.MustRegister(OperatorBuilds, OperatorBuildSeconds, Applies, EngineHandlesLive)
}
