package metrics

import (
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	workersLive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "brood",
		Name:      "workers_live",
		Help:      "Number of live worker processes.",
	})

	workerStarts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brood",
		Name:      "worker_starts_total",
		Help:      "Total number of worker processes started, by spec.",
	}, []string{"spec"})

	poolRestarts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "brood",
		Name:      "pool_restarts_total",
		Help:      "Total number of pool-wide restart requests applied.",
	})

	forceKills = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "brood",
		Name:      "worker_force_kills_total",
		Help:      "Total number of workers killed after missing their deadline.",
	})

	workerRuntime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "brood",
		Name:      "worker_runtime_seconds",
		Help:      "Wall-clock lifetime of worker processes in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 4, 10),
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "brood",
		Name:      "build_info",
		Help:      "Build metadata for the running brood binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(workersLive, workerStarts, poolRestarts, forceKills, workerRuntime, buildInfo)
}

// Registry returns the Prometheus registry containing all brood metrics.
func Registry() *prometheus.Registry {
	return registry
}

// SetLiveWorkers records the current number of live worker processes.
func SetLiveWorkers(n int) {
	workersLive.Set(float64(n))
}

// IncWorkerStarts increments the start counter for a spec.
func IncWorkerStarts(spec int) {
	workerStarts.WithLabelValues(strconv.Itoa(spec)).Inc()
}

// IncRestarts increments the pool restart counter.
func IncRestarts() {
	poolRestarts.Inc()
}

// IncForceKills increments the forced-kill counter.
func IncForceKills() {
	forceKills.Inc()
}

// ObserveWorkerRuntime records the lifetime of a reaped worker.
func ObserveWorkerRuntime(d time.Duration) {
	if d < 0 {
		return
	}
	workerRuntime.Observe(d.Seconds())
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
