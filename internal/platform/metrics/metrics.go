package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scheduler metrics, labeled by hospital so per-hospital dashboards can track
// throughput and contention separately.
var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orsched_scheduler_runs_total",
		Help: "Completed scheduler runs.",
	}, []string{"hospital"})

	ScheduledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orsched_scheduled_requests_total",
		Help: "Surgery requests committed to the schedule.",
	}, []string{"hospital"})

	ConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orsched_conflicts_total",
		Help: "Requests left unscheduled in a run due to hard-constraint conflicts.",
	}, []string{"hospital"})

	DisplacementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orsched_displacements_total",
		Help: "Scheduled entries bumped by emergency overrides.",
	}, []string{"hospital"})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orsched_run_duration_seconds",
		Help:    "Wall time of a full scheduler pass.",
		Buckets: prometheus.DefBuckets,
	}, []string{"hospital"})

	RunRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orsched_run_rejections_total",
		Help: "Scheduling operations rejected because another run was in flight.",
	}, []string{"hospital"})

	OptimalityScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orsched_optimality_score",
		Help: "Optimality score of the most recent scheduler run (0-100).",
	}, []string{"hospital"})
)

// Handler exposes the Prometheus registry as an Echo handler.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
