package builder

import "github.com/prometheus/client_golang/prometheus"

// ---------------------------------------------------------------------
// Prometheus Metrics
// ---------------------------------------------------------------------

var (
	rowsAppended = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chunky_builder_rows_total",
		Help: "Rows accumulated by finished builders",
	}, []string{"kind"})
	chunksFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chunky_builder_finished_total",
		Help: "Chunks produced by builder Finish calls",
	}, []string{"kind"})
	flattenPath = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chunky_list_flatten_total",
		Help: "Sub-columns flattened into list rows, by path",
	}, []string{"kind", "path"})
)

func init() {
	prometheus.MustRegister(rowsAppended, chunksFinished, flattenPath)
}
