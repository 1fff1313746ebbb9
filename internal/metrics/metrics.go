// Package metrics exposes pipeline run metrics in Prometheus format. A CLI
// run is short-lived, so metrics are written to a node-exporter textfile
// rather than served.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/songplays/pkg/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for one process, on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	BuildInfo            *prometheus.GaugeVec
	StatementsTotal      *prometheus.CounterVec
	StatementDuration    *prometheus.HistogramVec
	StatementRows        *prometheus.CounterVec
	TableRows            *prometheus.GaugeVec
	RunDuration          prometheus.Gauge
	LastRunSuccess       prometheus.Gauge
	LastSuccessTimestamp prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New(version string) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	m := &Metrics{
		Registry: reg,

		BuildInfo: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "songplays_build_info",
			Help: "Build information of the songplays pipeline",
		}, []string{"version"}),

		StatementsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "songplays_statements_total",
			Help: "Total number of pipeline statements by stage and outcome",
		}, []string{"stage", "status"}),

		StatementDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "songplays_statement_duration_seconds",
			Help:    "Duration of pipeline statements",
			Buckets: prometheus.ExponentialBuckets(0.01, 3, 10), // 10ms .. ~197s
		}, []string{"stage"}),

		StatementRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "songplays_statement_rows_total",
			Help: "Rows affected by pipeline statements, where the warehouse reports them",
		}, []string{"stage", "table"}),

		TableRows: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "songplays_table_rows",
			Help: "Row count of each table at the last diagnostic check",
		}, []string{"table"}),

		RunDuration: f.NewGauge(prometheus.GaugeOpts{
			Name: "songplays_run_duration_seconds",
			Help: "Duration of the last pipeline run",
		}),

		LastRunSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "songplays_last_run_success",
			Help: "1 if the last pipeline run completed, 0 if it failed",
		}),

		LastSuccessTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "songplays_last_success_timestamp_seconds",
			Help: "Unix time the last successful pipeline run completed",
		}),
	}
	m.BuildInfo.WithLabelValues(version).Set(1)
	return m
}

// ObserveStatement records one executed statement.
func (m *Metrics) ObserveStatement(stmt core.Statement, status core.StatementRunStatus, rows int64, d time.Duration) {
	m.StatementsTotal.WithLabelValues(string(stmt.Stage), string(status)).Inc()
	if status == core.StatementRunStatusSkipped {
		return
	}
	m.StatementDuration.WithLabelValues(string(stmt.Stage)).Observe(d.Seconds())
	if rows > 0 {
		m.StatementRows.WithLabelValues(string(stmt.Stage), stmt.Table).Add(float64(rows))
	}
}

// SetRowCounts records the latest row-count snapshot.
func (m *Metrics) SetRowCounts(rc *core.RowCounts) {
	if rc == nil {
		return
	}
	for _, c := range rc.Counts {
		m.TableRows.WithLabelValues(c.Table).Set(float64(c.Rows))
	}
}

// ObserveRun records the outcome of a finished run.
func (m *Metrics) ObserveRun(status core.RunStatus, d time.Duration, finished time.Time) {
	m.RunDuration.Set(d.Seconds())
	if status == core.RunStatusCompleted {
		m.LastRunSuccess.Set(1)
		m.LastSuccessTimestamp.Set(float64(finished.Unix()))
		return
	}
	m.LastRunSuccess.Set(0)
}

// WriteTextfile writes the registry to path in the text exposition format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
