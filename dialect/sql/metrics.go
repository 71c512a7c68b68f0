package sql

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StatsCollector exports QueryStats as Prometheus metrics. Register it
// with a prometheus.Registerer:
//
//	drv, stats, _ := sql.OpenWithStats("pgx", dsn)
//	prometheus.MustRegister(sql.NewStatsCollector(stats, "schemakit", prometheus.Labels{"db": "main"}))
type StatsCollector struct {
	stats      *QueryStats
	queries    *prometheus.Desc
	execs      *prometheus.Desc
	statements *prometheus.Desc
	duration   *prometheus.Desc
	slow       *prometheus.Desc
	errors     *prometheus.Desc
}

// NewStatsCollector returns a collector reading from stats. Metric names
// are prefixed with namespace. statements_total carries an origin label
// telling catalog introspection from commands.
func NewStatsCollector(stats *QueryStats, namespace string, labels prometheus.Labels) *StatsCollector {
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "db", name), help, variable, labels)
	}
	return &StatsCollector{
		stats:      stats,
		queries:    desc("queries_total", "Total number of queries executed."),
		execs:      desc("execs_total", "Total number of statements executed."),
		statements: desc("statements_total", "Number of queries and statements by origin.", "origin"),
		duration:   desc("duration_seconds_total", "Total time spent executing queries and statements."),
		slow:       desc("slow_queries_total", "Number of queries exceeding the slow threshold."),
		errors:     desc("errors_total", "Number of failed queries and statements."),
	}
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.queries
	ch <- c.execs
	ch <- c.statements
	ch <- c.duration
	ch <- c.slow
	ch <- c.errors
}

// Collect implements prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats.Stats()
	ch <- prometheus.MustNewConstMetric(c.queries, prometheus.CounterValue, float64(s.TotalQueries))
	ch <- prometheus.MustNewConstMetric(c.execs, prometheus.CounterValue, float64(s.TotalExecs))
	ch <- prometheus.MustNewConstMetric(c.statements, prometheus.CounterValue, float64(s.Introspection.Total()), OriginIntrospection.String())
	ch <- prometheus.MustNewConstMetric(c.statements, prometheus.CounterValue, float64(s.Commands.Total()), OriginCommand.String())
	ch <- prometheus.MustNewConstMetric(c.duration, prometheus.CounterValue, s.TotalDuration.Seconds())
	ch <- prometheus.MustNewConstMetric(c.slow, prometheus.CounterValue, float64(s.SlowQueries))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(s.Errors))
}

var _ prometheus.Collector = (*StatsCollector)(nil)
