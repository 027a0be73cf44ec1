// Package metrics exports validation run results as a Prometheus textfile,
// for collection by node_exporter's textfile collector.
package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/simverify/internal/runner"
	"github.com/nvandessel/simverify/internal/validate"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "simverify"

// Exporter holds one run's gauges in a private registry.
type Exporter struct {
	path     string
	registry *prometheus.Registry

	testsTotal  prometheus.Gauge
	testsPassed prometheus.Gauge
	passRatio   prometheus.Gauge
	verdicts    *prometheus.GaugeVec
	tier        *prometheus.GaugeVec
	lastRun     prometheus.Gauge
}

// NewExporter creates an Exporter that writes to path.
func NewExporter(path string) *Exporter {
	e := &Exporter{
		path:     path,
		registry: prometheus.NewRegistry(),
		testsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tests_total",
			Help:      "Number of artifacts evaluated in the last run",
		}),
		testsPassed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tests_passed",
			Help:      "Number of artifacts that passed in the last run",
		}),
		passRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pass_ratio",
			Help:      "Passed over total in the last run",
		}),
		// Labels: category, result (pass, fail)
		verdicts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "verdicts",
			Help:      "Verdicts in the last run by category and result",
		}, []string{"category", "result"}),
		// Labels: tier (full, partial, failure); 1 for the last run's tier
		tier: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tier",
			Help:      "Outcome tier of the last run",
		}, []string{"tier"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run started",
		}),
	}

	e.registry.MustRegister(e.testsTotal, e.testsPassed, e.passRatio, e.verdicts, e.tier, e.lastRun)
	return e
}

// Path returns the textfile path.
func (e *Exporter) Path() string {
	return e.path
}

// Record sets every gauge from s. Every category and tier label is emitted,
// with zero values where nothing matched.
func (e *Exporter) Record(s runner.Summary) {
	e.testsTotal.Set(float64(s.Total))
	e.testsPassed.Set(float64(s.Passed))
	e.passRatio.Set(s.PassRate())
	e.lastRun.Set(float64(s.StartedAt.Unix()))

	e.verdicts.Reset()
	for _, c := range validate.Categories() {
		e.verdicts.WithLabelValues(c.String(), "pass").Set(0)
		e.verdicts.WithLabelValues(c.String(), "fail").Set(0)
	}
	for _, r := range s.Results {
		result := "fail"
		if r.Verdict.Success {
			result = "pass"
		}
		e.verdicts.WithLabelValues(r.Entry.Category.String(), result).Inc()
	}

	for _, t := range []runner.Tier{runner.TierFull, runner.TierPartial, runner.TierFailure} {
		v := 0.0
		if t == s.Tier {
			v = 1
		}
		e.tier.WithLabelValues(string(t)).Set(v)
	}
}

// Write atomically writes the textfile.
func (e *Exporter) Write() error {
	if err := os.MkdirAll(filepath.Dir(e.path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(e.path, e.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// Observe implements runner.Observer.
func (e *Exporter) Observe(_ context.Context, s runner.Summary) error {
	e.Record(s)
	return e.Write()
}
