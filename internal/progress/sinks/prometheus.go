package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/lto-plan-scraper/internal/progress"
)

// PrometheusSink exports sweep progress via Prometheus. It owns all
// collectors for sweeps, cells, pages and scraped records.
type PrometheusSink struct {
	sweepsStarted   prometheus.Counter
	sweepsCompleted *prometheus.CounterVec
	sweepRuntime    prometheus.Histogram

	cellsCompleted *prometheus.CounterVec
	cellDuration   *prometheus.HistogramVec

	pagesScraped   prometheus.Counter
	recordsScraped prometheus.Counter
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		sweepsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planscraper_sweeps_started_total",
			Help: "Total sweeps that have started.",
		}),
		sweepsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planscraper_sweeps_completed_total",
			Help: "Total sweeps completed partitioned by result.",
		}, []string{"result"}),
		sweepRuntime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "planscraper_sweep_runtime_seconds",
			Help:    "Wall time per completed sweep.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		}),
		cellsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planscraper_cells_completed_total",
			Help: "Lot type and parish cells completed partitioned by result.",
		}, []string{"result"}),
		cellDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "planscraper_cell_duration_seconds",
			Help:    "Cell duration partitioned by result.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"result"}),
		pagesScraped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planscraper_pages_scraped_total",
			Help: "Result pages read from the registry.",
		}),
		recordsScraped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "planscraper_records_scraped_total",
			Help: "Raw rows folded from result pages.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.sweepsStarted,
		s.sweepsCompleted,
		s.sweepRuntime,
		s.cellsCompleted,
		s.cellDuration,
		s.pagesScraped,
		s.recordsScraped,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageSweepStart:
		s.sweepsStarted.Inc()
	case progress.StageSweepDone:
		result := "success"
		if evt.Note != "" {
			result = "partial"
		}
		s.sweepsCompleted.WithLabelValues(result).Inc()
		if evt.Dur > 0 {
			s.sweepRuntime.Observe(evt.Dur.Seconds())
		}
	case progress.StageCellDone:
		s.observeCell(evt, "success")
	case progress.StageCellEmpty:
		s.observeCell(evt, "empty")
	case progress.StageCellError:
		s.observeCell(evt, "error")
	case progress.StagePageDone:
		s.pagesScraped.Inc()
		if evt.Records > 0 {
			s.recordsScraped.Add(float64(evt.Records))
		}
	}
}

func (s *PrometheusSink) observeCell(evt progress.Event, result string) {
	s.cellsCompleted.WithLabelValues(result).Inc()
	if evt.Dur > 0 {
		s.cellDuration.WithLabelValues(result).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
