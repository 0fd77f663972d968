package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the exam engine.
type Metrics struct {
	ExamsStarted prometheus.Counter

	// Graded exams by outcome: "passed" or "failed"
	ExamsGraded *prometheus.CounterVec

	Scores prometheus.Histogram

	// Duration of the grading transaction
	GradeLatency prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ExamsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "certus_exams_started_total",
			Help: "Total exams started",
		}),
		ExamsGraded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certus_exams_graded_total",
			Help: "Total exams graded by outcome",
		}, []string{"outcome"}),
		Scores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "certus_exam_score_percent",
			Help:    "Distribution of graded exam scores",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}),
		GradeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "certus_exam_grade_duration_seconds",
			Help:    "Duration of exam submission including the grading transaction",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) IncStarted() {
	if m != nil {
		m.ExamsStarted.Inc()
	}
}

func (m *Metrics) ObserveGraded(score float64, passed bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	m.ExamsGraded.WithLabelValues(outcome).Inc()
	m.Scores.Observe(score)
	m.GradeLatency.Observe(d.Seconds())
}
