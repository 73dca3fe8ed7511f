// Package metrics records agent turn, tool and model samples with Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
)

const namespace = "laia"

// Recorder implements the tool executor, turn driver and API observers.
type Recorder struct {
	turnsTotal         *prometheus.CounterVec
	turnDuration       *prometheus.HistogramVec
	toolCallsTotal     *prometheus.CounterVec
	toolDuration       *prometheus.HistogramVec
	loopExhaustedTotal prometheus.Counter
	modelCallDuration  *prometheus.HistogramVec
	httpRequestsTotal  *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Recorder{
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Conversation turns by outcome",
			},
			[]string{"outcome"},
		),
		turnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "turn_duration_seconds",
				Help:      "Duration of conversation turns",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40, 60},
			},
			[]string{"outcome"},
		),
		toolCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Executed tool calls by tool and result status",
			},
			[]string{"tool", "status"},
		),
		toolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Duration of tool calls",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		loopExhaustedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_loop_exhausted_total",
				Help:      "Turns that ran out of tool resolution rounds",
			},
		),
		modelCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "model_call_duration_seconds",
				Help:      "Duration of model exchanges",
				Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 60},
			},
			[]string{"result"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "API requests by route and status code",
			},
			[]string{"route", "code"},
		),
		gatherer: reg,
	}
}

func (r *Recorder) ObserveToolCall(tool string, status contractx.ToolStatus, elapsed time.Duration) {
	r.toolCallsTotal.WithLabelValues(tool, string(status)).Inc()
	r.toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveModelCall(elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.modelCallDuration.WithLabelValues(result).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveLoopExhausted() {
	r.loopExhaustedTotal.Inc()
}

func (r *Recorder) ObserveTurn(outcome string, elapsed time.Duration) {
	r.turnsTotal.WithLabelValues(outcome).Inc()
	r.turnDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveHTTP(route string, code int) {
	r.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
