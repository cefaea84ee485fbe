// Package metrics exposes Prometheus collectors describing benchmark runs.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	toolCalls    *prometheus.CounterVec
	retries      *prometheus.CounterVec
	tasks        *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	turns        *prometheus.HistogramVec
}

// MustNewMetrics registers the collectors with reg, reusing collectors that
// are already registered under the same name. Other registration errors
// panic.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcpbench",
			Name:      "tool_calls_total",
			Help:      "Tool calls forwarded to the backend, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcpbench",
			Name:      "backend_retries_total",
			Help:      "Backend requests retried after a token refresh or rate limit.",
		}, []string{"reason"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcpbench",
			Name:      "tasks_total",
			Help:      "Task attempts by model, level and outcome.",
		}, []string{"model", "level", "outcome"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mcpbench",
			Name:      "task_duration_seconds",
			Help:      "Wall-clock time of one task attempt.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"model", "level"}),
		turns: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mcpbench",
			Name:      "task_turns",
			Help:      "Model turns taken per task attempt.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}, []string{"model", "level"}),
	}
	m.toolCalls = register(reg, m.toolCalls)
	m.retries = register(reg, m.retries)
	m.tasks = register(reg, m.tasks)
	m.taskDuration = register(reg, m.taskDuration)
	m.turns = register(reg, m.turns)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ToolCall counts one tool invocation.
func (m *Metrics) ToolCall(tool string, isError bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if isError {
		outcome = "error"
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// Retry counts one backend retry for reason.
func (m *Metrics) Retry(reason string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(reason).Inc()
}

// Task records the outcome of one task attempt.
func (m *Metrics) Task(model string, level int, passed, timedOut bool, turns int, elapsed time.Duration) {
	if m == nil {
		return
	}
	lvl := fmt.Sprint(level)
	outcome := "failed"
	switch {
	case timedOut:
		outcome = "timed_out"
	case passed:
		outcome = "passed"
	}
	m.tasks.WithLabelValues(model, lvl, outcome).Inc()
	m.taskDuration.WithLabelValues(model, lvl).Observe(elapsed.Seconds())
	m.turns.WithLabelValues(model, lvl).Observe(float64(turns))
}

// Serve exposes gatherer on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("warning: metrics shutdown: %v", err)
		}
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving metrics: %w", err)
	}
	return nil
}
