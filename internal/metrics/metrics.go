// Package metrics provides Prometheus metrics for the generator service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// llmRequestsTotal counts chat-completion calls.
	// Labels:
	//   - operation: "validate", "generate", "guide"
	//   - model: model identifier sent upstream
	//   - status: "success", "upstream_error", "empty", "timeout", "error"
	llmRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowforge_llm_requests_total",
			Help: "Total number of LLM chat-completion requests",
		},
		[]string{"operation", "model", "status"},
	)

	// llmRequestDuration records end-to-end latency of a completion, retries included.
	llmRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowforge_llm_request_duration_seconds",
			Help:    "Duration of LLM chat-completion requests in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"operation", "model"},
	)

	// jsonRepairsTotal counts LLM outputs that needed JSON repair.
	// Labels:
	//   - operation: caller of the repair
	//   - outcome: "repaired", "failed"
	jsonRepairsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowforge_json_repairs_total",
			Help: "Total number of JSON repairs applied to LLM output",
		},
		[]string{"operation", "outcome"},
	)

	// promptActiveVersion exposes the active version per prompt type, 0 when unset.
	promptActiveVersion = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flowforge_prompt_active_version",
			Help: "Active version number of each prompt type",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(llmRequestsTotal)
	prometheus.MustRegister(llmRequestDuration)
	prometheus.MustRegister(jsonRepairsTotal)
	prometheus.MustRegister(promptActiveVersion)
}

// RecordLLMRequest records one completed completion call.
func RecordLLMRequest(operation, model, status string, durationSeconds float64) {
	llmRequestsTotal.WithLabelValues(operation, model, status).Inc()
	llmRequestDuration.WithLabelValues(operation, model).Observe(durationSeconds)
}

// RecordJSONRepair records a repair attempt on LLM output.
func RecordJSONRepair(operation string, ok bool) {
	outcome := "repaired"
	if !ok {
		outcome = "failed"
	}
	jsonRepairsTotal.WithLabelValues(operation, outcome).Inc()
}

// SetPromptVersion publishes the active version of a prompt type.
func SetPromptVersion(promptType string, version int) {
	promptActiveVersion.WithLabelValues(promptType).Set(float64(version))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
