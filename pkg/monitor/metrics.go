// Package monitor exposes Prometheus metrics for the approval workflow.
package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"
)

var (
	RequestsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "caredesk",
		Subsystem: "approval",
		Name:      "requests_created_total",
		Help:      "Approval requests created, by kind.",
	}, []string{"kind"})

	RequestsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "caredesk",
		Subsystem: "approval",
		Name:      "requests_resolved_total",
		Help:      "Approval requests resolved, by kind and outcome.",
	}, []string{"kind", "outcome"})

	ExecutionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "caredesk",
		Subsystem: "approval",
		Name:      "execution_failures_total",
		Help:      "Approved requests whose side effect failed, by kind.",
	}, []string{"kind"})

	NoticesFanned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "caredesk",
		Subsystem: "notice",
		Name:      "fanout_total",
		Help:      "Notices produced by the fan-out.",
	})
)

// Serve runs the metrics endpoint on its own listener.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	klog.Infof("metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		klog.Errorf("metrics server stopped: %v", err)
	}
}
