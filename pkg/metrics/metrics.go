package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iota-uz/etc-portal/pkg/application"
)

var (
	// StatusTransitions counts lifecycle transitions by edge.
	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etc_status_transitions_total",
		Help: "Request lifecycle transitions by source and target status.",
	}, []string{"from", "to"})

	// PaymentVerdicts counts admin payment review outcomes.
	PaymentVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etc_payment_verdicts_total",
		Help: "Payment attempt review verdicts.",
	}, []string{"verdict"})

	// NotificationFailures counts swallowed notification errors.
	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "etc_notification_failures_total",
		Help: "Outbound notification sends that failed and were dropped.",
	})
)

type PrometheusController struct {
	path string
}

func NewPrometheusController(path string) application.Controller {
	if path == "" {
		path = "/debug/prometheus"
	}
	return &PrometheusController{path: path}
}

func (c *PrometheusController) Key() string {
	return c.path
}

func (c *PrometheusController) Register(r *mux.Router) {
	r.Handle(c.path, promhttp.Handler()).Methods(http.MethodGet)
}
