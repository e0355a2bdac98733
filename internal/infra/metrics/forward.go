package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(forwardDeliveriesTotal, auditRowsPurgedTotal) }

var forwardDeliveriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "forward_deliveries_total",
		Help: "Questionnaire deliveries to the fitness API by outcome.",
	},
	[]string{"endpoint", "status"}, // delivered|failed|duplicate|dropped
)

func IncForwardDelivery(endpoint, status string) {
	forwardDeliveriesTotal.WithLabelValues(endpoint, norm(status)).Inc()
}

var auditRowsPurgedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "forward_audit_purged_total",
		Help: "Delivery audit rows removed by the retention worker.",
	},
)

func AddAuditPurged(n int64) {
	auditRowsPurgedTotal.Add(float64(n))
}
