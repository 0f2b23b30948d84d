// Package metrics exports order lifecycle counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fairyhunter13/giftlink/internal/model"
)

const namespace = "giftlink"

// OrderMetrics implements service.MetricsRecorder. A nil *OrderMetrics, or
// one built without a registerer, drops every observation.
type OrderMetrics struct {
	created     *prometheus.CounterVec
	redemptions *prometheus.CounterVec
	deducted    prometheus.Counter
	expired     prometheus.Counter
}

// NewOrderMetrics registers the order metrics on reg.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Gift orders persisted, by gift type.",
	}, []string{"gift_type"})
	redemptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "redemptions_total",
		Help:      "Redemption attempts, by gift type and outcome.",
	}, []string{"gift_type", "outcome"})
	deducted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credit_deducted_total",
		Help:      "Store credit deducted across all orders, in minor currency units.",
	})
	expired := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_expired_total",
		Help:      "Orders moved to EXPIRED by the expiry sweeper.",
	})
	reg.MustRegister(created, redemptions, deducted, expired)
	return &OrderMetrics{
		created:     created,
		redemptions: redemptions,
		deducted:    deducted,
		expired:     expired,
	}
}

// OrderCreated counts a persisted order.
func (m *OrderMetrics) OrderCreated(giftType model.GiftType) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(string(giftType))).Inc()
}

// RedemptionAttempt counts a redemption attempt and its outcome.
func (m *OrderMetrics) RedemptionAttempt(giftType model.GiftType, outcome string) {
	if m == nil || m.redemptions == nil {
		return
	}
	m.redemptions.WithLabelValues(normalizeLabel(string(giftType)), normalizeLabel(outcome)).Inc()
}

// CreditDeducted adds a successful deduction.
func (m *OrderMetrics) CreditDeducted(amount int64) {
	if m == nil || m.deducted == nil || amount <= 0 {
		return
	}
	m.deducted.Add(float64(amount))
}

// OrdersExpired adds the result of one sweep.
func (m *OrderMetrics) OrdersExpired(count int) {
	if m == nil || m.expired == nil || count <= 0 {
		return
	}
	m.expired.Add(float64(count))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
