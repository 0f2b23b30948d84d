package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/giftlink/internal/model"
)

func TestOrderMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)

	m.OrderCreated(model.GiftTypeItem)
	m.OrderCreated(model.GiftTypeCredit)
	m.OrderCreated(model.GiftTypeCredit)
	m.RedemptionAttempt(model.GiftTypeCredit, "success")
	m.RedemptionAttempt(model.GiftTypeCredit, "insufficient_balance")
	m.RedemptionAttempt(model.GiftTypeItem, "")
	m.CreditDeducted(200000)
	m.CreditDeducted(-5)
	m.OrdersExpired(3)
	m.OrdersExpired(0)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.created.WithLabelValues("ITEM")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.created.WithLabelValues("CREDIT")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.redemptions.WithLabelValues("CREDIT", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.redemptions.WithLabelValues("CREDIT", "insufficient_balance")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.redemptions.WithLabelValues("ITEM", "unknown")))
	assert.Equal(t, float64(200000), testutil.ToFloat64(m.deducted))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.expired))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.ElementsMatch(t, []string{
		"giftlink_orders_created_total",
		"giftlink_redemptions_total",
		"giftlink_credit_deducted_total",
		"giftlink_orders_expired_total",
	}, names)
}

func TestOrderMetrics_NilSafe(t *testing.T) {
	var nilMetrics *OrderMetrics
	unregistered := NewOrderMetrics(nil)

	for _, m := range []*OrderMetrics{nilMetrics, unregistered} {
		assert.NotPanics(t, func() {
			m.OrderCreated(model.GiftTypeItem)
			m.RedemptionAttempt(model.GiftTypeItem, "success")
			m.CreditDeducted(10)
			m.OrdersExpired(1)
		})
	}
}

func TestNewOrderMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewOrderMetrics(reg)

	assert.Panics(t, func() { NewOrderMetrics(reg) })
}
