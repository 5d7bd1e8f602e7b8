package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StockMetrics tracks ledger mutations, low-stock alerts and live subscribers.
type StockMetrics struct {
	mutations   *prometheus.CounterVec
	alerts      prometheus.Counter
	deliveries  *prometheus.CounterVec
	subscribers prometheus.Gauge
}

// NewStockMetrics registers the stock metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_mutations_total",
		Help:      "Stock ledger mutations by action and result.",
	}, []string{"action", "result"})
	alerts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "low_stock_alerts_total",
		Help:      "Items found below threshold by the monitor.",
	})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_deliveries_total",
		Help:      "Low-stock notification deliveries by channel and result.",
	}, []string{"channel", "result"})
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_subscribers",
		Help:      "Currently connected live event subscribers.",
	})
	reg.MustRegister(mutations, alerts, deliveries, subscribers)
	return &StockMetrics{
		mutations:   mutations,
		alerts:      alerts,
		deliveries:  deliveries,
		subscribers: subscribers,
	}
}

// ObserveMutation counts one ledger operation outcome.
func (s *StockMetrics) ObserveMutation(action string, err error) {
	if s == nil || s.mutations == nil {
		return
	}
	s.mutations.WithLabelValues(normalizeLabel(action), resultLabel(err)).Inc()
}

// IncLowStockAlert counts one item flagged by a threshold scan.
func (s *StockMetrics) IncLowStockAlert() {
	if s == nil || s.alerts == nil {
		return
	}
	s.alerts.Inc()
}

// ObserveDelivery counts one notification attempt.
func (s *StockMetrics) ObserveDelivery(channel string, err error) {
	if s == nil || s.deliveries == nil {
		return
	}
	s.deliveries.WithLabelValues(normalizeLabel(channel), resultLabel(err)).Inc()
}

// SubscriberAdded and SubscriberRemoved keep the live subscriber gauge current.
func (s *StockMetrics) SubscriberAdded() {
	if s == nil || s.subscribers == nil {
		return
	}
	s.subscribers.Inc()
}

func (s *StockMetrics) SubscriberRemoved() {
	if s == nil || s.subscribers == nil {
		return
	}
	s.subscribers.Dec()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
