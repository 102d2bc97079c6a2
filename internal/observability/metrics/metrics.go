package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters and histograms for the intake site's API flows.
// All methods are safe on a nil receiver.
type Metrics struct {
	chatTotal      *prometheus.CounterVec
	escalations    *prometheus.CounterVec
	llmLatency     *prometheus.HistogramVec
	intakeSteps    *prometheus.CounterVec
	bookingTotal   *prometheus.CounterVec
	phiBlocked     *prometheus.CounterVec
	webhookTotal   *prometheus.CounterVec
	outboxDelivery *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		chatTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aim",
			Subsystem: "chat",
			Name:      "responses_total",
			Help:      "Chat responses by responder and outcome",
		}, []string{"responder", "outcome"}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aim",
			Subsystem: "chat",
			Name:      "escalations_total",
			Help:      "Chat turns flagged for human follow-up",
		}, []string{"reason"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aim",
			Subsystem: "chat",
			Name:      "llm_latency_seconds",
			Help:      "Latency of LLM completions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "status"}),
		intakeSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aim",
			Subsystem: "intake",
			Name:      "transitions_total",
			Help:      "Intake conversation turns by state and whether the input was accepted",
		}, []string{"step", "accepted"}),
		bookingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aim",
			Subsystem: "booking",
			Name:      "requests_total",
			Help:      "Booking gateway operations by outcome",
		}, []string{"operation", "outcome"}),
		phiBlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aim",
			Subsystem: "phi",
			Name:      "violations_total",
			Help:      "PHI detections by surface and category",
		}, []string{"surface", "category"}),
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aim",
			Subsystem: "aimos",
			Name:      "webhooks_total",
			Help:      "Inbound AIM OS webhooks",
		}, []string{"type", "status"}),
		outboxDelivery: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aim",
			Subsystem: "aimos",
			Name:      "outbox_deliveries_total",
			Help:      "Outbox deliveries to AIM OS",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.chatTotal, m.escalations, m.llmLatency, m.intakeSteps, m.bookingTotal, m.phiBlocked, m.webhookTotal, m.outboxDelivery)
	return m
}

func (m *Metrics) ObserveChat(responder, outcome string) {
	if m == nil {
		return
	}
	m.chatTotal.WithLabelValues(responder, outcome).Inc()
}

func (m *Metrics) ObserveEscalation(reason string) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveLLMLatency(provider string, seconds float64, failed bool) {
	if m == nil {
		return
	}
	status := "ok"
	if failed {
		status = "error"
	}
	m.llmLatency.WithLabelValues(provider, status).Observe(seconds)
}

func (m *Metrics) ObserveIntakeStep(step string, accepted bool) {
	if m == nil {
		return
	}
	label := "false"
	if accepted {
		label = "true"
	}
	m.intakeSteps.WithLabelValues(step, label).Inc()
}

func (m *Metrics) ObserveBooking(operation, outcome string) {
	if m == nil {
		return
	}
	m.bookingTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObservePHI(surface string, categories []string) {
	if m == nil {
		return
	}
	for _, c := range categories {
		m.phiBlocked.WithLabelValues(surface, c).Inc()
	}
}

func (m *Metrics) ObserveWebhook(eventType, status string) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(eventType, status).Inc()
}

func (m *Metrics) ObserveOutboxDelivery(status string) {
	if m == nil {
		return
	}
	m.outboxDelivery.WithLabelValues(status).Inc()
}
