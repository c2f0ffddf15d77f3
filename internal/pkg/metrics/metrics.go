package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa os coletores expostos em /metrics.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	movements       *prometheus.CounterVec
}

// New cria os coletores num registry próprio (evita colisão entre testes).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pioerp",
			Name:      "http_requests_total",
			Help:      "Total de requisições HTTP por rota, método e status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pioerp",
			Name:      "http_request_duration_seconds",
			Help:      "Duração das requisições HTTP.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pioerp",
			Name:      "movimentacoes_total",
			Help:      "Movimentações de equipamento gravadas, por tipo.",
		}, []string{"tipo"}),
	}
	reg.MustRegister(
		m.requests,
		m.requestDuration,
		m.movements,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest registra uma requisição concluída.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// MovementRecorded incrementa o contador do tipo de movimentação.
func (m *Metrics) MovementRecorded(tipo string) {
	m.movements.WithLabelValues(tipo).Inc()
}

// Handler expõe o registry no formato de exposição do Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry devolve o registry (usado em testes).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
