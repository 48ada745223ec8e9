// Package metrics define las métricas Prometheus de dominio del servicio.
// Las métricas HTTP viven en internal/http (junto al middleware que las mide).
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// PushDeliveries cuenta entregas push por protocolo y resultado.
	// protocol: "webpush" | "legacy" | "confirm"; outcome: "ok" | "error" | "skipped".
	PushDeliveries *prometheus.CounterVec

	// ChangelogEntries cuenta entradas de changelog escritas.
	ChangelogEntries prometheus.Counter

	// IngestBatches cuenta batches de ingest por resultado.
	// outcome: "ok" | "unchanged" | "error".
	IngestBatches *prometheus.CounterVec

	// FeaturesTracked cuenta records clasificados por categoría.
	// kind: "started" | "updated" | "unchanged".
	FeaturesTracked *prometheus.CounterVec
)

// Register inicializa y registra las métricas de dominio. Idempotente.
func Register(reg prometheus.Registerer) {
	once.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}

		PushDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "push_deliveries_total",
			Help: "Entregas push por protocolo y resultado",
		}, []string{"protocol", "outcome"})

		ChangelogEntries = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "changelog_entries_total",
			Help: "Entradas de changelog escritas",
		})

		IngestBatches = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_batches_total",
			Help: "Batches de ingest procesados por resultado",
		}, []string{"outcome"})

		FeaturesTracked = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "features_tracked_total",
			Help: "Records clasificados por categoría en checkForNewData",
		}, []string{"kind"})

		reg.MustRegister(PushDeliveries, ChangelogEntries, IngestBatches, FeaturesTracked)
	})
}

// inc helpers: las métricas pueden no estar registradas en unit tests.

// IncDelivery incrementa PushDeliveries si las métricas están registradas.
func IncDelivery(protocol, outcome string) {
	if PushDeliveries != nil {
		PushDeliveries.WithLabelValues(protocol, outcome).Inc()
	}
}

// IncChangelog incrementa ChangelogEntries si está registrada.
func IncChangelog() {
	if ChangelogEntries != nil {
		ChangelogEntries.Inc()
	}
}

// IncIngest incrementa IngestBatches si está registrada.
func IncIngest(outcome string) {
	if IngestBatches != nil {
		IngestBatches.WithLabelValues(outcome).Inc()
	}
}

// IncTracked incrementa FeaturesTracked si está registrada.
func IncTracked(kind string) {
	if FeaturesTracked != nil {
		FeaturesTracked.WithLabelValues(kind).Inc()
	}
}
