// Package metrics содержит счётчики Prometheus для конвейеров StarFruit.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry объединяет реестр Prometheus и метрики конвейеров.
type Registry struct {
	reg *prometheus.Registry

	EventsProcessed prometheus.Counter
	EventsFailed    prometheus.Counter
	GroupsCombined  prometheus.Counter
	GroupsFailed    prometheus.Counter
	ReceiptsHigh    prometheus.Counter
	ReceiptsGeneral prometheus.Counter
	RatingsCreated  prometheus.Counter
	RatingsRejected prometheus.Counter
}

// NewRegistry создаёт реестр и регистрирует метрики конвейеров.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	eventsProcessed := prometheus.NewCounter(prometheus.CounterOpts{Name: "starfruit_pos_events_processed_total"})
	eventsFailed := prometheus.NewCounter(prometheus.CounterOpts{Name: "starfruit_pos_events_failed_total"})
	groupsCombined := prometheus.NewCounter(prometheus.CounterOpts{Name: "starfruit_groups_combined_total"})
	groupsFailed := prometheus.NewCounter(prometheus.CounterOpts{Name: "starfruit_groups_failed_total"})
	receiptsHigh := prometheus.NewCounter(prometheus.CounterOpts{Name: "starfruit_receipts_high_value_total"})
	receiptsGeneral := prometheus.NewCounter(prometheus.CounterOpts{Name: "starfruit_receipts_general_total"})
	ratingsCreated := prometheus.NewCounter(prometheus.CounterOpts{Name: "starfruit_ratings_created_total"})
	ratingsRejected := prometheus.NewCounter(prometheus.CounterOpts{Name: "starfruit_ratings_rejected_total"})

	r.MustRegister(eventsProcessed, eventsFailed, groupsCombined, groupsFailed,
		receiptsHigh, receiptsGeneral, ratingsCreated, ratingsRejected)

	return &Registry{
		reg:             r,
		EventsProcessed: eventsProcessed,
		EventsFailed:    eventsFailed,
		GroupsCombined:  groupsCombined,
		GroupsFailed:    groupsFailed,
		ReceiptsHigh:    receiptsHigh,
		ReceiptsGeneral: receiptsGeneral,
		RatingsCreated:  ratingsCreated,
		RatingsRejected: ratingsRejected,
	}
}

// Handler возвращает HTTP-обработчик выдачи метрик.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
