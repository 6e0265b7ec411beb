package pos

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/starfruit-system/internal/metrics"
	"github.com/mmeshcher/starfruit-system/internal/model"
)

// Documents описывает контракт хранилища документов POS-событий.
type Documents interface {
	SavePOSEventDocument(ctx context.Context, doc model.POSEventDocument) error
}

// Router описывает контракт маршрутизации чеков по стоимости.
type Router interface {
	Route(ctx context.Context, event *model.ParsedPOSEvent) error
}

// EventFailure описывает одно событие, отброшенное после ошибки.
type EventFailure struct {
	Event model.RawPOSEvent
	Err   error
}

// BatchResult — итог обработки одной пачки событий.
type BatchResult struct {
	Succeeded []string
	Failed    []EventFailure
}

// Ingestor обрабатывает пачки POS-событий с изоляцией ошибок по событиям.
type Ingestor struct {
	documents Documents
	router    Router
	logger    *zap.Logger
	registry  *metrics.Registry
}

// NewIngestor создаёт обработчик пачек POS-событий.
// router может быть nil, если маршрутизация чеков отключена.
func NewIngestor(documents Documents, router Router, logger *zap.Logger, registry *metrics.Registry) *Ingestor {
	return &Ingestor{
		documents: documents,
		router:    router,
		logger:    logger,
		registry:  registry,
	}
}

// ProcessBatch обрабатывает каждое событие пачки независимо: восстановление,
// сохранение документа, затем маршрутизация чека при непустом receiptUrl.
// Ошибка события логируется со временем постановки в очередь и исходным телом
// и не прерывает обработку остальных. Повторов и dead-letter очереди нет.
func (i *Ingestor) ProcessBatch(ctx context.Context, events []model.RawPOSEvent) BatchResult {
	var result BatchResult

	for _, ev := range events {
		id, err := i.processEvent(ctx, ev)
		if err != nil {
			i.logger.Error("pos event dropped",
				zap.Time("enqueuedTimeUtc", ev.EnqueuedTimeUTC),
				zap.ByteString("body", ev.Body),
				zap.Error(err),
			)
			if i.registry != nil {
				i.registry.EventsFailed.Inc()
			}
			result.Failed = append(result.Failed, EventFailure{Event: ev, Err: err})
			continue
		}

		if i.registry != nil {
			i.registry.EventsProcessed.Inc()
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	return result
}

func (i *Ingestor) processEvent(ctx context.Context, ev model.RawPOSEvent) (string, error) {
	parsed, err := Repair(ev.Body)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(parsed)
	if err != nil {
		return "", fmt.Errorf("marshal parsed event: %w", err)
	}

	enqueued := ev.EnqueuedTimeUTC
	if enqueued.IsZero() {
		enqueued = time.Now().UTC()
	}

	doc := model.POSEventDocument{
		ID:          uuid.NewString(),
		SalesNumber: parsed.Header.SalesNumber,
		LocationID:  parsed.Header.LocationID,
		EnqueuedAt:  enqueued,
		Payload:     payload,
	}
	if err := i.documents.SavePOSEventDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("save pos event document: %w", err)
	}

	if i.router != nil && parsed.Header.ReceiptURL != "" {
		if err := i.router.Route(ctx, parsed); err != nil {
			return "", fmt.Errorf("route receipt: %w", err)
		}
	}

	return doc.ID, nil
}
