// Package receipt классифицирует чеки по стоимости и отправляет их
// в хранилища соответствующего уровня.
package receipt

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/mmeshcher/starfruit-system/internal/metrics"
	"github.com/mmeshcher/starfruit-system/internal/model"
	"github.com/mmeshcher/starfruit-system/internal/pos"
)

// ErrReceiptFetch возвращается при ошибке загрузки изображения чека.
// Ошибка валит весь шаг маршрутизации и поднимается до изоляции по событию.
var ErrReceiptFetch = errors.New("receipt image fetch failure")

// Fetcher описывает контракт загрузки изображения чека по URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Sink описывает контракт записей в хранилища чеков двух уровней.
type Sink interface {
	SaveHighValueReceipt(ctx context.Context, rec model.HighValueReceiptRecord) error
	SaveGeneralReceipt(ctx context.Context, rec model.GeneralReceiptRecord) error
}

// Router классифицирует чеки по настроенному порогу стоимости.
type Router struct {
	fetcher        Fetcher
	sink           Sink
	thresholdCents int64
	logger         *zap.Logger
	registry       *metrics.Registry
}

// NewRouter создаёт маршрутизатор чеков. threshold — порог стоимости в той же
// валюте, что и totalCost событий. Порог округляется до цента: усечение
// двоичного представления сдвинуло бы границу вниз для дробных порогов.
func NewRouter(fetcher Fetcher, sink Sink, threshold float64, logger *zap.Logger, registry *metrics.Registry) *Router {
	return &Router{
		fetcher:        fetcher,
		sink:           sink,
		thresholdCents: int64(math.Round(threshold * 100)),
		logger:         logger,
		registry:       registry,
	}
}

// Summarize строит сводку чека: totalItems — сумма количеств всех позиций.
func Summarize(event *model.ParsedPOSEvent) (model.ReceiptSummary, error) {
	costCents, err := pos.CostCents(event.Header.TotalCost)
	if err != nil {
		return model.ReceiptSummary{}, err
	}

	totalItems := 0
	for _, d := range event.Details {
		totalItems += d.Quantity
	}

	return model.ReceiptSummary{
		StoreLocation:  event.Header.LocationID,
		SalesNumber:    event.Header.SalesNumber,
		SalesDate:      event.Header.DateTime,
		TotalCostCents: costCents,
		TotalItems:     totalItems,
		ReceiptURL:     event.Header.ReceiptURL,
	}, nil
}

// Route строит сводку чека и записывает ровно одну запись ровно в одно
// хранилище: выше порога — чек с загруженным и закодированным изображением,
// иначе — общий чек без изображения.
func (r *Router) Route(ctx context.Context, event *model.ParsedPOSEvent) error {
	summary, err := Summarize(event)
	if err != nil {
		return err
	}

	if summary.TotalCostCents > r.thresholdCents {
		image, err := r.fetcher.Fetch(ctx, summary.ReceiptURL)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrReceiptFetch, err)
		}

		rec := model.HighValueReceiptRecord{
			ReceiptSummary: summary,
			ReceiptImage:   base64.StdEncoding.EncodeToString(image),
		}
		if err := r.sink.SaveHighValueReceipt(ctx, rec); err != nil {
			return fmt.Errorf("save high-value receipt: %w", err)
		}

		if r.registry != nil {
			r.registry.ReceiptsHigh.Inc()
		}
		r.logger.Info("receipt routed",
			zap.String("salesNumber", summary.SalesNumber),
			zap.String("tier", "high-value"),
		)
		return nil
	}

	rec := model.GeneralReceiptRecord{ReceiptSummary: summary}
	if err := r.sink.SaveGeneralReceipt(ctx, rec); err != nil {
		return fmt.Errorf("save general receipt: %w", err)
	}

	if r.registry != nil {
		r.registry.ReceiptsGeneral.Inc()
	}
	r.logger.Info("receipt routed",
		zap.String("salesNumber", summary.SalesNumber),
		zap.String("tier", "general"),
	)
	return nil
}
