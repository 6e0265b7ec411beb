// Package batch реализует группировку staged-файлов и материализацию
// скомбинированных заказов.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/starfruit-system/internal/metrics"
	"github.com/mmeshcher/starfruit-system/internal/model"
	"github.com/mmeshcher/starfruit-system/internal/staging"
)

// ErrMalformedObjectName возвращается для имени объекта без разделителя группы.
var ErrMalformedObjectName = errors.New("malformed staged object name")

// groupSize — число файлов полной группы: заголовок, позиции, информация о продуктах.
const groupSize = 3

// Combiner описывает контракт внешнего сервиса комбинирования.
type Combiner interface {
	Combine(ctx context.Context, groupKey string) ([]json.RawMessage, error)
}

// Orders описывает контракт хранилища документов заказов.
type Orders interface {
	SaveOrderDocument(ctx context.Context, doc model.OrderDocument) error
}

// Engine выполняет проходы группировки: находит полные группы,
// комбинирует их и удаляет исходные файлы после полной записи.
type Engine struct {
	store    staging.Store
	combiner Combiner
	orders   Orders
	logger   *zap.Logger
	registry *metrics.Registry

	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewEngine создаёт движок группировки.
func NewEngine(store staging.Store, combiner Combiner, orders Orders, logger *zap.Logger, registry *metrics.Registry) *Engine {
	return &Engine{
		store:    store,
		combiner: combiner,
		orders:   orders,
		logger:   logger,
		registry: registry,
		claimed:  make(map[string]struct{}),
	}
}

// GroupKeys возвращает различные ключи групп в порядке первого появления.
// Имя без разделителя нарушает контракт staging-контейнера.
func GroupKeys(names []string) ([]string, error) {
	var keys []string
	seen := make(map[string]struct{})

	for _, name := range names {
		idx := strings.Index(name, model.GroupSeparator)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrMalformedObjectName, name)
		}
		key := name[:idx]
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	return keys, nil
}

// CollectGroups перечисляет staging-хранилище и определяет полноту каждой группы.
// Группа полна, когда содержит ровно три файла с общим ключом.
func (e *Engine) CollectGroups(ctx context.Context) ([]model.FileGroup, error) {
	names, err := e.store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list staging: %w", err)
	}

	keys, err := GroupKeys(names)
	if err != nil {
		return nil, err
	}

	groups := make([]model.FileGroup, 0, len(keys))
	for _, key := range keys {
		members, err := e.store.List(ctx, key+model.GroupSeparator)
		if err != nil {
			return nil, fmt.Errorf("list group %s: %w", key, err)
		}
		groups = append(groups, model.FileGroup{
			GroupKey: key,
			Members:  members,
			Complete: len(members) == groupSize,
		})
	}

	return groups, nil
}

// Pass выполняет один проход группировки. Ошибка одной группы не прерывает
// обработку остальных.
func (e *Engine) Pass(ctx context.Context) error {
	groups, err := e.CollectGroups(ctx)
	if err != nil {
		return err
	}

	for _, g := range groups {
		if !g.Complete {
			continue
		}

		if !e.claim(g.GroupKey) {
			continue
		}

		if err := e.processGroup(ctx, g); err != nil {
			e.logger.Error("group processing failed",
				zap.String("groupKey", g.GroupKey),
				zap.Error(err),
			)
			if e.registry != nil {
				e.registry.GroupsFailed.Inc()
			}
		} else if e.registry != nil {
			e.registry.GroupsCombined.Inc()
		}

		e.release(g.GroupKey)

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	return nil
}

// processGroup комбинирует полную группу, сохраняет все документы заказов и
// только после этого удаляет исходные файлы. Падение до удаления оставляет
// файлы на месте, и следующий проход безопасно повторит группу.
func (e *Engine) processGroup(ctx context.Context, g model.FileGroup) error {
	records, err := e.combiner.Combine(ctx, g.GroupKey)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, rec := range records {
		doc := model.OrderDocument{
			ID:         uuid.NewString(),
			GroupKey:   g.GroupKey,
			Payload:    rec,
			ReceivedAt: now,
		}
		if err := e.orders.SaveOrderDocument(ctx, doc); err != nil {
			return fmt.Errorf("save order document: %w", err)
		}
	}

	for _, name := range g.Members {
		if err := e.store.Delete(ctx, name); err != nil {
			return fmt.Errorf("delete staged file %s: %w", name, err)
		}
	}

	e.logger.Info("group combined",
		zap.String("groupKey", g.GroupKey),
		zap.Int("orders", len(records)),
	)

	return nil
}

// StartGroupingPasses запускает фоновые проходы группировки с указанным интервалом.
func (e *Engine) StartGroupingPasses(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := e.Pass(ctx); err != nil && !errors.Is(err, context.Canceled) {
					e.logger.Error("grouping pass failed", zap.Error(err))
				}
			}
		}
	}()
}

// claim захватывает ключ группы на время обработки, чтобы параллельные проходы
// внутри процесса не скомбинировали одну группу дважды. Между процессами
// дубликаты возможны: конвейер даёт гарантию at-least-once.
func (e *Engine) claim(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.claimed[key]; ok {
		return false
	}
	e.claimed[key] = struct{}{}
	return true
}

func (e *Engine) release(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.claimed, key)
}
