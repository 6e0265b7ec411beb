package pos

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mmeshcher/starfruit-system/internal/model"
)

// maxBatchSize ограничивает число событий, передаваемых в одну пачку обработки.
const maxBatchSize = 100

// Consumer читает POS-события из Kafka и передаёт их пачками в Ingestor.
type Consumer struct {
	reader   *kafka.Reader
	ingestor *Ingestor
	logger   *zap.Logger
}

// NewConsumer создаёт потребитель POS-событий.
// bootstrap — список адресов брокеров через запятую.
func NewConsumer(bootstrap, topic, groupID string, ingestor *Ingestor, logger *zap.Logger) *Consumer {
	var brokers []string
	for _, a := range strings.Split(bootstrap, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			brokers = append(brokers, a)
		}
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	return &Consumer{
		reader:   reader,
		ingestor: ingestor,
		logger:   logger,
	}
}

// Run читает события до отмены контекста. Сообщения, собранные в одну выборку,
// обрабатываются как одна пачка; смещения фиксируются независимо от ошибок
// отдельных событий, так как отброшенные события не повторяются.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		batch, msgs, err := c.fetchBatch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if len(batch) == 0 {
			continue
		}

		result := c.ingestor.ProcessBatch(ctx, batch)
		c.logger.Info("pos batch processed",
			zap.Int("succeeded", len(result.Succeeded)),
			zap.Int("failed", len(result.Failed)),
		)

		if err := c.reader.CommitMessages(ctx, msgs...); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("commit offsets failed", zap.Error(err))
		}
	}
}

// fetchBatch блокируется до первого сообщения, затем добирает без ожидания всё,
// что уже доставлено, до предела размера пачки.
func (c *Consumer) fetchBatch(ctx context.Context) ([]model.RawPOSEvent, []kafka.Message, error) {
	first, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, nil, err
	}

	msgs := []kafka.Message{first}

	for len(msgs) < maxBatchSize {
		drainCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		msg, err := c.reader.FetchMessage(drainCtx)
		cancel()
		if err != nil {
			break
		}
		msgs = append(msgs, msg)
	}

	events := make([]model.RawPOSEvent, 0, len(msgs))
	for _, m := range msgs {
		events = append(events, model.RawPOSEvent{
			Body:            m.Value,
			EnqueuedTimeUTC: m.Time.UTC(),
		})
	}

	return events, msgs, nil
}
