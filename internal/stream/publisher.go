// Package stream публикует события обогащения оценок в выходной поток.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"

	"github.com/mmeshcher/starfruit-system/internal/model"
)

// messageWriter абстрагирует kafka.Writer для тестируемости.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher публикует события обогащения в Kafka с ограниченными повторами.
type Publisher struct {
	writer messageWriter
}

// NewPublisher создаёт издателя событий обогащения.
// bootstrap — список адресов брокеров через запятую.
func NewPublisher(bootstrap, topic string) *Publisher {
	var brokers []string
	for _, a := range strings.Split(bootstrap, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			brokers = append(brokers, a)
		}
	}

	return &Publisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}}
}

// NewPublisherWith нужен только тестам для подмены writer.
func NewPublisherWith(w messageWriter) *Publisher {
	return &Publisher{writer: w}
}

// Close закрывает соединение с брокерами, если writer поддерживает закрытие.
func (p *Publisher) Close() error {
	if c, ok := p.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Publish отправляет событие обогащения с ключом по идентификатору продукта.
func (p *Publisher) Publish(ctx context.Context, ev model.RatingEnrichment) error {
	b, err := json.Marshal(&ev)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(100*time.Millisecond))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		writeErr := p.writer.WriteMessages(ctx,
			kafka.Message{Key: []byte(ev.ProductID), Value: b},
		)
		if writeErr != nil {
			return retry.RetryableError(writeErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish enrichment: %w", err)
	}

	return nil
}
