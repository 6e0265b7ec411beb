// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/starfruit-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrRatingNotFound возвращается, если оценка не найдена.
var ErrRatingNotFound = errors.New("rating not found")

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// SaveOrderDocument сохраняет документ заказа. Документы только добавляются,
// путей обновления нет; повтор группы даёт дубликат, а не конфликт.
func (r *PostgresRepository) SaveOrderDocument(ctx context.Context, doc model.OrderDocument) error {
	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO order_documents (id, group_key, payload, received_at) VALUES ($1, $2, $3, $4)`,
			doc.ID, doc.GroupKey, doc.Payload, doc.ReceivedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order document: %w", err)
		}
		return nil
	})
}

// SavePOSEventDocument сохраняет документ POS-события.
func (r *PostgresRepository) SavePOSEventDocument(ctx context.Context, doc model.POSEventDocument) error {
	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO pos_event_documents (id, sales_number, location_id, enqueued_at, payload)
			 VALUES ($1, $2, $3, $4, $5)`,
			doc.ID, doc.SalesNumber, doc.LocationID, doc.EnqueuedAt, doc.Payload,
		)
		if err != nil {
			return fmt.Errorf("insert pos event document: %w", err)
		}
		return nil
	})
}

// SaveHighValueReceipt сохраняет чек выше порога стоимости вместе с изображением.
func (r *PostgresRepository) SaveHighValueReceipt(ctx context.Context, rec model.HighValueReceiptRecord) error {
	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO receipts_high_value
			 (store_location, sales_number, sales_date, total_cost, total_items, receipt_url, receipt_image)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.StoreLocation, rec.SalesNumber, rec.SalesDate,
			rec.TotalCostCents, rec.TotalItems, rec.ReceiptURL, rec.ReceiptImage,
		)
		if err != nil {
			return fmt.Errorf("insert high-value receipt: %w", err)
		}
		return nil
	})
}

// SaveGeneralReceipt сохраняет общий чек без изображения.
func (r *PostgresRepository) SaveGeneralReceipt(ctx context.Context, rec model.GeneralReceiptRecord) error {
	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO receipts_general
			 (store_location, sales_number, sales_date, total_cost, total_items, receipt_url)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			rec.StoreLocation, rec.SalesNumber, rec.SalesDate,
			rec.TotalCostCents, rec.TotalItems, rec.ReceiptURL,
		)
		if err != nil {
			return fmt.Errorf("insert general receipt: %w", err)
		}
		return nil
	})
}

// CreateRating сохраняет оценку с уже назначенными идентификатором и меткой времени.
func (r *PostgresRepository) CreateRating(ctx context.Context, rating model.Rating) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ratings (id, user_id, product_id, ts, location_name, rating, user_notes, sentiment_score)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rating.ID, rating.UserID, rating.ProductID, rating.Timestamp,
		rating.LocationName, rating.Rating, rating.UserNotes, rating.SentimentScore,
	)
	if err != nil {
		return fmt.Errorf("insert rating: %w", err)
	}
	return nil
}

// GetRating возвращает оценку по идентификатору.
func (r *PostgresRepository) GetRating(ctx context.Context, id string) (*model.Rating, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, product_id, ts, location_name, rating, user_notes, sentiment_score
		 FROM ratings WHERE id = $1`,
		id,
	)

	var rating model.Rating
	err := row.Scan(&rating.ID, &rating.UserID, &rating.ProductID, &rating.Timestamp,
		&rating.LocationName, &rating.Rating, &rating.UserNotes, &rating.SentimentScore)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRatingNotFound
		}
		return nil, fmt.Errorf("get rating: %w", err)
	}

	return &rating, nil
}
