// Package service реализует бизнес-логику обогащения оценок.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/starfruit-system/internal/metrics"
	"github.com/mmeshcher/starfruit-system/internal/model"
)

// ErrRatingRejected возвращается, когда пользователь или продукт не прошли проверку.
var ErrRatingRejected = errors.New("rating rejected")

// Validator описывает контракт проверки существования пользователей и продуктов.
type Validator interface {
	IsUserValid(ctx context.Context, userID string) (bool, error)
	IsProductValid(ctx context.Context, productID string) (bool, error)
	GetProductName(ctx context.Context, productID string) (string, error)
}

// Scorer описывает контракт сервиса оценки тональности.
type Scorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// Ratings описывает контракт хранилища оценок.
type Ratings interface {
	CreateRating(ctx context.Context, rating model.Rating) error
	GetRating(ctx context.Context, id string) (*model.Rating, error)
}

// Publisher описывает контракт публикации событий обогащения.
type Publisher interface {
	Publish(ctx context.Context, ev model.RatingEnrichment) error
}

// Service содержит бизнес-логику обогащения оценок.
type Service struct {
	ratings   Ratings
	validator Validator
	scorer    Scorer
	publisher Publisher
	logger    *zap.Logger
	registry  *metrics.Registry
}

// NewService создаёт сервис обогащения оценок.
// publisher может быть nil, если выходной поток не настроен.
func NewService(ratings Ratings, validator Validator, scorer Scorer, publisher Publisher, logger *zap.Logger, registry *metrics.Registry) *Service {
	return &Service{
		ratings:   ratings,
		validator: validator,
		scorer:    scorer,
		publisher: publisher,
		logger:    logger,
		registry:  registry,
	}
}

// CreateRating проводит оценку через проверку пользователя и продукта,
// оценку тональности заметок и сохранение. Идентификатор и метка времени
// назначаются только после успешных проверок; при отклонении записей нет.
// Недоступность сервиса валидации трактуется как «невалидно».
func (s *Service) CreateRating(ctx context.Context, rating model.Rating) (*model.Rating, error) {
	userValid, err := s.validator.IsUserValid(ctx, rating.UserID)
	if err != nil {
		s.logger.Warn("user validation unavailable", zap.String("userId", rating.UserID), zap.Error(err))
		userValid = false
	}

	productValid, err := s.validator.IsProductValid(ctx, rating.ProductID)
	if err != nil {
		s.logger.Warn("product validation unavailable", zap.String("productId", rating.ProductID), zap.Error(err))
		productValid = false
	}

	if !userValid || !productValid {
		if s.registry != nil {
			s.registry.RatingsRejected.Inc()
		}
		return nil, fmt.Errorf("%w: userValid=%v productValid=%v", ErrRatingRejected, userValid, productValid)
	}

	score, err := s.scorer.Score(ctx, rating.UserNotes)
	if err != nil {
		return nil, fmt.Errorf("score user notes: %w", err)
	}
	rating.SentimentScore = score

	rating.ID = uuid.NewString()
	rating.Timestamp = formatTimestamp(time.Now())

	if err := s.ratings.CreateRating(ctx, rating); err != nil {
		return nil, fmt.Errorf("create rating: %w", err)
	}

	if s.registry != nil {
		s.registry.RatingsCreated.Inc()
	}

	s.publishEnrichment(ctx, rating)

	return &rating, nil
}

// publishEnrichment публикует событие обогащения после сохранения оценки.
// Оценка уже сохранена, поэтому сбой публикации логируется и не отменяет запрос.
func (s *Service) publishEnrichment(ctx context.Context, rating model.Rating) {
	if s.publisher == nil {
		return
	}

	productName, err := s.validator.GetProductName(ctx, rating.ProductID)
	if err != nil {
		s.logger.Warn("product name lookup failed", zap.String("productId", rating.ProductID), zap.Error(err))
	}

	ev := model.RatingEnrichment{
		ProductID:      rating.ProductID,
		ProductName:    productName,
		SentimentScore: rating.SentimentScore,
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Error("publish enrichment failed", zap.String("ratingId", rating.ID), zap.Error(err))
	}
}

// GetRating возвращает сохранённую оценку по идентификатору.
func (s *Service) GetRating(ctx context.Context, id string) (*model.Rating, error) {
	return s.ratings.GetRating(ctx, id)
}

// formatTimestamp воспроизводит формат yyyyMMddHHmmssfff исходного API.
func formatTimestamp(t time.Time) string {
	return strings.Replace(t.Format("20060102150405.000"), ".", "", 1)
}
