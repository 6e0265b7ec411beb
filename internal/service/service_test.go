package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/starfruit-system/internal/model"
	"github.com/mmeshcher/starfruit-system/internal/repository"
)

type stubValidator struct {
	userValid    bool
	userErr      error
	productValid bool
	productErr   error
	productName  string
	nameErr      error
}

func (s *stubValidator) IsUserValid(ctx context.Context, userID string) (bool, error) {
	return s.userValid, s.userErr
}

func (s *stubValidator) IsProductValid(ctx context.Context, productID string) (bool, error) {
	return s.productValid, s.productErr
}

func (s *stubValidator) GetProductName(ctx context.Context, productID string) (string, error) {
	return s.productName, s.nameErr
}

type stubScorer struct {
	score float64
	err   error
}

func (s *stubScorer) Score(ctx context.Context, text string) (float64, error) {
	return s.score, s.err
}

type stubRatings struct {
	created   []model.Rating
	createErr error

	stored *model.Rating
	getErr error
}

func (s *stubRatings) CreateRating(ctx context.Context, rating model.Rating) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, rating)
	return nil
}

func (s *stubRatings) GetRating(ctx context.Context, id string) (*model.Rating, error) {
	return s.stored, s.getErr
}

type stubPublisher struct {
	events []model.RatingEnrichment
	err    error
}

func (s *stubPublisher) Publish(ctx context.Context, ev model.RatingEnrichment) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func inputRating() model.Rating {
	return model.Rating{
		UserID:       "cc20a6fb",
		ProductID:    "75542e38",
		LocationName: "Sample ice cream shop",
		Rating:       5,
		UserNotes:    "great experience",
	}
}

func TestCreateRating_HappyPath(t *testing.T) {
	validator := &stubValidator{userValid: true, productValid: true, productName: "Starfruit Explosion"}
	ratings := &stubRatings{}
	publisher := &stubPublisher{}

	svc := NewService(ratings, validator, &stubScorer{score: 0.87}, publisher, zap.NewNop(), nil)

	got, err := svc.CreateRating(context.Background(), inputRating())
	if err != nil {
		t.Fatalf("CreateRating error: %v", err)
	}

	if got.ID == "" {
		t.Fatalf("id must be assigned after validation")
	}
	if got.Timestamp == "" || len(got.Timestamp) != 17 {
		t.Fatalf("timestamp = %q, want yyyyMMddHHmmssfff", got.Timestamp)
	}
	if got.SentimentScore != 0.87 {
		t.Fatalf("sentimentScore = %f, want 0.87", got.SentimentScore)
	}

	if len(ratings.created) != 1 {
		t.Fatalf("persisted ratings = %d, want 1", len(ratings.created))
	}
	if len(publisher.events) != 1 {
		t.Fatalf("published events = %d, want 1", len(publisher.events))
	}
	ev := publisher.events[0]
	if ev.ProductID != "75542e38" || ev.ProductName != "Starfruit Explosion" || ev.SentimentScore != 0.87 {
		t.Fatalf("unexpected enrichment event: %+v", ev)
	}
}

func TestCreateRating_InvalidUserRejected(t *testing.T) {
	validator := &stubValidator{userValid: false, productValid: true}
	ratings := &stubRatings{}

	svc := NewService(ratings, validator, &stubScorer{}, nil, zap.NewNop(), nil)

	_, err := svc.CreateRating(context.Background(), inputRating())
	if !errors.Is(err, ErrRatingRejected) {
		t.Fatalf("expected ErrRatingRejected, got %v", err)
	}
	if len(ratings.created) != 0 {
		t.Fatalf("rejected rating must not be persisted")
	}
}

func TestCreateRating_ValidationUnavailableTreatedAsInvalid(t *testing.T) {
	validator := &stubValidator{userErr: errors.New("timeout"), productValid: true}
	ratings := &stubRatings{}

	svc := NewService(ratings, validator, &stubScorer{}, nil, zap.NewNop(), nil)

	_, err := svc.CreateRating(context.Background(), inputRating())
	if !errors.Is(err, ErrRatingRejected) {
		t.Fatalf("expected ErrRatingRejected, got %v", err)
	}
	if len(ratings.created) != 0 {
		t.Fatalf("no partial writes on validation failure")
	}
}

func TestCreateRating_ScoringFailure(t *testing.T) {
	validator := &stubValidator{userValid: true, productValid: true}
	ratings := &stubRatings{}

	svc := NewService(ratings, validator, &stubScorer{err: errors.New("service down")}, nil, zap.NewNop(), nil)

	_, err := svc.CreateRating(context.Background(), inputRating())
	if err == nil || errors.Is(err, ErrRatingRejected) {
		t.Fatalf("scoring failure must surface as an internal error, got %v", err)
	}
	if len(ratings.created) != 0 {
		t.Fatalf("no writes before successful scoring")
	}
}

func TestCreateRating_PublishFailureDoesNotFailRequest(t *testing.T) {
	validator := &stubValidator{userValid: true, productValid: true}
	ratings := &stubRatings{}
	publisher := &stubPublisher{err: errors.New("broker down")}

	svc := NewService(ratings, validator, &stubScorer{score: 0.5}, publisher, zap.NewNop(), nil)

	got, err := svc.CreateRating(context.Background(), inputRating())
	if err != nil {
		t.Fatalf("rating is already persisted, publish failure must not fail the call: %v", err)
	}
	if got == nil || len(ratings.created) != 1 {
		t.Fatalf("rating must be persisted")
	}
}

func TestGetRating(t *testing.T) {
	stored := &model.Rating{ID: "abc", UserID: "u"}
	svc := NewService(&stubRatings{stored: stored}, &stubValidator{}, &stubScorer{}, nil, zap.NewNop(), nil)

	got, err := svc.GetRating(context.Background(), "abc")
	if err != nil {
		t.Fatalf("GetRating error: %v", err)
	}
	if got.ID != "abc" {
		t.Fatalf("id = %q, want abc", got.ID)
	}

	svc = NewService(&stubRatings{getErr: repository.ErrRatingNotFound}, &stubValidator{}, &stubScorer{}, nil, zap.NewNop(), nil)
	if _, err := svc.GetRating(context.Background(), "missing"); !errors.Is(err, repository.ErrRatingNotFound) {
		t.Fatalf("expected ErrRatingNotFound, got %v", err)
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := formatTimestamp(time.Date(2026, 8, 30, 10, 15, 42, 123_000_000, time.UTC))
	if ts != "20260830101542123" {
		t.Fatalf("timestamp = %q, want 20260830101542123", ts)
	}
}
