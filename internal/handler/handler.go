// Package handler содержит HTTP-обработчики API конвейера StarFruit.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/starfruit-system/internal/middleware"
	"github.com/mmeshcher/starfruit-system/internal/model"
	"github.com/mmeshcher/starfruit-system/internal/repository"
	"github.com/mmeshcher/starfruit-system/internal/service"
	"github.com/mmeshcher/starfruit-system/internal/staging"
)

// maxStagedFileSize ограничивает размер загружаемого staged-файла.
const maxStagedFileSize = 50 << 20

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CreateRating(ctx context.Context, rating model.Rating) (*model.Rating, error)
	GetRating(ctx context.Context, id string) (*model.Rating, error)
}

// Handler реализует HTTP-обработчики API конвейера StarFruit.
type Handler struct {
	service        Service
	staging        staging.Store
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	metricsHandler http.Handler
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, store staging.Store, logger *zap.Logger, auth *middleware.AuthMiddleware, metricsHandler http.Handler) *Handler {
	return &Handler{
		service:        s,
		staging:        store,
		logger:         logger,
		authMiddleware: auth,
		metricsHandler: metricsHandler,
	}
}

type ratingRequest struct {
	UserID       string `json:"userId"`
	ProductID    string `json:"productId"`
	LocationName string `json:"locationName"`
	Rating       int    `json:"rating"`
	UserNotes    string `json:"userNotes"`
}

// CreateRating принимает оценку продукта, проводит её через обогащение и
// возвращает сохранённую запись.
func (h *Handler) CreateRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.UserID == "" || req.ProductID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Rating < 0 || req.Rating > 5 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	rating, err := h.service.CreateRating(r.Context(), model.Rating{
		UserID:       req.UserID,
		ProductID:    req.ProductID,
		LocationName: req.LocationName,
		Rating:       req.Rating,
		UserNotes:    req.UserNotes,
	})
	if err != nil {
		if errors.Is(err, service.ErrRatingRejected) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.logger.Error("create rating error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rating); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// GetRating возвращает сохранённую оценку по идентификатору.
func (h *Handler) GetRating(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rating, err := h.service.GetRating(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrRatingNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get rating error", zap.Error(err), zap.String("id", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rating); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// UploadStagedFile сохраняет файл выгрузки транзакции в staging-хранилище.
// Имя обязано содержать разделитель ключа группы.
func (h *Handler) UploadStagedFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if !strings.Contains(name, model.GroupSeparator) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxStagedFileSize))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.staging.Put(r.Context(), name, body); err != nil {
		h.logger.Error("staged file upload error", zap.Error(err), zap.String("name", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Health сообщает о готовности сервиса.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
