// Package model содержит доменные сущности конвейера StarFruit.
package model

import (
	"encoding/json"
	"time"
)

// FileKind описывает тип файла в группе выгрузки одной транзакции.
type FileKind string

const (
	FileKindHeader      FileKind = "OrderHeaderDetails"
	FileKindLineItems   FileKind = "OrderLineItems"
	FileKindProductInfo FileKind = "ProductInformation"
)

// GroupSeparator разделяет ключ группы и тип файла в имени объекта.
const GroupSeparator = "-"

// StagedFile описывает объект в staging-хранилище до комбинирования.
type StagedFile struct {
	Name     string
	GroupKey string
}

// FileGroup описывает набор staged-файлов одной транзакции.
type FileGroup struct {
	GroupKey string
	Members  []string
	Complete bool
}

// OrderDocument хранит одну транзакцию, полученную от сервиса комбинирования.
// Документ неизменяем после записи.
type OrderDocument struct {
	ID         string
	GroupKey   string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// RawPOSEvent описывает одно сообщение из входящего потока POS-событий.
type RawPOSEvent struct {
	Body            []byte
	EnqueuedTimeUTC time.Time
}

// POSHeader содержит заголовок чека из POS-события.
type POSHeader struct {
	ReceiptURL  string `json:"receiptUrl"`
	LocationID  string `json:"locationId"`
	DateTime    string `json:"dateTime"`
	SalesNumber string `json:"salesNumber"`
	TotalCost   string `json:"totalCost"`
}

// POSDetail содержит одну позицию чека.
type POSDetail struct {
	ProductID          string `json:"productId"`
	Quantity           int    `json:"quantity"`
	ProductDescription string `json:"productDescription"`
	UnitCost           string `json:"unitCost"`
	TotalCost          string `json:"totalCost"`
}

// ParsedPOSEvent — результат восстановления и разбора POS-события.
type ParsedPOSEvent struct {
	Header  POSHeader   `json:"header"`
	Details []POSDetail `json:"details"`
}

// POSEventDocument хранит успешно разобранное POS-событие.
type POSEventDocument struct {
	ID          string
	SalesNumber string
	LocationID  string
	EnqueuedAt  time.Time
	Payload     json.RawMessage
}

// ReceiptSummary — сводка чека, производная от разобранного POS-события.
type ReceiptSummary struct {
	StoreLocation  string `json:"storeLocation"`
	SalesNumber    string `json:"salesNumber"`
	SalesDate      string `json:"salesDate"`
	TotalCostCents int64  `json:"totalCostCents"`
	TotalItems     int    `json:"totalItems"`
	ReceiptURL     string `json:"receiptUrl"`
}

// HighValueReceiptRecord — чек выше порога стоимости с вложенным изображением.
type HighValueReceiptRecord struct {
	ReceiptSummary
	ReceiptImage string `json:"receiptImage"`
}

// GeneralReceiptRecord — чек на уровне порога или ниже, без изображения.
type GeneralReceiptRecord struct {
	ReceiptSummary
}

// Rating описывает оценку продукта пользователем.
// ID и Timestamp назначаются только после успешной валидации.
type Rating struct {
	ID             string  `json:"id"`
	UserID         string  `json:"userId"`
	ProductID      string  `json:"productId"`
	Timestamp      string  `json:"timestamp"`
	LocationName   string  `json:"locationName"`
	Rating         int     `json:"rating"`
	UserNotes      string  `json:"userNotes"`
	SentimentScore float64 `json:"sentimentScore"`
}

// RatingEnrichment — событие обогащения, публикуемое после сохранения оценки.
type RatingEnrichment struct {
	ProductID      string  `json:"productId"`
	ProductName    string  `json:"productName"`
	SentimentScore float64 `json:"sentimentScore"`
}
