// Package combine предоставляет клиент внешнего сервиса комбинирования заказов.
package combine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmeshcher/starfruit-system/internal/model"
)

// ErrCombineService возвращается при сетевой ошибке или не-2xx ответе сервиса
// комбинирования. Группа остаётся нетронутой и будет повторена следующим проходом.
var ErrCombineService = errors.New("combine service failure")

// Client инкапсулирует HTTP-взаимодействие с сервисом комбинирования.
type Client struct {
	baseURL    string
	stagingURL string
	httpClient *http.Client
}

// combineRequest — тело запроса с тремя каноническими URL исходных файлов группы.
type combineRequest struct {
	OrderHeaderDetailsCSVUrl string `json:"orderHeaderDetailsCSVUrl"`
	OrderLineItemsCSVUrl     string `json:"orderLineItemsCSVUrl"`
	ProductInformationCSVUrl string `json:"productInformationCSVUrl"`
}

// NewClient создаёт клиент сервиса комбинирования.
// stagingURL — базовый адрес staging-контейнера, из которого сервис читает файлы.
func NewClient(baseURL, stagingURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		stagingURL: strings.TrimRight(stagingURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SourceURLs возвращает три канонических URL файлов группы,
// получаемых подстановкой ключа группы в фиксированные шаблоны.
func (c *Client) SourceURLs(groupKey string) (header, lineItems, productInfo string) {
	header = fmt.Sprintf("%s/%s%s%s.csv", c.stagingURL, groupKey, model.GroupSeparator, model.FileKindHeader)
	lineItems = fmt.Sprintf("%s/%s%s%s.csv", c.stagingURL, groupKey, model.GroupSeparator, model.FileKindLineItems)
	productInfo = fmt.Sprintf("%s/%s%s%s.csv", c.stagingURL, groupKey, model.GroupSeparator, model.FileKindProductInfo)
	return header, lineItems, productInfo
}

// Combine выполняет один запрос комбинирования для полной группы и возвращает
// упорядоченный массив сырых записей транзакций.
func (c *Client) Combine(ctx context.Context, groupKey string) ([]json.RawMessage, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("combine client not configured")
	}

	header, lineItems, productInfo := c.SourceURLs(groupKey)

	body, err := json.Marshal(combineRequest{
		OrderHeaderDetailsCSVUrl: header,
		OrderLineItemsCSVUrl:     lineItems,
		ProductInformationCSVUrl: productInfo,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/combineOrderContent"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCombineService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrCombineService, resp.StatusCode)
	}

	var records []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: decode response: %s", ErrCombineService, err)
	}

	return records, nil
}
