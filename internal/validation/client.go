// Package validation предоставляет клиенты внешних сервисов проверки
// существования пользователей и продуктов.
package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrServiceUnavailable возвращается при недоступности сервиса валидации.
// Вызывающая сторона трактует её как «невалидно» и отклоняет запрос.
var ErrServiceUnavailable = errors.New("validation service unavailable")

// Client инкапсулирует HTTP-взаимодействие с сервисами валидации.
type Client struct {
	userBaseURL    string
	productBaseURL string
	httpClient     *http.Client
}

// NewClient создаёт клиент сервисов валидации пользователей и продуктов.
func NewClient(userBaseURL, productBaseURL string) *Client {
	return &Client{
		userBaseURL:    strings.TrimRight(userBaseURL, "/"),
		productBaseURL: strings.TrimRight(productBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// IsUserValid проверяет существование пользователя. Пользователь считается
// существующим, если тело ответа содержит его идентификатор.
func (c *Client) IsUserValid(ctx context.Context, userID string) (bool, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/api/GetUser?userId=%s", c.userBaseURL, url.QueryEscape(userID)))
	if err != nil {
		return false, err
	}
	return strings.Contains(string(body), userID), nil
}

// IsProductValid проверяет существование продукта по тому же правилу.
func (c *Client) IsProductValid(ctx context.Context, productID string) (bool, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/api/GetProduct?productId=%s", c.productBaseURL, url.QueryEscape(productID)))
	if err != nil {
		return false, err
	}
	return strings.Contains(string(body), productID), nil
}

// GetProductName возвращает имя продукта из ответа сервиса продуктов.
func (c *Client) GetProductName(ctx context.Context, productID string) (string, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/api/GetProduct?productId=%s", c.productBaseURL, url.QueryEscape(productID)))
	if err != nil {
		return "", err
	}

	var resp struct {
		ProductName string `json:"productName"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode product response: %w", err)
	}
	return resp.ProductName, nil
}

func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrServiceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
