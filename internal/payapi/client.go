// Package payapi предоставляет клиент внешнего сервиса оформления и доставки.
package payapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ventusgt/checkout-system/internal/model"
)

// FallbackMessage показывается пользователю, когда сервис не сообщил деталей.
const FallbackMessage = "No pudimos procesar tu pedido. Intenta de nuevo."

// Client инкапсулирует HTTP-взаимодействие с внешним сервисом оформления.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// OrderRequest — тело запроса на оформление заказа.
type OrderRequest struct {
	SKU           string        `json:"sku"`
	Quantity      int           `json:"quantity"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone"`
	Address       model.Address `json:"address"`
	NIT           string        `json:"nit"`
	DeliveryNotes string        `json:"delivery_notes"`
	Addons        []string      `json:"addons"`
	CouponCode    string        `json:"coupon_code"`
}

// Quote — ответ сервиса на запрос стоимости доставки.
type Quote struct {
	Shipping int64 `json:"shipping"`
	Total    int64 `json:"total"`
}

// Error описывает отказ внешнего сервиса с текстом для пользователя.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("checkout api: status %d: %s", e.StatusCode, e.Message)
}

// NewClient создаёт клиент внешнего сервиса по указанному адресу.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (c *Client) url(path string) string {
	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return base + path
}

// SubmitOrder отправляет заказ и возвращает URL страницы оплаты.
// При отказе сервиса возвращается *Error с текстом из ответа:
// details объединяются через «; », иначе берётся error, иначе
// FallbackMessage. Успешный ответ без URL также считается отказом.
func (c *Client) SubmitOrder(ctx context.Context, order OrderRequest) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", fmt.Errorf("checkout api client not configured")
	}

	body, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/orders"), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{
			StatusCode: resp.StatusCode,
			Message:    decodeFailure(resp),
		}
	}

	var result struct {
		CheckoutURL string `json:"checkout_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &Error{StatusCode: resp.StatusCode, Message: FallbackMessage}
	}

	if strings.TrimSpace(result.CheckoutURL) == "" {
		return "", &Error{StatusCode: resp.StatusCode, Message: FallbackMessage}
	}

	return result.CheckoutURL, nil
}

// ShippingQuote запрашивает стоимость доставки для SKU и департамента.
func (c *Client) ShippingQuote(ctx context.Context, sku, department string) (*Quote, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("checkout api client not configured")
	}

	body, err := json.Marshal(map[string]string{
		"sku":        sku,
		"department": department,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal quote request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/shipping-quote"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var q Quote
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}

	return &q, nil
}

func decodeFailure(resp *http.Response) string {
	var failure struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&failure); err != nil {
		return FallbackMessage
	}

	if len(failure.Details) > 0 {
		return strings.Join(failure.Details, "; ")
	}
	if failure.Error != "" {
		return failure.Error
	}
	return FallbackMessage
}
