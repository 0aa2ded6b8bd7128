// Package pixel предоставляет клиент для отправки событий аналитики.
//
// События отправляются по принципу «выстрелил и забыл»: сбой доставки
// логируется и никогда не влияет на ход оформления заказа.
package pixel

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Названия событий аналитики.
const (
	EventPageView         = "PageView"
	EventViewContent      = "ViewContent"
	EventAddToCart        = "AddToCart"
	EventInitiateCheckout = "InitiateCheckout"
	EventPurchase         = "Purchase"
)

// Event — полезная нагрузка события аналитики.
type Event struct {
	Name        string   `json:"name"`
	ContentIDs  []string `json:"content_ids,omitempty"`
	ContentName string   `json:"content_name,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
	Value       int64    `json:"value"`
	Currency    string   `json:"currency"`
	NumItems    int      `json:"num_items,omitempty"`
}

// Client отправляет события аналитики на внешний приёмник.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient создаёт клиент приёмника событий по указанному адресу.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 3 * time.Second,
		},
		logger: logger,
	}
}

// Track отправляет одно событие. Метод безопасен для nil-клиента и
// никогда не возвращает ошибку вызывающему.
func (c *Client) Track(ctx context.Context, e Event) {
	if c == nil || c.baseURL == "" {
		return
	}

	if e.Currency == "" {
		e.Currency = "GTQ"
	}

	body, err := json.Marshal(e)
	if err != nil {
		c.logger.Warn("pixel event marshal failed", zap.String("event", e.Name), zap.Error(err))
		return
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/events", bytes.NewReader(body))
	if err != nil {
		c.logger.Warn("pixel event request failed", zap.String("event", e.Name), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("pixel event send failed", zap.String("event", e.Name), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("pixel event rejected",
			zap.String("event", e.Name),
			zap.Int("status", resp.StatusCode),
		)
	}
}
