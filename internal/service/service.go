// Package service реализует бизнес-логику сервиса оформления заказов.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ventusgt/checkout-system/internal/catalog"
	"github.com/ventusgt/checkout-system/internal/checkout"
	"github.com/ventusgt/checkout-system/internal/coupon"
	"github.com/ventusgt/checkout-system/internal/model"
	"github.com/ventusgt/checkout-system/internal/payapi"
	"github.com/ventusgt/checkout-system/internal/pixel"
	"github.com/ventusgt/checkout-system/internal/repository"
)

// ReceiptStore описывает контракт хранения квитанций, используемый сервисом.
type ReceiptStore interface {
	Close() error
	SaveReceipt(ctx context.Context, sessionID string, r model.Receipt) error
	TakeReceipt(ctx context.Context, sessionID string) (model.Receipt, error)
}

// CheckoutAPI описывает контракт внешнего сервиса оформления.
type CheckoutAPI interface {
	SubmitOrder(ctx context.Context, order payapi.OrderRequest) (string, error)
	ShippingQuote(ctx context.Context, sku, department string) (*payapi.Quote, error)
}

// Tracker описывает контракт отправки событий аналитики.
type Tracker interface {
	Track(ctx context.Context, e pixel.Event)
}

// Service содержит бизнес-логику сервиса оформления заказов.
type Service struct {
	store    ReceiptStore
	api      CheckoutAPI
	tracker  Tracker
	sessions *checkout.Manager
	coupons  coupon.Resolver
}

// NewService создаёт сервис с указанными зависимостями. Tracker может
// быть nil-клиентом: отправка событий тогда пропускается.
func NewService(store ReceiptStore, api CheckoutAPI, tracker Tracker, sessions *checkout.Manager, coupons coupon.Resolver) *Service {
	return &Service{
		store:    store,
		api:      api,
		tracker:  tracker,
		sessions: sessions,
		coupons:  coupons,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// CatalogItem — товар каталога вместе с его подарочными SKU.
type CatalogItem struct {
	SKU       string   `json:"sku"`
	Name      string   `json:"name"`
	UnitPrice int64    `json:"unit_price"`
	Addons    []string `json:"addons,omitempty"`
}

// Catalog возвращает каталог товаров в витринном порядке.
func (s *Service) Catalog() []CatalogItem {
	products := catalog.List()
	out := make([]CatalogItem, 0, len(products))
	for _, p := range products {
		out = append(out, CatalogItem{
			SKU:       p.SKU,
			Name:      p.Name,
			UnitPrice: p.UnitPrice,
			Addons:    catalog.Addons(p.SKU),
		})
	}
	return out
}

// CreateSession создаёт сессию оформления для товара. Неизвестный SKU —
// фатальная для текущего потока ошибка: форма не создаётся.
func (s *Service) CreateSession(ctx context.Context, sku string, quantity int) (*checkout.Session, error) {
	product, err := catalog.Lookup(sku)
	if err != nil {
		return nil, err
	}

	addonSKUs := catalog.Addons(sku)
	addons := make([]model.Product, 0, len(addonSKUs))
	for _, a := range addonSKUs {
		p, err := catalog.Lookup(a)
		if err != nil {
			return nil, fmt.Errorf("addon %s: %w", a, err)
		}
		addons = append(addons, p)
	}

	sess := s.sessions.Create(product, addons, quantity)

	s.fire(pixel.Event{
		Name:        pixel.EventAddToCart,
		ContentIDs:  []string{product.SKU},
		ContentName: product.Name,
		ContentType: "product",
		Value:       product.UnitPrice,
	})
	s.fire(pixel.Event{
		Name:       pixel.EventInitiateCheckout,
		ContentIDs: []string{product.SKU},
		Value:      sess.Breakdown().Total,
		NumItems:   sess.Draft().Quantity,
	})

	return sess, nil
}

// Session возвращает активную сессию по идентификатору.
func (s *Service) Session(id string) (*checkout.Session, bool) {
	return s.sessions.Get(id)
}

// Dispose закрывает сессию оформления.
func (s *Service) Dispose(id string) {
	s.sessions.Dispose(id)
}

// ApplyCoupon распознаёт код и применяет купон к сессии. Нераспознанный
// код возвращается как ошибка, а не как нулевая скидка.
func (s *Service) ApplyCoupon(sess *checkout.Session, code string) error {
	c, err := s.coupons.Resolve(code)
	if err != nil {
		return err
	}
	return sess.ApplyCoupon(c)
}

// QuoteResult — результат запроса стоимости доставки для отображения.
type QuoteResult struct {
	Shipping int64 `json:"shipping"`
	Total    int64 `json:"total"`
	Fallback bool  `json:"fallback"`
}

// Quote запрашивает стоимость доставки у внешнего сервиса. Отказ сервиса
// не блокирует покупателя: возвращается локальный расчёт без доставки.
func (s *Service) Quote(ctx context.Context, sess *checkout.Session) QuoteResult {
	d := sess.Draft()
	b := sess.Breakdown()

	if s.api != nil && d.Address.Department != "" {
		if q, err := s.api.ShippingQuote(ctx, d.SKU, d.Address.Department); err == nil {
			return QuoteResult{Shipping: q.Shipping, Total: q.Total}
		}
	}

	return QuoteResult{Shipping: 0, Total: b.AfterDiscount, Fallback: true}
}

// Submit проводит отправку заказа: валидация, единственный вызов
// внешнего сервиса, запись квитанции из того же расчёта, что видел
// покупатель, и переход к перенаправлению на оплату.
func (s *Service) Submit(ctx context.Context, sess *checkout.Session) (string, error) {
	draft, breakdown, err := sess.BeginSubmit()
	if err != nil {
		return "", err
	}

	order := payapi.OrderRequest{
		SKU:           draft.SKU,
		Quantity:      draft.Quantity,
		Name:          draft.Name,
		Email:         draft.Email,
		Phone:         draft.Phone,
		Address:       draft.Address,
		NIT:           draft.NIT,
		DeliveryNotes: draft.DeliveryNotes,
		Addons:        sess.Addons(),
	}
	if draft.Coupon != nil {
		order.CouponCode = draft.Coupon.Code
	}

	checkoutURL, err := s.api.SubmitOrder(ctx, order)
	if err != nil {
		sess.FinishSubmit(false, failureMessage(err))
		return "", err
	}

	receipt := model.Receipt{
		ID:             uuid.NewString(),
		SKU:            draft.SKU,
		ProductName:    sess.Product().Name,
		Quantity:       draft.Quantity,
		Total:          breakdown.Total,
		Subtotal:       breakdown.Subtotal,
		Discount:       breakdown.Discount,
		Shipping:       breakdown.Shipping,
		ShippingWaived: breakdown.FreeShipping,
		CouponCode:     order.CouponCode,
		Addons:         sess.Addons(),
		CreatedAt:      time.Now(),
	}

	if err := s.store.SaveReceipt(ctx, sess.ID(), receipt); err != nil {
		sess.FinishSubmit(false, payapi.FallbackMessage)
		return "", fmt.Errorf("save receipt: %w", err)
	}

	if !sess.FinishSubmit(true, "") {
		// Сессию закрыли, пока ответ был в пути: квитанция не должна пережить форму.
		_, _ = s.store.TakeReceipt(ctx, sess.ID())
		return "", checkout.ErrDisposed
	}

	return checkoutURL, nil
}

// Confirm читает и удаляет квитанцию сессии. Отсутствие квитанции —
// не ошибка: подтверждать нечего, возвращается nil. Событие покупки
// отправляется ровно один раз — при первом успешном чтении.
func (s *Service) Confirm(ctx context.Context, sessionID string) (*model.Receipt, error) {
	r, err := s.store.TakeReceipt(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrReceiptNotFound) {
			return nil, nil
		}
		return nil, err
	}

	s.fire(pixel.Event{
		Name:        pixel.EventPurchase,
		ContentIDs:  []string{r.SKU},
		ContentName: r.ProductName,
		ContentType: "product",
		Value:       r.Total,
		NumItems:    r.Quantity,
	})

	return &r, nil
}

// fire отправляет событие аналитики, не задерживая основной поток.
func (s *Service) fire(e pixel.Event) {
	if s.tracker == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		s.tracker.Track(ctx, e)
	}()
}

// failureMessage извлекает текст отказа для показа пользователю.
func failureMessage(err error) string {
	var apiErr *payapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return payapi.FallbackMessage
}
