// Package model содержит доменные сущности системы оформления заказов VENTUS.
package model

import "time"

// Product описывает товар каталога с ценой в целых кетцалях.
type Product struct {
	SKU       string
	Name      string
	UnitPrice int64
}

// CouponKind описывает тип скидки купона.
type CouponKind string

const (
	CouponPercent      CouponKind = "percent"
	CouponFreeShipping CouponKind = "free_shipping"
)

// Coupon представляет успешно распознанный купон.
// Percent заполняется только для типа CouponPercent.
type Coupon struct {
	Code    string
	Kind    CouponKind
	Percent int64
}

// Address содержит поля адреса доставки.
type Address struct {
	Line1        string `json:"line1"`
	Zone         string `json:"zone"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	Department   string `json:"department"`
}

// NITFinal — значение налогового идентификатора для покупателя без NIT
// («consumidor final»).
const NITFinal = "CF"

// Границы допустимого количества товара в заказе.
const (
	MinQuantity = 1
	MaxQuantity = 10
)

// OrderDraft — изменяемое состояние одной попытки оформления заказа.
type OrderDraft struct {
	SKU           string
	Quantity      int
	Coupon        *Coupon
	Name          string
	Email         string
	Phone         string
	Address       Address
	NIT           string
	DeliveryNotes string
}

// Breakdown — результат расчёта стоимости заказа. Все суммы в целых кетцалях.
type Breakdown struct {
	UnitPrice     int64 `json:"unit_price"`
	Subtotal      int64 `json:"subtotal"`
	Discount      int64 `json:"discount"`
	AfterDiscount int64 `json:"after_discount"`
	Shipping      int64 `json:"shipping"`
	Total         int64 `json:"total"`
	FreeShipping  bool  `json:"free_shipping"`
}

// Receipt — снимок заказа, сохраняемый перед перенаправлением на оплату
// и потребляемый страницей подтверждения строго один раз.
type Receipt struct {
	ID             string    `json:"id"`
	SKU            string    `json:"sku"`
	ProductName    string    `json:"product_name"`
	Quantity       int       `json:"quantity"`
	Total          int64     `json:"total"`
	Subtotal       int64     `json:"subtotal"`
	Discount       int64     `json:"discount"`
	Shipping       int64     `json:"shipping"`
	ShippingWaived bool      `json:"shipping_waived"`
	CouponCode     string    `json:"coupon_code,omitempty"`
	Addons         []string  `json:"addons,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// SessionState описывает состояние сессии оформления заказа.
type SessionState string

const (
	StateEditing     SessionState = "editing"
	StateReady       SessionState = "ready"
	StateSubmitting  SessionState = "submitting"
	StateRedirecting SessionState = "redirecting"
	StateFailed      SessionState = "failed"
	StateDisposed    SessionState = "disposed"
)
