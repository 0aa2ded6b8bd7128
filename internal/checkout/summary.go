package checkout

import (
	"fmt"

	"github.com/ventusgt/checkout-system/internal/model"
)

// SummaryItem — строка состава заказа.
type SummaryItem struct {
	SKU   string `json:"sku"`
	Name  string `json:"name"`
	Addon bool   `json:"addon,omitempty"`
}

// Summary — модель представления сводки заказа. Строка скидки
// присутствует только при ненулевой скидке; доставка показывается
// словом «Gratis», когда она бесплатна.
type Summary struct {
	State         model.SessionState `json:"state"`
	Items         []SummaryItem      `json:"items"`
	UnitPrice     int64              `json:"unit_price"`
	Quantity      int                `json:"quantity"`
	DiscountLine  *DiscountLine      `json:"discount,omitempty"`
	ShippingLabel string             `json:"shipping_label"`
	Shipping      int64              `json:"shipping"`
	Total         int64              `json:"total"`
	CouponCode    string             `json:"coupon_code,omitempty"`
	LastError     string             `json:"last_error,omitempty"`
}

// DiscountLine — строка скидки в сводке заказа.
type DiscountLine struct {
	Code   string `json:"code"`
	Amount int64  `json:"amount"`
}

// Summary строит модель представления по текущему состоянию сессии.
// Подарочные товары входят в состав, но не в арифметику цены.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]SummaryItem, 0, 1+len(s.addons))
	items = append(items, SummaryItem{SKU: s.product.SKU, Name: s.product.Name})
	for _, a := range s.addons {
		items = append(items, SummaryItem{SKU: a.SKU, Name: a.Name, Addon: true})
	}

	out := Summary{
		State:         s.state,
		Items:         items,
		UnitPrice:     s.breakdown.UnitPrice,
		Quantity:      s.draft.Quantity,
		Shipping:      s.breakdown.Shipping,
		ShippingLabel: shippingLabel(s.breakdown.Shipping),
		Total:         s.breakdown.Total,
		LastError:     s.lastError,
	}

	if s.draft.Coupon != nil {
		out.CouponCode = s.draft.Coupon.Code
	}
	if s.breakdown.Discount > 0 {
		out.DiscountLine = &DiscountLine{
			Code:   out.CouponCode,
			Amount: s.breakdown.Discount,
		}
	}

	return out
}

func shippingLabel(shipping int64) string {
	if shipping == 0 {
		return "Gratis"
	}
	return fmt.Sprintf("Q%d", shipping)
}
