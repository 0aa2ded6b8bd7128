// Package pricing содержит чистый расчёт стоимости заказа.
package pricing

import "github.com/ventusgt/checkout-system/internal/model"

// Terms задаёт тарифные константы доставки. Значения приходят из
// конфигурации, а не из кода.
type Terms struct {
	FreeShippingThreshold int64
	FlatShippingRate      int64
}

// Compute рассчитывает разбивку стоимости заказа.
//
// Скидка в процентах округляется до целого кетцаля по правилу
// «половина вверх» — одно и то же правило применяется при любом
// количестве товара. Купон бесплатной доставки не даёт денежной
// скидки, но обнуляет доставку независимо от порога. Подарочные
// товары в расчёте не участвуют: они входят в состав заказа, но не
// в его цену.
//
// Функция чистая: повторный вызов с теми же аргументами возвращает
// тот же результат.
func Compute(product model.Product, quantity int, c *model.Coupon, terms Terms) model.Breakdown {
	subtotal := product.UnitPrice * int64(quantity)

	var discount int64
	freeShipping := false

	if c != nil {
		switch c.Kind {
		case model.CouponPercent:
			discount = roundHalfUp(subtotal*c.Percent, 100)
			if discount > subtotal {
				discount = subtotal
			}
		case model.CouponFreeShipping:
			freeShipping = true
		}
	}

	afterDiscount := subtotal - discount

	var shipping int64
	if !freeShipping && afterDiscount < terms.FreeShippingThreshold {
		shipping = terms.FlatShippingRate
	}

	return model.Breakdown{
		UnitPrice:     product.UnitPrice,
		Subtotal:      subtotal,
		Discount:      discount,
		AfterDiscount: afterDiscount,
		Shipping:      shipping,
		Total:         afterDiscount + shipping,
		FreeShipping:  shipping == 0,
	}
}

// roundHalfUp делит num на den с округлением «половина вверх».
func roundHalfUp(num, den int64) int64 {
	return (num + den/2) / den
}
