// Package repository содержит хранилища квитанций заказов.
//
// Квитанция хранится в одном именованном слоте на сессию: запись
// перед перенаправлением на оплату, атомарное чтение-с-удалением при
// подтверждении покупки.
package repository

import "errors"

// ErrReceiptNotFound возвращается, когда в слоте сессии нет квитанции.
var ErrReceiptNotFound = errors.New("receipt not found")
