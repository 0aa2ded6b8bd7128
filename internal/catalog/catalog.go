// Package catalog содержит статический каталог товаров VENTUS.
package catalog

import (
	"errors"

	"github.com/ventusgt/checkout-system/internal/model"
)

// ErrNotFound возвращается при запросе неизвестного SKU.
var ErrNotFound = errors.New("product not found")

var products = map[string]model.Product{
	"MT-01":  {SKU: "MT-01", Name: "Mouth Tape VENTUS", UnitPrice: 100},
	"NT-01":  {SKU: "NT-01", Name: "Nose Tape VENTUS", UnitPrice: 100},
	"NT-02":  {SKU: "NT-02", Name: "Nose Tape VENTUS — Edición Premium", UnitPrice: 149},
	"NT-03":  {SKU: "NT-03", Name: "Repuestos VENTUS — Pimple Patch", UnitPrice: 49},
	"BUNDLE": {SKU: "BUNDLE", Name: "Bundle VENTUS — Mouth + Nose Tape", UnitPrice: 169},
}

// Подарочные товары, прикладываемые к основному SKU. Не влияют на цену.
var addons = map[string][]string{
	"NT-02": {"NT-03"},
}

// Порядок вывода каталога на витрине.
var order = []string{"MT-01", "NT-01", "NT-02", "NT-03", "BUNDLE"}

// Lookup возвращает товар по SKU или ErrNotFound.
func Lookup(sku string) (model.Product, error) {
	p, ok := products[sku]
	if !ok {
		return model.Product{}, ErrNotFound
	}
	return p, nil
}

// Addons возвращает список SKU подарочных товаров для указанного SKU.
// Для товаров без подарков возвращается пустой список.
func Addons(sku string) []string {
	src := addons[sku]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// List возвращает все товары каталога в витринном порядке.
func List() []model.Product {
	out := make([]model.Product, 0, len(order))
	for _, sku := range order {
		out = append(out, products[sku])
	}
	return out
}
