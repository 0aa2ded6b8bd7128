// Package coupon содержит распознавание купонов и политику их нормализации.
package coupon

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ventusgt/checkout-system/internal/model"
)

// ErrInvalid возвращается, когда код купона не распознан.
var ErrInvalid = errors.New("invalid coupon code")

// Resolver определяет контракт распознавания купона по коду.
// Повторное распознавание одного и того же кода обязано давать тот же результат.
type Resolver interface {
	Resolve(code string) (model.Coupon, error)
}

// Normalizer приводит введённый пользователем код к каноническому виду.
type Normalizer func(code string) string

// DefaultNormalizer обрезает пробелы и переводит код в верхний регистр,
// так что коды фактически нечувствительны к регистру.
func DefaultNormalizer(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// TableResolver распознаёт купоны по фиксированной таблице кодов.
type TableResolver struct {
	table     map[string]model.Coupon
	normalize Normalizer
}

// NewTableResolver создаёт резолвер по готовой таблице купонов.
// При nil normalize используется DefaultNormalizer.
func NewTableResolver(table map[string]model.Coupon, normalize Normalizer) *TableResolver {
	if normalize == nil {
		normalize = DefaultNormalizer
	}
	return &TableResolver{
		table:     table,
		normalize: normalize,
	}
}

// Resolve возвращает купон по коду или ErrInvalid.
// Пустой код после нормализации также считается нераспознанным.
func (r *TableResolver) Resolve(code string) (model.Coupon, error) {
	normalized := r.normalize(code)
	if normalized == "" {
		return model.Coupon{}, ErrInvalid
	}

	c, ok := r.table[normalized]
	if !ok {
		return model.Coupon{}, fmt.Errorf("%w: %s", ErrInvalid, normalized)
	}
	return c, nil
}

// ParseTable разбирает таблицу купонов из строки конфигурации вида
// "VENTUS10=percent:10,ENVIOGRATIS=shipping". Ключи таблицы хранятся
// в нормализованном виде.
func ParseTable(raw string, normalize Normalizer) (map[string]model.Coupon, error) {
	if normalize == nil {
		normalize = DefaultNormalizer
	}

	table := make(map[string]model.Coupon)
	if strings.TrimSpace(raw) == "" {
		return table, nil
	}

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		code, policy, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("coupon entry %q: missing policy", entry)
		}

		normalized := normalize(code)
		if normalized == "" {
			return nil, fmt.Errorf("coupon entry %q: empty code", entry)
		}

		c, err := parsePolicy(normalized, policy)
		if err != nil {
			return nil, err
		}
		table[normalized] = c
	}

	return table, nil
}

func parsePolicy(code, policy string) (model.Coupon, error) {
	kind, arg, _ := strings.Cut(strings.TrimSpace(policy), ":")

	switch kind {
	case "percent":
		p, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return model.Coupon{}, fmt.Errorf("coupon %s: bad percent %q", code, arg)
		}
		if p < 0 || p > 100 {
			return model.Coupon{}, fmt.Errorf("coupon %s: percent %d out of range", code, p)
		}
		return model.Coupon{Code: code, Kind: model.CouponPercent, Percent: p}, nil
	case "shipping":
		return model.Coupon{Code: code, Kind: model.CouponFreeShipping}, nil
	default:
		return model.Coupon{}, fmt.Errorf("coupon %s: unknown policy %q", code, kind)
	}
}
