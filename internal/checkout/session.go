// Package checkout содержит контроллер формы оформления заказа и
// машину состояний одной сессии.
package checkout

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ventusgt/checkout-system/internal/model"
	"github.com/ventusgt/checkout-system/internal/pricing"
	"github.com/ventusgt/checkout-system/internal/validation"
)

var (
	// ErrSubmissionInFlight возвращается при попытке отправить заказ,
	// пока предыдущая отправка ещё не завершилась.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrDisposed возвращается при обращении к закрытой сессии.
	ErrDisposed = errors.New("checkout session disposed")
	// ErrAlreadyRedirecting возвращается после успешной отправки:
	// заказ уже передан на оплату, менять черновик поздно.
	ErrAlreadyRedirecting = errors.New("order already submitted")
	// ErrUnknownDepartment возвращается для департамента вне
	// фиксированного списка.
	ErrUnknownDepartment = errors.New("unknown department")
)

// ValidationError содержит единое агрегированное сообщение о
// незаполненных обязательных полях.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return validation.ValidationMessage(e.Missing)
}

// Session — одна попытка оформления заказа. Все переходы состояний
// сериализуются внутренним мьютексом: это программный аналог
// кооперативного цикла событий, в котором жил исходный код формы.
type Session struct {
	mu sync.Mutex

	id        string
	state     model.SessionState
	draft     model.OrderDraft
	product   model.Product
	addons    []model.Product
	breakdown model.Breakdown
	lastError string
	terms     pricing.Terms
	touchedAt time.Time
}

func newSession(id string, product model.Product, addons []model.Product, quantity int, terms pricing.Terms) *Session {
	s := &Session{
		id:      id,
		state:   model.StateEditing,
		product: product,
		addons:  addons,
		draft: model.OrderDraft{
			SKU:      product.SKU,
			Quantity: quantity,
			NIT:      model.NITFinal,
		},
		terms:     terms,
		touchedAt: time.Now(),
	}
	s.breakdown = pricing.Compute(s.product, s.draft.Quantity, s.draft.Coupon, s.terms)
	return s
}

// ID возвращает идентификатор сессии.
func (s *Session) ID() string {
	return s.id
}

// State возвращает текущее состояние сессии.
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Draft возвращает копию черновика заказа.
func (s *Session) Draft() model.OrderDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Breakdown возвращает последний рассчитанный разбор стоимости.
func (s *Session) Breakdown() model.Breakdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.breakdown
}

// Addons возвращает SKU подарочных товаров заказа.
func (s *Session) Addons() []string {
	out := make([]string, len(s.addons))
	for i, a := range s.addons {
		out[i] = a.SKU
	}
	return out
}

// Product возвращает основной товар заказа.
func (s *Session) Product() model.Product {
	return s.product
}

// editable сообщает, допускает ли текущее состояние правку черновика.
// Вызывается под мьютексом.
func (s *Session) editable() error {
	switch s.state {
	case model.StateDisposed:
		return ErrDisposed
	case model.StateSubmitting:
		return ErrSubmissionInFlight
	case model.StateRedirecting:
		return ErrAlreadyRedirecting
	}
	return nil
}

// recompute пересчитывает стоимость и возвращает сессию в редактирование.
// Вызывается под мьютексом после каждой принятой правки.
func (s *Session) recompute() {
	s.breakdown = pricing.Compute(s.product, s.draft.Quantity, s.draft.Coupon, s.terms)
	s.state = model.StateEditing
	s.lastError = ""
	s.touchedAt = time.Now()
}

// SetQuantity меняет количество товара. Значения вне [1,10]
// игнорируются без ошибки, состояние не меняется.
func (s *Session) SetQuantity(q int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}

	if q < model.MinQuantity || q > model.MaxQuantity {
		return nil
	}

	s.draft.Quantity = q
	s.recompute()
	return nil
}

// IncrementQuantity увеличивает количество на единицу; на верхней
// границе запрос игнорируется.
func (s *Session) IncrementQuantity() error {
	return s.adjustQuantity(1)
}

// DecrementQuantity уменьшает количество на единицу; на нижней
// границе запрос игнорируется.
func (s *Session) DecrementQuantity() error {
	return s.adjustQuantity(-1)
}

func (s *Session) adjustQuantity(delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}

	q := s.draft.Quantity + delta
	if q < model.MinQuantity || q > model.MaxQuantity {
		return nil
	}

	s.draft.Quantity = q
	s.recompute()
	return nil
}

// ApplyCoupon применяет распознанный купон к черновику.
func (s *Session) ApplyCoupon(c model.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}

	s.draft.Coupon = &c
	s.recompute()
	return nil
}

// ClearCoupon снимает купон и возвращает расчёт к базовой цене.
func (s *Session) ClearCoupon() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}

	s.draft.Coupon = nil
	s.recompute()
	return nil
}

// FieldPatch — частичное обновление полей покупателя. Нулевые
// указатели означают «поле не трогать».
type FieldPatch struct {
	Name          *string
	Email         *string
	Phone         *string
	Line1         *string
	Zone          *string
	Neighborhood  *string
	City          *string
	Department    *string
	NIT           *string
	DeliveryNotes *string
}

// UpdateFields применяет частичное обновление полей покупателя.
// Департамент вне фиксированного списка отклоняется целиком, черновик
// не меняется. Пустой NIT заменяется значением model.NITFinal.
func (s *Session) UpdateFields(p FieldPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}

	if p.Department != nil && *p.Department != "" && !validation.IsValidDepartment(*p.Department) {
		return fmt.Errorf("%w: %s", ErrUnknownDepartment, *p.Department)
	}

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	set(&s.draft.Name, p.Name)
	set(&s.draft.Email, p.Email)
	set(&s.draft.Phone, p.Phone)
	set(&s.draft.Address.Line1, p.Line1)
	set(&s.draft.Address.Zone, p.Zone)
	set(&s.draft.Address.Neighborhood, p.Neighborhood)
	set(&s.draft.Address.City, p.City)
	set(&s.draft.Address.Department, p.Department)
	set(&s.draft.NIT, p.NIT)
	set(&s.draft.DeliveryNotes, p.DeliveryNotes)

	if s.draft.NIT == "" {
		s.draft.NIT = model.NITFinal
	}

	s.recompute()
	return nil
}

// BeginSubmit проверяет обязательные поля и переводит сессию в
// состояние отправки. Пока отправка не завершена, повторный вызов
// возвращает ErrSubmissionInFlight — это и есть защита от двойного
// клика. Возвращаются снимки черновика и последнего расчёта: квитанция
// обязана строиться из того же расчёта, который видел покупатель.
func (s *Session) BeginSubmit() (model.OrderDraft, model.Breakdown, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case model.StateDisposed:
		return model.OrderDraft{}, model.Breakdown{}, ErrDisposed
	case model.StateSubmitting:
		return model.OrderDraft{}, model.Breakdown{}, ErrSubmissionInFlight
	case model.StateRedirecting:
		return model.OrderDraft{}, model.Breakdown{}, ErrAlreadyRedirecting
	}

	if missing := validation.RequiredFields(&s.draft); len(missing) > 0 {
		s.state = model.StateEditing
		return model.OrderDraft{}, model.Breakdown{}, &ValidationError{Missing: missing}
	}

	s.state = model.StateSubmitting
	s.touchedAt = time.Now()
	return s.draft, s.breakdown, nil
}

// FinishSubmit завершает отправку. Для закрытой сессии вызов — no-op
// и возвращает false: поздний ответ сети не должен трогать разобранное
// состояние.
func (s *Session) FinishSubmit(ok bool, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == model.StateDisposed {
		return false
	}
	if s.state != model.StateSubmitting {
		return false
	}

	if ok {
		s.state = model.StateRedirecting
		s.lastError = ""
	} else {
		s.state = model.StateFailed
		s.lastError = message
	}
	s.touchedAt = time.Now()
	return true
}

// LastError возвращает сообщение последнего отказа отправки.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Dispose переводит сессию в терминальное состояние из любого другого.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = model.StateDisposed
	s.touchedAt = time.Now()
}
