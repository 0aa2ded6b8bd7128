// Package handler содержит HTTP-обработчики API сервиса оформления заказов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ventusgt/checkout-system/internal/catalog"
	"github.com/ventusgt/checkout-system/internal/checkout"
	"github.com/ventusgt/checkout-system/internal/coupon"
	"github.com/ventusgt/checkout-system/internal/middleware"
	"github.com/ventusgt/checkout-system/internal/model"
	"github.com/ventusgt/checkout-system/internal/payapi"
	"github.com/ventusgt/checkout-system/internal/service"
	"github.com/ventusgt/checkout-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Catalog() []service.CatalogItem
	CreateSession(ctx context.Context, sku string, quantity int) (*checkout.Session, error)
	Session(id string) (*checkout.Session, bool)
	Dispose(id string)
	ApplyCoupon(sess *checkout.Session, code string) error
	Quote(ctx context.Context, sess *checkout.Session) service.QuoteResult
	Submit(ctx context.Context, sess *checkout.Session) (string, error)
	Confirm(ctx context.Context, sessionID string) (*model.Receipt, error)
}

// Handler реализует HTTP-обработчики API сервиса оформления заказов.
type Handler struct {
	service Service
	logger  *zap.Logger
	session *middleware.SessionMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, session *middleware.SessionMiddleware) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
		session: session,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// GetCatalog возвращает каталог товаров.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Catalog())
}

// GetRegions возвращает фиксированный список департаментов для селектора адреса.
func (h *Handler) GetRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, validation.Departments())
}

type createCheckoutRequest struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// CreateCheckout создаёт сессию оформления и устанавливает cookie сессии.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req createCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo de solicitud inválido")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	sess, err := h.service.CreateSession(r.Context(), req.SKU, req.Quantity)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "producto no encontrado")
			return
		}
		h.logger.Error("create checkout error", zap.Error(err), zap.String("sku", req.SKU))
		writeError(w, http.StatusInternalServerError, payapi.FallbackMessage)
		return
	}

	h.session.SetSessionCookie(w, sess.ID())
	writeJSON(w, http.StatusCreated, sess.Summary())
}

// sessionFromRequest достаёт живую сессию по cookie запроса.
func (h *Handler) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*checkout.Session, bool) {
	id, ok := middleware.GetSessionIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return nil, false
	}

	sess, ok := h.service.Session(id)
	if !ok {
		writeError(w, http.StatusNotFound, "la sesión de compra expiró")
		return nil, false
	}

	return sess, true
}

// writeStateError переводит ошибки машины состояний в HTTP-статусы.
func writeStateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrDisposed):
		writeError(w, http.StatusNotFound, "la sesión de compra expiró")
	case errors.Is(err, checkout.ErrSubmissionInFlight):
		writeError(w, http.StatusConflict, "tu pedido ya se está procesando")
	case errors.Is(err, checkout.ErrAlreadyRedirecting):
		writeError(w, http.StatusConflict, "tu pedido ya fue enviado")
	case errors.Is(err, checkout.ErrUnknownDepartment):
		writeError(w, http.StatusUnprocessableEntity, "departamento inválido")
	default:
		writeError(w, http.StatusInternalServerError, payapi.FallbackMessage)
	}
}

// GetSummary возвращает сводку заказа текущей сессии.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Summary())
}

type fieldsRequest struct {
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	Line1         *string `json:"line1"`
	Zone          *string `json:"zone"`
	Neighborhood  *string `json:"neighborhood"`
	City          *string `json:"city"`
	Department    *string `json:"department"`
	NIT           *string `json:"nit"`
	DeliveryNotes *string `json:"delivery_notes"`
}

// UpdateFields применяет частичное обновление полей покупателя.
func (h *Handler) UpdateFields(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req fieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo de solicitud inválido")
		return
	}

	err := sess.UpdateFields(checkout.FieldPatch{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Line1:         req.Line1,
		Zone:          req.Zone,
		Neighborhood:  req.Neighborhood,
		City:          req.City,
		Department:    req.Department,
		NIT:           req.NIT,
		DeliveryNotes: req.DeliveryNotes,
	})
	if err != nil {
		writeStateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sess.Summary())
}

type quantityRequest struct {
	Op    string `json:"op"`
	Value int    `json:"value"`
}

// ChangeQuantity меняет количество товара. Запросы за границами [1,10]
// игнорируются и возвращают текущее состояние.
func (h *Handler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo de solicitud inválido")
		return
	}

	var err error
	switch req.Op {
	case "increment":
		err = sess.IncrementQuantity()
	case "decrement":
		err = sess.DecrementQuantity()
	case "set":
		err = sess.SetQuantity(req.Value)
	default:
		writeError(w, http.StatusBadRequest, "operación desconocida")
		return
	}
	if err != nil {
		writeStateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sess.Summary())
}

type couponRequest struct {
	Code string `json:"code"`
}

// ApplyCoupon применяет купон к текущей сессии. Нераспознанный код
// сообщается явно, а не превращается в нулевую скидку.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo de solicitud inválido")
		return
	}

	if err := h.service.ApplyCoupon(sess, req.Code); err != nil {
		if errors.Is(err, coupon.ErrInvalid) {
			writeError(w, http.StatusUnprocessableEntity, "cupón inválido")
			return
		}
		writeStateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sess.Summary())
}

// RemoveCoupon снимает купон и возвращает базовую цену.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	if err := sess.ClearCoupon(); err != nil {
		writeStateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sess.Summary())
}

// ShippingQuote возвращает стоимость доставки. Отказ внешнего сервиса
// не блокирует покупателя: приходит локальный расчёт без доставки.
func (h *Handler) ShippingQuote(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, h.service.Quote(r.Context(), sess))
}

// Submit отправляет заказ во внешний сервис и возвращает URL оплаты.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	checkoutURL, err := h.service.Submit(r.Context(), sess)
	if err != nil {
		var vErr *checkout.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusUnprocessableEntity, vErr.Error())
			return
		}

		var apiErr *payapi.Error
		if errors.As(err, &apiErr) {
			writeError(w, http.StatusBadGateway, apiErr.Message)
			return
		}

		if errors.Is(err, checkout.ErrSubmissionInFlight) ||
			errors.Is(err, checkout.ErrAlreadyRedirecting) ||
			errors.Is(err, checkout.ErrDisposed) {
			writeStateError(w, err)
			return
		}

		h.logger.Error("submit order error", zap.Error(err))
		writeError(w, http.StatusBadGateway, payapi.FallbackMessage)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"checkout_url": checkoutURL})
}

// Confirm читает и удаляет квитанцию заказа после возврата с оплаты.
// Отсутствие квитанции — не ошибка: подтверждать нечего.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetSessionIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	receipt, err := h.service.Confirm(r.Context(), id)
	if err != nil {
		h.logger.Error("confirm order error", zap.Error(err), zap.String("session", id))
		writeError(w, http.StatusInternalServerError, payapi.FallbackMessage)
		return
	}

	if receipt == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// DisposeCheckout закрывает сессию оформления и сбрасывает cookie.
func (h *Handler) DisposeCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetSessionIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	h.service.Dispose(id)
	h.session.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
