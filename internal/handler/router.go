package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/ventusgt/checkout-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", h.GetCatalog)
		r.Get("/regions", h.GetRegions)

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", h.CreateCheckout)

			r.Group(func(r chi.Router) {
				r.Use(h.session.Middleware)

				r.Get("/summary", h.GetSummary)
				r.Patch("/fields", h.UpdateFields)
				r.Post("/quantity", h.ChangeQuantity)

				r.Post("/coupon", h.ApplyCoupon)
				r.Delete("/coupon", h.RemoveCoupon)

				r.Get("/shipping-quote", h.ShippingQuote)
				r.Post("/submit", h.Submit)
				r.Post("/confirm", h.Confirm)

				r.Delete("/", h.DisposeCheckout)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
