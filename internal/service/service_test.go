package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ventusgt/checkout-system/internal/catalog"
	"github.com/ventusgt/checkout-system/internal/checkout"
	"github.com/ventusgt/checkout-system/internal/coupon"
	"github.com/ventusgt/checkout-system/internal/model"
	"github.com/ventusgt/checkout-system/internal/payapi"
	"github.com/ventusgt/checkout-system/internal/pixel"
	"github.com/ventusgt/checkout-system/internal/pricing"
	"github.com/ventusgt/checkout-system/internal/repository"
)

type stubAPI struct {
	mu       sync.Mutex
	calls    int
	block    chan struct{}
	url      string
	err      error
	quote    *payapi.Quote
	quoteErr error
}

func (a *stubAPI) SubmitOrder(ctx context.Context, order payapi.OrderRequest) (string, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()

	if a.block != nil {
		<-a.block
	}
	return a.url, a.err
}

func (a *stubAPI) ShippingQuote(ctx context.Context, sku, department string) (*payapi.Quote, error) {
	return a.quote, a.quoteErr
}

func (a *stubAPI) submitCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type stubTracker struct {
	mu     sync.Mutex
	events []pixel.Event
}

func (t *stubTracker) Track(_ context.Context, e pixel.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

func (t *stubTracker) count(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, e := range t.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within a second")
}

func newTestService(api CheckoutAPI, tracker Tracker) (*Service, *repository.MemoryStore) {
	store := repository.NewMemoryStore()
	terms := pricing.Terms{FreeShippingThreshold: 149, FlatShippingRate: 35}
	sessions := checkout.NewManager(terms, 30*time.Minute)

	table, _ := coupon.ParseTable("VENTUS10=percent:10,ENVIOGRATIS=shipping", nil)
	resolver := coupon.NewTableResolver(table, nil)

	return NewService(store, api, tracker, sessions, resolver), store
}

func readySession(t *testing.T, svc *Service, sku string, qty int) *checkout.Session {
	t.Helper()

	sess, err := svc.CreateSession(context.Background(), sku, qty)
	if err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}

	name := "María Pérez"
	email := "maria@example.com"
	phone := "5555-1234"
	line1 := "4a calle 5-67"
	city := "Ciudad de Guatemala"
	dept := "Guatemala"

	err = sess.UpdateFields(checkout.FieldPatch{
		Name: &name, Email: &email, Phone: &phone,
		Line1: &line1, City: &city, Department: &dept,
	})
	if err != nil {
		t.Fatalf("UpdateFields error: %v", err)
	}

	return sess
}

func TestCreateSessionUnknownSKU(t *testing.T) {
	svc, _ := newTestService(&stubAPI{}, nil)

	_, err := svc.CreateSession(context.Background(), "XX-99", 1)
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateSessionResolvesAddons(t *testing.T) {
	svc, _ := newTestService(&stubAPI{}, nil)

	sess, err := svc.CreateSession(context.Background(), "NT-02", 1)
	if err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}

	addons := sess.Addons()
	if len(addons) != 1 || addons[0] != "NT-03" {
		t.Fatalf("addons = %v, want [NT-03]", addons)
	}
}

func TestCreateSessionFiresCheckoutEvents(t *testing.T) {
	tracker := &stubTracker{}
	svc, _ := newTestService(&stubAPI{}, tracker)

	if _, err := svc.CreateSession(context.Background(), "NT-01", 1); err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}

	waitFor(t, func() bool {
		return tracker.count(pixel.EventAddToCart) == 1 &&
			tracker.count(pixel.EventInitiateCheckout) == 1
	})
}

func TestApplyCouponInvalidCode(t *testing.T) {
	svc, _ := newTestService(&stubAPI{}, nil)
	sess := readySession(t, svc, "NT-01", 1)

	before := sess.Breakdown()

	err := svc.ApplyCoupon(sess, "FAKE")
	if !errors.Is(err, coupon.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if got := sess.Breakdown(); got != before {
		t.Fatalf("invalid coupon changed pricing: %+v", got)
	}
}

func TestSubmitSuccess(t *testing.T) {
	api := &stubAPI{url: "https://app.recurrente.com/checkout-session/ch_test"}
	svc, store := newTestService(api, nil)
	sess := readySession(t, svc, "NT-01", 2)

	if err := svc.ApplyCoupon(sess, "ventus10"); err != nil {
		t.Fatalf("ApplyCoupon error: %v", err)
	}

	displayed := sess.Breakdown()

	url, err := svc.Submit(context.Background(), sess)
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if url != api.url {
		t.Fatalf("url = %s", url)
	}
	if sess.State() != model.StateRedirecting {
		t.Fatalf("state = %s, want redirecting", sess.State())
	}

	r, err := store.TakeReceipt(context.Background(), sess.ID())
	if err != nil {
		t.Fatalf("receipt not persisted: %v", err)
	}
	if r.Total != displayed.Total {
		t.Fatalf("receipt total %d != displayed total %d", r.Total, displayed.Total)
	}
	if r.Discount != 20 || r.CouponCode != "VENTUS10" {
		t.Fatalf("unexpected receipt: %+v", r)
	}
}

func TestSubmitValidationFailureSkipsNetwork(t *testing.T) {
	api := &stubAPI{url: "https://example.com"}
	svc, store := newTestService(api, nil)

	sess, err := svc.CreateSession(context.Background(), "NT-01", 1)
	if err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}

	_, err = svc.Submit(context.Background(), sess)

	var vErr *checkout.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if api.submitCalls() != 0 {
		t.Fatalf("network call made despite validation failure")
	}
	if _, err := store.TakeReceipt(context.Background(), sess.ID()); !errors.Is(err, repository.ErrReceiptNotFound) {
		t.Fatalf("receipt written despite validation failure")
	}
}

func TestSubmitBoundaryFailure(t *testing.T) {
	api := &stubAPI{err: &payapi.Error{StatusCode: 400, Message: "sku inválido"}}
	svc, store := newTestService(api, nil)
	sess := readySession(t, svc, "NT-01", 1)

	_, err := svc.Submit(context.Background(), sess)
	if err == nil {
		t.Fatalf("expected submission error")
	}

	if sess.State() != model.StateFailed {
		t.Fatalf("state = %s, want failed", sess.State())
	}
	if sess.LastError() != "sku inválido" {
		t.Fatalf("lastError = %q, want server message", sess.LastError())
	}
	if _, err := store.TakeReceipt(context.Background(), sess.ID()); !errors.Is(err, repository.ErrReceiptNotFound) {
		t.Fatalf("receipt written despite failure")
	}

	// Повторная отправка после отказа разрешена.
	api.err = nil
	api.url = "https://example.com/pay"
	if _, err := svc.Submit(context.Background(), sess); err != nil {
		t.Fatalf("retry error: %v", err)
	}
}

func TestSubmitDoubleClickSingleNetworkCall(t *testing.T) {
	api := &stubAPI{url: "https://example.com/pay", block: make(chan struct{})}
	svc, _ := newTestService(api, nil)
	sess := readySession(t, svc, "NT-01", 1)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), sess)
		done <- err
	}()

	waitFor(t, func() bool { return api.submitCalls() == 1 })

	// Второй клик, пока первый запрос в полёте.
	_, err := svc.Submit(context.Background(), sess)
	if !errors.Is(err, checkout.ErrSubmissionInFlight) {
		t.Fatalf("expected ErrSubmissionInFlight, got %v", err)
	}

	close(api.block)
	if err := <-done; err != nil {
		t.Fatalf("first submit error: %v", err)
	}
	if api.submitCalls() != 1 {
		t.Fatalf("submit calls = %d, want exactly 1", api.submitCalls())
	}
}

func TestSubmitDisposedMidFlight(t *testing.T) {
	api := &stubAPI{url: "https://example.com/pay", block: make(chan struct{})}
	svc, store := newTestService(api, nil)
	sess := readySession(t, svc, "NT-01", 1)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), sess)
		done <- err
	}()

	waitFor(t, func() bool { return api.submitCalls() == 1 })

	sess.Dispose()
	close(api.block)

	err := <-done
	if !errors.Is(err, checkout.ErrDisposed) {
		t.Fatalf("expected ErrDisposed, got %v", err)
	}
	if _, err := store.TakeReceipt(context.Background(), sess.ID()); !errors.Is(err, repository.ErrReceiptNotFound) {
		t.Fatalf("receipt survived a disposed session")
	}
}

func TestConfirmConsumesReceiptOnce(t *testing.T) {
	tracker := &stubTracker{}
	api := &stubAPI{url: "https://example.com/pay"}
	svc, _ := newTestService(api, tracker)
	sess := readySession(t, svc, "NT-02", 1)

	if _, err := svc.Submit(context.Background(), sess); err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	r, err := svc.Confirm(context.Background(), sess.ID())
	if err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if r == nil || r.Total != 149 {
		t.Fatalf("unexpected receipt: %+v", r)
	}

	// Перезагрузка страницы подтверждения: квитанции больше нет,
	// событие покупки не дублируется.
	r2, err := svc.Confirm(context.Background(), sess.ID())
	if err != nil {
		t.Fatalf("second Confirm error: %v", err)
	}
	if r2 != nil {
		t.Fatalf("receipt re-consumed: %+v", r2)
	}

	waitFor(t, func() bool { return tracker.count(pixel.EventPurchase) == 1 })
	time.Sleep(20 * time.Millisecond)
	if n := tracker.count(pixel.EventPurchase); n != 1 {
		t.Fatalf("purchase events = %d, want 1", n)
	}
}

func TestQuoteFallbackOnBoundaryFailure(t *testing.T) {
	api := &stubAPI{quoteErr: errors.New("boundary down")}
	svc, _ := newTestService(api, nil)
	sess := readySession(t, svc, "NT-01", 1)

	q := svc.Quote(context.Background(), sess)
	if !q.Fallback {
		t.Fatalf("expected fallback quote")
	}
	if q.Shipping != 0 || q.Total != 100 {
		t.Fatalf("fallback quote = %+v, want base price without shipping", q)
	}
}

func TestQuoteFromBoundary(t *testing.T) {
	api := &stubAPI{quote: &payapi.Quote{Shipping: 35, Total: 135}}
	svc, _ := newTestService(api, nil)
	sess := readySession(t, svc, "NT-01", 1)

	q := svc.Quote(context.Background(), sess)
	if q.Fallback {
		t.Fatalf("unexpected fallback")
	}
	if q.Shipping != 35 || q.Total != 135 {
		t.Fatalf("quote = %+v", q)
	}
}
