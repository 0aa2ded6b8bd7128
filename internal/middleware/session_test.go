package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSessionCookieRoundTrip(t *testing.T) {
	m := NewSessionMiddleware("test-secret")

	rec := httptest.NewRecorder()
	m.SetSessionCookie(rec, "3f1d2c00-aaaa-bbbb-cccc-000000000001")

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}

	var gotID string
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetSessionIDFromContext(r.Context())
		if !ok {
			t.Fatalf("session id missing from context")
		}
		gotID = id
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/checkout/summary", nil)
	req.AddCookie(cookies[0])

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	if gotID != "3f1d2c00-aaaa-bbbb-cccc-000000000001" {
		t.Fatalf("session id = %s", gotID)
	}
}

func TestSessionCookieMissing(t *testing.T) {
	m := NewSessionMiddleware("test-secret")

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/checkout/summary", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
}

func TestSessionCookieTampered(t *testing.T) {
	m := NewSessionMiddleware("test-secret")

	rec := httptest.NewRecorder()
	m.SetSessionCookie(rec, "session-1")
	cookie := rec.Result().Cookies()[0]
	cookie.Value = "session-2" + cookie.Value[len("session-1"):]

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/checkout/summary", nil)
	req.AddCookie(cookie)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
}

func TestSessionCookieForeignSecret(t *testing.T) {
	signer := NewSessionMiddleware("secret-a")
	verifier := NewSessionMiddleware("secret-b")

	rec := httptest.NewRecorder()
	signer.SetSessionCookie(rec, "session-1")

	handler := verifier.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/checkout/summary", nil)
	req.AddCookie(rec.Result().Cookies()[0])

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
}
