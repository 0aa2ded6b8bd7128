package pixel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestTrackSendsEvent(t *testing.T) {
	var got Event

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/events" {
			t.Fatalf("path = %s, want /events", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, zap.NewNop())
	client.Track(context.Background(), Event{
		Name:       EventInitiateCheckout,
		ContentIDs: []string{"NT-02"},
		Value:      149,
		NumItems:   1,
	})

	if got.Name != EventInitiateCheckout {
		t.Fatalf("event name = %s, want %s", got.Name, EventInitiateCheckout)
	}
	if got.Currency != "GTQ" {
		t.Fatalf("currency = %s, want GTQ", got.Currency)
	}
	if len(got.ContentIDs) != 1 || got.ContentIDs[0] != "NT-02" {
		t.Fatalf("unexpected content ids: %v", got.ContentIDs)
	}
}

func TestTrackNilClient(t *testing.T) {
	var client *Client

	// Не должно паниковать и что-либо возвращать.
	client.Track(context.Background(), Event{Name: EventPageView})
}

func TestTrackServerFailureSwallowed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, zap.NewNop())

	// Отказ приёмника не должен приводить ни к панике, ни к ошибке.
	client.Track(context.Background(), Event{Name: EventPurchase, Value: 149})
}

func TestTrackUnreachableSwallowed(t *testing.T) {
	client := NewClient("127.0.0.1:1", zap.NewNop())
	client.Track(context.Background(), Event{Name: EventAddToCart})
}
