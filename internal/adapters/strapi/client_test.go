package strapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/adapters/strapi"
	"storefront/internal/domain"
)

func TestClient_FetchTours_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			if r.URL.Path != "/api/tours" ||
				r.URL.Query().Get("filters[documentId][$in][0]") != "a" ||
				r.URL.Query().Get("filters[documentId][$in][1]") != "b" ||
				r.URL.Query().Get("populate") != "*" {
				t.Errorf("unexpected query: %s", r.URL.String())
			}
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("auth header: %q", got)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{map[string]any{"documentId": "a"}}})
		}
	}))
	defer ts.Close()

	cl, err := strapi.New(ts.URL, "tok", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	got, err := cl.FetchTours(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0]["documentId"] != "a" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_404(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl, err := strapi.New(ts.URL, "", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = cl.FetchContactInfos(ctx)
	if !errors.Is(err, strapi.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNew_RequiresBase(t *testing.T) {
	if _, err := strapi.New("", "", 1); err == nil {
		t.Fatal("expected error for empty base")
	}
	if _, err := strapi.New("https://undefined/api", "", 1); err == nil {
		t.Fatal("expected error for undefined base")
	}
}

type fakeCMS struct {
	mu      sync.Mutex
	created []map[string]any
}

func (f *fakeCMS) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			id := r.URL.Query().Get("filters[paypalOrderId][$eq]")
			var data []any
			for _, c := range f.created {
				if c["paypalOrderId"] == id {
					data = append(data, c)
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
		case http.MethodPost:
			var body struct {
				Data map[string]any `json:"data"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode: %v", err)
			}
			f.created = append(f.created, body.Data)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"data":{}}`))
		}
	})
}

func TestBookingSink_SaveIsIdempotent(t *testing.T) {
	cms := &fakeCMS{}
	ts := httptest.NewServer(cms.handler(t))
	defer ts.Close()

	cl, _ := strapi.New(ts.URL, "tok", 100)
	sink := strapi.NewBookingSink(cl)

	b := domain.Booking{
		Site:      "gheraltatours.com",
		Lead:      domain.LeadContact{FullName: "Ana", Email: "ana@example.com", Phone: "+251"},
		TotalPaid: decimal.NewFromInt(400),
		Status:    domain.BookingPaid,
		Lines: []domain.BookingLine{
			{Title: "Danakil", Date: "2026-10-03", Travelers: 5, Total: decimal.NewFromInt(400)},
		},
		PaymentConfirmationID: "PAY123",
	}
	for i := 0; i < 2; i++ {
		if err := sink.Save(context.Background(), b); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	if len(cms.created) != 1 {
		t.Fatalf("expected one CMS booking, got %d", len(cms.created))
	}
	got := cms.created[0]
	if got["bookingStatus"] != "paid" || got["site_source"] != "gheraltatours.com" || got["totalPaid"] != "400.00" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	details, _ := got["details"].([]any)
	if len(details) != 1 || details[0].(map[string]any)["travelers"] != 5.0 {
		t.Fatalf("unexpected details: %+v", got["details"])
	}
}

func TestBookingSink_PostNotRetriedOn500(t *testing.T) {
	var posts int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"data":[]}`))
			return
		}
		atomic.AddInt32(&posts, 1)
		w.WriteHeader(500)
	}))
	defer ts.Close()

	cl, _ := strapi.New(ts.URL, "", 100)
	err := strapi.NewBookingSink(cl).Save(context.Background(), domain.Booking{PaymentConfirmationID: "X"})
	if err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&posts) != 1 {
		t.Fatalf("POST must not be retried on 500, got %d", posts)
	}
}
