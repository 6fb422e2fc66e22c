package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "storefront/internal/adapters/http_server"
	redisad "storefront/internal/adapters/redis"
	"storefront/internal/app"
	"storefront/internal/checkout"
	"storefront/internal/domain"
	"storefront/internal/notify"
	"storefront/internal/tenant"
)

type fakeCMS struct {
	down  bool
	calls int
	title string
}

func (f *fakeCMS) FetchTours(_ context.Context, ids []string) ([]map[string]any, error) {
	f.calls++
	if f.down {
		return nil, errors.New("cms down")
	}
	var out []map[string]any
	for _, id := range ids {
		switch id {
		case "t1":
			out = append(out, map[string]any{
				"documentId": "t1",
				"title":      "Gheralta Rock Churches",
				"pricing_tiers": map[string]any{
					"tier_1": 100.0, "tier_2_3": 90.0, "tier_4_10": 80.0, "tier_11_plus": 70.0,
				},
			})
		case "t2":
			title := "Danakil Depression"
			if f.title != "" {
				title = f.title
			}
			out = append(out, map[string]any{"documentId": "t2", "title": title, "Price_Starting_At": "250"})
		}
	}
	return out, nil
}

func (f *fakeCMS) FetchContactInfos(context.Context) ([]map[string]any, error) {
	return []map[string]any{{"domain": "gheraltatours.com", "phone": "+251 911 000000", "email": "info@gheraltatours.com"}}, nil
}

type fakePayments struct{ err error }

func (f *fakePayments) CreateOrder(context.Context, string, decimal.Decimal, string) (domain.PaymentOrder, error) {
	return domain.PaymentOrder{ID: "ORDER-1", Status: "CREATED"}, nil
}

func (f *fakePayments) CaptureOrder(context.Context, string) (domain.PaymentCapture, error) {
	if f.err != nil {
		return domain.PaymentCapture{}, f.err
	}
	return domain.PaymentCapture{ConfirmationID: "PAY123", CaptureID: "CAP-1", Status: "COMPLETED"}, nil
}

type fakeBookings struct {
	err   error
	saved []domain.Booking
}

func (f *fakeBookings) Save(_ context.Context, b domain.Booking) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, b)
	return nil
}

type fakeMailer struct{ sent []domain.Email }

func (f *fakeMailer) Send(_ context.Context, e domain.Email) (string, error) {
	f.sent = append(f.sent, e)
	return "msg-1", nil
}

type env struct {
	h        http.Handler
	payments *fakePayments
	bookings *fakeBookings
	mailer   *fakeMailer
	cms      *fakeCMS
}

func testRegistry() *tenant.Registry {
	brands := map[string]domain.Brand{}
	for h, b := range tenant.Brands {
		brands[h] = b
	}
	brands["exampletours.com"] = domain.Brand{ID: "example-tours", Host: "exampletours.com", DisplayName: "Example Tours", ContactEmail: "hi@exampletours.com"}
	return tenant.NewRegistry(brands, tenant.DefaultHost)
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWith(t, nil)
}

func newEnvWith(t *testing.T, cache domain.Cache) *env {
	t.Helper()
	e := &env{payments: &fakePayments{}, bookings: &fakeBookings{}, mailer: &fakeMailer{}, cms: &fakeCMS{}}
	router, err := notify.NewRouter()
	require.NoError(t, err)
	notifier := notify.NewNotifier(router, e.mailer)
	content := app.NewContentService(e.cms, cache, time.Minute)

	reg := testRegistry()
	srv := httpserver.New(httpserver.Options{
		Resolver:       tenant.NewResolver(reg),
		AllowedOrigins: httpserver.BrandOrigins(reg),
	})
	srv.MountHandlers(&httpserver.Handlers{
		Registry: reg,
		Content:  content,
		Checkout: checkout.New(checkout.Deps{Tours: content, Payments: e.payments, Bookings: e.bookings, Notifier: notifier}),
		Notifier: notifier,
		CartKV:   httpserver.CookieCart(false),

		WebhookSecret: "s3cret",
	})
	e.h = srv.Mux()
	return e
}

// browser replays cookies between requests.
type browser struct {
	h       http.Handler
	host    string
	cookies map[string]*http.Cookie
}

func (e *env) browser(host string) *browser {
	return &browser{h: e.h, host: host, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Host = b.host
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	for _, c := range b.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rec := httptest.NewRecorder()
	b.h.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

const fullDraft = `{"lines":[{"itemRef":"t1","travelers":2,"startDate":"2026-03-14"}],
	"lead":{"fullName":"Ada Lovelace","email":"ada@example.com","phone":"+1 555"},"termsAccepted":true}`

func TestTenant_ForwardedHostThenCookieOnly(t *testing.T) {
	e := newEnv(t)
	b := e.browser("")

	rec := b.do(http.MethodGet, "/v1/brand", "", "X-Forwarded-Host", "www.ExampleTours.com:443")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, b.cookies, httpserver.SiteCookie)
	assert.Equal(t, "exampletours.com", b.cookies[httpserver.SiteCookie].Value)
	brand := decode(t, rec)["brand"].(map[string]any)
	assert.Equal(t, "example-tours", brand["id"])

	rec = b.do(http.MethodGet, "/v1/brand", "")
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode(t, rec)
	assert.Equal(t, "example-tours", m["brand"].(map[string]any)["id"])
	assert.Equal(t, "cookie", m["resolution"].(map[string]any)["source"])
	assert.Empty(t, rec.Result().Cookies(), "unchanged site cookie must not be rewritten")
}

func TestTenant_UnknownHostFallsBackToDefault(t *testing.T) {
	e := newEnv(t)
	rec := e.browser("unknown-brand.example").do(http.MethodGet, "/v1/brand", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tours", decode(t, rec)["brand"].(map[string]any)["id"])
}

func TestTenant_ExcludedPathsSkipResolution(t *testing.T) {
	e := newEnv(t)
	rec := e.browser("gheraltatours.com").do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestBrand_ETag(t *testing.T) {
	e := newEnv(t)
	b := e.browser("gheraltatours.com")
	rec := b.do(http.MethodGet, "/v1/brand", "")
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	contact := decode(t, rec)["contact"].(map[string]any)
	assert.Equal(t, "https://wa.me/251911000000", contact["whatsapp"])

	rec = b.do(http.MethodGet, "/v1/brand", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestTours_StartingPrice(t *testing.T) {
	e := newEnv(t)
	b := e.browser("gheraltatours.com")

	rec := b.do(http.MethodGet, "/v1/tours?ids=t2,%20t1,missing", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tours := decode(t, rec)["tours"].([]any)
	require.Len(t, tours, 2)
	t2, t1 := tours[0].(map[string]any), tours[1].(map[string]any)
	assert.Equal(t, "t2", t2["documentId"])
	assert.Equal(t, "250", t2["startingPrice"])
	assert.Equal(t, "t1", t1["documentId"])
	assert.Equal(t, "70", t1["startingPrice"])

	assert.Equal(t, http.StatusBadRequest, b.do(http.MethodGet, "/v1/tours", "").Code)

	e.cms.down = true
	assert.Equal(t, http.StatusServiceUnavailable, b.do(http.MethodGet, "/v1/tours?ids=t1", "").Code)
}

func TestCMSWebhook_InvalidatesCachedTour(t *testing.T) {
	mr := miniredis.RunT(t)
	e := newEnvWith(t, redisad.New(redisad.NewClient(mr.Addr(), "", 0)))
	b := e.browser("gheraltatours.com")

	title := func() string {
		rec := b.do(http.MethodGet, "/v1/tours?ids=t2", "")
		require.Equal(t, http.StatusOK, rec.Code)
		return decode(t, rec)["tours"].([]any)[0].(map[string]any)["title"].(string)
	}
	assert.Equal(t, "Danakil Depression", title())
	e.cms.title = "Danakil Depression (3 days)"
	assert.Equal(t, "Danakil Depression", title(), "second read is cached")
	assert.Equal(t, 1, e.cms.calls)

	payload := `{"event":"entry.update","model":"tour","entry":{"id":9,"documentId":"t2"}}`
	rec := b.do(http.MethodPost, "/v1/webhooks/cms", payload, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Danakil Depression", title())

	rec = b.do(http.MethodPost, "/v1/webhooks/cms", payload, "Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Danakil Depression (3 days)", title())
	assert.Equal(t, 2, e.cms.calls)
}

func TestCart_AddIsIdempotentAndRemoves(t *testing.T) {
	e := newEnv(t)
	b := e.browser("gheraltatours.com")

	rec := b.do(http.MethodPost, "/v1/cart/items", `{"itemRef":"t1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Cart-Count"))

	rec = b.do(http.MethodPost, "/v1/cart/items", `{"itemRef":"t1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = b.do(http.MethodGet, "/v1/cart", "")
	assert.Equal(t, []any{"t1"}, decode(t, rec)["items"])

	rec = b.do(http.MethodDelete, "/v1/cart/items/t1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-Cart-Count"))
}

func TestCart_RejectsBlankRef(t *testing.T) {
	e := newEnv(t)
	rec := e.browser("gheraltatours.com").do(http.MethodPost, "/v1/cart/items", `{"itemRef":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestCheckout_EmptyAndUnavailable(t *testing.T) {
	e := newEnv(t)
	b := e.browser("gheraltatours.com")

	m := decode(t, b.do(http.MethodPost, "/v1/checkout", ""))
	assert.Equal(t, "empty", m["state"])
	assert.Equal(t, "/tours", m["cta"].(map[string]any)["href"])

	b.do(http.MethodPost, "/v1/cart/items", `{"itemRef":"t1"}`)
	e.cms.down = true
	m = decode(t, b.do(http.MethodPost, "/v1/checkout", ""))
	assert.Equal(t, "unavailable", m["state"])
	assert.Equal(t, false, m["paymentEnabled"])
}

func TestCheckout_ViewReportsMissingFields(t *testing.T) {
	e := newEnv(t)
	b := e.browser("gheraltatours.com")
	b.do(http.MethodPost, "/v1/cart/items", `{"itemRef":"t1"}`)

	rec := b.do(http.MethodPost, "/v1/checkout", `{"lines":[{"itemRef":"t1","travelers":5}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode(t, rec)
	assert.Equal(t, "ready", m["state"])
	assert.Equal(t, false, m["paymentEnabled"])
	assert.Equal(t, "400", m["total"])
	errs := m["errors"].(map[string]any)
	for _, f := range []string{"dates", "fullName", "email", "phone", "terms"} {
		assert.Contains(t, errs, f)
	}

	rec = b.do(http.MethodPost, "/v1/checkout", fullDraft)
	m = decode(t, rec)
	assert.Equal(t, true, m["paymentEnabled"])
	assert.Equal(t, "180", m["total"])
	assert.Equal(t, true, m["termsAccepted"])
	assert.Equal(t, "Ada Lovelace", m["lead"].(map[string]any)["fullName"])
}

func TestCheckout_PaymentRequiresCompleteDraft(t *testing.T) {
	e := newEnv(t)
	b := e.browser("gheraltatours.com")
	b.do(http.MethodPost, "/v1/cart/items", `{"itemRef":"t1"}`)

	rec := b.do(http.MethodPost, "/v1/checkout/payment", `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec)["errors"], "terms")

	rec = b.do(http.MethodPost, "/v1/checkout/payment", fullDraft)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ORDER-1", decode(t, rec)["orderId"])
}

func TestCheckout_CaptureCommitsAndClearsCart(t *testing.T) {
	e := newEnv(t)
	b := e.browser("gheraltatours.com")
	b.do(http.MethodPost, "/v1/cart/items", `{"itemRef":"t1"}`)

	rec := b.do(http.MethodPost, "/v1/checkout/payment/ORDER-1/capture", fullDraft)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	m := decode(t, rec)
	assert.Equal(t, checkout.BookingID("PAY123"), m["bookingId"])
	assert.Equal(t, "/checkout/success", m["redirect"])

	require.Len(t, e.bookings.saved, 1)
	assert.Equal(t, "PAY123", e.bookings.saved[0].PaymentConfirmationID)
	require.Len(t, e.mailer.sent, 1)
	assert.Equal(t, "info@gheraltatours.com", e.mailer.sent[0].To)
	assert.Equal(t, "ada@example.com", e.mailer.sent[0].ReplyTo)

	assert.EqualValues(t, 0, decode(t, b.do(http.MethodGet, "/v1/cart", ""))["count"])
}

func TestCheckout_CaptureDeclined(t *testing.T) {
	e := newEnv(t)
	e.payments.err = domain.ErrPaymentFailed
	b := e.browser("gheraltatours.com")
	b.do(http.MethodPost, "/v1/cart/items", `{"itemRef":"t1"}`)

	rec := b.do(http.MethodPost, "/v1/checkout/payment/ORDER-1/capture", fullDraft)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Empty(t, e.bookings.saved)
	assert.EqualValues(t, 1, decode(t, b.do(http.MethodGet, "/v1/cart", ""))["count"])
}

func TestCheckout_PersistFailureKeepsCart(t *testing.T) {
	e := newEnv(t)
	e.bookings.err = errors.New("db down")
	b := e.browser("gheraltatours.com")
	b.do(http.MethodPost, "/v1/cart/items", `{"itemRef":"t1"}`)

	rec := b.do(http.MethodPost, "/v1/checkout/payment/ORDER-1/capture", fullDraft)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	m := decode(t, rec)
	assert.Equal(t, "PAY123", m["confirmationId"])
	assert.Contains(t, m["detail"], "contact you")
	assert.Empty(t, e.mailer.sent)
	assert.EqualValues(t, 1, decode(t, b.do(http.MethodGet, "/v1/cart", ""))["count"])
}

func TestInquiry_RoutesByTenant(t *testing.T) {
	e := newEnv(t)
	b := e.browser("www.gheraltaadventures.com")

	rec := b.do(http.MethodPost, "/v1/inquiries", `{"tourTitle":"Abuna Yemata Climb","fullName":"Sam","email":"sam@example.com","message":"Hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode(t, rec)
	assert.Equal(t, true, m["success"])
	assert.Equal(t, "bookings@gheraltaadventures.com", m["routedTo"])
	require.Len(t, e.mailer.sent, 1)
	assert.Contains(t, e.mailer.sent[0].Subject, "Abuna Yemata Climb")

	rec = b.do(http.MethodPost, "/v1/inquiries", `{"fullName":"Sam","email":"nope"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCORS_AllowsBrandOrigins(t *testing.T) {
	e := newEnv(t)
	b := e.browser("gheraltatours.com")
	rec := b.do(http.MethodOptions, "/v1/cart/items", "",
		"Origin", "https://www.gheraltatours.com",
		"Access-Control-Request-Method", http.MethodPost)
	assert.Equal(t, "https://www.gheraltatours.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = b.do(http.MethodOptions, "/v1/cart/items", "",
		"Origin", "https://evil.example",
		"Access-Control-Request-Method", http.MethodPost)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
