package httpserver

import (
	"context"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"storefront/internal/adapters/observability"
	"storefront/internal/app"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/domain"
	"storefront/internal/notify"
	"storefront/internal/pricing"
	"storefront/internal/tenant"
)

const (
	cartCountHeader = "X-Cart-Count"
	successRedirect = "/checkout/success"
	maxBody         = 64 << 10
)

type Handlers struct {
	Registry *tenant.Registry
	Content  *app.ContentService
	Checkout *checkout.Orchestrator
	Notifier *notify.Notifier
	CartKV   CartKV

	// WebhookSecret enables POST /v1/webhooks/cms when set.
	WebhookSecret string
}

type problem struct {
	Type           string            `json:"type"`
	Title          string            `json:"title"`
	Status         int               `json:"status"`
	Detail         string            `json:"detail,omitempty"`
	Errors         map[string]string `json:"errors,omitempty"`
	ConfirmationID string            `json:"confirmationId,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/brand", h.getBrand)
		r.Get("/tours", h.listTours)

		r.Get("/cart", h.getCart)
		r.Post("/cart/items", h.addCartItem)
		r.Delete("/cart/items/{ref}", h.removeCartItem)
		r.Delete("/cart", h.clearCart)

		r.Post("/checkout", h.viewCheckout)
		r.Post("/checkout/payment", h.createPayment)
		r.Post("/checkout/payment/{orderID}/capture", h.capturePayment)

		r.Post("/inquiries", h.postInquiry)

		if h.WebhookSecret != "" {
			r.Post("/webhooks/cms", h.cmsWebhook)
		}
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemWith(w, problem{Title: title, Status: status, Detail: detail})
}

func writeProblemWith(w http.ResponseWriter, p problem) {
	p.Type = "about:blank"
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// decodeBody reads an optional JSON body; an empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (h *Handlers) brand(r *http.Request) domain.Brand { return tenant.BrandFrom(r.Context(), h.Registry) }

// site is the hostname the visitor used, falling back to the brand's own.
func (h *Handlers) site(r *http.Request) string {
	if rs, ok := tenant.FromContext(r.Context()); ok && rs.HostnameNormalized != "" {
		return rs.HostnameNormalized
	}
	return h.brand(r).Host
}

func (h *Handlers) cart(w http.ResponseWriter, r *http.Request) *cart.Store {
	c := cart.New(h.CartKV(w, r))
	c.OnChange(func(items []string) {
		w.Header().Set(cartCountHeader, strconv.Itoa(len(items)))
	})
	return c
}

/********** brand **********/

type brandView struct {
	Brand      domain.Brand      `json:"brand"`
	Contact    domain.Contact    `json:"contact"`
	Resolution tenant.Resolution `json:"resolution"`
}

func (h *Handlers) getBrand(w http.ResponseWriter, r *http.Request) {
	b := h.brand(r)
	rs, _ := tenant.FromContext(r.Context())
	resp := brandView{Brand: b, Contact: h.Content.Contact(r.Context(), b), Resolution: rs}

	etag, body := calcETagAndBody(resp)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Vary", "Host, X-Forwarded-Host, Cookie")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getBrand body")
	}
}

/********** tours **********/

type tourView struct {
	domain.Tour
	StartingPrice *decimal.Decimal `json:"startingPrice,omitempty"`
}

func (h *Handlers) listTours(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		writeProblem(w, http.StatusBadRequest, "Missing ids", "expected ?ids=a,b")
		return
	}
	tours, err := h.Content.GetTours(r.Context(), ids)
	if err != nil {
		log.Warn().Err(err).Msg("tour lookup failed")
		writeProblem(w, http.StatusServiceUnavailable, "Tours unavailable", "please try again shortly")
		return
	}
	out := make([]tourView, 0, len(tours))
	for _, t := range tours {
		out = append(out, tourView{Tour: t, StartingPrice: pricing.StartingPrice(t.Tiers, t.FlatPrice)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tours": out})
}

// cmsWebhook drops cached tours when the CMS reports an edit.
func (h *Handlers) cmsWebhook(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.WebhookSecret)) != 1 {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var in struct {
		Event string `json:"event"`
		Model string `json:"model"`
		Entry struct {
			DocumentID string `json:"documentId"`
		} `json:"entry"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "expected a CMS webhook payload")
		return
	}
	if in.Model == "tour" && in.Entry.DocumentID != "" {
		h.Content.InvalidateTour(r.Context(), in.Entry.DocumentID)
		log.Info().Str("event", in.Event).Str("tour", in.Entry.DocumentID).Msg("tour cache invalidated")
	}
	w.WriteHeader(http.StatusNoContent)
}

/********** cart **********/

type cartView struct {
	Items []string `json:"items"`
	Count int      `json:"count"`
}

func newCartView(ctx context.Context, c *cart.Store) cartView {
	items := c.List(ctx)
	return cartView{Items: items, Count: len(items)}
}

func (h *Handlers) getCart(w http.ResponseWriter, r *http.Request) {
	c := h.cart(w, r)
	v := newCartView(r.Context(), c)
	w.Header().Set(cartCountHeader, strconv.Itoa(v.Count))
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) addCartItem(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ItemRef string `json:"itemRef"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "expected {\"itemRef\": \"...\"}")
		return
	}
	ref := strings.TrimSpace(in.ItemRef)
	if ref == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid item", "itemRef is required")
		return
	}
	c := h.cart(w, r)
	if err := c.Add(r.Context(), ref); err != nil {
		log.Error().Err(err).Str("item", ref).Msg("cart add failed")
		writeProblem(w, http.StatusInternalServerError, "Cart unavailable", "could not update the cart")
		return
	}
	observability.ObserveCart("add")
	writeJSON(w, http.StatusCreated, newCartView(r.Context(), c))
}

func (h *Handlers) removeCartItem(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	c := h.cart(w, r)
	if err := c.Remove(r.Context(), ref); err != nil {
		log.Error().Err(err).Str("item", ref).Msg("cart remove failed")
		writeProblem(w, http.StatusInternalServerError, "Cart unavailable", "could not update the cart")
		return
	}
	observability.ObserveCart("remove")
	writeJSON(w, http.StatusOK, newCartView(r.Context(), c))
}

func (h *Handlers) clearCart(w http.ResponseWriter, r *http.Request) {
	c := h.cart(w, r)
	if err := c.Clear(r.Context()); err != nil {
		log.Error().Err(err).Msg("cart clear failed")
		writeProblem(w, http.StatusInternalServerError, "Cart unavailable", "could not update the cart")
		return
	}
	observability.ObserveCart("clear")
	writeJSON(w, http.StatusOK, newCartView(r.Context(), c))
}

/********** checkout **********/

type emptyCTA struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

type checkoutView struct {
	State          checkout.State       `json:"state"`
	Brand          string               `json:"brand"`
	Lines          []checkout.Line      `json:"lines"`
	Total          decimal.Decimal      `json:"total"`
	ManualQuote    []string             `json:"manualQuote"`
	Errors         checkout.FieldErrors `json:"errors,omitempty"`
	PaymentEnabled bool                 `json:"paymentEnabled"`
	Message        string               `json:"message,omitempty"`
	CTA            *emptyCTA            `json:"cta,omitempty"`
	Lead           domain.LeadContact   `json:"lead"`
	Terms          bool                 `json:"termsAccepted"`
}

func newCheckoutView(s *checkout.Session) checkoutView {
	d := s.Draft()
	v := checkoutView{
		State:       s.State,
		Brand:       s.Brand.ID,
		Lines:       s.Lines(),
		Total:       d.TotalComputed,
		ManualQuote: s.Summary().ManualQuote,
		Lead:        d.Lead,
		Terms:       d.TermsAccepted,
	}
	switch s.State {
	case checkout.StateEmpty:
		v.Message = "Your trip is empty."
		v.CTA = &emptyCTA{Label: "Browse tours", Href: "/tours"}
	case checkout.StateUnavailable:
		v.Message = "We could not load your trip right now. Please try again shortly."
	case checkout.StateReady:
		v.Errors = s.Validate()
		v.PaymentEnabled = len(v.Errors) == 0
	}
	return v
}

// session loads the visitor's checkout and applies any posted form input.
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*checkout.Session, bool) {
	var in checkout.DraftInput
	if err := decodeBody(r, &in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "checkout form could not be decoded")
		return nil, false
	}
	s := h.Checkout.Load(r.Context(), h.brand(r), h.site(r), h.cart(w, r))
	if s.State == checkout.StateReady {
		s.Apply(in)
	}
	return s, true
}

func (h *Handlers) viewCheckout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newCheckoutView(s))
}

func (h *Handlers) createPayment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	order, err := h.Checkout.CreatePayment(r.Context(), s)
	if err != nil {
		h.checkoutError(w, s, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"orderId": order.ID})
}

func (h *Handlers) capturePayment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	b, err := h.Checkout.Commit(r.Context(), s, orderID)
	if err != nil {
		h.checkoutError(w, s, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"bookingId": b.ID, "redirect": successRedirect})
}

func (h *Handlers) checkoutError(w http.ResponseWriter, s *checkout.Session, err error) {
	var verr *checkout.ValidationError
	var cerr *checkout.CommitError
	switch {
	case errors.As(err, &verr):
		writeProblemWith(w, problem{
			Status: http.StatusUnprocessableEntity,
			Title:  "Checkout incomplete",
			Detail: "Please complete the highlighted fields.",
			Errors: verr.Fields,
		})
	case errors.Is(err, checkout.ErrNothingToCharge):
		writeProblem(w, http.StatusUnprocessableEntity, "Quote required", "Every tour in your trip is priced on request. Send us an inquiry instead.")
	case errors.Is(err, domain.ErrLocked):
		writeProblem(w, http.StatusConflict, "Payment in progress", "This payment is already being processed.")
	case errors.Is(err, domain.ErrPaymentCancelled):
		writeProblem(w, http.StatusPaymentRequired, "Payment cancelled", "The payment was cancelled. You have not been charged.")
	case errors.Is(err, domain.ErrPaymentFailed):
		writeProblem(w, http.StatusPaymentRequired, "Payment failed", "The payment could not be completed. Please try again.")
	case errors.As(err, &cerr):
		writeProblemWith(w, problem{
			Status:         http.StatusBadGateway,
			Title:          "Booking not completed",
			Detail:         "Your payment was received but we could not finish your booking. Please do not pay again; try again shortly or we will contact you.",
			ConfirmationID: cerr.ConfirmationID,
		})
	default:
		log.Error().Err(err).Str("brand", s.Brand.ID).Msg("checkout request failed")
		writeProblem(w, http.StatusBadGateway, "Payment provider unavailable", "Please try again shortly.")
	}
}

/********** inquiries **********/

func (h *Handlers) postInquiry(w http.ResponseWriter, r *http.Request) {
	var in domain.Inquiry
	if err := decodeBody(r, &in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "inquiry could not be decoded")
		return
	}
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	errs := map[string]string{}
	if in.FullName == "" {
		errs["fullName"] = "Full name is required"
	}
	if !checkout.ValidEmail(in.Email) {
		errs["email"] = "A valid email is required"
	}
	if len(errs) > 0 {
		writeProblemWith(w, problem{Status: http.StatusUnprocessableEntity, Title: "Inquiry incomplete", Errors: errs})
		return
	}

	b := h.brand(r)
	rt, err := h.Notifier.Notify(r.Context(), b.ID, notify.InquiryPayload(in, h.site(r)), in.Email)
	if err != nil {
		log.Error().Err(err).Str("brand", b.ID).Str("email", observability.RedactEmail(in.Email)).Msg("inquiry notification failed")
		writeJSON(w, http.StatusBadGateway, map[string]any{"success": false, "error": "Failed to send inquiry. Please try again."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "routedTo": rt.Recipient})
}
