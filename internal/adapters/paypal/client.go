// Package paypal is a minimal Orders v2 client: create an order, capture it.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"storefront/internal/adapters/observability"
	"storefront/internal/domain"
)

const (
	SandboxBase = "https://api-m.sandbox.paypal.com"
	LiveBase    = "https://api-m.paypal.com"
)

type Client struct {
	base string
	hc   *http.Client
}

// New returns a client whose HTTP calls carry a cached client-credentials token.
func New(base, clientID, secret string) (*Client, error) {
	if clientID == "" || secret == "" {
		return nil, fmt.Errorf("paypal client id and secret are required")
	}
	base = strings.TrimRight(base, "/")
	if base == "" {
		base = SandboxBase
	}
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: secret,
		TokenURL:     base + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	transport := &http.Client{Timeout: 20 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, transport)
	hc := cc.Client(ctx)
	hc.Timeout = 30 * time.Second
	return &Client{base: base, hc: hc}, nil
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Description string `json:"description,omitempty"`
	Amount      amount `json:"amount"`
}

type orderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type orderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
				Amount amount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

type apiError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Details []struct {
		Issue string `json:"issue"`
	} `json:"details"`
}

func (c *Client) CreateOrder(ctx context.Context, currency string, total decimal.Decimal, description string) (domain.PaymentOrder, error) {
	body := orderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Description: description,
			Amount:      amount{CurrencyCode: currency, Value: total.StringFixed(2)},
		}},
	}
	var out orderResponse
	if err := c.post(ctx, "/v2/checkout/orders", "create_order", body, &out); err != nil {
		return domain.PaymentOrder{}, err
	}
	return domain.PaymentOrder{ID: out.ID, Status: out.Status}, nil
}

// CaptureOrder finalises an approved order. Anything short of COMPLETED is a failed payment.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (domain.PaymentCapture, error) {
	if orderID == "" {
		return domain.PaymentCapture{}, fmt.Errorf("%w: missing order id", domain.ErrPaymentFailed)
	}
	var out orderResponse
	if err := c.post(ctx, "/v2/checkout/orders/"+orderID+"/capture", "capture_order", struct{}{}, &out); err != nil {
		return domain.PaymentCapture{}, fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
	}
	if out.Status != "COMPLETED" {
		return domain.PaymentCapture{}, fmt.Errorf("%w: order %s status %s", domain.ErrPaymentFailed, orderID, out.Status)
	}
	pc := domain.PaymentCapture{ConfirmationID: out.ID, Status: out.Status}
	if len(out.PurchaseUnits) > 0 && len(out.PurchaseUnits[0].Payments.Captures) > 0 {
		cap0 := out.PurchaseUnits[0].Payments.Captures[0]
		pc.CaptureID = cap0.ID
		if v, err := decimal.NewFromString(cap0.Amount.Value); err == nil {
			pc.Amount = v
		}
	}
	return pc, nil
}

var errDeclined = errors.New("paypal: payer action required or instrument declined")

func (c *Client) post(ctx context.Context, path, endpoint string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("paypal", endpoint, 0, time.Since(start))
		return fmt.Errorf("paypal %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("paypal", endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		var ae apiError
		_ = json.Unmarshal(raw, &ae)
		if resp.StatusCode == http.StatusUnprocessableEntity {
			issue := ae.Name
			if len(ae.Details) > 0 {
				issue = ae.Details[0].Issue
			}
			return fmt.Errorf("%w: %s", errDeclined, issue)
		}
		return fmt.Errorf("paypal %s: status %d: %s %s", endpoint, resp.StatusCode, ae.Name, ae.Message)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
