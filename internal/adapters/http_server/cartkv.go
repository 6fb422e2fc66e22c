package httpserver

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

const (
	// SessionCookie carries the cart session id when carts live server-side.
	SessionCookie = "cart_session"
	cartCookieAge = 30 * 24 * time.Hour
)

// CartKV builds the cart storage for one request.
type CartKV func(w http.ResponseWriter, r *http.Request) domain.KVStore

// CookieKV keeps values in browser cookies. Writes are visible to later reads
// in the same request, so a handler can mutate and then list.
type CookieKV struct {
	r       *http.Request
	w       http.ResponseWriter
	secure  bool
	pending map[string]*string
}

func NewCookieKV(w http.ResponseWriter, r *http.Request, secure bool) *CookieKV {
	return &CookieKV{r: r, w: w, secure: secure, pending: map[string]*string{}}
}

func (kv *CookieKV) Get(_ context.Context, key string) (string, bool, error) {
	if v, ok := kv.pending[key]; ok {
		if v == nil {
			return "", false, nil
		}
		return *v, true, nil
	}
	c, err := kv.r.Cookie(key)
	if err != nil {
		return "", false, nil
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (kv *CookieKV) Set(_ context.Context, key, value string) error {
	http.SetCookie(kv.w, &http.Cookie{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   int(cartCookieAge / time.Second),
		SameSite: http.SameSiteLaxMode,
		Secure:   kv.secure,
	})
	kv.pending[key] = &value
	return nil
}

func (kv *CookieKV) Delete(_ context.Context, key string) error {
	http.SetCookie(kv.w, &http.Cookie{
		Name:     key,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		SameSite: http.SameSiteLaxMode,
		Secure:   kv.secure,
	})
	kv.pending[key] = nil
	return nil
}

// CookieCart stores the cart in a cookie of its own.
func CookieCart(secure bool) CartKV {
	return func(w http.ResponseWriter, r *http.Request) domain.KVStore {
		return NewCookieKV(w, r, secure)
	}
}

// SessionCart stores the cart server-side under a per-browser session id,
// issuing the session cookie on first use.
func SessionCart(open func(sessionID string) domain.KVStore, secure bool) CartKV {
	return func(w http.ResponseWriter, r *http.Request) domain.KVStore {
		if c, err := r.Cookie(SessionCookie); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				return open(c.Value)
			}
		}
		sid := uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sid,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   secure,
		})
		return open(sid)
	}
}
