package tenant

import (
	"net"
	"strings"
)

// Signal names which request input decided the tenant.
type Signal string

const (
	SignalForwarded Signal = "forwarded"
	SignalHost      Signal = "host"
	SignalCookie    Signal = "cookie"
	SignalDefault   Signal = "default"
)

// Signals are the candidate hostnames of one request, in precedence order.
type Signals struct {
	ForwardedHost string
	Host          string
	Cookie        string
}

type Resolution struct {
	HostnameRaw        string `json:"hostnameRaw"`
	HostnameNormalized string `json:"hostname"`
	BrandID            string `json:"brandId"`
	Source             Signal `json:"source"`
}

// DefaultIgnoredHosts mark development and platform-internal hosts that must not pick a brand.
var DefaultIgnoredHosts = []string{"localhost", "127.0.0.1", ".internal", "railway.app"}

type Resolver struct {
	reg            *Registry
	defaultHost    string
	trustForwarded bool
	ignored        []string
}

type Option func(*Resolver)

func WithDefaultHost(h string) Option {
	return func(r *Resolver) {
		if n := Normalize(h); n != "" {
			r.defaultHost = n
		}
	}
}

func WithTrustForwarded(v bool) Option { return func(r *Resolver) { r.trustForwarded = v } }

func WithIgnoredHosts(markers []string) Option {
	return func(r *Resolver) { r.ignored = markers }
}

func NewResolver(reg *Registry, opts ...Option) *Resolver {
	r := &Resolver{
		reg:            reg,
		defaultHost:    reg.defaultHost,
		trustForwarded: true,
		ignored:        DefaultIgnoredHosts,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Resolver) Registry() *Registry { return r.reg }

// Resolve never fails: the first usable signal wins and unknown hosts map to the default brand.
func (r *Resolver) Resolve(s Signals) Resolution {
	raw, src := r.pick(s)
	host := Normalize(raw)
	b, _ := r.reg.Lookup(host)
	return Resolution{
		HostnameRaw:        raw,
		HostnameNormalized: host,
		BrandID:            b.ID,
		Source:             src,
	}
}

// ResolveHost is Resolve for a single bare hostname.
func (r *Resolver) ResolveHost(h string) Resolution { return r.Resolve(Signals{Host: h}) }

func (r *Resolver) pick(s Signals) (string, Signal) {
	if r.trustForwarded {
		// X-Forwarded-Host may carry a proxy chain; the client-facing host is first.
		fh, _, _ := strings.Cut(s.ForwardedHost, ",")
		if r.usable(fh) {
			return strings.TrimSpace(fh), SignalForwarded
		}
	}
	if r.usable(s.Host) {
		return strings.TrimSpace(s.Host), SignalHost
	}
	if r.usable(s.Cookie) {
		return strings.TrimSpace(s.Cookie), SignalCookie
	}
	return r.defaultHost, SignalDefault
}

func (r *Resolver) usable(h string) bool {
	n := Normalize(h)
	if n == "" {
		return false
	}
	for _, m := range r.ignored {
		if m != "" && strings.Contains(n, m) {
			return false
		}
	}
	return true
}

// Normalize lowercases, drops a leading "www." and any ":port".
func Normalize(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if h == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(h); err == nil {
		h = host
	} else if i := strings.LastIndexByte(h, ':'); i >= 0 && !strings.Contains(h[:i], ":") {
		h = h[:i]
	}
	h = strings.TrimSuffix(h, ".")
	for strings.HasPrefix(h, "www.") {
		h = h[len("www."):]
	}
	return h
}
