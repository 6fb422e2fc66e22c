package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"storefront/internal/tenant"
)

type Server struct{ mux *chi.Mux }

type Options struct {
	Resolver       *tenant.Resolver
	SecureCookies  bool
	AllowedOrigins []string
}

func New(o Options) *Server {
	m := chi.NewRouter()

	// All middlewares go here (before any routes are added)
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(Timeout(15 * time.Second))
	m.Use(Metrics)
	m.Use(Logger(log.Logger))
	if len(o.AllowedOrigins) > 0 {
		m.Use(cors.Handler(cors.Options{
			AllowedOrigins:   o.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "If-None-Match"},
			ExposedHeaders:   []string{"ETag", cartCountHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if o.Resolver != nil {
		m.Use(TenantContext(o.Resolver, o.SecureCookies))
	}

	return &Server{mux: m}
}

// BrandOrigins lists https origins for every brand host and its www. variant.
func BrandOrigins(reg *tenant.Registry) []string {
	hosts := reg.Hosts()
	out := make([]string, 0, 2*len(hosts))
	for _, h := range hosts {
		out = append(out, "https://"+h, "https://www."+h)
	}
	return out
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
