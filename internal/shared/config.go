package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration

	// tenant resolution
	SiteName           string
	TrustForwardedHost bool
	IgnoredHosts       []string

	// content
	CMSBase          string
	CMSToken         string
	CMSRPS           int
	CMSWebhookSecret string

	// payments
	PayPalBase     string
	PayPalClientID string
	PayPalSecret   string
	Currency       string

	// email
	SESRegion    string
	SESAccessKey string
	SESSecretKey string
	SESEndpoint  string
	MailDriver   string // ses|log

	BookingSink      string // mysql|cms
	CartBackend      string // cookie|redis
	CartSessionTTL   time.Duration
	ReconcileWorkers int
	ReconcileBatch   int
}

// Production reports whether cookies should be marked Secure.
func (c Config) Production() bool {
	return c.AppEnv == "prod" || c.AppEnv == "production"
}

// Load reads the environment, after merging an optional .env file that never overrides real variables.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/storefront?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisDB:     atoi("REDIS_DB", 0),
		RedisPass:   env("REDIS_PASSWORD", ""),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 3600)) * time.Second,

		SiteName:           strings.ToLower(env("SITE_NAME", "gheraltatours.com")),
		TrustForwardedHost: boolean("TRUST_FORWARDED_HOST", true),
		IgnoredHosts:       list("IGNORED_HOSTS", []string{"localhost", "127.0.0.1", ".internal", "railway.app"}),

		CMSBase:          env("STRAPI_URL", "http://localhost:1337"),
		CMSToken:         env("STRAPI_TOKEN", ""),
		CMSRPS:           atoi("STRAPI_RPS", 10),
		CMSWebhookSecret: env("STRAPI_WEBHOOK_SECRET", ""),

		PayPalBase:     env("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
		PayPalClientID: env("PAYPAL_CLIENT_ID", ""),
		PayPalSecret:   env("PAYPAL_CLIENT_SECRET", ""),
		Currency:       env("CURRENCY", "USD"),

		SESRegion:    env("SES_REGION", "us-east-1"),
		SESAccessKey: env("SES_ACCESS_KEY", ""),
		SESSecretKey: env("SES_SECRET_KEY", ""),
		SESEndpoint:  env("SES_ENDPOINT", ""),
		MailDriver:   env("MAIL_DRIVER", "ses"),

		BookingSink:      env("BOOKING_SINK", "mysql"),
		CartBackend:      env("CART_BACKEND", "cookie"),
		CartSessionTTL:   time.Duration(atoi("CART_SESSION_TTL_HOURS", 72)) * time.Hour,
		ReconcileWorkers: atoi("RECONCILE_WORKERS", 4),
		ReconcileBatch:   atoi("RECONCILE_BATCH", 100),
	}
	if c.PayPalClientID == "" || c.PayPalSecret == "" {
		log.Warn().Msg("PAYPAL_CLIENT_ID / PAYPAL_CLIENT_SECRET are empty; payments disabled")
	}
	if c.CMSToken == "" {
		log.Warn().Msg("STRAPI_TOKEN is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func boolean(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// list splits a comma-separated variable; blanks are dropped.
func list(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
