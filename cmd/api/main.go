package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	server "storefront/internal/adapters/http_server"
	"storefront/internal/adapters/observability"
	"storefront/internal/adapters/paypal"
	redisad "storefront/internal/adapters/redis"
	"storefront/internal/adapters/ses"
	"storefront/internal/adapters/strapi"
	"storefront/internal/app"
	"storefront/internal/checkout"
	"storefront/internal/domain"
	"storefront/internal/notify"
	"storefront/internal/shared"
	mysqlrepo "storefront/internal/storage/mysql"
	"storefront/internal/tenant"
)

// disabledPayments stands in when no PayPal credentials are configured.
type disabledPayments struct{}

var errPaymentsDisabled = errors.New("payments are not configured")

func (disabledPayments) CreateOrder(context.Context, string, decimal.Decimal, string) (domain.PaymentOrder, error) {
	return domain.PaymentOrder{}, errPaymentsDisabled
}

func (disabledPayments) CaptureOrder(context.Context, string) (domain.PaymentCapture, error) {
	return domain.PaymentCapture{}, errPaymentsDisabled
}

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	promReg := observability.InitRegistry()
	observability.Serve(ctx, cfg.MetricsAddr, promReg)

	// redis: content cache, reconciliation journal, commit lock, optional cart sessions
	rdb := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis ping failed; cache and journal degraded")
	}

	cms, err := strapi.New(cfg.CMSBase, cfg.CMSToken, cfg.CMSRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize CMS client")
	}
	content := app.NewContentService(cms, redisad.New(rdb), cfg.CacheTTL)

	bookings := openBookings(cfg, cms)

	var payments domain.PaymentGateway = disabledPayments{}
	if pp, err := paypal.New(cfg.PayPalBase, cfg.PayPalClientID, cfg.PayPalSecret); err == nil {
		payments = pp
	}

	notifier := newNotifier(ctx, cfg)

	orch := checkout.New(checkout.Deps{
		Tours:    content,
		Payments: payments,
		Bookings: bookings,
		Notifier: notifier,
		Journal:  redisad.NewJournal(rdb),
		Locker:   redisad.NewLocker(rdb),
		Currency: cfg.Currency,
	})

	reg := tenant.DefaultRegistry()
	res := tenant.NewResolver(reg,
		tenant.WithDefaultHost(cfg.SiteName),
		tenant.WithTrustForwarded(cfg.TrustForwardedHost),
		tenant.WithIgnoredHosts(cfg.IgnoredHosts),
	)

	// http
	srv := server.New(server.Options{
		Resolver:       res,
		SecureCookies:  cfg.Production(),
		AllowedOrigins: server.BrandOrigins(reg),
	})
	srv.Mount("/metrics", observability.MetricsHandler(promReg))
	srv.MountHandlers(&server.Handlers{
		Registry: reg,
		Content:  content,
		Checkout: orch,
		Notifier: notifier,
		CartKV:   cartStorage(cfg, rdb),

		WebhookSecret: cfg.CMSWebhookSecret,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Str("default_host", cfg.SiteName).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}

// openBookings picks where paid bookings are written.
func openBookings(cfg shared.Config, cms *strapi.Client) domain.BookingRepository {
	if cfg.BookingSink == "cms" {
		log.Info().Msg("bookings are written to the CMS")
		return strapi.NewBookingSink(cms)
	}
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	if err := mysqlrepo.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}
	log.Info().Msg("database connection ok")
	return mysqlrepo.New(db)
}

func newNotifier(ctx context.Context, cfg shared.Config) *notify.Notifier {
	router, err := notify.NewRouter()
	if err != nil {
		log.Fatal().Err(err).Msg("notification templates failed to parse")
	}
	var mailer domain.Mailer = ses.LogMailer{}
	if cfg.MailDriver == "ses" {
		m, err := ses.New(ctx, ses.Config{
			Region:    cfg.SESRegion,
			AccessKey: cfg.SESAccessKey,
			SecretKey: cfg.SESSecretKey,
			Endpoint:  cfg.SESEndpoint,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize SES mailer")
		}
		mailer = m
	}
	return notify.NewNotifier(router, mailer)
}

func cartStorage(cfg shared.Config, rdb *redis.Client) server.CartKV {
	if cfg.CartBackend == "redis" {
		return server.SessionCart(func(sid string) domain.KVStore {
			return redisad.NewSessionKV(rdb, sid, cfg.CartSessionTTL)
		}, cfg.Production())
	}
	return server.CookieCart(cfg.Production())
}
