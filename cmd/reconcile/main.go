package main

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"storefront/internal/adapters/observability"
	redisad "storefront/internal/adapters/redis"
	"storefront/internal/adapters/ses"
	"storefront/internal/adapters/strapi"
	"storefront/internal/app"
	"storefront/internal/domain"
	"storefront/internal/notify"
	"storefront/internal/shared"
	mysqlrepo "storefront/internal/storage/mysql"
)

// reconcile replays journaled bookings whose payment was captured but whose
// persistence or notification failed. Run it on a schedule or by hand.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("sink", cfg.BookingSink).
		Int("workers", cfg.ReconcileWorkers).
		Int("batch", cfg.ReconcileBatch).
		Msg("reconciler starting")

	rdb := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis ping failed")
	}

	var bookings domain.BookingRepository
	if cfg.BookingSink == "cms" {
		cms, err := strapi.New(cfg.CMSBase, cfg.CMSToken, cfg.CMSRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize CMS client")
		}
		bookings = strapi.NewBookingSink(cms)
	} else {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("db ping ok")
		bookings = mysqlrepo.New(db)
	}

	router, err := notify.NewRouter()
	if err != nil {
		log.Fatal().Err(err).Msg("notification templates failed to parse")
	}
	var mailer domain.Mailer = ses.LogMailer{}
	if cfg.MailDriver == "ses" {
		m, err := ses.New(ctx, ses.Config{Region: cfg.SESRegion, AccessKey: cfg.SESAccessKey, SecretKey: cfg.SESSecretKey, Endpoint: cfg.SESEndpoint})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize SES mailer")
		}
		mailer = m
	}

	svc := app.NewReconcileService(bookings, notify.NewNotifier(router, mailer), redisad.NewJournal(rdb))

	entries, err := svc.Pending(ctx, cfg.ReconcileBatch)
	if err != nil {
		log.Fatal().Err(err).Msg("reading reconciliation journal failed")
	}
	if len(entries) == 0 {
		log.Info().Msg("nothing to reconcile")
		return
	}

	workers := cfg.ReconcileWorkers
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var failed, review atomic.Int64

	for _, e := range entries {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(e domain.ReconciliationEntry) {
			defer wg.Done()
			defer sem.Release(1)

			err := svc.Retry(ctx, e)
			if errors.Is(err, app.ErrNeedsReview) {
				review.Add(1)
				log.Warn().Err(err).Str("booking_id", e.ID).Str("amount", e.Booking.TotalPaid.String()).Msg("booking awaits manual review")
				return
			}
			if err != nil {
				failed.Add(1)
				log.Warn().Err(err).Str("booking_id", e.ID).Str("stage", string(e.Stage)).Msg("reconcile failed")
				return
			}
			log.Info().Str("booking_id", e.ID).Str("stage", string(e.Stage)).Msg("reconcile ok")
		}(e)
	}

	wg.Wait()
	log.Info().Int("entries", len(entries)).Int64("failed", failed.Load()).Int64("review", review.Load()).Msg("reconciliation completed")
}
