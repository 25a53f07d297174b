// README: Entry point; loads config, wires services, starts HTTP server and background loops.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yumzy/internal/config"
	httptransport "yumzy/internal/http"
	"yumzy/internal/infra"
	"yumzy/internal/metrics"
	"yumzy/internal/modules/dispatch"
	"yumzy/internal/modules/notification"
	"yumzy/internal/modules/order"
	"yumzy/internal/modules/realtime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	mq, err := infra.DialMQ(cfg.MQ.URL)
	if err != nil {
		log.Fatalf("mq dial: %v", err)
	}
	defer mq.Close()
	if err := mq.DeclareNotifications(); err != nil {
		log.Fatalf("mq declare: %v", err)
	}

	var verifier infra.TokenVerifier
	var contacts dispatch.ContactDirectory
	if cfg.Auth.BaseURL != "" {
		verifier = infra.NewAuthServiceVerifier(cfg.Auth.BaseURL)
		contacts = infra.NewAuthServiceContacts(cfg.Auth.BaseURL)
	} else {
		logger.Warn("no auth service configured, trusting bearer tokens as user ids")
		verifier = infra.HeaderVerifier{}
		contacts = infra.NoContacts{}
	}

	var mailer dispatch.Mailer
	if cfg.SMTP.Addr != "" {
		mailer = infra.NewSMTPMailer(cfg.SMTP.Addr, cfg.SMTP.From)
	}

	m := metrics.NewRegistry()

	notifStore := notification.NewStore(dbPool)
	notifState := notification.NewState(redisClient)
	registry := notification.NewRegistry(notifStore, notifState, m)

	hub := realtime.NewHub(
		time.Duration(cfg.Realtime.RetentionSeconds)*time.Second,
		cfg.Realtime.MaxQueueLen,
		m,
	)

	pendingQueue := dispatch.NewPendingQueue(redisClient, m)
	registryTier := dispatch.NewRegistryTier(registry)
	tiers := []dispatch.Tier{
		registryTier,
		dispatch.NewRemoteTier(mq),
		dispatch.NewPendingTier(pendingQueue),
	}
	dispatcher := dispatch.NewDispatcher(tiers, hub, logger, dispatch.DispatcherOpts{
		Mailer:   mailer,
		Contacts: contacts,
		Metrics:  m,
	})

	orderStore := order.NewStore(dbPool)
	reconciler := order.NewReconciler(orderStore, dispatcher, logger, order.ReconcilerOpts{
		SweepInterval:   time.Duration(cfg.Sweep.IntervalSeconds) * time.Second,
		PerOrderTimeout: time.Duration(cfg.Sweep.OrderTimeoutSeconds) * time.Second,
		Metrics:         m,
	})

	handler := httptransport.NewRouter(reconciler, registry, hub, verifier, m, logger)
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go reconciler.RunSweeper(ctx)
	go hub.RunPruner(ctx)
	go pendingQueue.RunDrain(ctx, time.Duration(cfg.Pending.DrainIntervalSeconds)*time.Second, registryTier, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
