// Package main wires the consent engine: identity provider edge, consent and
// delegation services, key rotation, notifications, and the HTTP surface.
// Business logic lives in the internal services packages.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"travlr/internal/audit"
	consenthandler "travlr/internal/consent/handler"
	consentmetrics "travlr/internal/consent/metrics"
	consentservice "travlr/internal/consent/service"
	consentstore "travlr/internal/consent/store"
	"travlr/internal/contextcard"
	"travlr/internal/credentials"
	delegationhandler "travlr/internal/delegation/handler"
	delegationmetrics "travlr/internal/delegation/metrics"
	delegationservice "travlr/internal/delegation/service"
	delegationstore "travlr/internal/delegation/store"
	"travlr/internal/identity"
	jwttoken "travlr/internal/jwt_token"
	"travlr/internal/notify"
	"travlr/internal/platform/config"
	"travlr/internal/platform/health"
	"travlr/internal/platform/httpserver"
	"travlr/internal/platform/logger"
	"travlr/internal/rotation"
	"travlr/internal/session"
	httptransport "travlr/internal/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New().Error("configuration error", "error", err)
		os.Exit(1)
	}
	log := logger.New()

	log.Info("initializing consent engine",
		"addr", cfg.Addr,
		"metrics_addr", cfg.MetricsAddr,
		"env", cfg.Env,
	)

	provider := identity.NewResilientProvider(
		identity.NewInMemoryProvider(),
		identity.WithCallTimeout(cfg.ProviderTimeout),
		identity.WithResilientLogger(log),
	)

	codec, err := contextcard.NewCodec()
	if err != nil {
		log.Error("codec initialization failed", "error", err)
		os.Exit(1)
	}

	auditor := audit.NewPublisher(audit.NewInMemoryStore(),
		audit.WithAsyncBuffer(256),
		audit.WithPublisherLogger(log),
	)
	defer auditor.Close()

	sessions := session.NewIssuer(session.WithTokenTTL(cfg.SessionTokenTTL))
	vault := credentials.NewInMemoryVault()
	hub := notify.NewHub(notify.WithHubLogger(log))

	delegationSvc := delegationservice.NewService(
		delegationstore.New(),
		provider,
		auditor,
		delegationservice.WithLogger(log),
		delegationservice.WithNotifier(hub),
		delegationservice.WithMetrics(delegationmetrics.New()),
	)

	consentMetrics := consentmetrics.New()
	consentSvc := consentservice.NewService(
		consentstore.New(),
		provider,
		codec,
		sessions,
		vault,
		auditor,
		consentservice.WithLogger(log),
		consentservice.WithMetrics(consentMetrics),
		consentservice.WithRequestTTL(cfg.RequestTTL),
		consentservice.WithGrantTTL(cfg.GrantTTL),
		consentservice.WithDelegationChecker(delegationSvc),
		consentservice.WithNotifier(hub),
	)

	// The cascade runs delegation -> consent; registered after construction
	// so neither service depends on the other at build time.
	delegationSvc.RegisterRevokeHook(consentSvc.RevokeByDelegation)

	coordinator := rotation.NewCoordinator(
		provider,
		rotation.NewInMemoryStore(),
		auditor,
		rotation.WithLogger(log),
		rotation.WithMaxKeyAge(cfg.RotationMaxKeyAge),
		rotation.WithIdentityMaxAge(cfg.RotationIdentityAge),
		rotation.WithNotifier(hub),
		rotation.WithSessionInvalidator(sessions),
		rotation.WithDelegationResolver(delegationSvc),
		rotation.WithCounterparties(&counterpartyLister{
			consent:     consentSvc,
			delegations: delegationSvc,
		}),
	)

	tokens := jwttoken.NewService(cfg.JWTSigningKey, "travlr", cfg.APITokenTTL)

	// Sentinel identity for the readiness probe; resolving it exercises the
	// full provider edge without minting identities per probe.
	probeCtx, probeCancel := context.WithTimeout(context.Background(), cfg.ProviderTimeout)
	probe, err := provider.CreateIdentifier(probeCtx)
	probeCancel()
	if err != nil {
		log.Error("identity provider unavailable at startup", "error", err)
		os.Exit(1)
	}

	healthHandler := health.New(cfg.Env)
	healthHandler.RegisterCheck("identity_provider", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ProviderTimeout)
		defer cancel()
		_, err := provider.Resolve(ctx, probe)
		return err
	})

	router := httptransport.NewRouter(httptransport.Deps{
		Consent:    consenthandler.New(consentSvc, log, consentMetrics),
		Delegation: delegationhandler.New(delegationSvc, log),
		Rotation:   rotation.NewHandler(coordinator, log),
		Notify:     notify.NewHandler(hub, log),
		Health:     healthHandler,
		Auth:       tokens,
		Logger:     log,
	})

	srv := httpserver.New(cfg.Addr, router)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := httpserver.New(cfg.MetricsAddr, metricsMux)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting metrics server", "addr", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return metricsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
