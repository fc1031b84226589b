package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fleetward/control-plane/internal/auth"
	"github.com/fleetward/control-plane/internal/config"
	"github.com/fleetward/control-plane/internal/db"
	"github.com/fleetward/control-plane/internal/httpapi"
	"github.com/fleetward/control-plane/internal/service"
	"github.com/fleetward/control-plane/internal/store"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", "fleetward-control-plane").Logger()

	cfg := config.FromEnv()

	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	cfg.Validate()

	ctx := context.Background()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply database schema")
	}

	orgs := store.NewOrganizationRepo(pool)
	users := store.NewUserRepo(pool)
	endpoints := store.NewEndpointRepo(pool)
	tokens := store.NewTokenRepo(pool)
	policies := store.NewPolicyRepo(pool)
	baselines := store.NewBaselineRepo(pool)
	incidents := store.NewIncidentRepo(pool)
	heartbeats := store.NewHeartbeatRepo(pool)
	audit := store.NewAuditRepo(pool)

	signer := auth.NewJWTSigner(cfg.JWTSecret, cfg.JWTExpirationHours)
	queue := service.NoopCommandQueue{}

	srv := &httpapi.Server{
		DB:          pool,
		Signer:      signer,
		AgentSecret: cfg.AgentSecret,

		Orgs:      orgs,
		Users:     users,
		Endpoints: endpoints,

		Enrollment: &service.EnrollmentService{
			DB: pool, Orgs: orgs, Users: users, Endpoints: endpoints,
			Tokens: tokens, Audit: audit, Signer: signer, AgentSecret: cfg.AgentSecret,
		},
		Heartbeat: &service.HeartbeatService{
			Endpoints: endpoints, Policies: policies, History: heartbeats, Queue: queue,
		},
		Sync: &service.SyncService{
			Baselines: baselines, Incidents: incidents, Endpoints: endpoints,
		},
		Policies:      &service.PolicyService{Policies: policies, Audit: audit},
		Tokens:        &service.TokenService{Orgs: orgs, Tokens: tokens, Audit: audit},
		Reports:       &service.ReportService{Endpoints: endpoints, Incidents: incidents},
		Organizations: &service.OrganizationService{Orgs: orgs},
		EndpointAdmin: &service.EndpointAdminService{Endpoints: endpoints, Audit: audit},
		IncidentAdmin: &service.IncidentAdminService{Incidents: incidents, Endpoints: endpoints, Audit: audit},
	}

	addr := ":" + strconv.Itoa(cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("server stopped")
}
