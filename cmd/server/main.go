package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LonelyIsle/resort-api/internal/auth"
	"github.com/LonelyIsle/resort-api/internal/cache"
	"github.com/LonelyIsle/resort-api/internal/config"
	"github.com/LonelyIsle/resort-api/internal/db"
	"github.com/LonelyIsle/resort-api/internal/export"
	"github.com/LonelyIsle/resort-api/internal/handlers"
	"github.com/LonelyIsle/resort-api/internal/logger"
	"github.com/LonelyIsle/resort-api/internal/metrics"
	"github.com/LonelyIsle/resort-api/internal/payments"
	"github.com/LonelyIsle/resort-api/internal/report"
	"github.com/LonelyIsle/resort-api/internal/respond"
	"github.com/LonelyIsle/resort-api/internal/rooms"
	"github.com/LonelyIsle/resort-api/internal/security"
	"github.com/LonelyIsle/resort-api/internal/ws"
)

func main() {
	cfg, err := config.Load(".env", "../.env")
	if err != nil {
		logger.L().WithError(err).Fatal("config")
	}
	if err := logger.Init(cfg.Log); err != nil {
		logger.L().WithError(err).Fatal("logger init")
	}
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Open(ctx, cfg.PGURL, cfg.PGMaxConns)
	if err != nil {
		logger.L().WithError(err).Fatal("db init")
	}
	defer pool.Close()

	sessions, err := cache.New(ctx, cfg.ValkeyAddr, cfg.ValkeyDB)
	if err != nil {
		logger.L().WithError(err).Fatal("valkey init")
	}
	defer sessions.Close()

	hub := ws.NewHub()
	go hub.Run(ctx)

	authSvc := auth.NewService(db.NewUsers(pool), sessions, cfg.SessionTTL, cfg.IsProd())
	reportSvc := report.NewService(pool,
		report.NewQueryGuard(report.DefaultDeniedKeywords(), cfg.ReportExtraDeniedKeyword),
		report.WithTimeout(cfg.ReportQueryTimeout),
		report.WithMaxRows(cfg.CustomQueryMaxRows),
	)

	reportsH := handlers.NewReports(reportSvc, export.NewExporter())
	roomsH := handlers.NewRooms(rooms.NewService(pool, hub))
	paymentsH := handlers.NewPayments(payments.NewService(pool))
	adminH := handlers.NewAdmin(time.Now(), hub, pool)

	rateLimit := security.Passthrough
	if !cfg.DisableRateLimit {
		rl := security.NewRateLimiter(cfg.RateLimitPerMinute)
		go rl.Janitor(ctx, 5*time.Minute)
		rateLimit = rl.Middleware
	}

	r := chi.NewRouter()
	r.Use(security.RequestID)
	r.Use(security.RequestLogger)
	r.Use(security.Recoverer)
	r.Use(security.CSRF(cfg.DisableCSRF))
	r.Use(rateLimit)

	// health
	r.Get("/api/ping", func(w http.ResponseWriter, _ *http.Request) {
		respond.OK(w, map[string]bool{"pong": true}, "")
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/csrf", security.IssueCSRFToken)
		r.Post("/login", authSvc.Login)
		r.Post("/logout", authSvc.Logout)
		r.With(authSvc.RequireAuth).Get("/me", authSvc.Me)
	})

	r.Group(func(r chi.Router) {
		r.Use(authSvc.RequireAuth)

		r.Route("/api/reports", func(r chi.Router) {
			r.Use(auth.RequireRole("admin", "manager"))
			r.Post("/generate", reportsH.Generate)
			r.Get("/financial", reportsH.ByType(report.TypeFinancial))
			r.Get("/occupancy", reportsH.ByType(report.TypeOccupancy))
			r.Get("/minibar", reportsH.ByType(report.TypeMinibar))
			r.Get("/notifications", reportsH.ByType(report.TypeNotifications))
			r.Get("/types", reportsH.Types)
			r.Get("/formats", reportsH.Formats)
			r.Get("/stats", reportsH.Stats)
			r.With(auth.RequireRole("admin")).Post("/custom", reportsH.Custom)
		})

		r.Get("/api/rooms", roomsH.List)
		r.With(auth.RequireRole("admin", "manager", "staff")).Patch("/api/rooms/{id}/status", roomsH.UpdateStatus)
		r.With(auth.RequireRole("admin", "manager")).Post("/api/payments/{id}/status", paymentsH.UpdateStatus)
		r.With(auth.RequireRole("admin")).Get("/api/admin", adminH.Dashboard)
		r.Handle("/ws/rooms", hub)
	})

	// static frontend (optional)
	r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.ReportQueryTimeout + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		logger.L().WithField("addr", cfg.Address).WithField("env", cfg.AppEnv).Info("resort API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	logger.L().Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L().WithError(err).Error("graceful shutdown")
	}
}
