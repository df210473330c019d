// @title Studyhub Backend API
// @version 1.0
// @description Studyhub Backend API: study content marketplace, creator payouts, Q&A and study planner
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	_ "STUDYHUB_BACK-END/docs" // This is required for swagger
	"STUDYHUB_BACK-END/internal/config"
	"STUDYHUB_BACK-END/internal/database"
	"STUDYHUB_BACK-END/internal/handlers"
	"STUDYHUB_BACK-END/internal/jobs"
	"STUDYHUB_BACK-END/internal/logger"
	"STUDYHUB_BACK-END/internal/middleware"
	"STUDYHUB_BACK-END/internal/oauth"
	"STUDYHUB_BACK-END/internal/payments"
	"STUDYHUB_BACK-END/internal/realtime"
	"STUDYHUB_BACK-END/internal/repository"
	"STUDYHUB_BACK-END/internal/routes"
	"STUDYHUB_BACK-END/internal/schools"
	"STUDYHUB_BACK-END/internal/service"
	"STUDYHUB_BACK-END/internal/storage"
	"STUDYHUB_BACK-END/internal/utils"
)

// sweepSchedule is how often in-memory limiter and state entries are pruned
const sweepSchedule = "@every 5m"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger.Setup(cfg.Log)

	// --- Database ---
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.GetDSN()); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}
	pool, err := database.Connect(context.Background(), cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()
	store := repository.NewPostgres(pool)

	// --- Services ---
	hub := realtime.NewHub(cfg.CORS.AllowedOrigins)
	defer hub.Close()

	var mailer *utils.EmailService
	if cfg.IsEmailConfigured() {
		mailer = utils.NewEmailService(&cfg.Email)
	}

	notifier := service.NewNotifier(store, store, hub)
	purchases := service.NewPurchases(store, store, store, store, notifier, optionalMailer(mailer), cfg.Marketplace)
	payouts := service.NewPayouts(store, store, store, notifier, optionalMailer(mailer), cfg.Marketplace)
	gateways := service.NewPayments(purchases, store,
		payments.NewTossClient(cfg.Payments.TossBaseURL, cfg.Payments.TossSecretKey),
		payments.NewPortOneClient(cfg.Payments.PortOneBaseURL, cfg.Payments.PortOneAPISecret))

	states, err := oauth.NewStateStore(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("oauth state store: %v", err)
	}

	schoolIndex, err := schools.Load(cfg.Schools.DataPath)
	if err != nil {
		log.Fatalf("schools: %v", err)
	}

	// --- HTTP Handlers ---
	h := &routes.Handlers{
		Auth:           handlers.NewAuthHandler(store, &cfg.JWT),
		ForgotPassword: handlers.NewForgotPasswordHandler(store, store, optionalCodeMailer(mailer), &cfg.JWT),
		SocialAuth:     handlers.NewSocialAuthHandler(oauth.NewRegistry(cfg), states, store, &cfg.JWT, cfg.Server.FrontendURL),
		Profile:        handlers.NewProfileHandler(store, store),
		Creator:        handlers.NewCreatorHandler(store, store, store, payouts, &cfg.JWT, cfg.Marketplace.MinPayoutAmount),
		PaymentAccount: handlers.NewPaymentAccountHandler(store),
		Contents:       handlers.NewContentsHandler(store, store, store, purchases, notifier, storage.NewSigner(cfg)),
		Purchases:      handlers.NewPurchasesHandler(purchases, store, cfg.Payments.P2PAccount),
		Payments:       handlers.NewPaymentsHandler(gateways, cfg.Payments.PortOneWebhookSecret),
		Admin:          handlers.NewAdminHandler(purchases, payouts, store),
		Subscriptions:  handlers.NewSubscriptionsHandler(store, store, notifier),
		Questions:      handlers.NewQuestionsHandler(store, store, store, notifier),
		Notifications:  handlers.NewNotificationsHandler(store, hub),
		Routines:       handlers.NewRoutinesHandler(store),
		Map:            handlers.NewMapHandler(schoolIndex),
		Health:         handlers.NewHealthHandler(store, states),
	}
	limits := &middleware.RateLimiters{
		Auth:     middleware.NewRateLimiter("auth", cfg.RateLimit.AuthPerSecond, cfg.RateLimit.AuthBurst),
		Webhook:  middleware.NewRateLimiter("webhook", cfg.RateLimit.WebhookPerSecond, cfg.RateLimit.WebhookBurst),
		Purchase: middleware.NewRateLimiter("purchase", cfg.RateLimit.PurchasePerSecond, cfg.RateLimit.PurchaseBurst),
	}

	// --- Background jobs ---
	scheduler := jobs.NewScheduler(time.Minute)
	if err := scheduler.ExpirePurchases(cfg.Jobs.ExpirePurchasesSchedule, purchases); err != nil {
		log.Fatalf("jobs: %v", err)
	}
	if err := scheduler.Sweep(jobs.JobSweepLimiters, sweepSchedule, limits); err != nil {
		log.Fatalf("jobs: %v", err)
	}
	if mem, ok := states.(*oauth.MemoryStateStore); ok {
		if err := scheduler.Sweep(jobs.JobSweepStates, sweepSchedule, mem); err != nil {
			log.Fatalf("jobs: %v", err)
		}
	}
	scheduler.Start()

	// --- HTTP Server + Graceful Shutdown ---
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           routes.SetupRoutes(cfg, h, limits),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithFields(log.Fields{"port": cfg.Server.Port, "env": cfg.Env}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	scheduler.Stop(shutdownCtx)
	if closer, ok := states.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.WithError(err).Warn("close oauth state store")
		}
	}
	log.Info("Server stopped")
}

// optionalMailer keeps a nil *EmailService from becoming a non-nil interface
func optionalMailer(m *utils.EmailService) service.Mailer {
	if m == nil {
		return nil
	}
	return m
}

func optionalCodeMailer(m *utils.EmailService) handlers.CodeMailer {
	if m == nil {
		return nil
	}
	return m
}
