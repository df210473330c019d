package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"STUDYHUB_BACK-END/internal/config"
	"STUDYHUB_BACK-END/internal/handlers"
	"STUDYHUB_BACK-END/internal/metrics"
	"STUDYHUB_BACK-END/internal/middleware"
	"STUDYHUB_BACK-END/internal/models"
)

// Handlers bundles every HTTP handler the router mounts
type Handlers struct {
	Auth           *handlers.AuthHandler
	ForgotPassword *handlers.ForgotPasswordHandler
	SocialAuth     *handlers.SocialAuthHandler
	Profile        *handlers.ProfileHandler
	Creator        *handlers.CreatorHandler
	PaymentAccount *handlers.PaymentAccountHandler
	Contents       *handlers.ContentsHandler
	Purchases      *handlers.PurchasesHandler
	Payments       *handlers.PaymentsHandler
	Admin          *handlers.AdminHandler
	Subscriptions  *handlers.SubscriptionsHandler
	Questions      *handlers.QuestionsHandler
	Notifications  *handlers.NotificationsHandler
	Routines       *handlers.RoutinesHandler
	Map            *handlers.MapHandler
	Health         *handlers.HealthHandler
}

// SetupRoutes configures all application routes and returns the root handler
func SetupRoutes(cfg *config.Config, h *Handlers, limits *middleware.RateLimiters) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
	}).Handler)

	requireAuth := middleware.AuthMiddleware(&cfg.JWT)
	optionalAuth := middleware.OptionalAuth(&cfg.JWT)
	creatorOnly := middleware.RequireRole(models.RoleCreator, models.RoleAdmin)

	// Health check routes
	r.Get("/healthz", h.Health.HealthCheck)
	r.Get("/livez", h.Health.LivenessCheck)
	r.Get("/readyz", h.Health.ReadinessCheck)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api", func(r chi.Router) {
		// Authentication routes
		r.Route("/auth", func(r chi.Router) {
			r.Get("/providers", h.SocialAuth.Providers)
			r.Group(func(r chi.Router) {
				r.Use(limits.Auth.Handler)
				r.Post("/register", h.Auth.Register)
				r.Post("/login", h.Auth.Login)
				r.Post("/forgot-password", h.ForgotPassword.ForgotPassword)
				r.Post("/verify-otp", h.ForgotPassword.VerifyOTP)
				r.Post("/reset-password", h.ForgotPassword.ResetPassword)
				r.Get("/{provider}/login", h.SocialAuth.Login)
				r.Get("/{provider}/callback", h.SocialAuth.Callback)
			})
			r.With(requireAuth).Get("/me", h.Auth.Me)
		})

		// Gateways call these; authenticity is checked per provider
		r.Route("/webhooks", func(r chi.Router) {
			r.Use(limits.Webhook.Handler)
			r.Post("/portone", h.Payments.PortOneWebhook)
			r.Post("/toss", h.Payments.TossWebhook)
		})

		// Public catalogue and study map
		r.With(optionalAuth).Get("/contents", h.Contents.List)
		r.With(optionalAuth).Get("/contents/{id}", h.Contents.Get)
		r.Get("/profiles/{id}", h.Profile.GetPublic)
		r.Get("/creators/{id}/subscribers/count", h.Subscriptions.Count)
		r.Get("/map/schools", h.Map.ListSchools)
		r.Get("/map/schools/{code}", h.Map.GetSchool)

		// The websocket handshake cannot carry an Authorization header from browsers
		r.With(middleware.QueryTokenAuth(&cfg.JWT)).Get("/notifications/ws", h.Notifications.Stream)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/profile", h.Profile.Get)
			r.Put("/profile", h.Profile.Update)
			r.Get("/payment-account", h.PaymentAccount.Get)
			r.Put("/payment-account", h.PaymentAccount.Put)

			r.Get("/contents/{id}/access", h.Contents.Access)
			r.Get("/me/library", h.Contents.Library)
			r.With(creatorOnly).Post("/contents", h.Contents.Create)
			r.With(creatorOnly).Put("/contents/{id}", h.Contents.Update)
			r.With(creatorOnly).Delete("/contents/{id}", h.Contents.Delete)

			r.Route("/creator", func(r chi.Router) {
				r.Get("/settings", h.Creator.GetSettings)
				r.Put("/settings", h.Creator.UpdateSettings)
				r.Group(func(r chi.Router) {
					r.Use(creatorOnly)
					r.Get("/balance", h.Creator.Balance)
					r.Get("/sales", h.Creator.Sales)
					r.Post("/payout", h.Creator.RequestPayout)
					r.Get("/payouts", h.Creator.ListPayouts)
				})
			})

			r.Route("/purchases", func(r chi.Router) {
				r.Get("/", h.Purchases.List)
				r.With(limits.Purchase.Handler).Post("/", h.Purchases.Create)
				r.Get("/{id}", h.Purchases.Get)
				r.Post("/{id}/deposit", h.Purchases.Deposit)
				r.Post("/{id}/cancel", h.Purchases.Cancel)
			})
			r.Route("/payments", func(r chi.Router) {
				r.Use(limits.Purchase.Handler)
				r.Post("/toss/confirm", h.Payments.ConfirmToss)
				r.Post("/portone/complete", h.Payments.CompletePortOne)
			})

			r.Get("/subscriptions", h.Subscriptions.List)
			r.Post("/creators/{id}/subscribe", h.Subscriptions.Subscribe)
			r.Delete("/creators/{id}/subscribe", h.Subscriptions.Unsubscribe)

			r.Route("/questions", func(r chi.Router) {
				r.Get("/", h.Questions.List)
				r.Post("/", h.Questions.Create)
				r.Get("/{id}", h.Questions.Get)
				r.Post("/{id}/answers", h.Questions.Answer)
				r.Post("/{id}/close", h.Questions.Close)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notifications.ListNotifications)
				r.Post("/read-all", h.Notifications.MarkAllRead)
				r.Post("/{id}/read", h.Notifications.MarkRead)
			})

			r.Route("/routines", func(r chi.Router) {
				r.Get("/", h.Routines.List)
				r.Post("/", h.Routines.Create)
				r.Get("/{id}", h.Routines.Get)
				r.Put("/{id}", h.Routines.Update)
				r.Delete("/{id}", h.Routines.Delete)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Get("/purchases", h.Admin.ListPurchases)
				r.Post("/purchases/{id}/confirm", h.Admin.ConfirmPurchase)
				r.Post("/purchases/{id}/reject", h.Admin.RejectPurchase)
				r.Post("/purchases/{id}/refund", h.Admin.RefundPurchase)
				r.Get("/payouts", h.Admin.ListPayouts)
				r.Post("/payouts/{id}/approve", h.Admin.ApprovePayout)
				r.Post("/payouts/{id}/reject", h.Admin.RejectPayout)
				r.Get("/stats", h.Admin.Stats)
			})
		})
	})

	// Root route
	r.Get("/", rootHandler)
	return r
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Studyhub backend is running."))
}
