package router

import (
	"net/http"

	"creatorhub-api/internal/handler"
	"creatorhub-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler              *handler.Handler
	AuthHandler          *handler.AuthHandler
	CreditsHandler       *handler.CreditsHandler
	MediaHandler         *handler.MediaHandler
	WishlistHandler      *handler.WishlistHandler
	NotificationsHandler *handler.NotificationsHandler
	RoomsHandler         *handler.RoomsHandler
	SettingsHandler      *handler.SettingsHandler
	PaymentsHandler      *handler.PaymentsHandler
	IdentityMiddleware   func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Token", "X-Guest-Session"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no identity required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
		r.Get("/api/v1/health", cfg.Handler.Health)
		r.Get("/api/v1/ready", cfg.Handler.Ready)
	}

	if cfg.AuthHandler != nil {
		r.Route("/api/v1/auth", func(r chi.Router) {
			r.Post("/register", cfg.AuthHandler.Register)
			r.Post("/login", cfg.AuthHandler.Login)
			r.Post("/logout", cfg.AuthHandler.Logout)
			r.Post("/refresh", cfg.AuthHandler.Refresh)
			if cfg.PaymentsHandler != nil {
				r.Post("/recovery-code", cfg.PaymentsHandler.RecoveryCode)
			}
		})
		// Resolves the caller or issues a fresh guest session, so it
		// cannot sit behind the identity middleware.
		r.Get("/api/v1/session", cfg.AuthHandler.Session)
	}

	// IDENTITY routes: every request resolves to exactly one identity,
	// account or guest.
	r.Group(func(r chi.Router) {
		if cfg.IdentityMiddleware != nil {
			r.Use(cfg.IdentityMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			if cfg.CreditsHandler != nil {
				r.Route("/credits", func(r chi.Router) {
					r.Get("/", cfg.CreditsHandler.GetBalance)
					r.Post("/add", cfg.CreditsHandler.Add)
					r.Post("/subtract", cfg.CreditsHandler.Subtract)
				})
			}

			if cfg.MediaHandler != nil {
				r.Route("/media", func(r chi.Router) {
					r.Get("/", cfg.MediaHandler.List)
					r.Post("/", cfg.MediaHandler.Create)
					r.Route("/{media_id}", func(r chi.Router) {
						r.Get("/", cfg.MediaHandler.Get)
						r.Post("/purchase", cfg.MediaHandler.Purchase)
						r.Get("/unlocked", cfg.MediaHandler.Unlocked)
					})
				})
				r.Get("/unlocks", cfg.MediaHandler.Unlocks)
				r.Get("/sales", cfg.MediaHandler.Sales)
			}

			if cfg.WishlistHandler != nil {
				r.Route("/wishlist", func(r chi.Router) {
					r.Get("/", cfg.WishlistHandler.List)
					r.Post("/", cfg.WishlistHandler.Add)
					r.Delete("/{item_id}", cfg.WishlistHandler.Delete)
				})
			}

			if cfg.NotificationsHandler != nil {
				r.Route("/notifications", func(r chi.Router) {
					r.Get("/", cfg.NotificationsHandler.List)
					r.Post("/{notification_id}/read", cfg.NotificationsHandler.MarkRead)
				})
			}

			if cfg.RoomsHandler != nil {
				r.Route("/rooms/{room}", func(r chi.Router) {
					r.Get("/presence", cfg.RoomsHandler.Online)
					r.Post("/presence/join", cfg.RoomsHandler.JoinPresence)
					r.Post("/presence/heartbeat", cfg.RoomsHandler.HeartbeatPresence)
					r.Post("/presence/leave", cfg.RoomsHandler.LeavePresence)
					r.Get("/queue", cfg.RoomsHandler.QueueStatus)
					r.Post("/queue/enter", cfg.RoomsHandler.EnterQueue)
					r.Post("/queue/leave", cfg.RoomsHandler.LeaveQueue)
				})
			}

			if cfg.SettingsHandler != nil {
				r.Route("/creators/{creator_id}", func(r chi.Router) {
					r.Get("/settings", cfg.SettingsHandler.GetSettings)
					r.Put("/settings", cfg.SettingsHandler.PutSettings)
					r.Route("/blocks", func(r chi.Router) {
						r.Get("/", cfg.SettingsHandler.ListBlocks)
						r.Post("/", cfg.SettingsHandler.AddBlock)
						r.Delete("/{block_id}", cfg.SettingsHandler.DeleteBlock)
					})
				})
			}

			if cfg.PaymentsHandler != nil {
				r.Route("/payments", func(r chi.Router) {
					r.Post("/pix", cfg.PaymentsHandler.GeneratePix)
					r.Post("/pix/confirm", cfg.PaymentsHandler.ConfirmPix)
					r.Post("/card", cfg.PaymentsHandler.ProcessCard)
					r.Get("/public-key", cfg.PaymentsHandler.PublicKey)
					r.Put("/keys/mp", cfg.PaymentsHandler.UpdateMPKey)
					r.Put("/keys/livepix", cfg.PaymentsHandler.UpdateLivePixKeys)
				})
				r.Route("/subscription", func(r chi.Router) {
					r.Get("/", cfg.PaymentsHandler.Subscription)
					r.Post("/checkout", cfg.PaymentsHandler.Checkout)
					r.Post("/portal", cfg.PaymentsHandler.Portal)
					r.Post("/cancel", cfg.PaymentsHandler.CancelSubscription)
				})
			}
		})
	})

	return r
}
