package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hugh/go-contacts/internal/api/dto"
	"github.com/hugh/go-contacts/internal/api/handlers"
	"github.com/hugh/go-contacts/internal/api/middleware"
	"github.com/hugh/go-contacts/internal/auth"
	"github.com/hugh/go-contacts/internal/contacts"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
	limiter *middleware.RateLimiter
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     auth.TokenService
	AuthService    *auth.Service
	ContactService *contacts.Service
	Avatars        handlers.AvatarProcessor
	MaxUploadBytes int64
	PublicDir      string   // served at /avatars when avatars are stored locally
	AllowedOrigins []string // CORS allowed origins
	RateLimitReqs  int      // Rate limit requests per window, 0 disables
	RateLimitSecs  int      // Rate limit window in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	var limiter *middleware.RateLimiter
	if cfg.RateLimitReqs > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitReqs, cfg.RateLimitSecs)
	}

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.Avatars, cfg.MaxUploadBytes, cfg.Logger)
	contactHandler := handlers.NewContactHandler(cfg.ContactService, cfg.Logger)
	requireAuth := middleware.Auth(cfg.JWTService, cfg.AuthService)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Route("/api/users", func(r chi.Router) {
		// Public endpoints
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.Middleware)
			}
			r.With(middleware.ValidateBody[dto.SignupRequest]()).Post("/signup", authHandler.Signup)
			r.With(middleware.ValidateBody[dto.LoginRequest]()).Post("/login", authHandler.Login)
			r.With(middleware.ValidateBody[dto.EmailRequest]()).Post("/verify", authHandler.ResendVerification)
			r.Get("/verify/{token}", authHandler.Verify)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/logout", authHandler.Logout)
			r.Get("/current", authHandler.Current)
			r.With(middleware.ValidateBody[dto.SubscriptionRequest]()).Patch("/", authHandler.UpdateSubscription)
			r.Patch("/avatars", authHandler.UpdateAvatar)
		})
	})

	r.Route("/api/contacts", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", contactHandler.List)
		r.With(middleware.ValidateBody[dto.CreateContactRequest]()).Post("/", contactHandler.Create)
		r.Get("/{id}", contactHandler.Get)
		r.With(middleware.ValidateBody[dto.UpdateContactRequest]()).Put("/{id}", contactHandler.Update)
		r.With(middleware.ValidateBody[dto.FavoriteRequest]()).Patch("/{id}/favorite", contactHandler.UpdateFavorite)
		r.Delete("/{id}", contactHandler.Delete)
	})

	// Locally stored avatars
	if cfg.PublicDir != "" {
		fileServer := http.FileServer(http.Dir(cfg.PublicDir))
		r.Handle("/avatars/*", fileServer)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Message: "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, dto.ErrorResponse{Message: "Method not allowed"})
	})

	return &Router{Router: r, limiter: limiter}
}

// Close releases background resources held by the router's middleware.
func (rt *Router) Close() {
	if rt.limiter != nil {
		rt.limiter.Stop()
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
