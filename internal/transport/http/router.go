package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/intranet-auth-api/internal/application/auth"
	"github.com/intranet-auth-api/internal/application/oauth"
	"github.com/intranet-auth-api/internal/application/ratelimit"
	"github.com/intranet-auth-api/internal/application/session"
	"github.com/intranet-auth-api/internal/config"
	"github.com/intranet-auth-api/internal/transport/http/handler"
	appmiddleware "github.com/intranet-auth-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds the application router. The session service is returned
// alongside so the caller can run the background expiry sweep against the
// same instance; likewise the rate-limit service for the purge loop.
func NewRouter(cfg *config.Config, deps *Deps) (http.Handler, session.Service, ratelimit.Service) {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	cookies := &appmiddleware.CookieWriter{
		Domain: cfg.CookieDomain,
		Secure: cfg.CookieSecure,
	}

	// 5 requests/second, burst of 10 — a coarse transport guard in front of
	// the account-keyed limiter on the credential endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	limiterSvc := ratelimit.NewService(ratelimit.Deps{
		Repo:      deps.RateLimitRepo,
		Limit:     cfg.LoginRateLimit,
		Window:    cfg.LoginRateWindow,
		Retention: cfg.RateLimitRetention,
	})
	sessionSvc := session.NewService(session.Deps{
		SessionRepo: deps.SessionRepo,
		UserRepo:    deps.UserRepo,
		Lifetime:    cfg.SessionLifetime,
		RenewWithin: cfg.SessionRenewWithin,
	})
	authSvc := auth.NewService(auth.Deps{
		UserRepo:  deps.UserRepo,
		OtpRepo:   deps.OtpRepo,
		Sessions:  sessionSvc,
		Limiter:   limiterSvc,
		Mailer:    deps.Mailer,
		SMSSender: deps.SMSSender,
		OTPLength: cfg.OTPLength,
		OTPTTL:    cfg.OTPTTL,
	})
	oauthSvc := oauth.NewService(oauth.Deps{
		Users:          deps.UserRepo,
		Sessions:       sessionSvc,
		Verifier:       deps.Verifier,
		Provider:       deps.OAuthProvider,
		AllowedDomains: cfg.OAuthAllowedDomains,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc, sessionSvc, cookies)
	sessionH := handler.NewSessionHandler(sessionSvc)
	oauthH := handler.NewOAuthHandler(oauthSvc, cookies, cfg.OAuthSuccessURL, cfg.OAuthErrorURL)

	authMw := appmiddleware.Auth(sessionSvc, cookies)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)
		r.With(sensitiveRL.Limit).Post("/auth/verify", authH.Verify)
		r.With(sensitiveRL.Limit).Post("/auth/password-login", authH.PasswordLogin)
		r.With(sensitiveRL.Limit).Post("/auth/register", authH.Register)
		r.Post("/auth/logout", authH.Logout)
		r.With(sensitiveRL.Limit).Post("/sessions/validate", sessionH.Validate)
		r.Get("/oauth/google/start", oauthH.Start)
		r.Get("/oauth/google/callback", oauthH.Callback)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
		})
	})

	return r, sessionSvc, limiterSvc
}
