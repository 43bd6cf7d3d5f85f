package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/intranet-auth-api/internal/config"
	"github.com/intranet-auth-api/internal/infrastructure/dynamo"
	googleinfra "github.com/intranet-auth-api/internal/infrastructure/google"
	"github.com/intranet-auth-api/internal/infrastructure/smtp"
	"github.com/intranet-auth-api/internal/infrastructure/sns"
	transporthttp "github.com/intranet-auth-api/internal/transport/http"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — graceful fallback to email-only codes).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		RedirectURL:  cfg.OAuthRedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}

	deps := &transporthttp.Deps{
		UserRepo:      dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		SessionRepo:   dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		OtpRepo:       dynamo.NewOtpRepo(dynamoClient, cfg.DynamoTables.OtpCodes),
		RateLimitRepo: dynamo.NewRateLimitRepo(dynamoClient, cfg.DynamoTables.RateLimits),
		Mailer:        mailer,
		SMSSender:     smsSender,
		Verifier:      googleinfra.NewVerifier(cfg.OAuthClientID),
		OAuthProvider: oauthCfg,
	}

	router, sessionSvc, limiterSvc := transporthttp.NewRouter(cfg, deps)

	// Background hygiene: expired-session sweep and rate-limit purge.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sessionSvc.SweepExpired(sweepCtx); err != nil {
					log.Printf("WARN: session sweep failed: %v", err)
				}
				if err := limiterSvc.Purge(sweepCtx); err != nil {
					log.Printf("WARN: rate-limit purge failed: %v", err)
				}
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
