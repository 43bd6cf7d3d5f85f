package http

import (
	"github.com/intranet-auth-api/internal/application/oauth"
	"github.com/intranet-auth-api/internal/infrastructure/dynamo"
	"github.com/intranet-auth-api/internal/infrastructure/smtp"
	"github.com/intranet-auth-api/internal/infrastructure/sns"
)

// Deps holds the infrastructure dependencies for the router. The application
// services are assembled from these in NewRouter.
type Deps struct {
	UserRepo      *dynamo.UserRepo
	SessionRepo   *dynamo.SessionRepo
	OtpRepo       *dynamo.OtpRepo
	RateLimitRepo *dynamo.RateLimitRepo
	Mailer        smtp.Mailer
	SMSSender     sns.SMSSender // optional, nil disables the SMS channel
	Verifier      oauth.IdentityVerifier
	OAuthProvider oauth.Exchanger
}
