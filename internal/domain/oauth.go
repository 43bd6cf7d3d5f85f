package domain

// Opaque OAuth flow failure codes. These are the only detail that ever
// reaches the browser: the error page receives the code and nothing else.
const (
	OAuthInvalidParams      = "INVALID_PARAMS"
	OAuthCSRFMismatch       = "CSRF_MISMATCH"
	OAuthCodeExchangeFailed = "CODE_EXCHANGE_FAILED"
	OAuthUnauthorizedDomain = "UNAUTHORIZED_DOMAIN"
)

// FlowError is a terminal OAuth flow failure carrying an opaque code for the
// redirect and an internal cause for the log.
type FlowError struct {
	Code  string
	Cause error
}

func (e *FlowError) Error() string {
	if e.Cause != nil {
		return e.Code + ": " + e.Cause.Error()
	}
	return e.Code
}

func (e *FlowError) Unwrap() error { return e.Cause }

// IdentityClaims are the verified claims extracted from a provider ID token.
type IdentityClaims struct {
	Sub     string
	Email   string
	Name    string
	Picture string
}
