package domain

// OtpCode is a single-use login code. PK: email — one row per address, so a
// new issuance overwrites (supersedes) any prior unconsumed code. Only the
// SHA-256 of the code is stored.
type OtpCode struct {
	Email     string `json:"email" dynamodbav:"email"`
	CodeHash  string `json:"-" dynamodbav:"code_hash"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // Unix seconds, DynamoDB TTL
	Consumed  bool   `json:"consumed" dynamodbav:"consumed"`
}
