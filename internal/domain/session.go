package domain

import "time"

// Session is a bearer session row. The plaintext token exists only in the
// response to the caller at issuance time; the table key is its SHA-256 hash,
// so the store never holds anything replayable.
type Session struct {
	TokenHash string    `json:"-" dynamodbav:"token_hash"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"` // Unix seconds, also the DynamoDB TTL attribute
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
	User      *User     `json:"user,omitempty" dynamodbav:"-"`
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt <= now.Unix()
}
