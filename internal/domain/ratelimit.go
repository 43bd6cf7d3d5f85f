package domain

// RateLimitRecord is a fixed-window counter row keyed by (email, ip, route).
// LimitKey is the composite "email#ip#route" partition key.
type RateLimitRecord struct {
	LimitKey    string `json:"-" dynamodbav:"limit_key"`
	Count       int    `json:"count" dynamodbav:"count"`
	LastRequest int64  `json:"last_request" dynamodbav:"last_request"` // Unix seconds
}

// RateLimitKey builds the composite partition key. The three parts are
// tracked independently per route: one IP hammering many emails and one
// email attacked from many IPs each get their own counters.
func RateLimitKey(email, ip, route string) string {
	return email + "#" + ip + "#" + route
}
