package models

// RateLimitConfig holds token bucket parameters.
type RateLimitConfig struct {
	BucketSize      int `bson:"bucket_size" json:"bucket_size"`
	TokenRefillRate int `bson:"token_refill_rate" json:"token_refill_rate"` // Tokens per second
}

// APIEndpointConfig defines per-endpoint overrides for auth and rate limits.
// Stored in the `api_endpoints_config` collection, keyed by route path.
type APIEndpointConfig struct {
	Base          `bson:",inline"`
	Endpoint      string           `bson:"endpoint" json:"endpoint"` // Gin route path, e.g. "/v1/inquiry"
	AuthRequired  bool             `bson:"auth_required" json:"auth_required"`
	RateLimitSoft *RateLimitConfig `bson:"rate_limit_soft,omitempty" json:"rate_limit_soft,omitempty"`
	RateLimitHard *RateLimitConfig `bson:"rate_limit_hard,omitempty" json:"rate_limit_hard,omitempty"`
}
