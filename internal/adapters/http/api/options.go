package api

// DefaultMaxLimit caps the overall leaderboard limit parameter.
const DefaultMaxLimit = 10_000

type serverConfig struct {
	cacheBytes int
	maxLimit   int
}

// Option configures a Server.
type Option func(*serverConfig)

// WithCacheSize enables the view response cache with the given capacity in
// bytes. Zero disables it.
func WithCacheSize(bytes int) Option {
	return func(c *serverConfig) {
		if bytes >= 0 {
			c.cacheBytes = bytes
		}
	}
}

// WithMaxLimit sets the largest accepted /overall limit.
func WithMaxLimit(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxLimit = n
		}
	}
}
